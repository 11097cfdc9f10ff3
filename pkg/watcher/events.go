package watcher

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventBalanceUpdated EventType = "balance_updated"
	EventBalanceFailed  EventType = "balance_failed"
	EventLineAppended   EventType = "line_appended"
	EventTxLogged       EventType = "tx_logged"
	EventSessionUpdated EventType = "session_updated"
)

// Event represents a monitoring event.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event

// BalanceUpdate is the data of EventBalanceUpdated.
type BalanceUpdate struct {
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
	At      time.Time       `json:"at"`
}

// BalanceFailure is the data of EventBalanceFailed.
type BalanceFailure struct {
	Address string `json:"address"`
	Error   string `json:"error"`
}
