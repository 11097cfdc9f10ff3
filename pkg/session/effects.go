package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// Effect is outbound work requested by a session transition.
type Effect interface {
	effect()
}

// InitUser asks the backend for the agent bound to Address.
type InitUser struct {
	Address string
}

// RunCommand sends a natural-language command to the agent.
type RunCommand struct {
	Address  string
	Input    string
	ThreadID string
}

// RefreshPortfolio re-reads the portfolio snapshot for Address.
type RefreshPortfolio struct {
	Address string
}

// WatchBalance starts polling the chain balance of Address.
type WatchBalance struct {
	Address string
}

// RefreshBalance re-reads the watched balance after Delay.
type RefreshBalance struct {
	Delay time.Duration
}

// FundAgent sends Amount of the native asset to To from the user wallet.
type FundAgent struct {
	To     string
	Amount decimal.Decimal
}

func (InitUser) effect()         {}
func (RunCommand) effect()       {}
func (RefreshPortfolio) effect() {}
func (WatchBalance) effect()     {}
func (RefreshBalance) effect()   {}
func (FundAgent) effect()        {}
