package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// LineType classifies a conversation line.
type LineType string

const (
	LineSystem  LineType = "system"
	LineAgent   LineType = "agent"
	LineUser    LineType = "user"
	LineError   LineType = "error"
	LineSuccess LineType = "success"
)

// ConversationLine is one immutable entry of the conversation history.
type ConversationLine struct {
	ID   string   `json:"id"`
	Type LineType `json:"type"`
	Text string   `json:"text"`
}

// ChartKind is the "type" tag of an embedded chart payload.
type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartPie  ChartKind = "pie"
)

// Known reports whether the kind is one the renderer can draw.
func (k ChartKind) Known() bool {
	return k == ChartLine || k == ChartPie
}

// ChartRecord is one data point of a chart payload.
type ChartRecord map[string]any

// Number returns the numeric value stored under key.
func (r ChartRecord) Number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Label returns the value stored under key as display text.
func (r ChartRecord) Label(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ChartPayload is the structured chart an agent reply may embed.
type ChartPayload struct {
	Type   ChartKind         `json:"type"`
	Title  string            `json:"title,omitempty"`
	Data   []ChartRecord     `json:"data"`
	Keys   []string          `json:"keys,omitempty"`
	Colors map[string]string `json:"colors,omitempty"`
}

// DecodedMessage is an agent reply split into display text and chart.
type DecodedMessage struct {
	Text  string
	Chart *ChartPayload
}

// Portfolio maps asset symbols to held quantity.
type Portfolio map[string]float64

// Clone returns a shallow copy that is safe to modify.
func (p Portfolio) Clone() Portfolio {
	cp := make(Portfolio, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// MarketPrices maps lowercase asset symbols to USD unit price.
type MarketPrices map[string]float64

// TxLogEntry is one row of the transaction log.
type TxLogEntry struct {
	Hash string `json:"hash"`
	Type string `json:"type"`
	Time string `json:"time"`
}

// Trade is a trade record as reported by the backend.
type Trade struct {
	TxHash    string  `json:"tx_hash"`
	Side      string  `json:"side"`
	Timestamp float64 `json:"timestamp"`
}

// InitRequest is the body of POST /api/init-user.
type InitRequest struct {
	UserAddress string `json:"user_address"`
}

// InitResponse is the reply of POST /api/init-user.
type InitResponse struct {
	AgentAddress string       `json:"agent_address"`
	Portfolio    Portfolio    `json:"portfolio"`
	Prices       MarketPrices `json:"prices"`
	Trades       []Trade      `json:"trades"`
	TotalUSD     float64      `json:"total_usd,omitempty"`
}

// StrategyRequest is the body of POST /api/run-strategy.
type StrategyRequest struct {
	UserAddress string `json:"user_address"`
	Input       string `json:"input"`
	ThreadID    string `json:"thread_id"`
}

// StrategyResponse is the reply of POST /api/run-strategy.
type StrategyResponse struct {
	Result string `json:"result"`
}

// SessionSnapshot is the read-only view of a session published to mirror
// clients.
type SessionSnapshot struct {
	Identity     string       `json:"identity"`
	Phase        string       `json:"phase"`
	AgentAddress string       `json:"agent_address,omitempty"`
	AUM          string       `json:"aum,omitempty"`
	AUMReady     bool         `json:"aum_ready"`
	Portfolio    Portfolio    `json:"portfolio"`
	TxLog        []TxLogEntry `json:"tx_log"`
	Lines        int          `json:"lines"`
}

// RPCResult holds check results for a specific RPC URL.
type RPCResult struct {
	URL     string `json:"url"`
	Status  string `json:"status"` // "ok" or "error"
	ChainID int64  `json:"chain_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CheckReport holds the results of the configuration check.
type CheckReport struct {
	ConfigPath      string      `json:"config_path"`
	ValidStructure  bool        `json:"valid_structure"`
	StructureErrors []string    `json:"structure_errors,omitempty"`
	ChainName       string      `json:"chain_name"`
	ConfigChainID   int64       `json:"config_chain_id"`
	ObservedChainID int64       `json:"observed_chain_id,omitempty"`
	RPCs            []RPCResult `json:"rpcs,omitempty"`
	Inconsistent    bool        `json:"inconsistent"`
	ChainIDUpdated  bool        `json:"chain_id_updated"`
	ConfigUpdated   bool        `json:"config_updated"`
	SaveError       string      `json:"save_error,omitempty"`
	DryRun          bool        `json:"dry_run"`
}
