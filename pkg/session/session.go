// Package session owns the conversation, portfolio, prices and transaction
// log of one terminal session. Every event is a method that mutates the
// Session and returns the outbound work it requires as Effects; the package
// performs no I/O itself.
package session

import (
	"fmt"
	"log"
	"strings"
	"time"

	"agentterm/pkg/message"
	"agentterm/pkg/models"
	"agentterm/pkg/portfolio"
	"agentterm/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Phase of the connection lifecycle.
type Phase int

const (
	Disconnected Phase = iota
	Initializing
	Ready
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return "disconnected"
	}
}

// Conversation texts.
const (
	DefaultReply       = "Command executed."
	InitFailureText    = ">> CONNECTION FAILURE: Backend Unreachable."
	CommandFailureText = ">> EXECUTION ERROR: Agent Lost Connection."
)

// FundDelay is how long after a funding broadcast the balance is re-read.
const FundDelay = 2 * time.Second

// Options configure a Session.
type Options struct {
	Native     string
	Stable     string
	FundAmount decimal.Decimal
	Banner     []models.ConversationLine
	Now        func() time.Time
	NewID      func() string
}

// Session is the state of one terminal session.
type Session struct {
	opts Options

	threadID    string
	lines       []models.ConversationLine
	phase       Phase
	identity    string
	initialized string

	agentAddress  string
	portfolio     models.Portfolio
	prices        models.MarketPrices
	pricesFetched bool
	liveBalance   *decimal.Decimal
	txLog         []models.TxLogEntry

	initLoading    bool
	commandPending bool
	fundPending    bool
}

// New creates a disconnected session seeded with the banner lines.
func New(opts Options) *Session {
	if opts.Native == "" {
		opts.Native = "ETH"
	}
	if opts.Stable == "" {
		opts.Stable = "USDC"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	s := &Session{
		opts:      opts,
		threadID:  opts.NewID(),
		portfolio: models.Portfolio{},
	}
	for _, l := range opts.Banner {
		s.addLine(l.Type, l.Text)
	}
	return s
}

func (s *Session) ThreadID() string { return s.threadID }
func (s *Session) Phase() Phase { return s.phase }
func (s *Session) Identity() string { return s.identity }
func (s *Session) AgentAddress() string { return s.agentAddress }
func (s *Session) Portfolio() models.Portfolio { return s.portfolio }
func (s *Session) Prices() models.MarketPrices { return s.prices }
func (s *Session) LiveBalance() *decimal.Decimal { return s.liveBalance }
func (s *Session) InitLoading() bool { return s.initLoading }
func (s *Session) CommandPending() bool { return s.commandPending }
func (s *Session) FundPending() bool { return s.fundPending }
func (s *Session) Lines() []models.ConversationLine { return s.lines }
func (s *Session) TxLog() []models.TxLogEntry { return s.txLog }
func (s *Session) Native() string { return s.opts.Native }
func (s *Session) Pricing() portfolio.Pricing { return portfolio.Pricing{Prices: s.prices, Stable: s.opts.Stable} }
func (s *Session) FundAmount() decimal.Decimal { return s.opts.FundAmount }
func (s *Session) IsConnected() bool { return s.identity != "" }
func (s *Session) CanSubmit() bool { return s.IsConnected() && !s.commandPending }
func (s *Session) DisplayPortfolio() models.Portfolio { return portfolio.Overlay(s.portfolio, s.opts.Native, s.liveBalance) }

// AUM returns the total under management and whether prices have been
// fetched at least once. An empty but present price map counts as fetched.
func (s *Session) AUM() (decimal.Decimal, bool) {
	if !s.pricesFetched {
		return decimal.Zero, false
	}
	return portfolio.AUM(s.portfolio, s.Pricing(), s.opts.Native, s.liveBalance), true
}

func (s *Session) addLine(t models.LineType, text string) {
	s.lines = append(s.lines, models.ConversationLine{ID: s.opts.NewID(), Type: t, Text: text})
}

// Notify appends a free-form line, e.g. a local UI notice.
func (s *Session) Notify(t models.LineType, text string) {
	s.addLine(t, text)
}

// Connected records a connected wallet identity. Initialization runs once
// per distinct identity until Disconnected is called.
func (s *Session) Connected(address string) []Effect {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil
	}
	s.identity = address
	if s.initialized == address {
		return nil
	}
	s.initialized = address
	s.phase = Initializing
	s.initLoading = true
	if s.agentAddress == "" {
		s.addLine(models.LineSystem, fmt.Sprintf(">> USER IDENTITY CONFIRMED: %s...", truncate(address, 6)))
	}
	return []Effect{InitUser{Address: address}}
}

// Disconnected clears the identity so the next connection initializes.
func (s *Session) Disconnected() {
	s.identity = ""
	s.initialized = ""
	s.phase = Disconnected
	s.initLoading = false
}

// InitSucceeded stores the backend snapshot returned for address.
func (s *Session) InitSucceeded(address string, resp models.InitResponse) []Effect {
	if address != s.identity {
		return nil
	}
	s.initLoading = false
	s.phase = Ready
	s.agentAddress = resp.AgentAddress
	s.applySnapshot(resp.Portfolio, resp.Prices)

	if len(resp.Trades) > 0 {
		logs := make([]models.TxLogEntry, 0, len(resp.Trades))
		for i := len(resp.Trades) - 1; i >= 0; i-- {
			t := resp.Trades[i]
			logs = append(logs, models.TxLogEntry{
				Hash: t.TxHash,
				Type: t.Side,
				Time: tradeTime(t.Timestamp).Format("15:04"),
			})
		}
		s.txLog = logs
	}

	if resp.AgentAddress == "" {
		return nil
	}
	s.addLine(models.LineSuccess, fmt.Sprintf(">> Agent Online: %s", resp.AgentAddress))
	return []Effect{WatchBalance{Address: resp.AgentAddress}}
}

// InitFailed reports the failure and allows a retry on the next connect.
func (s *Session) InitFailed(address string, err error) {
	if address != s.identity {
		return
	}
	s.initLoading = false
	s.initialized = ""
	s.phase = Disconnected
	log.Printf("init %s: %v", address, err)
	s.addLine(models.LineError, InitFailureText)
}

// Submit sends a user command. It is ignored while disconnected, while
// another command is pending, or when cmd is blank.
func (s *Session) Submit(cmd string) []Effect {
	if strings.TrimSpace(cmd) == "" || !s.CanSubmit() {
		return nil
	}
	s.addLine(models.LineUser, cmd)
	s.commandPending = true
	return []Effect{RunCommand{Address: s.identity, Input: cmd, ThreadID: s.threadID}}
}

// CommandSucceeded appends the agent reply, logs any transaction hash it
// contains and schedules a portfolio and balance refresh.
func (s *Session) CommandSucceeded(cmd, reply string) []Effect {
	s.commandPending = false
	if reply == "" {
		reply = DefaultReply
	}
	s.addLine(models.LineAgent, reply)

	if hash, ok := message.FindTxHash(reply); ok {
		kind := "EXEC"
		if strings.Contains(strings.ToLower(cmd), "buy") {
			kind = "BUY"
		}
		entry := models.TxLogEntry{Hash: hash, Type: kind, Time: s.opts.Now().Format("15:04:05")}
		s.txLog = append([]models.TxLogEntry{entry}, s.txLog...)
	}

	var effects []Effect
	if s.identity != "" {
		effects = append(effects, RefreshPortfolio{Address: s.identity})
	}
	return append(effects, RefreshBalance{})
}

// CommandFailed reports a failed command.
func (s *Session) CommandFailed(err error) {
	s.commandPending = false
	log.Printf("run strategy: %v", err)
	s.addLine(models.LineError, CommandFailureText)
}

// PortfolioRefreshed replaces portfolio and prices with a new snapshot.
func (s *Session) PortfolioRefreshed(address string, resp models.InitResponse) {
	if address != s.identity {
		return
	}
	s.applySnapshot(resp.Portfolio, resp.Prices)
}

func (s *Session) applySnapshot(p models.Portfolio, prices models.MarketPrices) {
	if p == nil {
		p = models.Portfolio{}
	}
	if prices == nil {
		prices = models.MarketPrices{}
	}
	s.portfolio = p
	s.prices = prices
	s.pricesFetched = true
}

// BalanceUpdated stores the live chain balance of the agent wallet.
func (s *Session) BalanceUpdated(address string, balance decimal.Decimal) {
	if s.agentAddress == "" || !strings.EqualFold(address, s.agentAddress) {
		return
	}
	s.liveBalance = &balance
}

// FundRequested asks the signer to send the fund amount to the agent.
func (s *Session) FundRequested() []Effect {
	if s.agentAddress == "" || s.fundPending {
		return nil
	}
	s.fundPending = true
	s.addLine(models.LineSystem, fmt.Sprintf(">> MANUAL OVERRIDE: Injecting Capital (%s %s)...", s.opts.FundAmount.String(), s.opts.Native))
	return []Effect{FundAgent{To: s.agentAddress, Amount: s.opts.FundAmount}}
}

// FundSucceeded reports the broadcast and schedules a balance re-read.
func (s *Session) FundSucceeded(hash string) []Effect {
	s.fundPending = false
	s.addLine(models.LineSuccess, fmt.Sprintf(">> TX BROADCAST: %s", hash))
	return []Effect{RefreshBalance{Delay: FundDelay}}
}

// FundFailed reports the signer's rejection reason.
func (s *Session) FundFailed(reason string) {
	s.fundPending = false
	s.addLine(models.LineError, fmt.Sprintf(">> TX REJECTED: %s", reason))
}

func tradeTime(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Describe is a one-line summary used by the status bar.
func (s *Session) Describe() string {
	if s.identity == "" {
		return "DISCONNECTED"
	}
	return fmt.Sprintf("%s %s", strings.ToUpper(s.phase.String()), utils.ShortAddress(s.identity))
}
