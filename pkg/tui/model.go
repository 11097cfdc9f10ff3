package tui

import (
	"context"
	"time"

	"agentterm/pkg/config"
	"agentterm/pkg/models"
	"agentterm/pkg/session"
	"agentterm/pkg/typewriter"
	"agentterm/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Version is set by Start()
var Version = "dev"

// Backend is the agent API used by the terminal.
type Backend interface {
	InitUser(ctx context.Context, userAddress string) (models.InitResponse, error)
	RunStrategy(ctx context.Context, req models.StrategyRequest) (string, error)
}

// Wallet is the user's chain identity and signer.
type Wallet interface {
	Address() string
	Connect(ctx context.Context) (string, error)
	Disconnect()
	SendValue(ctx context.Context, to string, amount decimal.Decimal) (string, error)
}

// Opener launches an external URL, e.g. in the browser.
type Opener func(url string) error

// Copier writes text to the system clipboard.
type Copier func(text string) error

// --- Messages ---

type clearStatusMsg struct{}
type thinkingTickMsg struct{}
type advancedMsg struct{}
type refreshBalanceMsg struct{}

type walletConnectedMsg struct{ address string }
type walletErrorMsg struct{ err error }

type initResultMsg struct {
	address string
	resp    models.InitResponse
	err     error
}

type commandResultMsg struct {
	input string
	reply string
	err   error
}

type portfolioResultMsg struct {
	address string
	resp    models.InitResponse
	err     error
}

type fundResultMsg struct {
	hash string
	err  error
}

// Deps are the collaborators of the terminal program.
type Deps struct {
	Config  config.Config
	Backend Backend
	Wallet  Wallet
	Watcher *watcher.Watcher
	Open    Opener
	Copy    Copier
	// Schedule overrides the typewriter timer, for tests.
	Schedule typewriter.Scheduler
}

// --- Model ---

type model struct {
	cfg     config.Config
	session *session.Session
	backend Backend
	wallet  Wallet
	watcher *watcher.Watcher
	sub     watcher.Subscriber
	open    Opener
	clip    Copier

	schedule    typewriter.Scheduler
	typewriters map[string]typewriter.Model
	known       int
	txSeen      int
	startCmds   []tea.Cmd

	viewport      viewport.Model
	input         textinput.Model
	spinner       spinner.Model
	width         int
	height        int
	follow        bool
	chartCursor   int
	thinkingIdx   int
	statusMessage string
}

func bannerLines() []models.ConversationLine {
	return []models.ConversationLine{
		{Type: models.LineSystem, Text: "AGENTTERM " + Version + " [Base Sepolia]"},
		{Type: models.LineAgent, Text: "System Online. Connect Wallet (**ctrl+w**) to initialize Agent Uplink."},
	}
}

func initialModel(d Deps) model {
	fund, err := d.Config.FundAmountDecimal()
	if err != nil {
		fund = decimal.RequireFromString("0.01")
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#06b6d4"))

	ti := textinput.New()
	ti.Placeholder = "Enter strategy command..."
	ti.Prompt = "investor@agent:~$ "
	ti.PromptStyle = promptStyle
	ti.CharLimit = 500
	ti.Focus()

	open, cp := d.Open, d.Copy
	if open == nil {
		open = openBrowser
	}
	if cp == nil {
		cp = copyToClipboard
	}

	m := model{
		cfg: d.Config,
		session: session.New(session.Options{
			Native:     d.Config.Chain.Symbol,
			Stable:     d.Config.StableSymbol,
			FundAmount: fund,
			Banner:     bannerLines(),
		}),
		backend:     d.Backend,
		wallet:      d.Wallet,
		watcher:     d.Watcher,
		open:        open,
		clip:        cp,
		schedule:    d.Schedule,
		typewriters: make(map[string]typewriter.Model),
		viewport:    viewport.New(0, 0),
		input:       ti,
		spinner:     s,
		follow:      true,
		chartCursor: -1,
	}
	if m.watcher != nil {
		m.sub = m.watcher.Subscribe()
	}
	m.startCmds = m.syncLines()
	return m
}

func (m model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{}, m.startCmds...)

	// Subscribe to watcher events
	if m.sub != nil {
		cmds = append(cmds, listenForWatcher(m.sub))
	}
	cmds = append(cmds, m.spinner.Tick, textinput.Blink)

	if m.cfg.AutoConnect && m.wallet != nil && m.wallet.Address() != "" {
		cmds = append(cmds, m.connectCmd())
	}
	return tea.Batch(cmds...)
}

func (m model) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.cfg.RequestTimeout())
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
