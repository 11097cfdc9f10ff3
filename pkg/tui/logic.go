package tui

import (
	"log"
	"time"

	"agentterm/pkg/message"
	"agentterm/pkg/models"
	"agentterm/pkg/rpc"
	"agentterm/pkg/session"
	"agentterm/pkg/typewriter"
	"agentterm/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// ThinkingInterval is how long each status phrase stays up while a
// command is pending.
const ThinkingInterval = 1200 * time.Millisecond

var thinkingPhrases = []string{
	"ESTABLISHING SECURE UPLINK...",
	"LOADING QUANT MODELS...",
	"ANALYZING ON-CHAIN DATA...",
	"VERIFYING CONTRACT PERMISSIONS...",
	"SIMULATING TRANSACTION PATH...",
	"SIGNING PAYLOAD...",
	"BROADCASTING TO NETWORK...",
}

func listenForWatcher(sub watcher.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

// syncLines gives every new conversation line its own typewriter and
// mirrors it to watcher subscribers.
func (m *model) syncLines() []tea.Cmd {
	var cmds []tea.Cmd
	lines := m.session.Lines()
	for _, line := range lines[m.known:] {
		opts := []typewriter.Option{
			typewriter.WithInterval(m.cfg.TypewriterInterval()),
			typewriter.WithOnAdvance(func() tea.Cmd {
				return func() tea.Msg { return advancedMsg{} }
			}),
		}
		if m.schedule != nil {
			opts = append(opts, typewriter.WithScheduler(m.schedule))
		}
		tw := typewriter.New(opts...)

		mode := typewriter.Animated
		if line.Type != models.LineAgent {
			mode = typewriter.Instant
		}
		tw, cmd := tw.SetText(message.Decode(line.Text).Text, mode)
		m.typewriters[line.ID] = tw
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		if line.Type == models.LineAgent && message.Decode(line.Text).Chart != nil {
			m.chartCursor = -1
		}
		m.publish(watcher.EventLineAppended, line)
	}
	m.known = len(lines)
	return cmds
}

// afterTransition runs after every session event: it syncs lines, mirrors
// the session and turns the returned effects into commands.
func (m *model) afterTransition(effects []session.Effect) tea.Cmd {
	cmds := m.syncLines()

	txLog := m.session.TxLog()
	if len(txLog) != m.txSeen {
		if len(txLog) > 0 {
			m.publish(watcher.EventTxLogged, txLog[0])
		}
		m.txSeen = len(txLog)
	}
	m.publish(watcher.EventSessionUpdated, m.snapshot())

	for _, eff := range effects {
		if cmd := m.effectCmd(eff); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	m.refreshViewport()
	return tea.Batch(cmds...)
}

func (m *model) publish(t watcher.EventType, data interface{}) {
	if m.watcher != nil {
		m.watcher.Publish(watcher.Event{Type: t, Data: data})
	}
}

func (m model) snapshot() models.SessionSnapshot {
	snap := models.SessionSnapshot{
		Identity:     m.session.Identity(),
		Phase:        m.session.Phase().String(),
		AgentAddress: m.session.AgentAddress(),
		Portfolio:    m.session.DisplayPortfolio(),
		TxLog:        m.session.TxLog(),
		Lines:        len(m.session.Lines()),
	}
	if total, ready := m.session.AUM(); ready {
		snap.AUM = total.StringFixed(int32(m.cfg.FiatDecimals))
		snap.AUMReady = true
	}
	return snap
}

func (m model) effectCmd(eff session.Effect) tea.Cmd {
	switch e := eff.(type) {
	case session.InitUser:
		return m.initCmd(e.Address)
	case session.RunCommand:
		return tea.Batch(m.runCmd(e), thinkingTick())
	case session.RefreshPortfolio:
		return m.portfolioCmd(e.Address)
	case session.WatchBalance:
		w := m.watcher
		if w == nil {
			return nil
		}
		return func() tea.Msg {
			w.Watch(e.Address)
			return nil
		}
	case session.RefreshBalance:
		if e.Delay > 0 {
			return tea.Tick(e.Delay, func(time.Time) tea.Msg { return refreshBalanceMsg{} })
		}
		return func() tea.Msg { return refreshBalanceMsg{} }
	case session.FundAgent:
		return m.fundCmd(e)
	}
	log.Printf("tui: unhandled effect %T", eff)
	return nil
}

func (m model) connectCmd() tea.Cmd {
	wallet := m.wallet
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		addr, err := wallet.Connect(ctx)
		if err != nil {
			return walletErrorMsg{err: err}
		}
		return walletConnectedMsg{address: addr}
	}
}

func (m model) initCmd(address string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		resp, err := backend.InitUser(ctx, address)
		return initResultMsg{address: address, resp: resp, err: err}
	}
}

func (m model) portfolioCmd(address string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		resp, err := backend.InitUser(ctx, address)
		return portfolioResultMsg{address: address, resp: resp, err: err}
	}
}

func (m model) runCmd(e session.RunCommand) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		reply, err := backend.RunStrategy(ctx, models.StrategyRequest{
			UserAddress: e.Address,
			Input:       e.Input,
			ThreadID:    e.ThreadID,
		})
		return commandResultMsg{input: e.Input, reply: reply, err: err}
	}
}

func (m model) fundCmd(e session.FundAgent) tea.Cmd {
	wallet := m.wallet
	return func() tea.Msg {
		if wallet == nil {
			return fundResultMsg{err: rpc.ErrNoSigner}
		}
		ctx, cancel := m.requestContext()
		defer cancel()
		hash, err := wallet.SendValue(ctx, e.To, e.Amount)
		return fundResultMsg{hash: hash, err: err}
	}
}

func thinkingTick() tea.Cmd {
	return tea.Tick(ThinkingInterval, func(time.Time) tea.Msg { return thinkingTickMsg{} })
}

// latestChart returns the chart of the newest agent line that carries one.
func (m model) latestChart() *models.ChartPayload {
	lines := m.session.Lines()
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Type != models.LineAgent {
			continue
		}
		if chart := message.Decode(lines[i].Text).Chart; chart != nil {
			return chart
		}
	}
	return nil
}

// latestLink returns the newest http(s) link in the conversation.
func (m model) latestLink() (typewriter.Link, bool) {
	lines := m.session.Lines()
	for i := len(lines) - 1; i >= 0; i-- {
		links := m.typewriters[lines[i].ID].Links()
		if len(links) > 0 {
			return links[len(links)-1], true
		}
	}
	return typewriter.Link{}, false
}
