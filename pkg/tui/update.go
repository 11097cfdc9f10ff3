package tui

import (
	"fmt"
	"log"
	"strings"
	"time"

	"agentterm/pkg/models"
	"agentterm/pkg/rpc"
	"agentterm/pkg/typewriter"
	"agentterm/pkg/utils"
	"agentterm/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshViewport()

	case typewriter.TickMsg:
		for id, tw := range m.typewriters {
			if tw.ID() != msg.ID {
				continue
			}
			tw, cmd := tw.Update(msg)
			m.typewriters[id] = tw
			cmds = append(cmds, cmd)
			break
		}

	case advancedMsg:
		m.refreshViewport()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case thinkingTickMsg:
		if m.session.CommandPending() {
			m.thinkingIdx = (m.thinkingIdx + 1) % len(thinkingPhrases)
			cmds = append(cmds, thinkingTick())
		}

	case clearStatusMsg:
		m.statusMessage = ""

	case watcher.Event:
		// Re-subscribe to next event
		cmds = append(cmds, listenForWatcher(m.sub))

		switch msg.Type {
		case watcher.EventBalanceUpdated:
			if data, ok := msg.Data.(watcher.BalanceUpdate); ok {
				m.session.BalanceUpdated(data.Address, data.Balance)
				cmds = append(cmds, m.afterTransition(nil))
			}
		case watcher.EventBalanceFailed:
			if data, ok := msg.Data.(watcher.BalanceFailure); ok {
				log.Printf("balance %s: %s", data.Address, data.Error)
			}
		}

	case refreshBalanceMsg:
		if m.watcher != nil {
			m.watcher.Refresh()
		}

	case walletConnectedMsg:
		m.statusMessage = "Wallet connected: " + utils.ShortAddress(msg.address)
		cmds = append(cmds, m.afterTransition(m.session.Connected(msg.address)), clearStatusAfter(2*time.Second))

	case walletErrorMsg:
		log.Printf("wallet connect: %v", msg.err)
		m.session.Notify(models.LineError, ">> WALLET ERROR: "+rpc.ShortReason(msg.err))
		cmds = append(cmds, m.afterTransition(nil))

	case initResultMsg:
		if msg.err != nil {
			m.session.InitFailed(msg.address, msg.err)
			cmds = append(cmds, m.afterTransition(nil))
			break
		}
		cmds = append(cmds, m.afterTransition(m.session.InitSucceeded(msg.address, msg.resp)))

	case commandResultMsg:
		if msg.err != nil {
			m.session.CommandFailed(msg.err)
			cmds = append(cmds, m.afterTransition(nil))
			break
		}
		cmds = append(cmds, m.afterTransition(m.session.CommandSucceeded(msg.input, msg.reply)))

	case portfolioResultMsg:
		if msg.err != nil {
			log.Printf("refresh portfolio: %v", msg.err)
			break
		}
		m.session.PortfolioRefreshed(msg.address, msg.resp)
		cmds = append(cmds, m.afterTransition(nil))

	case fundResultMsg:
		if msg.err != nil {
			log.Printf("fund agent: %v", msg.err)
			m.session.FundFailed(rpc.ShortReason(msg.err))
			cmds = append(cmds, m.afterTransition(nil))
			break
		}
		cmds = append(cmds, m.afterTransition(m.session.FundSucceeded(msg.hash)))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.String() {
	case "ctrl+c", "esc":
		if m.watcher != nil && m.sub != nil {
			m.watcher.Unsubscribe(m.sub)
		}
		return m, tea.Quit

	case "enter":
		value := m.input.Value()
		if strings.TrimSpace(value) == "" {
			return m, nil
		}
		if !m.session.IsConnected() {
			m.statusMessage = "Connect a wallet first (ctrl+w)"
			return m, clearStatusAfter(2 * time.Second)
		}
		if m.session.CommandPending() {
			return m, nil
		}
		m.input.Reset()
		m.follow = true
		m.thinkingIdx = 0
		return m, m.afterTransition(m.session.Submit(value))

	case "ctrl+w":
		if m.wallet == nil {
			return m, nil
		}
		if m.session.IsConnected() {
			m.wallet.Disconnect()
			m.session.Disconnected()
			m.statusMessage = "Wallet disconnected"
			return m, tea.Batch(m.afterTransition(nil), clearStatusAfter(2*time.Second))
		}
		m.statusMessage = "Connecting wallet..."
		return m, m.connectCmd()

	case "ctrl+f":
		if m.session.AgentAddress() == "" {
			m.statusMessage = "No agent online yet"
			return m, clearStatusAfter(2 * time.Second)
		}
		return m, m.afterTransition(m.session.FundRequested())

	case "ctrl+y":
		addr := m.session.AgentAddress()
		if addr == "" {
			return m, nil
		}
		if err := m.clip(addr); err != nil {
			m.statusMessage = "Failed to copy to clipboard"
		} else {
			m.statusMessage = "Agent address copied to clipboard!"
		}
		return m, clearStatusAfter(2 * time.Second)

	case "ctrl+o":
		txLog := m.session.TxLog()
		if len(txLog) == 0 {
			return m, nil
		}
		url := m.cfg.ExplorerTxURL(txLog[0].Hash)
		if url == "" {
			m.statusMessage = "Explorer URL not configured for this chain"
			return m, clearStatusAfter(2 * time.Second)
		}
		m.statusMessage = m.openURL(url)
		return m, clearStatusAfter(2 * time.Second)

	case "ctrl+l":
		link, ok := m.latestLink()
		if !ok {
			return m, nil
		}
		m.statusMessage = m.openURL(link.URL)
		return m, clearStatusAfter(2 * time.Second)

	case "ctrl+left", "ctrl+right":
		chart := m.latestChart()
		if chart == nil || len(chart.Data) == 0 {
			return m, nil
		}
		if msg.String() == "ctrl+right" {
			m.chartCursor++
		} else {
			m.chartCursor--
		}
		if m.chartCursor >= len(chart.Data) {
			m.chartCursor = len(chart.Data) - 1
		}
		if m.chartCursor < -1 {
			m.chartCursor = -1
		}
		m.refreshViewport()
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) openURL(url string) string {
	if !isExternal(url) {
		return "Refusing to open non-http link"
	}
	if err := m.open(url); err != nil {
		log.Printf("open %s: %v", url, err)
		return fmt.Sprintf("Failed to open browser: %v", err)
	}
	return "Opened " + utils.TruncateString(url, 48)
}
