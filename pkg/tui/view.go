package tui

import (
	"fmt"
	"strings"

	"agentterm/pkg/chart"
	"agentterm/pkg/message"
	"agentterm/pkg/models"
	"agentterm/pkg/portfolio"
	"agentterm/pkg/utils"

	"github.com/charmbracelet/lipgloss"
)

const (
	sidebarWidth = 38
	chromeHeight = 4 // header, thinking line, input, status
)

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := m.viewHeader()
	side := sidebarStyle.Width(sidebarWidth).Height(m.height - 1).Render(m.viewSidebar())

	think := ""
	if m.session.CommandPending() {
		think = m.spinner.View() + " " + thinkStyle.Render(thinkingPhrases[m.thinkingIdx]+"_") +
			" " + subtleStyle.Render("RUNTIME_EXECUTION_ACTIVE")
	}
	status := subtleStyle.Render("enter send • ctrl+w wallet • ctrl+f fund • ctrl+y copy agent • ctrl+o tx • ctrl+l link • ctrl+←/→ chart • esc quit")
	if m.statusMessage != "" {
		status = infoStyle.Render(m.statusMessage)
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		think,
		m.input.View(),
		status,
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, side, " ", main))
}

func (m model) viewHeader() string {
	state := offlineStyle.Render("● DISCONNECTED")
	if m.session.IsConnected() {
		state = onlineStyle.Render("● SYSTEM_ONLINE")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("AGENTTERM"),
		" ",
		state,
		" ",
		subtleStyle.Render(fmt.Sprintf("%s • %s • %s", m.cfg.Chain.Name, m.session.Describe(), Version)),
	)
}

func (m model) viewSidebar() string {
	var sections []string

	sections = append(sections, labelStyle.Render("TOTAL AUM"))
	total, ready := m.session.AUM()
	switch {
	case m.session.InitLoading() || (!ready && m.session.IsConnected()):
		sections = append(sections, m.spinner.View()+" "+subtleStyle.Render("Analyzing..."))
	default:
		sections = append(sections, aumStyle.Render(utils.FormatUSD(total, m.cfg.FiatDecimals)))
	}
	sections = append(sections, "")

	rows := portfolio.Rows(m.session.DisplayPortfolio(), m.session.Pricing())
	sections = append(sections, portfolio.Render(rows, m.cfg.TokenDecimals, m.cfg.FiatDecimals), "")

	txLog := m.session.TxLog()
	sections = append(sections, labelStyle.Render(fmt.Sprintf("EVENT LOG  %d Txs", len(txLog))))
	if len(txLog) == 0 {
		sections = append(sections, subtleStyle.Italic(true).Render("No on-chain activity recorded."))
	}
	for i, entry := range txLog {
		if i >= 8 {
			sections = append(sections, subtleStyle.Render(fmt.Sprintf("+%d more", len(txLog)-i)))
			break
		}
		sections = append(sections, viewTxEntry(entry))
	}
	sections = append(sections, "")

	agent := m.session.AgentAddress()
	if agent == "" {
		sections = append(sections, labelStyle.Render("AGENT")+" "+subtleStyle.Render("offline"))
	} else {
		sections = append(sections, labelStyle.Render("AGENT")+" "+infoStyle.Render(utils.ShortAddress(agent)))
		if m.session.FundPending() {
			sections = append(sections, subtleStyle.Render("Broadcasting..."))
		} else {
			sections = append(sections, subtleStyle.Render(fmt.Sprintf("ctrl+f add %s %s", m.session.FundAmount(), m.session.Native())))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func viewTxEntry(e models.TxLogEntry) string {
	tag := execTagStyle.Render(e.Type)
	if e.Type == "BUY" {
		tag = buyTagStyle.Render(e.Type)
	}
	hash := e.Hash
	if len(hash) > 20 {
		hash = hash[:20] + "..."
	}
	return fmt.Sprintf("%s %s %s", tag, subtleStyle.Render(e.Time), hash)
}

func (m *model) resize() {
	mainWidth := m.width - sidebarWidth - 4
	if mainWidth < 20 {
		mainWidth = 20
	}
	vpHeight := m.height - chromeHeight - 1
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = mainWidth
	m.viewport.Height = vpHeight
	m.input.Width = mainWidth - len(m.input.Prompt) - 2
}

func (m *model) refreshViewport() {
	if m.viewport.Width == 0 {
		return
	}
	m.viewport.SetContent(m.renderConversation(m.viewport.Width))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m model) renderConversation(width int) string {
	lines := m.session.Lines()
	chartLine := m.latestChartLineID()
	blocks := make([]string, 0, len(lines))
	for _, line := range lines {
		tw := m.typewriters[line.ID]
		textWidth := width - 3
		switch line.Type {
		case models.LineUser:
			blocks = append(blocks, promptStyle.Render("➜ ")+userStyle.Render(tw.View(textWidth-2)))
		case models.LineError:
			blocks = append(blocks, errBarStyle.Render(errStyle.Render(tw.View(textWidth))))
		case models.LineSystem:
			blocks = append(blocks, lineBarStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
				subtleStyle.Render("SYSTEM LOG"),
				subtleStyle.Render(tw.View(textWidth)),
			)))
		case models.LineSuccess:
			blocks = append(blocks, lineBarStyle.Render(infoStyle.Render(tw.View(textWidth))))
		default:
			parts := []string{agentStyle.Render(tw.View(textWidth))}
			if c := message.Decode(line.Text).Chart; c != nil {
				cursor := -1
				if line.ID == chartLine {
					cursor = m.chartCursor
				}
				if drawn := chart.Render(*c, chart.Options{Width: textWidth - 12, Height: 8, Cursor: cursor}); drawn != "" {
					parts = append(parts, boxStyle.Render(drawn))
				}
			}
			blocks = append(blocks, lineBarStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (m model) latestChartLineID() string {
	lines := m.session.Lines()
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Type == models.LineAgent && message.Decode(lines[i].Text).Chart != nil {
			return lines[i].ID
		}
	}
	return ""
}
