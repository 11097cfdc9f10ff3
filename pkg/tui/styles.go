package tui

import "github.com/charmbracelet/lipgloss"

// --- Styles ---
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#0e7490")).
			Padding(0, 1).
			Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171"))
	agentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#cffafe"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Bold(true)
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	aumStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Bold(true)
	thinkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	buyTagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true)
	execTagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#60a5fa")).Bold(true)
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("#333333")).
			Padding(0, 1)
	lineBarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#155e75")).
			PaddingLeft(1)
	errBarStyle = lineBarStyle.BorderForeground(lipgloss.Color("#7f1d1d"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#0e7490")).
			Padding(0, 1)
)
