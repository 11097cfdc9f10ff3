package tui

import (
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the terminal program until the user quits. Logs go to
// logFile, or nowhere when it is empty, so they never reach the screen.
func Start(d Deps, logFile, version string) error {
	Version = version

	if logFile != "" {
		f, err := tea.LogToFile(logFile, "agentterm")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
	} else {
		log.SetOutput(io.Discard)
	}

	p := tea.NewProgram(
		initialModel(d),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}
