package tui

import (
	"os/exec"
	"runtime"

	"agentterm/pkg/typewriter"

	"github.com/atotto/clipboard"
)

func isExternal(url string) bool {
	return typewriter.IsExternalURL(url)
}

func copyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// openBrowser opens the specified URL in the default browser as a separate
// process, so no referrer or session state is shared.
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start"}
	case "darwin":
		cmd = "open"
	default: // "linux", "freebsd", "openbsd", "netbsd"
		cmd = "xdg-open"
	}
	args = append(args, url)
	return exec.Command(cmd, args...).Start()
}
