package typewriter

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used by the markdown subset renderer.
type Styles struct {
	Bold lipgloss.Style
	Code lipgloss.Style
	Link lipgloss.Style
	URL  lipgloss.Style
}

// DefaultStyles match the neon palette of the chat view.
func DefaultStyles() Styles {
	return Styles{
		Bold: lipgloss.NewStyle().Foreground(lipgloss.Color("#22d3ee")).Bold(true),
		Code: lipgloss.NewStyle().Foreground(lipgloss.Color("#a5f3fc")).Background(lipgloss.Color("#083344")),
		Link: lipgloss.NewStyle().Foreground(lipgloss.Color("#60a5fa")).Underline(true),
		URL:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Link is a hyperlink found in rendered text.
type Link struct {
	Text string
	URL  string
}

// Render draws the supported markdown subset: **bold**, `code`,
// [text](url) links and blank-line separated paragraphs. Unterminated
// markup is kept literally, which is what a partially revealed buffer
// looks like. Only http and https links are recognised.
func Render(src string, width int, st Styles) (string, []Link) {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	var links []Link
	paragraphs := strings.Split(src, "\n\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		rendered, found := renderInline(p, st)
		links = append(links, found...)
		if width > 0 {
			rendered = lipgloss.NewStyle().Width(width).Render(rendered)
		}
		out = append(out, rendered)
	}
	return strings.Join(out, "\n\n"), links
}

func renderInline(s string, st Styles) (string, []Link) {
	var b strings.Builder
	var links []Link
	for i := 0; i < len(s); {
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, "**"):
			if end := strings.Index(rest[2:], "**"); end > 0 {
				b.WriteString(st.Bold.Render(rest[2 : 2+end]))
				i += end + 4
				continue
			}
		case rest[0] == '`':
			if end := strings.IndexByte(rest[1:], '`'); end > 0 {
				b.WriteString(st.Code.Render(rest[1 : 1+end]))
				i += end + 2
				continue
			}
		case rest[0] == '[':
			if text, target, n, ok := parseLink(rest); ok {
				b.WriteString(st.Link.Render(text))
				if text != target {
					b.WriteString(" " + st.URL.Render("("+target+")"))
				}
				links = append(links, Link{Text: text, URL: target})
				i += n
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), links
}

// parseLink reads "[text](url)" at the start of s.
func parseLink(s string) (text, target string, n int, ok bool) {
	mid := strings.Index(s, "](")
	if mid < 1 || strings.ContainsAny(s[1:mid], "\n[") {
		return "", "", 0, false
	}
	end := strings.IndexByte(s[mid+2:], ')')
	if end < 1 {
		return "", "", 0, false
	}
	target = s[mid+2 : mid+2+end]
	if !IsExternalURL(target) {
		return "", "", 0, false
	}
	return s[1:mid], target, mid + 3 + end, true
}

// IsExternalURL reports whether raw is an absolute http(s) URL.
func IsExternalURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
