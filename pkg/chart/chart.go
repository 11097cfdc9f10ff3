// Package chart draws embedded chart payloads in the terminal.
package chart

import (
	"fmt"
	"math"
	"strings"

	"agentterm/pkg/models"
	"agentterm/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// DefaultTitle is shown when a payload carries no title.
const DefaultTitle = "MARKET_DATA"

// Palette used when a series or wedge has no explicit colour.
var (
	LinePalette = []string{"#06b6d4", "#a855f7", "#22c55e"}
	PiePalette  = []string{"#06b6d4", "#a855f7", "#22c55e", "#3b82f6"}
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#06b6d4")).Bold(true)
	axisStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tooltipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e5e7eb")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#0e7490")).
			Padding(0, 1)
)

// Options control the size of the drawing and the focused data point.
type Options struct {
	Width  int
	Height int
	// Cursor is the focused record index; negative hides the tooltip.
	Cursor int
}

// Render draws p. Unknown chart types render as an empty string.
func Render(p models.ChartPayload, opts Options) string {
	if opts.Width <= 0 {
		opts.Width = 48
	}
	if opts.Height <= 0 {
		opts.Height = 8
	}

	var body string
	switch p.Type {
	case models.ChartLine:
		body = renderLine(p, opts)
	case models.ChartPie:
		body = renderPie(p, opts)
	default:
		return ""
	}

	title := p.Title
	if title == "" {
		title = DefaultTitle
	}
	parts := []string{titleStyle.Render(strings.ToUpper(title)), body}
	if tip := Tooltip(p, opts.Cursor); tip != "" {
		parts = append(parts, tooltipStyle.Render(tip))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// SeriesColor returns the colour of line series i.
func SeriesColor(p models.ChartPayload, i int) string {
	if i < len(p.Keys) {
		if c, ok := p.Colors[p.Keys[i]]; ok && c != "" {
			return c
		}
	}
	return LinePalette[i%len(LinePalette)]
}

// WedgeColor returns the colour of pie wedge i.
func WedgeColor(p models.ChartPayload, i int) string {
	if i < len(p.Data) {
		if fill := p.Data[i].Label("fill"); fill != "" {
			return fill
		}
	}
	return PiePalette[i%len(PiePalette)]
}

func renderLine(p models.ChartPayload, opts Options) string {
	var (
		series  [][]float64
		colors  []asciigraph.AnsiColor
		legends []string
	)
	for i, key := range p.Keys {
		values, ok := seriesValues(p.Data, key)
		if !ok {
			continue
		}
		series = append(series, values)
		colors = append(colors, ToAnsi(SeriesColor(p, i)))
		legends = append(legends, key)
	}
	if len(series) == 0 {
		return axisStyle.Render("no data")
	}

	graph := asciigraph.PlotMany(series,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
	)
	return lipgloss.JoinVertical(lipgloss.Left, graph, axisStyle.Render(dayAxis(p.Data, opts.Width)))
}

// seriesValues extracts key from every record. Gaps repeat the previous
// value so the plot stays continuous.
func seriesValues(data []models.ChartRecord, key string) ([]float64, bool) {
	values := make([]float64, len(data))
	found := false
	last := math.NaN()
	for i, rec := range data {
		if v, ok := rec.Number(key); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			values[i] = v
			last = v
			found = true
			continue
		}
		values[i] = last
	}
	if !found {
		return nil, false
	}
	first := math.NaN()
	for _, v := range values {
		if !math.IsNaN(v) {
			first = v
			break
		}
	}
	for i := range values {
		if math.IsNaN(values[i]) {
			values[i] = first
		}
	}
	if len(values) == 1 {
		values = append(values, values[0])
	}
	return values, true
}

// dayAxis lays out the first, middle and last "day" labels.
func dayAxis(data []models.ChartRecord, width int) string {
	if len(data) == 0 {
		return ""
	}
	first := data[0].Label("day")
	last := data[len(data)-1].Label("day")
	if len(data) == 1 {
		return first
	}
	mid := ""
	if len(data) > 2 {
		mid = data[len(data)/2].Label("day")
	}
	gap := width - len(first) - len(mid) - len(last)
	if gap < 2 {
		return strings.TrimSpace(first + " " + mid + " " + last)
	}
	left := gap / 2
	return first + strings.Repeat(" ", left) + mid + strings.Repeat(" ", gap-left) + last
}

func renderPie(p models.ChartPayload, opts Options) string {
	var total float64
	values := make([]float64, len(p.Data))
	for i, rec := range p.Data {
		if v, ok := rec.Number("value"); ok && v > 0 {
			values[i] = v
			total += v
		}
	}
	if total <= 0 {
		return axisStyle.Render("no data")
	}

	var ring strings.Builder
	used := 0
	var legend []string
	for i, rec := range p.Data {
		if values[i] <= 0 {
			continue
		}
		share := values[i] / total
		cells := int(math.Round(share * float64(opts.Width)))
		if used+cells > opts.Width {
			cells = opts.Width - used
		}
		if cells == 0 && used < opts.Width {
			cells = 1
		}
		used += cells
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(WedgeColor(p, i)))
		ring.WriteString(style.Render(strings.Repeat("█", cells)))
		legend = append(legend, fmt.Sprintf("%s %-10s %12s %5.1f%%",
			style.Render("●"), rec.Label("name"), FormatValue(values[i]), share*100))
	}
	return lipgloss.JoinVertical(lipgloss.Left, ring.String(), strings.Join(legend, "\n"))
}

// Tooltip describes the record at index: its label followed by each
// series name and value. An out-of-range index yields "".
func Tooltip(p models.ChartPayload, index int) string {
	if index < 0 || index >= len(p.Data) {
		return ""
	}
	rec := p.Data[index]
	switch p.Type {
	case models.ChartLine:
		parts := []string{rec.Label("day")}
		for _, key := range p.Keys {
			if v, ok := rec.Number(key); ok {
				parts = append(parts, fmt.Sprintf("%s: %s", key, FormatValue(v)))
			}
		}
		return strings.Join(parts, "  ")
	case models.ChartPie:
		v, _ := rec.Number("value")
		return fmt.Sprintf("%s: %s", rec.Label("name"), FormatValue(v))
	default:
		return ""
	}
}

// FormatValue prints v with thousands separators and at most three
// fraction digits.
func FormatValue(v float64) string {
	s := utils.FormatFloat(v, 3)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
