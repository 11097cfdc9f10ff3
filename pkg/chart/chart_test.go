package chart

import (
	"encoding/json"
	"strings"
	"testing"

	"agentterm/pkg/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(t *testing.T, raw string) models.ChartPayload {
	t.Helper()
	var p models.ChartPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func TestRenderLine(t *testing.T) {
	p := payload(t, `{"type":"line","title":"PnL","keys":["pnl","fees"],
		"data":[{"day":"Mon","pnl":10,"fees":1},{"day":"Tue","pnl":12.5,"fees":2},{"day":"Wed","pnl":9}]}`)

	out := Render(p, Options{Width: 30, Height: 5, Cursor: -1})

	assert.Contains(t, out, "PNL")
	assert.Contains(t, out, "Mon")
	assert.Contains(t, out, "Wed")
	assert.Contains(t, out, "pnl")
	assert.Contains(t, out, "fees")
}

func TestRenderPie(t *testing.T) {
	p := payload(t, `{"type":"pie","data":[{"name":"ETH","value":3},{"name":"USDC","value":1,"fill":"#ff0000"}]}`)

	out := Render(p, Options{Width: 20, Cursor: -1})

	assert.Contains(t, out, DefaultTitle)
	assert.Contains(t, out, "ETH")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "25.0%")
}

func TestRenderPieStaysWithinWidth(t *testing.T) {
	p := payload(t, `{"type":"pie","data":[{"name":"ETH","value":1000},{"name":"A","value":0.001},{"name":"B","value":0.001},{"name":"C","value":0.001}]}`)

	bar := strings.Split(renderPie(p, Options{Width: 10}), "\n")[0]

	assert.Equal(t, 10, lipgloss.Width(bar))
}

func TestRenderUnknownTypeIsEmpty(t *testing.T) {
	p := payload(t, `{"type":"candles","data":[{"day":"Mon"}]}`)
	assert.Equal(t, "", Render(p, Options{}))
}

func TestRenderWithoutUsableData(t *testing.T) {
	line := payload(t, `{"type":"line","keys":["pnl"],"data":[{"day":"Mon"}]}`)
	assert.Contains(t, Render(line, Options{Cursor: -1}), "no data")

	pie := payload(t, `{"type":"pie","data":[]}`)
	assert.Contains(t, Render(pie, Options{Cursor: -1}), "no data")
}

func TestSeriesColor(t *testing.T) {
	p := payload(t, `{"type":"line","keys":["a","b","c","d"],"colors":{"b":"#ffffff"},"data":[]}`)

	assert.Equal(t, LinePalette[0], SeriesColor(p, 0))
	assert.Equal(t, "#ffffff", SeriesColor(p, 1))
	assert.Equal(t, LinePalette[2], SeriesColor(p, 2))
	assert.Equal(t, LinePalette[0], SeriesColor(p, 3))
}

func TestWedgeColor(t *testing.T) {
	p := payload(t, `{"type":"pie","data":[{"name":"a"},{"name":"b","fill":"#123456"},{"name":"c"},{"name":"d"},{"name":"e"}]}`)

	assert.Equal(t, PiePalette[0], WedgeColor(p, 0))
	assert.Equal(t, "#123456", WedgeColor(p, 1))
	assert.Equal(t, PiePalette[3], WedgeColor(p, 3))
	assert.Equal(t, PiePalette[0], WedgeColor(p, 4))
}

func TestTooltip(t *testing.T) {
	line := payload(t, `{"type":"line","keys":["pnl"],"data":[{"day":"Mon","pnl":1234.5}]}`)
	assert.Equal(t, "Mon  pnl: 1,234.5", Tooltip(line, 0))
	assert.Equal(t, "", Tooltip(line, 1))
	assert.Equal(t, "", Tooltip(line, -1))

	pie := payload(t, `{"type":"pie","data":[{"name":"ETH","value":0.25}]}`)
	assert.Equal(t, "ETH: 0.25", Tooltip(pie, 0))

	out := Render(pie, Options{Cursor: 0})
	assert.Contains(t, out, "ETH: 0.25")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1,000", FormatValue(1000))
	assert.Equal(t, "0.123", FormatValue(0.12345))
	assert.Equal(t, "-2.5", FormatValue(-2.5))
}

func TestToAnsi(t *testing.T) {
	assert.Equal(t, asciigraph.AnsiColor(196), ToAnsi("#ff0000"))
	assert.Equal(t, asciigraph.AnsiColor(231), ToAnsi("#ffffff"))
	assert.Equal(t, asciigraph.ColorNames["blue"], ToAnsi("Blue"))
	assert.Equal(t, asciigraph.Default, ToAnsi("not-a-colour"))
}
