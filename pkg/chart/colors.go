package chart

import (
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/lucasb-eyer/go-colorful"
)

var cubeLevels = [6]uint8{0, 95, 135, 175, 215, 255}

// xterm256 holds the RGB value of every xterm colour from index 16 up;
// the first sixteen depend on the terminal theme and are skipped.
var xterm256 = func() [240]colorful.Color {
	var p [240]colorful.Color
	for i := 0; i < 216; i++ {
		r, g, b := cubeLevels[i/36], cubeLevels[(i/6)%6], cubeLevels[i%6]
		p[i] = colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	}
	for i := 0; i < 24; i++ {
		v := float64(8+10*i) / 255
		p[216+i] = colorful.Color{R: v, G: v, B: v}
	}
	return p
}()

// ToAnsi maps a colour name known to asciigraph or a hex code to the
// closest xterm-256 colour. Anything else maps to the terminal default.
func ToAnsi(color string) asciigraph.AnsiColor {
	color = strings.TrimSpace(color)
	if c, ok := asciigraph.ColorNames[strings.ToLower(color)]; ok {
		return c
	}
	target, err := colorful.Hex(color)
	if err != nil {
		return asciigraph.Default
	}
	best, bestDist := 0, -1.0
	for i, c := range xterm256 {
		d := target.DistanceLab(c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return asciigraph.AnsiColor(best + 16)
}
