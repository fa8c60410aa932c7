package renderer

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/ttycore/internal/display"
)

// Color converts a palette index to a tcell color.
func Color(c display.Color) tcell.Color {
	r, g, b := c.RGB()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// Style converts a cell attribute to a tcell style.
func Style(a display.Attr) tcell.Style {
	return tcell.StyleDefault.
		Foreground(Color(a.Foreground())).
		Background(Color(a.Background()))
}

// styleCache holds one style per attribute byte.
type styleCache [256]tcell.Style

func newStyleCache() *styleCache {
	var c styleCache
	for i := range c {
		c[i] = Style(display.Attr(i))
	}
	return &c
}

// glyph returns the rune drawn for a cell byte. Non-printable bytes draw
// as blanks.
func glyph(ch byte) rune {
	if ch < 0x20 || ch > 0x7E {
		return ' '
	}
	return rune(ch)
}
