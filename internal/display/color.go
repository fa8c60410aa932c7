package display

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is one of the 16 VGA text-mode colors.
type Color uint8

// VGA text-mode palette.
const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	DarkGrey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	LightBrown
	White
)

// Default colors for new surfaces and devices.
const (
	DefaultForeground = LightGrey
	DefaultBackground = Black
)

var colorNames = [16]string{
	"black", "blue", "green", "cyan", "red", "magenta", "brown", "lightgrey",
	"darkgrey", "lightblue", "lightgreen", "lightcyan", "lightred",
	"lightmagenta", "lightbrown", "white",
}

var colorAliases = map[string]Color{
	"lightgray": LightGrey,
	"grey":      LightGrey,
	"gray":      LightGrey,
	"darkgray":  DarkGrey,
	"yellow":    LightBrown,
	"pink":      LightMagenta,
}

// Standard VGA DAC values for the text palette.
var paletteRGB = [16][3]uint8{
	{0x00, 0x00, 0x00}, {0x00, 0x00, 0xAA}, {0x00, 0xAA, 0x00}, {0x00, 0xAA, 0xAA},
	{0xAA, 0x00, 0x00}, {0xAA, 0x00, 0xAA}, {0xAA, 0x55, 0x00}, {0xAA, 0xAA, 0xAA},
	{0x55, 0x55, 0x55}, {0x55, 0x55, 0xFF}, {0x55, 0xFF, 0x55}, {0x55, 0xFF, 0xFF},
	{0xFF, 0x55, 0x55}, {0xFF, 0x55, 0xFF}, {0xFF, 0xFF, 0x55}, {0xFF, 0xFF, 0xFF},
}

// String returns the color name.
func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// Valid reports whether c is a palette index.
func (c Color) Valid() bool {
	return c < 16
}

// RGB returns the 8-bit RGB components of c.
func (c Color) RGB() (r, g, b uint8) {
	p := paletteRGB[c&0x0F]
	return p[0], p[1], p[2]
}

func (c Color) colorful() colorful.Color {
	r, g, b := c.RGB()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// Attr is a VGA attribute byte: foreground in the low nibble, background
// in the high nibble.
type Attr uint8

// MakeAttr combines foreground and background into an attribute byte.
func MakeAttr(fg, bg Color) Attr {
	return Attr(fg&0x0F) | Attr(bg&0x0F)<<4
}

// DefaultAttr is light grey on black.
var DefaultAttr = MakeAttr(DefaultForeground, DefaultBackground)

// Foreground returns the foreground color.
func (a Attr) Foreground() Color {
	return Color(a & 0x0F)
}

// Background returns the background color.
func (a Attr) Background() Color {
	return Color(a >> 4)
}

// ParseColor accepts a palette name ("lightgrey", "yellow") or an RGB hex
// value ("#ff8800"). Hex values map to the perceptually nearest palette
// entry.
func ParseColor(s string) (Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)
	for i, n := range colorNames {
		if n == name {
			return Color(i), nil
		}
	}
	if c, ok := colorAliases[name]; ok {
		return c, nil
	}
	if strings.HasPrefix(name, "#") {
		rgb, err := colorful.Hex(name)
		if err != nil {
			return Black, fmt.Errorf("parse color %q: %w", s, err)
		}
		return Nearest(rgb), nil
	}
	return Black, fmt.Errorf("unknown color %q", s)
}

// Nearest returns the palette entry closest to c in CIE L*a*b* space.
func Nearest(c colorful.Color) Color {
	best := Black
	bestDist := -1.0
	for i := Color(0); i < 16; i++ {
		d := c.DistanceLab(i.colorful())
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
