package intent

import (
	"fmt"
	"strings"
)

// Color is a tri-state RGB value. Bit 0 drives red, bit 1 green, bit 2 blue.
type Color uint8

// Colors reachable with three on/off channels.
const (
	Black Color = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

var colorNames = [...]string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

// String returns the lowercase color name.
func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// Red reports whether the red channel is lit.
func (c Color) Red() bool { return c&Red != 0 }

// Green reports whether the green channel is lit.
func (c Color) Green() bool { return c&Green != 0 }

// Blue reports whether the blue channel is lit.
func (c Color) Blue() bool { return c&Blue != 0 }

// Channels returns the red, green and blue on/off states.
func (c Color) Channels() [3]bool {
	return [3]bool{c.Red(), c.Green(), c.Blue()}
}

// Valid reports whether c is one of the eight tri-state colors.
func (c Color) Valid() bool { return c <= White }

// ParseColor maps a color name ("off" is an alias for black) to a Color.
func ParseColor(name string) (Color, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "off", "none":
		return Black, nil
	case "orange":
		// Three channels cannot mix orange; the firmware used yellow too.
		return Yellow, nil
	case "purple":
		return Magenta, nil
	}
	for i, cn := range colorNames {
		if cn == n {
			return Color(i), nil
		}
	}
	return Black, fmt.Errorf("unknown color %q", name)
}

// MustParseColor is ParseColor for static tables. It panics on an unknown name.
func MustParseColor(name string) Color {
	c, err := ParseColor(name)
	if err != nil {
		panic(err)
	}
	return c
}
