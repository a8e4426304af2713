package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an opaque RGB display color.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String returns the hex form.
func (c Color) String() string {
	return c.Hex()
}

// ParseColor decodes #rrggbb, rrggbb, 0xrrggbb or a decimal RGB integer.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	base := 10
	switch {
	case strings.HasPrefix(s, "#"):
		s, base = s[1:], 16
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	case len(s) == 6:
		base = 16
	}

	n, err := strconv.ParseUint(s, base, 32)
	if err != nil || n > 0xffffff {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// RGB packs the color into 0xrrggbb.
func (c Color) RGB() int32 {
	return int32(c.R)<<16 | int32(c.G)<<8 | int32(c.B)
}

// ColorFromRGB unpacks 0xrrggbb.
func ColorFromRGB(v int32) Color {
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}
