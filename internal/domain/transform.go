package domain

import (
	"fmt"
	"strings"
)

// Transform selects how a price series is presented.
type Transform string

const (
	TransformRaw     Transform = "raw"     // series as stored
	TransformTrend   Transform = "trend"   // 2-point least-squares line
	TransformAverage Transform = "average" // folded onto a day or week axis
)

// IsValid checks if the transform is a known value.
func (t Transform) IsValid() bool {
	switch t {
	case TransformRaw, TransformTrend, TransformAverage:
		return true
	}
	return false
}

// ParseTransform parses a transform name. "course" is accepted for trend.
func ParseTransform(s string) (Transform, error) {
	switch t := Transform(strings.ToLower(strings.TrimSpace(s))); t {
	case "", TransformRaw:
		return TransformRaw, nil
	case "course":
		return TransformTrend, nil
	default:
		if t.IsValid() {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transform %q", s)
}
