// pkg/core/types.go
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vector3 is a 3D point or direction
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsZero reports whether all components are zero
func (v Vector3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// IsFinite reports whether no component is NaN or infinite
func (v Vector3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// Euler holds rotation angles in radians, applied in Order
type Euler struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Order string  `json:"order,omitempty"`
}

// DefaultEulerOrder is the rotation order used when none is recorded
const DefaultEulerOrder = "XYZ"

// Transform is the position/rotation/scale triple applied to an object
type Transform struct {
	Position Vector3 `json:"position"`
	Rotation Euler   `json:"rotation"`
	Scale    Vector3 `json:"scale"`
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale
func IdentityTransform() Transform {
	return Transform{
		Rotation: Euler{Order: DefaultEulerOrder},
		Scale:    Vector3{X: 1, Y: 1, Z: 1},
	}
}

// IsFinite reports whether every component of the transform is a finite number
func (t Transform) IsFinite() bool {
	return t.Position.IsFinite() &&
		t.Scale.IsFinite() &&
		isFinite(t.Rotation.X) && isFinite(t.Rotation.Y) && isFinite(t.Rotation.Z)
}

// Color is a packed 0xRRGGBB value
type Color uint32

// Common annotation colors
const (
	ColorRed   Color = 0xff0000
	ColorGreen Color = 0x00ff00
	ColorBlue  Color = 0x0000ff
	ColorWhite Color = 0xffffff
)

// Hex returns the color as a CSS-style "#rrggbb" string
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// RGB returns the color channels normalized to [0,1]
func (c Color) RGB() (r, g, b float64) {
	r = float64((c>>16)&0xff) / 255
	g = float64((c>>8)&0xff) / 255
	b = float64(c&0xff) / 255
	return r, g, b
}

// ParseHexColor parses "#rrggbb", "rrggbb" or "0xrrggbb"
func ParseHexColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(s) != 6 {
		return 0, fmt.Errorf("invalid color %q: expected 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

// GridCoordinates locates a heatmap cell in a fixed-size grid
type GridCoordinates struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
