package geo

import (
	"math"
	"strings"

	"github.com/sceneannotate/annotator/pkg/core"
)

type mat3 [3][3]float64

func (a mat3) mul(b mat3) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

func (a mat3) apply(v core.Vector3) core.Vector3 {
	return core.Vector3{
		X: a[0][0]*v.X + a[0][1]*v.Y + a[0][2]*v.Z,
		Y: a[1][0]*v.X + a[1][1]*v.Y + a[1][2]*v.Z,
		Z: a[2][0]*v.X + a[2][1]*v.Y + a[2][2]*v.Z,
	}
}

func axisRotation(axis byte, angle float64) mat3 {
	c, s := math.Cos(angle), math.Sin(angle)
	switch axis {
	case 'X':
		return mat3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
	case 'Y':
		return mat3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
	default:
		return mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
	}
}

// rotationMatrix composes the axis rotations left to right in Euler order,
// so "XYZ" yields Rx*Ry*Rz. Unknown orders fall back to XYZ.
func rotationMatrix(e core.Euler) mat3 {
	order := strings.ToUpper(e.Order)
	if len(order) != 3 || strings.Trim(order, "XYZ") != "" {
		order = core.DefaultEulerOrder
	}
	m := mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i := 0; i < 3; i++ {
		var angle float64
		switch order[i] {
		case 'X':
			angle = e.X
		case 'Y':
			angle = e.Y
		case 'Z':
			angle = e.Z
		}
		m = m.mul(axisRotation(order[i], angle))
	}
	return m
}

// Place maps local vertices into the parent frame: scale, then rotate, then translate.
func Place(t core.Transform, vs []core.Vector3) []core.Vector3 {
	rot := rotationMatrix(t.Rotation)
	out := make([]core.Vector3, len(vs))
	for i, v := range vs {
		scaled := core.Vector3{X: v.X * t.Scale.X, Y: v.Y * t.Scale.Y, Z: v.Z * t.Scale.Z}
		r := rot.apply(scaled)
		out[i] = core.Vector3{
			X: r.X + t.Position.X,
			Y: r.Y + t.Position.Y,
			Z: r.Z + t.Position.Z,
		}
	}
	return out
}
