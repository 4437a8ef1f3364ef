// Package geo holds the planar geometry used by annotations: bounding
// extents, world-space placement of record vertices, coordinate reference
// transforms and GeoJSON export.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sceneannotate/annotator/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrInvalidCRS is returned when a coordinate reference string cannot be parsed
var ErrInvalidCRS = errors.New("invalid coordinate reference system")

// ErrEmptyExtent is returned when an extent is requested for no points
var ErrEmptyExtent = errors.New("no finite points to bound")

// Extent is the XY bounding box of a set of vertices plus their mean Z
type Extent struct {
	Envelope geom.Envelope
	MeanZ    float64
}

// ExtentOf bounds the finite vertices in vs. Non-finite vertices are ignored.
func ExtentOf(vs []core.Vector3) (Extent, error) {
	var (
		env  geom.Envelope
		sumZ float64
		n    int
	)
	for _, v := range vs {
		if !v.IsFinite() {
			continue
		}
		env = env.ExpandToIncludeXY(geom.XY{X: v.X, Y: v.Y})
		sumZ += v.Z
		n++
	}
	if n == 0 {
		return Extent{}, ErrEmptyExtent
	}
	return Extent{Envelope: env, MeanZ: sumZ / float64(n)}, nil
}

// Center returns the middle of the box at the mean depth
func (e Extent) Center() core.Vector3 {
	lo, hi, ok := e.Envelope.MinMaxXYs()
	if !ok {
		return core.Vector3{}
	}
	return core.Vector3{X: (lo.X + hi.X) / 2, Y: (lo.Y + hi.Y) / 2, Z: e.MeanZ}
}

// Radii returns half the width and half the height of the box
func (e Extent) Radii() (rx, ry float64) {
	lo, hi, ok := e.Envelope.MinMaxXYs()
	if !ok {
		return 0, 0
	}
	return (hi.X - lo.X) / 2, (hi.Y - lo.Y) / 2
}

// Transformer maps scene coordinates into the output reference system
type Transformer func(x, y, z float64) (float64, float64, float64)

// Identity leaves coordinates unchanged
func Identity(x, y, z float64) (float64, float64, float64) {
	return x, y, z
}

// ParseEPSG reads "EPSG:3857", "epsg:3857" or "3857" into the numeric code
func ParseEPSG(crs string) (int, error) {
	s := strings.TrimSpace(crs)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if !strings.EqualFold(s[:i], "EPSG") {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCRS, crs)
		}
		s = s[i+1:]
	}
	code, err := strconv.Atoi(s)
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCRS, crs)
	}
	return code, nil
}

// NewTransformer returns a transform from sourceCRS to WGS84 longitude/latitude.
// An empty source means the scene is not geo-referenced and coordinates pass through.
func NewTransformer(sourceCRS string) (Transformer, error) {
	if strings.TrimSpace(sourceCRS) == "" {
		return Identity, nil
	}
	code, err := ParseEPSG(sourceCRS)
	if err != nil {
		return nil, err
	}
	if code == 4326 {
		return Identity, nil
	}

	f := wgs84.EPSG().Transform(code, 4326)
	x, y, _ := f(0, 0, 0)
	if math.IsNaN(x) || math.IsNaN(y) {
		return nil, fmt.Errorf("%w: EPSG:%d is not supported", ErrInvalidCRS, code)
	}
	return Transformer(f), nil
}
