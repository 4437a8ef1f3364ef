// pkg/core/record.go
package core

import (
	"errors"
	"fmt"
)

// ShapeKind tags how a record's vertices are interpreted and rebuilt.
// Values outside the known set decode without error so that records
// written by another schema revision can be skipped individually.
type ShapeKind string

const (
	ShapeRectangle    ShapeKind = "rectangle"
	ShapeEllipse      ShapeKind = "ellipse"
	ShapePolygon      ShapeKind = "polygon"
	ShapeFreehandLine ShapeKind = "freehandLine"
	ShapeHeatmapCell  ShapeKind = "heatmapCell"
)

// ShapeKinds lists every known kind in a stable order
var ShapeKinds = []ShapeKind{
	ShapeRectangle,
	ShapeEllipse,
	ShapePolygon,
	ShapeFreehandLine,
	ShapeHeatmapCell,
}

// Known reports whether k is one of the enumerated kinds
func (k ShapeKind) Known() bool {
	switch k {
	case ShapeRectangle, ShapeEllipse, ShapePolygon, ShapeFreehandLine, ShapeHeatmapCell:
		return true
	}
	return false
}

// Closed reports whether the outline of this kind connects back to its start
func (k ShapeKind) Closed() bool {
	switch k {
	case ShapeRectangle, ShapeEllipse, ShapePolygon, ShapeHeatmapCell:
		return true
	}
	return false
}

// Record is the flat, JSON-safe form of one annotation.
// A record has no identity beyond its position in the array it was saved in.
type Record struct {
	ShapeKind       ShapeKind        `json:"shapeKind"`
	Vertices        []Vector3        `json:"vertices"`
	Transform       Transform        `json:"transform"`
	StyleColor      Color            `json:"styleColor"`
	Opacity         float64          `json:"opacity"`
	Label           string           `json:"label,omitempty"`
	Name            string           `json:"name,omitempty"`
	GridCoordinates *GridCoordinates `json:"gridCoordinates,omitempty"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
}

var (
	ErrUnknownShapeKind  = errors.New("unknown shape kind")
	ErrMissingVertices   = errors.New("record has no vertices")
	ErrMissingGrid       = errors.New("heatmap cell has no grid coordinates")
	ErrOpacityOutOfRange = errors.New("opacity outside [0,1]")
	ErrNonFinite         = errors.New("record contains non-finite numbers")
)

// Validate reports why a record cannot be rebuilt, or nil if it can.
// Degenerate outlines (e.g. a polygon with two points) are valid.
func (r *Record) Validate() error {
	if !r.ShapeKind.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownShapeKind, string(r.ShapeKind))
	}
	if r.Opacity < 0 || r.Opacity > 1 {
		return fmt.Errorf("%w: %v", ErrOpacityOutOfRange, r.Opacity)
	}
	if !r.Transform.IsFinite() {
		return ErrNonFinite
	}

	if r.ShapeKind == ShapeHeatmapCell {
		if r.GridCoordinates == nil {
			return ErrMissingGrid
		}
		return nil
	}

	if len(r.Vertices) == 0 {
		return ErrMissingVertices
	}
	for _, v := range r.Vertices {
		if !v.IsFinite() {
			return ErrNonFinite
		}
	}
	return nil
}
