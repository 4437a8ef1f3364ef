package geo

import "github.com/sceneannotate/annotator/pkg/core"

// Grid is the heatmap layout: Size cells along each side, each CellSize
// scene units wide, centered on the origin.
type Grid struct {
	Size     int
	CellSize float64
}

// Contains reports whether gc addresses a cell inside the grid
func (g Grid) Contains(gc core.GridCoordinates) bool {
	return gc.Row >= 0 && gc.Row < g.Size && gc.Column >= 0 && gc.Column < g.Size
}

// CellPosition is where the authoring grid puts a cell: rows along X,
// columns along Y.
func (g Grid) CellPosition(gc core.GridCoordinates) core.Vector3 {
	half := float64(g.Size) * g.CellSize / 2
	return core.Vector3{
		X: float64(gc.Row)*g.CellSize - half,
		Y: float64(gc.Column)*g.CellSize - half,
	}
}

// CellQuad is one cell outline centered on its own origin
func (g Grid) CellQuad() []core.Vector3 {
	h := g.CellSize / 2
	return []core.Vector3{
		{X: -h, Y: -h},
		{X: h, Y: -h},
		{X: h, Y: h},
		{X: -h, Y: h},
	}
}

// ResolveTransform fills in what records written without a full transform
// leave at zero. A zero scale means unit scale, an empty rotation order means
// the default order, and a heatmap cell at the origin sits at its grid
// position.
func ResolveTransform(rec core.Record, grid Grid) core.Transform {
	t := rec.Transform
	if t.Rotation.Order == "" {
		t.Rotation.Order = core.DefaultEulerOrder
	}
	if t.Scale.IsZero() {
		t.Scale = core.Vector3{X: 1, Y: 1, Z: 1}
	}
	if rec.ShapeKind == core.ShapeHeatmapCell && rec.GridCoordinates != nil && t.Position.IsZero() {
		t.Position = grid.CellPosition(*rec.GridCoordinates)
	}
	return t
}
