package annotation

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/sceneannotate/annotator/internal/geo"
	"github.com/sceneannotate/annotator/pkg/core"
	"github.com/sceneannotate/annotator/pkg/scene"
)

// ShapeConfig sizes the shapes that are regenerated rather than replayed
type ShapeConfig struct {
	// EllipseSegments is the number of boundary segments an ellipse is resampled to
	EllipseSegments int
	// GridSize is the number of heatmap cells along each side of the grid
	GridSize int
	// CellSize is the edge length of one heatmap cell in scene units
	CellSize float64
}

// DefaultShapeConfig matches the authoring tool's 64-segment ellipses and 50x50 grid of 100-unit cells
func DefaultShapeConfig() ShapeConfig {
	return ShapeConfig{
		EllipseSegments: 64,
		GridSize:        50,
		CellSize:        100,
	}
}

func (c ShapeConfig) validate() error {
	if c.EllipseSegments < 3 {
		return fmt.Errorf("ellipse segments must be at least 3, got %d", c.EllipseSegments)
	}
	if c.GridSize <= 0 {
		return fmt.Errorf("grid size must be positive, got %d", c.GridSize)
	}
	if !(c.CellSize > 0) {
		return fmt.Errorf("cell size must be positive, got %v", c.CellSize)
	}
	return nil
}

// closeRectangle returns the first four corners followed by the first corner
// again. An outline that is already closed comes back unchanged. Fewer than
// four corners are returned as is.
func closeRectangle(vs []core.Vector3) []core.Vector3 {
	if len(vs) < 4 {
		return vs
	}
	corners := make([]core.Vector3, 0, 5)
	corners = append(corners, vs[:4]...)
	return append(corners, vs[0])
}

func rectangleGeometry(vs []core.Vector3) *scene.Geometry {
	return scene.NewGeometry(scene.DrawLineLoop, closeRectangle(vs))
}

func polygonGeometry(vs []core.Vector3) *scene.Geometry {
	return scene.NewGeometry(scene.DrawLineLoop, vs)
}

func freehandGeometry(vs []core.Vector3) *scene.Geometry {
	return scene.NewGeometry(scene.DrawLine, vs)
}

// ellipseGeometry regenerates the outline inscribed in the vertices'
// bounding box. The result has segments+1 points, the last equal to the first.
func ellipseGeometry(vs []core.Vector3, segments int) (*scene.Geometry, error) {
	ext, err := geo.ExtentOf(vs)
	if err != nil {
		return nil, err
	}
	c := ext.Center()
	rx, ry := ext.Radii()

	cx, cy, cz := float32(c.X), float32(c.Y), float32(c.Z)
	frx, fry := float32(rx), float32(ry)

	g := &scene.Geometry{
		Mode:      scene.DrawLineLoop,
		Positions: make([]float32, 0, (segments+1)*3),
	}
	step := 2 * math32.Pi / float32(segments)
	for i := 0; i < segments; i++ {
		a := step * float32(i)
		g.Positions = append(g.Positions, cx+frx*math32.Cos(a), cy+fry*math32.Sin(a), cz)
	}
	g.Positions = append(g.Positions, g.Positions[0], g.Positions[1], g.Positions[2])
	return g, nil
}

// Grid is the heatmap layout these settings describe
func (c ShapeConfig) Grid() geo.Grid {
	return geo.Grid{Size: c.GridSize, CellSize: c.CellSize}
}

// heatmapGeometry is a cell-sized quad centered on its node
func heatmapGeometry(grid geo.Grid) *scene.Geometry {
	return scene.NewGeometry(scene.DrawMesh, grid.CellQuad())
}
