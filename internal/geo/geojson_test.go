package geo

import (
	"encoding/json"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sceneannotate/annotator/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitSquare() []core.Vector3 {
	return []core.Vector3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}}
}

func TestFeatureCollection_GeometryTypes(t *testing.T) {
	records := []core.Record{
		{ShapeKind: core.ShapeRectangle, Vertices: unitSquare(), Transform: core.IdentityTransform(), StyleColor: core.ColorRed, Opacity: 1, Label: "box"},
		{ShapeKind: core.ShapeFreehandLine, Vertices: []core.Vector3{{X: 0}, {X: 1}, {X: 2, Y: 1}}, Transform: core.IdentityTransform(), Opacity: 1},
		{ShapeKind: core.ShapePolygon, Vertices: []core.Vector3{{X: 5, Y: 5}}, Transform: core.IdentityTransform(), Opacity: 1},
		{ShapeKind: core.ShapePolygon, Transform: core.IdentityTransform(), Opacity: 1},
	}

	fc, skipped := FeatureCollection(records, ExportOptions{})
	assert.Equal(t, 1, skipped)
	require.Len(t, fc, 3)

	data, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			ID       any `json:"id"`
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 3)

	assert.Equal(t, "Polygon", decoded.Features[0].Geometry.Type)
	assert.Equal(t, "LineString", decoded.Features[1].Geometry.Type)
	assert.Equal(t, "Point", decoded.Features[2].Geometry.Type)

	props := decoded.Features[0].Properties
	assert.Equal(t, "rectangle", props["shapeKind"])
	assert.Equal(t, "#ff0000", props["color"])
	assert.Equal(t, "box", props["label"])
}

func TestFeature_HeatmapCellWithoutVertices(t *testing.T) {
	tr := core.IdentityTransform()
	tr.Position = core.Vector3{X: 50, Y: 50}
	rec := core.Record{
		ShapeKind:       core.ShapeHeatmapCell,
		Transform:       tr,
		Opacity:         0.5,
		GridCoordinates: &core.GridCoordinates{Row: 1, Column: 2},
	}

	_, ok := Feature(0, rec, ExportOptions{})
	assert.False(t, ok, "no cell size means nothing to draw")

	f, ok := Feature(0, rec, ExportOptions{Grid: Grid{Size: 4, CellSize: 10}})
	require.True(t, ok)
	assert.Equal(t, 1, f.Properties["row"])
	assert.Equal(t, 2, f.Properties["column"])

	env := f.Geometry.Envelope()
	lo, hi, ok := env.MinMaxXYs()
	require.True(t, ok)
	assert.InDelta(t, 45, lo.X, 1e-9)
	assert.InDelta(t, 55, hi.Y, 1e-9)
}

func TestFeature_AppliesTransformer(t *testing.T) {
	rec := core.Record{ShapeKind: core.ShapeFreehandLine, Vertices: []core.Vector3{{X: 1}, {X: 2}}, Transform: core.IdentityTransform(), Opacity: 1}
	double := func(x, y, z float64) (float64, float64, float64) { return 2 * x, 2 * y, z }

	f, ok := Feature(3, rec, ExportOptions{Transform: double})
	require.True(t, ok)
	assert.Equal(t, 3, f.ID)

	lo, hi, ok := f.Geometry.Envelope().MinMaxXYs()
	require.True(t, ok)
	assert.Equal(t, 2.0, lo.X)
	assert.Equal(t, 4.0, hi.X)
}

func TestFeature_RecordWithoutTransform(t *testing.T) {
	rec := core.Record{ShapeKind: core.ShapePolygon, Vertices: unitSquare(), Opacity: 1, Name: "pier"}

	f, ok := Feature(0, rec, ExportOptions{})
	require.True(t, ok)
	assert.Equal(t, geom.TypePolygon, f.Geometry.Type())
	assert.Equal(t, "pier", f.Properties["name"])

	lo, hi, ok := f.Geometry.Envelope().MinMaxXYs()
	require.True(t, ok)
	assert.Equal(t, geom.XY{X: 0, Y: 0}, lo)
	assert.Equal(t, geom.XY{X: 1, Y: 1}, hi)
}

func TestFeature_HeatmapCellAtOriginUsesGrid(t *testing.T) {
	grid := Grid{Size: 4, CellSize: 10}
	rec := core.Record{
		ShapeKind:       core.ShapeHeatmapCell,
		Vertices:        []core.Vector3{{X: -5, Y: -5}, {X: 5, Y: -5}, {X: 5, Y: 5}, {X: -5, Y: 5}},
		Opacity:         0.5,
		GridCoordinates: &core.GridCoordinates{Row: 3, Column: 1},
	}

	f, ok := Feature(0, rec, ExportOptions{Grid: grid})
	require.True(t, ok)

	// cell (3,1) of a 4x4 grid of 10s sits at (10,-10)
	lo, hi, ok := f.Geometry.Envelope().MinMaxXYs()
	require.True(t, ok)
	assert.InDelta(t, 5, lo.X, 1e-9)
	assert.InDelta(t, 15, hi.X, 1e-9)
	assert.InDelta(t, -15, lo.Y, 1e-9)
	assert.InDelta(t, -5, hi.Y, 1e-9)
}
