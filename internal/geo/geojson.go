package geo

import (
	"github.com/sceneannotate/annotator/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ExportOptions controls how records are placed in a GeoJSON export
type ExportOptions struct {
	// Transform maps placed scene coordinates to output coordinates. Nil means identity.
	Transform Transformer
	// Grid lays out heatmap cells. With a positive cell size, cells are drawn
	// as the grid's quad instead of their recorded vertices.
	Grid Grid
}

// Feature builds the GeoJSON feature for one record, placed the same way a
// load places it. Closed kinds become polygons, open kinds line strings, and
// outlines too small for either a point. ok is false when the record has
// nothing to draw.
func Feature(index int, rec core.Record, opts ExportOptions) (feature geom.GeoJSONFeature, ok bool) {
	local := rec.Vertices
	if rec.ShapeKind == core.ShapeHeatmapCell && opts.Grid.CellSize > 0 {
		local = opts.Grid.CellQuad()
	}
	if len(local) == 0 {
		return geom.GeoJSONFeature{}, false
	}
	placed := Place(ResolveTransform(rec, opts.Grid), local)

	tr := opts.Transform
	if tr == nil {
		tr = Identity
	}

	var g geom.Geometry
	switch {
	case rec.ShapeKind.Closed() && distinctXY(placed) >= 3:
		g = geom.NewPolygon([]geom.LineString{Ring(placed, tr)}).AsGeometry()
	case distinctXY(placed) >= 2:
		g = LineString(placed, tr).AsGeometry()
	default:
		x, y, z := tr(placed[0].X, placed[0].Y, placed[0].Z)
		g = geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Z:    z,
			Type: geom.DimXYZ,
		}).AsGeometry()
	}

	props := map[string]any{
		"shapeKind": string(rec.ShapeKind),
		"color":     rec.StyleColor.Hex(),
		"opacity":   rec.Opacity,
	}
	if rec.Label != "" {
		props["label"] = rec.Label
	}
	if rec.Name != "" {
		props["name"] = rec.Name
	}
	if rec.GridCoordinates != nil {
		props["row"] = rec.GridCoordinates.Row
		props["column"] = rec.GridCoordinates.Column
	}

	return geom.GeoJSONFeature{
		ID:         index,
		Geometry:   g,
		Properties: props,
	}, true
}

// FeatureCollection exports records as GeoJSON features in record order.
// It also returns how many records were left out for having nothing to draw.
func FeatureCollection(records []core.Record, opts ExportOptions) (geom.GeoJSONFeatureCollection, int) {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(records))
	skipped := 0
	for i, rec := range records {
		f, ok := Feature(i, rec, opts)
		if !ok {
			skipped++
			continue
		}
		fc = append(fc, f)
	}
	return fc, skipped
}
