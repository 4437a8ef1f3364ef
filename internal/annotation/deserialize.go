package annotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sceneannotate/annotator/internal/geo"
	"github.com/sceneannotate/annotator/pkg/core"
	"github.com/sceneannotate/annotator/pkg/scene"
)

var (
	ErrNilRoot   = errors.New("no scene root to load into")
	ErrNoRecords = errors.New("no annotation records to load")
)

// ErrGridOutOfRange is reported for heatmap cells outside the configured grid
var ErrGridOutOfRange = errors.New("grid coordinates outside the heatmap grid")

// Deserializer rebuilds annotation nodes from records
type Deserializer struct {
	cfg      ShapeConfig
	logger   *slog.Logger
	counters *counters
}

// NewDeserializer creates a deserializer. A nil logger uses slog.Default().
func NewDeserializer(cfg ShapeConfig, logger *slog.Logger) (*Deserializer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	c, err := newCounters()
	if err != nil {
		return nil, err
	}
	return &Deserializer{cfg: cfg, logger: logger, counters: c}, nil
}

// Deserialize appends one node per usable record under root, in record
// order, and returns how many were added. Unusable records are logged and
// skipped. Pre-existing children of root are left alone, so loading the
// same records twice adds them twice.
func (d *Deserializer) Deserialize(root *scene.Node, records []core.Record) (int, error) {
	added, _, err := d.load(root, records)
	return added, err
}

// Restore replaces every annotation in the graph with the snapshot's
// records, which land in the annotation layer. Annotations found outside the
// layer, as in documents saved before it existed, are removed too. Entries
// that failed to decode are reported as skipped.
func (d *Deserializer) Restore(g *scene.Graph, snap *core.Snapshot) (int, []Skip, error) {
	if g == nil {
		return 0, nil, ErrNilRoot
	}
	if snap == nil || snap.Annotations == nil {
		return 0, nil, ErrNoRecords
	}

	removed := g.RemoveAnnotations() + g.ClearAnnotations()
	d.logger.Debug("cleared annotations", "removed", removed)

	var skipped []Skip
	for _, r := range snap.Rejected {
		d.logger.Warn("skipping undecodable record", "index", r.Index, "error", r.Err)
		d.counters.skip(phaseDeserialize, ReasonUndecodable)
		skipped = append(skipped, Skip{Index: r.Index, Reason: ReasonUndecodable, Err: r.Err})
	}

	added, more, err := d.load(g.Layer(), snap.Annotations)
	return added, append(skipped, more...), err
}

func (d *Deserializer) load(root *scene.Node, records []core.Record) (int, []Skip, error) {
	if root == nil {
		return 0, nil, ErrNilRoot
	}
	if records == nil {
		return 0, nil, ErrNoRecords
	}

	var skipped []Skip
	added := 0
	for i, rec := range records {
		n, reason, err := d.build(rec)
		if reason != "" {
			d.logger.Warn("skipping annotation record",
				"index", i,
				"shape", string(rec.ShapeKind),
				"reason", reason,
				"error", err)
			d.counters.skip(phaseDeserialize, reason)
			skipped = append(skipped, Skip{Index: i, Reason: reason, Err: err})
			continue
		}
		root.Add(n)
		added++
	}

	d.counters.restored.Add(context.Background(), int64(added))
	d.logger.Debug("restored annotations", "count", added, "skipped", len(skipped))
	return added, skipped, nil
}

// build creates the node for one record. A non-empty reason means the
// record was rejected.
func (d *Deserializer) build(rec core.Record) (*scene.Node, string, error) {
	if !rec.ShapeKind.Known() {
		return nil, ReasonUnknownKind, fmt.Errorf("%w: %q", core.ErrUnknownShapeKind, string(rec.ShapeKind))
	}
	if err := rec.Validate(); err != nil {
		return nil, ReasonInvalid, err
	}

	name := rec.Name
	if name == "" {
		name = string(rec.ShapeKind) + " annotation"
	}
	n := scene.NewNode(name, scene.RoleAnnotation)
	n.Shape = rec.ShapeKind

	switch rec.ShapeKind {
	case core.ShapeRectangle:
		n.Geometry = rectangleGeometry(rec.Vertices)
	case core.ShapePolygon:
		n.Geometry = polygonGeometry(rec.Vertices)
	case core.ShapeFreehandLine:
		n.Geometry = freehandGeometry(rec.Vertices)
	case core.ShapeEllipse:
		g, err := ellipseGeometry(rec.Vertices, d.cfg.EllipseSegments)
		if err != nil {
			return nil, ReasonInvalid, err
		}
		n.Geometry = g
	case core.ShapeHeatmapCell:
		gc := *rec.GridCoordinates
		if !d.cfg.Grid().Contains(gc) {
			return nil, ReasonNoGrid, fmt.Errorf("%w: row %d column %d, grid %d", ErrGridOutOfRange, gc.Row, gc.Column, d.cfg.GridSize)
		}
		n.Geometry = heatmapGeometry(d.cfg.Grid())
	}

	n.Material = scene.NewMaterial(rec.StyleColor, rec.Opacity)

	n.Transform = geo.ResolveTransform(rec, d.cfg.Grid())

	n.UserData = restoreUserData(rec)
	return n, "", nil
}

func restoreUserData(rec core.Record) map[string]any {
	ud := copyUserData(rec.Metadata, nil)
	if rec.Label == "" && rec.GridCoordinates == nil {
		return ud
	}
	if ud == nil {
		ud = make(map[string]any, 3)
	}
	if rec.Label != "" {
		ud[scene.UserDataLabel] = rec.Label
	}
	if rec.GridCoordinates != nil {
		ud[scene.UserDataRow] = rec.GridCoordinates.Row
		ud[scene.UserDataColumn] = rec.GridCoordinates.Column
	}
	return ud
}
