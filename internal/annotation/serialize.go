// Package annotation converts between live scene annotations and the flat
// record form that is saved, transmitted and loaded back.
package annotation

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/sceneannotate/annotator/pkg/core"
	"github.com/sceneannotate/annotator/pkg/scene"
)

// Skip describes one annotation left out of a save or load
type Skip struct {
	// Name is the node name when serializing
	Name string
	// Index is the record position when deserializing
	Index  int
	Reason string
	Err    error
}

// Result is the outcome of one serialize pass
type Result struct {
	Records []core.Record
	Skipped []Skip
}

// Serializer reads annotation records out of a scene tree
type Serializer struct {
	logger   *slog.Logger
	counters *counters
	now      func() time.Time
}

// NewSerializer creates a serializer. A nil logger uses slog.Default().
func NewSerializer(logger *slog.Logger) (*Serializer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := newCounters()
	if err != nil {
		return nil, err
	}
	return &Serializer{logger: logger, counters: c, now: time.Now}, nil
}

// Serialize returns one record per well-formed annotation under root,
// in depth-first pre-order. Malformed annotations are logged and skipped.
func (s *Serializer) Serialize(root *scene.Node) []core.Record {
	return s.Collect(root).Records
}

// Collect is Serialize that also reports what was skipped
func (s *Serializer) Collect(root *scene.Node) Result {
	res := Result{Records: []core.Record{}}
	if root == nil {
		return res
	}

	root.Traverse(func(n *scene.Node) bool {
		if !scene.IsAnnotation(n) {
			return true
		}
		rec, reason, err := recordFromNode(n)
		if reason != "" {
			s.logger.Warn("skipping annotation",
				"name", n.Name,
				"shape", string(n.Shape),
				"reason", reason,
				"error", err)
			s.counters.skip(phaseSerialize, reason)
			res.Skipped = append(res.Skipped, Skip{Name: n.Name, Index: -1, Reason: reason, Err: err})
			return true
		}
		res.Records = append(res.Records, rec)
		return true
	})

	s.counters.serialized.Add(context.Background(), int64(len(res.Records)))
	s.logger.Debug("serialized annotations", "count", len(res.Records), "skipped", len(res.Skipped))
	return res
}

// Snapshot serializes root into an envelope stamped with the current schema version
func (s *Serializer) Snapshot(sceneName string, root *scene.Node) (*core.Snapshot, Result) {
	res := s.Collect(root)
	return core.NewSnapshot(sceneName, res.Records, s.now()), res
}

// recordFromNode reads one annotation node. A non-empty reason means the
// node cannot be saved.
func recordFromNode(n *scene.Node) (core.Record, string, error) {
	if n.Shape == "" {
		return core.Record{}, ReasonNoShape, nil
	}
	if !n.Shape.Known() {
		return core.Record{}, ReasonUnknownKind, nil
	}
	if n.Geometry == nil {
		return core.Record{}, ReasonNoGeometry, nil
	}
	if len(n.Geometry.Positions) == 0 || len(n.Geometry.Positions)%3 != 0 {
		return core.Record{}, ReasonBadBuffer, nil
	}
	if n.Material == nil {
		return core.Record{}, ReasonNoMaterial, nil
	}

	vs := vertices(n.Geometry.Positions)
	// the authoring tool draws rectangles as an open four-corner loop
	if n.Shape == core.ShapeRectangle {
		vs = closeRectangle(vs)
	}

	rec := core.Record{
		ShapeKind:  n.Shape,
		Name:       n.Name,
		Vertices:   vs,
		Transform:  n.Transform,
		StyleColor: n.Material.Color,
		Opacity:    shortest(n.Material.Opacity),
	}

	lifted := map[string]bool{}
	if label, ok := n.UserData[scene.UserDataLabel].(string); ok {
		rec.Label = label
		lifted[scene.UserDataLabel] = true
	}

	if n.Shape == core.ShapeHeatmapCell {
		row, rowOK := intValue(n.UserData[scene.UserDataRow])
		col, colOK := intValue(n.UserData[scene.UserDataColumn])
		if !rowOK || !colOK {
			return core.Record{}, ReasonNoGrid, nil
		}
		rec.GridCoordinates = &core.GridCoordinates{Row: row, Column: col}
		lifted[scene.UserDataRow] = true
		lifted[scene.UserDataColumn] = true
	}

	rec.Metadata = copyUserData(n.UserData, lifted)

	if err := rec.Validate(); err != nil {
		return core.Record{}, ReasonInvalid, err
	}
	return rec, "", nil
}

func vertices(positions []float32) []core.Vector3 {
	out := make([]core.Vector3, len(positions)/3)
	for i := range out {
		out[i] = core.Vector3{
			X: shortest(positions[i*3]),
			Y: shortest(positions[i*3+1]),
			Z: shortest(positions[i*3+2]),
		}
	}
	return out
}

// shortest widens f to the float64 with the shortest decimal form that
// still rounds back to f, so 0.3 saves as 0.3 rather than 0.30000001192092896.
func shortest(f float32) float64 {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return float64(f)
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}

// intValue accepts the integer forms user data takes after JSON or direct assignment
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint16:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// copyUserData deep-copies user data minus the keys already lifted into
// record fields. It returns nil when nothing is left.
func copyUserData(src map[string]any, skip map[string]bool) map[string]any {
	var out map[string]any
	for k, v := range src {
		if skip[k] {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(src))
		}
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = deepCopy(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = deepCopy(e)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}
