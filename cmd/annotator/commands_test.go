package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sceneannotate/annotator/internal/annotation"
	"github.com/sceneannotate/annotator/internal/config"
	"github.com/sceneannotate/annotator/internal/influx"
	"github.com/sceneannotate/annotator/internal/storage"
	filestorage "github.com/sceneannotate/annotator/internal/storage/file"
	sqlitestorage "github.com/sceneannotate/annotator/internal/storage/sqlite"
	"github.com/sceneannotate/annotator/pkg/core"
	"github.com/sceneannotate/annotator/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	paths []string
	metas []storage.UploadMetadata
	err   error
}

func (f *fakeUploader) Upload(path string, meta storage.UploadMetadata) error {
	f.paths = append(f.paths, path)
	f.metas = append(f.metas, meta)
	return f.err
}

type fakeStats struct {
	ops    []influx.Operation
	closed bool
}

func (f *fakeStats) Record(op influx.Operation) error {
	f.ops = append(f.ops, op)
	return nil
}

func (f *fakeStats) Close() error {
	f.closed = true
	return nil
}

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	backend := filestorage.New(config.FileConfig{OutputDir: filepath.Join(t.TempDir(), "snapshots")}, logger)
	require.NoError(t, backend.Init())

	var out bytes.Buffer
	a := &app{
		logger:      logger,
		backend:     backend,
		storageType: "file",
		shapes:      annotation.DefaultShapeConfig(),
		generator:   "annotator test",
		out:         &out,
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, &out
}

func square() []core.Vector3 {
	return []core.Vector3{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0}}
}

// writeTestScene writes a scene with two annotations and one image plane
func writeTestScene(t *testing.T) string {
	t.Helper()
	g := scene.NewGraph("harbour")

	rect := scene.NewNode("rectangle", scene.RoleAnnotation)
	rect.Shape = core.ShapeRectangle
	rect.Geometry = scene.NewGeometry(scene.DrawLineLoop, square())
	rect.Material = scene.NewMaterial(core.ColorRed, 1)
	rect.UserData = map[string]any{scene.UserDataLabel: "berth 4"}

	line := scene.NewNode("freehand annotation", scene.RoleUnset)
	line.Shape = core.ShapeFreehandLine
	line.Geometry = scene.NewGeometry(scene.DrawLine, []core.Vector3{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 9, Y: 2}})
	line.Material = scene.NewMaterial(core.ColorRed, 0.5)

	g.Layer().Add(rect, line)
	g.Add(scene.NewNode("chart", scene.RoleImage))

	path := filepath.Join(t.TempDir(), "harbour.json")
	require.NoError(t, scene.WriteDocumentFile(path, g, "test"))
	return path
}

func lastLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	return lines[len(lines)-1]
}

func TestSaveListLoadClear(t *testing.T) {
	a, out := newTestApp(t)
	stats := &fakeStats{}
	a.stats = stats
	scenePath := writeTestScene(t)

	require.NoError(t, a.dispatch("save", []string{scenePath}))
	id := lastLine(out)
	assert.True(t, strings.HasPrefix(id, "harbour_"), id)

	out.Reset()
	require.NoError(t, a.dispatch("list", nil))
	assert.Contains(t, out.String(), "ID")
	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "harbour")

	out.Reset()
	require.NoError(t, a.dispatch("clear", []string{scenePath}))
	assert.Equal(t, "removed 2 annotations", lastLine(out))

	g, err := scene.ReadDocumentFile(scenePath)
	require.NoError(t, err)
	assert.Empty(t, g.Annotations())
	assert.Equal(t, 2, g.Root().Len(), "layer and image plane remain")

	out.Reset()
	require.NoError(t, a.dispatch("load", []string{scenePath, id}))
	assert.Equal(t, "restored 2 annotations, skipped 0", lastLine(out))

	g, err = scene.ReadDocumentFile(scenePath)
	require.NoError(t, err)
	restored := g.Layer().Children()
	require.Len(t, restored, 2)
	assert.Equal(t, core.ShapeRectangle, restored[0].Shape)
	assert.Equal(t, "berth 4", restored[0].UserData[scene.UserDataLabel])
	assert.Equal(t, core.ShapeFreehandLine, restored[1].Shape)

	require.Len(t, stats.ops, 3)
	assert.Equal(t, "save", stats.ops[0].Name)
	assert.Equal(t, "harbour", stats.ops[0].Scene)
	assert.Equal(t, "file", stats.ops[0].Backend)
	assert.Equal(t, 2, stats.ops[0].Count)
	assert.Equal(t, "clear", stats.ops[1].Name)
	assert.Equal(t, "load", stats.ops[2].Name)
	assert.Equal(t, 2, stats.ops[2].Count)
}

func TestSaveAndLoadThroughSQLite(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.backend.Close())

	backend, err := sqlitestorage.New(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "annotations.db")}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, backend.Init())
	a.backend = backend
	a.storageType = "sqlite"
	a.uploader = &fakeUploader{}

	scenePath := writeTestScene(t)
	require.NoError(t, a.dispatch("save", []string{scenePath}))
	id := lastLine(out)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "sqlite snapshots are keyed by UUID")
	assert.Empty(t, a.uploader.(*fakeUploader).paths, "database backends export no file")

	out.Reset()
	require.NoError(t, a.dispatch("list", nil))
	assert.Contains(t, out.String(), id)

	require.NoError(t, a.dispatch("clear", []string{scenePath}))
	out.Reset()
	require.NoError(t, a.dispatch("load", []string{scenePath, id}))
	assert.Equal(t, "restored 2 annotations, skipped 0", lastLine(out))
}

func TestLoadTwiceReplacesLayer(t *testing.T) {
	a, out := newTestApp(t)
	scenePath := writeTestScene(t)

	require.NoError(t, a.dispatch("save", []string{scenePath}))
	id := lastLine(out)

	require.NoError(t, a.dispatch("load", []string{scenePath, id}))
	require.NoError(t, a.dispatch("load", []string{scenePath, id}))

	g, err := scene.ReadDocumentFile(scenePath)
	require.NoError(t, err)
	assert.Len(t, g.Layer().Children(), 2)
}

func TestLoadUnknownSnapshot(t *testing.T) {
	a, _ := newTestApp(t)
	scenePath := writeTestScene(t)

	err := a.dispatch("load", []string{scenePath, "missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestGeoJSONExport(t *testing.T) {
	a, out := newTestApp(t)
	stats := &fakeStats{}
	a.stats = stats
	scenePath := writeTestScene(t)

	require.NoError(t, a.dispatch("save", []string{scenePath}))
	id := lastLine(out)

	out.Reset()
	require.NoError(t, a.dispatch("geojson", []string{id}))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Polygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, "LineString", fc.Features[1].Geometry.Type)

	outPath := filepath.Join(t.TempDir(), "harbour.geojson")
	require.NoError(t, a.dispatch("geojson", []string{id, outPath}))
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")

	require.Len(t, stats.ops, 3)
	assert.Equal(t, "geojson", stats.ops[1].Name)
	assert.Equal(t, 2, stats.ops[1].Count)
}

func TestGeoJSONBadCRS(t *testing.T) {
	a, out := newTestApp(t)
	a.sourceCRS = "not-a-crs"
	scenePath := writeTestScene(t)

	require.NoError(t, a.dispatch("save", []string{scenePath}))
	id := lastLine(out)

	require.Error(t, a.dispatch("geojson", []string{id}))
}

func TestSaveUploadsExportedFile(t *testing.T) {
	a, out := newTestApp(t)
	up := &fakeUploader{}
	a.uploader = up
	scenePath := writeTestScene(t)

	require.NoError(t, a.dispatch("save", []string{scenePath}))
	id := lastLine(out)

	require.Len(t, up.paths, 1)
	assert.Contains(t, filepath.Base(up.paths[0]), id)
	assert.Equal(t, "harbour", up.metas[0].Scene)
	assert.Equal(t, 2, up.metas[0].Count)
}

func TestSaveUploadFailureIsNotFatal(t *testing.T) {
	a, _ := newTestApp(t)
	a.uploader = &fakeUploader{err: errors.New("viewer down")}

	require.NoError(t, a.dispatch("save", []string{writeTestScene(t)}))
}

func TestSaveMissingScene(t *testing.T) {
	a, _ := newTestApp(t)
	require.Error(t, a.dispatch("save", []string{filepath.Join(t.TempDir(), "nope.json")}))
}

func TestSceneContextIsSet(t *testing.T) {
	a, _ := newTestApp(t)
	var seen []string
	a.setScene = func(s string) { seen = append(seen, s) }

	require.NoError(t, a.dispatch("save", []string{writeTestScene(t)}))
	assert.Equal(t, []string{"harbour"}, seen)
}

func TestDispatchUsageErrors(t *testing.T) {
	a, _ := newTestApp(t)

	tests := []struct {
		command string
		args    []string
	}{
		{"save", nil},
		{"save", []string{"a", "b"}},
		{"load", []string{"scene.json"}},
		{"geojson", nil},
		{"geojson", []string{"a", "b", "c"}},
		{"clear", nil},
		{"frobnicate", nil},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			err := a.dispatch(tt.command, tt.args)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errUsage))
		})
	}
}

func TestSceneName(t *testing.T) {
	assert.Equal(t, "harbour", sceneName(scene.NewGraph("harbour"), "/tmp/other.json"))
	assert.Equal(t, "other", sceneName(scene.NewGraph("  "), "/tmp/other.json"))
}

func TestAppCloseClosesStats(t *testing.T) {
	a, _ := newTestApp(t)
	stats := &fakeStats{}
	a.stats = stats

	require.NoError(t, a.Close())
	assert.True(t, stats.closed)
}

func TestShapeConfigConversion(t *testing.T) {
	got := shapeConfig(config.ShapeConfig{EllipseSegments: 32, GridSize: 10, CellSize: 2.5})
	assert.Equal(t, annotation.ShapeConfig{EllipseSegments: 32, GridSize: 10, CellSize: 2.5}, got)
}

func TestRunWithoutCommand(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 2, run(nil, &out))
	assert.Contains(t, out.String(), "usage: annotator")
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, run([]string{"VERSION"}, &out))
	assert.Contains(t, out.String(), CurrentVersion)
}
