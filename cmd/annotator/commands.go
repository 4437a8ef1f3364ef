package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sceneannotate/annotator/internal/annotation"
	"github.com/sceneannotate/annotator/internal/config"
	"github.com/sceneannotate/annotator/internal/geo"
	"github.com/sceneannotate/annotator/internal/influx"
	"github.com/sceneannotate/annotator/internal/storage"
	"github.com/sceneannotate/annotator/pkg/scene"
)

var errUsage = errors.New("invalid arguments")

type uploader interface {
	Upload(filePath string, meta storage.UploadMetadata) error
}

type statsRecorder interface {
	Record(op influx.Operation) error
	Close() error
}

// app runs one command against the configured backend
type app struct {
	logger      *slog.Logger
	backend     storage.Backend
	storageType string
	shapes      annotation.ShapeConfig
	sourceCRS   string
	generator   string
	out         io.Writer

	uploader uploader      // nil unless api.serverUrl is set
	stats    statsRecorder // nil unless influx is enabled

	setScene func(string)
}

func (a *app) dispatch(command string, args []string) error {
	switch command {
	case "save":
		if len(args) != 1 {
			return fmt.Errorf("%w: save <scene.json>", errUsage)
		}
		return a.save(args[0])
	case "load":
		if len(args) != 2 {
			return fmt.Errorf("%w: load <scene.json> <snapshotID>", errUsage)
		}
		return a.load(args[0], args[1])
	case "list":
		return a.list()
	case "geojson":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: geojson <snapshotID> [out.geojson]", errUsage)
		}
		out := ""
		if len(args) == 2 {
			out = args[1]
		}
		return a.geoJSON(args[0], out)
	case "clear":
		if len(args) != 1 {
			return fmt.Errorf("%w: clear <scene.json>", errUsage)
		}
		return a.clear(args[0])
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// Close releases the backend and the statistics writer
func (a *app) Close() error {
	var errs []error
	if a.stats != nil {
		errs = append(errs, a.stats.Close())
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	return errors.Join(errs...)
}

func (a *app) save(scenePath string) error {
	start := time.Now()

	g, err := scene.ReadDocumentFile(scenePath)
	if err != nil {
		return err
	}
	name := sceneName(g, scenePath)
	a.setCurrentScene(name)

	ser, err := annotation.NewSerializer(a.logger)
	if err != nil {
		return err
	}
	snap, res := ser.Snapshot(name, g.Root())
	for _, s := range res.Skipped {
		a.logger.Warn("Annotation skipped", "name", s.Name, "reason", s.Reason, "error", s.Err)
	}

	id, err := a.backend.SaveSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	a.logger.Info("Snapshot saved", "id", id, "count", len(snap.Annotations), "skipped", len(res.Skipped), "backend", a.storageType)
	fmt.Fprintln(a.out, id)

	a.upload()
	a.record("save", name, len(snap.Annotations), len(res.Skipped), start)
	return nil
}

// upload sends the file the backend just wrote to the web viewer. Failures
// are logged, the snapshot is already stored.
func (a *app) upload() {
	if a.uploader == nil {
		return
	}
	up, ok := a.backend.(storage.Uploadable)
	if !ok {
		a.logger.Debug("Backend does not export files, skipping upload", "backend", a.storageType)
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		return
	}
	if err := a.uploader.Upload(path, up.GetExportMetadata()); err != nil {
		a.logger.Error("Failed to upload snapshot", "path", path, "error", err)
		return
	}
	a.logger.Info("Snapshot uploaded", "path", path)
}

func (a *app) load(scenePath, id string) error {
	start := time.Now()

	snap, err := a.backend.LoadSnapshot(id)
	if err != nil {
		return fmt.Errorf("failed to load snapshot %q: %w", id, err)
	}

	g, err := scene.ReadDocumentFile(scenePath)
	if err != nil {
		return err
	}
	name := sceneName(g, scenePath)
	a.setCurrentScene(name)

	d, err := annotation.NewDeserializer(a.shapes, a.logger)
	if err != nil {
		return err
	}
	added, skipped, err := d.Restore(g, snap)
	if err != nil {
		return fmt.Errorf("failed to restore snapshot %q: %w", id, err)
	}
	for _, s := range skipped {
		a.logger.Warn("Annotation skipped", "index", s.Index, "reason", s.Reason, "error", s.Err)
	}

	if err := scene.WriteDocumentFile(scenePath, g, a.generator); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "restored %d annotations, skipped %d\n", added, len(skipped))

	a.record("load", name, added, len(skipped), start)
	return nil
}

func (a *app) list() error {
	infos, err := a.backend.ListSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCENE\tCOUNT\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", info.ID, info.Scene, info.Count, info.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (a *app) geoJSON(id, outPath string) error {
	start := time.Now()

	snap, err := a.backend.LoadSnapshot(id)
	if err != nil {
		return fmt.Errorf("failed to load snapshot %q: %w", id, err)
	}
	a.setCurrentScene(snap.Scene)

	tr, err := geo.NewTransformer(a.sourceCRS)
	if err != nil {
		return err
	}
	fc, skipped := geo.FeatureCollection(snap.Annotations, geo.ExportOptions{
		Transform: tr,
		Grid:      a.shapes.Grid(),
	})

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	data = append(data, '\n')

	if outPath == "" {
		if _, err := a.out.Write(data); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write GeoJSON: %w", err)
		}
		a.logger.Info("GeoJSON written", "path", outPath, "features", len(fc), "skipped", skipped)
	}

	a.record("geojson", snap.Scene, len(fc), skipped, start)
	return nil
}

func (a *app) clear(scenePath string) error {
	start := time.Now()

	g, err := scene.ReadDocumentFile(scenePath)
	if err != nil {
		return err
	}
	name := sceneName(g, scenePath)
	a.setCurrentScene(name)

	removed := g.RemoveAnnotations()
	if err := scene.WriteDocumentFile(scenePath, g, a.generator); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %d annotations\n", removed)

	a.record("clear", name, removed, 0, start)
	return nil
}

func (a *app) setCurrentScene(name string) {
	if a.setScene != nil {
		a.setScene(name)
	}
}

func (a *app) record(op, name string, count, skipped int, start time.Time) {
	if a.stats == nil {
		return
	}
	err := a.stats.Record(influx.Operation{
		Name:     op,
		Scene:    name,
		Backend:  a.storageType,
		Count:    count,
		Skipped:  skipped,
		Duration: time.Since(start),
		At:       start,
	})
	if err != nil {
		a.logger.Warn("Failed to record statistics", "op", op, "error", err)
	}
}

// sceneName prefers the root node's name and falls back to the file stem
func sceneName(g *scene.Graph, path string) string {
	if name := strings.TrimSpace(g.Root().Name); name != "" {
		return name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func shapeConfig(c config.ShapeConfig) annotation.ShapeConfig {
	return annotation.ShapeConfig{
		EllipseSegments: c.EllipseSegments,
		GridSize:        c.GridSize,
		CellSize:        c.CellSize,
	}
}
