// Package filestorage keeps snapshots as JSON files in one directory.
package filestorage

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sceneannotate/annotator/internal/config"
	"github.com/sceneannotate/annotator/internal/storage"
	"github.com/sceneannotate/annotator/pkg/core"
)

const (
	extJSON = ".json"
	extGzip = ".json.gz"
)

// Backend writes one file per snapshot. The ID is the file name without
// its extension.
type Backend struct {
	cfg    config.FileConfig
	logger *slog.Logger

	mu             sync.Mutex
	lastExportPath string
	lastMeta       storage.UploadMetadata
}

func New(cfg config.FileConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

// Init creates the output directory.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// SaveSnapshot writes the snapshot to <scene>_<timestamp>_<id8>.json, gzipped
// when CompressOutput is set.
func (b *Backend) SaveSnapshot(snap *core.Snapshot) (string, error) {
	data, err := core.EncodeSnapshot(snap)
	if err != nil {
		return "", err
	}

	id := snapshotID(snap)
	ext := extJSON
	if b.cfg.CompressOutput {
		ext = extGzip
	}
	path := filepath.Join(b.cfg.OutputDir, id+ext)

	if b.cfg.CompressOutput {
		err = writeGzip(path, data)
	} else {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	b.mu.Lock()
	b.lastExportPath = path
	b.lastMeta = storage.UploadMetadata{
		Scene:     snap.Scene,
		Count:     len(snap.Annotations),
		CreatedAt: snap.CreatedAt,
	}
	b.mu.Unlock()

	b.logger.Debug("Snapshot written", "path", path, "count", len(snap.Annotations))
	return id, nil
}

// LoadSnapshot reads the snapshot stored under id, in either encoding.
func (b *Backend) LoadSnapshot(id string) (*core.Snapshot, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("%w: invalid id %q", storage.ErrNotFound, id)
	}

	for _, ext := range []string{extJSON, extGzip} {
		data, err := readSnapshotFile(filepath.Join(b.cfg.OutputDir, id+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		snap, err := core.DecodeSnapshot(data)
		if err != nil {
			return nil, fmt.Errorf("snapshot %q: %w", id, err)
		}
		return snap, nil
	}
	return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, id)
}

// ListSnapshots decodes every snapshot file in the directory. Files that do
// not decode are logged and left out.
func (b *Backend) ListSnapshots() ([]core.SnapshotInfo, error) {
	entries, err := os.ReadDir(b.cfg.OutputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []core.SnapshotInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	infos := []core.SnapshotInfo{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := trimExt(e.Name())
		if !ok {
			continue
		}
		data, err := readSnapshotFile(filepath.Join(b.cfg.OutputDir, e.Name()))
		if err != nil {
			b.logger.Warn("Skipping unreadable snapshot", "file", e.Name(), "error", err)
			continue
		}
		snap, err := core.DecodeSnapshot(data)
		if err != nil {
			b.logger.Warn("Skipping undecodable snapshot", "file", e.Name(), "error", err)
			continue
		}
		infos = append(infos, snap.Info(id))
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// GetExportedFilePath returns the file written by the last save.
func (b *Backend) GetExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastExportPath
}

// GetExportMetadata describes the file written by the last save.
func (b *Backend) GetExportMetadata() storage.UploadMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastMeta
}

func snapshotID(snap *core.Snapshot) string {
	return fmt.Sprintf("%s_%s_%s",
		sanitizeName(snap.Scene),
		snap.CreatedAt.UTC().Format("20060102_150405"),
		uuid.NewString()[:8],
	)
}

// sanitizeName makes a scene name safe to use in a file name.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "scene"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '/', '\\', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

func trimExt(name string) (string, bool) {
	switch {
	case strings.HasSuffix(name, extGzip):
		return strings.TrimSuffix(name, extGzip), true
	case strings.HasSuffix(name, extJSON):
		return strings.TrimSuffix(name, extJSON), true
	}
	return "", false
}

func writeGzip(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		return err
	}
	return gz.Close()
}

// readSnapshotFile returns the file contents, gunzipped when the file starts
// with the gzip magic bytes.
func readSnapshotFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip snapshot: %w", err)
	}
	defer gz.Close()
	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip snapshot: %w", err)
	}
	return out, nil
}
