// Package storage defines the snapshot store used by the CLI.
package storage

import (
	"errors"
	"time"

	"github.com/sceneannotate/annotator/pkg/core"
)

var (
	// ErrNotFound is returned when a snapshot ID is unknown to the backend.
	ErrNotFound = errors.New("snapshot not found")
	// ErrUnsupported is returned by push-only backends for reads.
	ErrUnsupported = errors.New("operation not supported by storage backend")
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	Init() error
	Close() error

	// SaveSnapshot persists the snapshot and returns its ID.
	SaveSnapshot(snap *core.Snapshot) (string, error)
	LoadSnapshot(id string) (*core.Snapshot, error)
	// ListSnapshots returns summaries, newest first.
	ListSnapshots() ([]core.SnapshotInfo, error)
}

// UploadMetadata describes an exported snapshot file for the web viewer.
type UploadMetadata struct {
	Scene     string
	Count     int
	CreatedAt time.Time
}

// Uploadable is implemented by backends that leave a file behind after a
// save, suitable for upload to the web viewer.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() UploadMetadata
}
