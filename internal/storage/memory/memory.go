// Package memory keeps snapshots in process memory. Nothing survives the
// process; it backs dry runs and tests.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sceneannotate/annotator/internal/storage"
	"github.com/sceneannotate/annotator/pkg/core"
)

type entry struct {
	info core.SnapshotInfo
	data []byte
}

// Backend stores encoded snapshots keyed by UUID
type Backend struct {
	snapshots map[string]entry
	mu        sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		snapshots: make(map[string]entry),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close drops every stored snapshot
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.snapshots)
	return nil
}

// SaveSnapshot encodes the snapshot so later loads never share state with the caller.
func (b *Backend) SaveSnapshot(snap *core.Snapshot) (string, error) {
	data, err := core.EncodeSnapshot(snap)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots[id] = entry{info: snap.Info(id), data: data}
	return id, nil
}

func (b *Backend) LoadSnapshot(id string) (*core.Snapshot, error) {
	b.mu.RLock()
	e, ok := b.snapshots[id]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, id)
	}
	return core.DecodeSnapshot(e.data)
}

// ListSnapshots returns newest first, ties broken by ID.
func (b *Backend) ListSnapshots() ([]core.SnapshotInfo, error) {
	b.mu.RLock()
	infos := make([]core.SnapshotInfo, 0, len(b.snapshots))
	for _, e := range b.snapshots {
		infos = append(infos, e.info)
	}
	b.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// DeleteSnapshot removes one snapshot
func (b *Backend) DeleteSnapshot(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.snapshots[id]; !ok {
		return fmt.Errorf("%w: %q", storage.ErrNotFound, id)
	}
	delete(b.snapshots, id)
	return nil
}
