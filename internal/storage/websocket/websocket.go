// Package websocket pushes snapshots to the web viewer over a WebSocket.
// The viewer keeps the data, so reads are not available through this
// backend.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sceneannotate/annotator/internal/storage"
	"github.com/sceneannotate/annotator/pkg/core"
)

const defaultAckTimeout = 10 * time.Second

// Config holds WebSocket backend configuration.
type Config struct {
	URL        string
	Secret     string
	AckTimeout time.Duration
}

// Backend implements storage.Backend for save only.
type Backend struct {
	conn *connection
	cfg  Config
}

func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the viewer.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the viewer.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// SaveSnapshot sends the snapshot and waits for the viewer's ack. The
// returned ID is the one the viewer acknowledged.
func (b *Backend) SaveSnapshot(snap *core.Snapshot) (string, error) {
	if snap == nil {
		return "", errors.New("nil snapshot")
	}
	out := *snap
	if out.Annotations == nil {
		out.Annotations = []core.Record{}
	}

	id := uuid.NewString()
	data, err := marshalEnvelope(TypeSaveSnapshot, SaveSnapshotPayload{ID: id, Snapshot: &out})
	if err != nil {
		return "", err
	}

	ack, err := b.conn.sendAndWait(data, TypeSaveSnapshot, id, b.cfg.AckTimeout)
	if err != nil {
		return "", err
	}
	if ack.Error != "" {
		return "", fmt.Errorf("viewer rejected snapshot: %s", ack.Error)
	}
	return id, nil
}

func (b *Backend) LoadSnapshot(id string) (*core.Snapshot, error) {
	return nil, fmt.Errorf("load %q: %w", id, storage.ErrUnsupported)
}

func (b *Backend) ListSnapshots() ([]core.SnapshotInfo, error) {
	return nil, fmt.Errorf("list: %w", storage.ErrUnsupported)
}
