// pkg/core/snapshot.go
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the envelope version written by this package.
// Version 0 denotes a legacy bare array without an envelope.
const SchemaVersion = 1

var (
	ErrEmptyInput               = errors.New("empty snapshot input")
	ErrNoAnnotations            = errors.New("snapshot has no annotations array")
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")
)

// Snapshot is the save envelope around a full set of annotation records
type Snapshot struct {
	SchemaVersion int       `json:"schemaVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	Scene         string    `json:"scene,omitempty"`
	Annotations   []Record  `json:"annotations"`

	// Rejected holds array entries that could not be decoded into a Record.
	// They are reported, not fatal.
	Rejected []RejectedRecord `json:"-"`
}

// RejectedRecord is an array entry that failed to decode
type RejectedRecord struct {
	Index int
	Err   error
}

// SnapshotInfo summarizes a stored snapshot for listings
type SnapshotInfo struct {
	ID            string    `json:"id"`
	Scene         string    `json:"scene,omitempty"`
	SchemaVersion int       `json:"schemaVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	Count         int       `json:"count"`
}

// NewSnapshot wraps records in an envelope stamped with the current schema version
func NewSnapshot(scene string, records []Record, now time.Time) *Snapshot {
	if records == nil {
		records = []Record{}
	}
	return &Snapshot{
		SchemaVersion: SchemaVersion,
		CreatedAt:     now.UTC(),
		Scene:         scene,
		Annotations:   records,
	}
}

// Info returns the listing summary for the snapshot under the given ID
func (s *Snapshot) Info(id string) SnapshotInfo {
	return SnapshotInfo{
		ID:            id,
		Scene:         s.Scene,
		SchemaVersion: s.SchemaVersion,
		CreatedAt:     s.CreatedAt,
		Count:         len(s.Annotations),
	}
}

// EncodeSnapshot marshals the snapshot envelope to JSON
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}
	out := *s
	if out.Annotations == nil {
		out.Annotations = []Record{}
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

type snapshotWire struct {
	SchemaVersion int             `json:"schemaVersion"`
	CreatedAt     time.Time       `json:"createdAt"`
	Scene         string          `json:"scene"`
	Annotations   json.RawMessage `json:"annotations"`
}

// DecodeSnapshot parses an envelope, or a legacy bare array of records.
// A missing or non-array annotations field fails; individual entries that
// do not decode are collected in Rejected instead.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	switch data[0] {
	case '[':
		snap := &Snapshot{SchemaVersion: 0}
		if err := decodeRecords(data, snap); err != nil {
			return nil, err
		}
		return snap, nil
	case '{':
	default:
		return nil, fmt.Errorf("snapshot must be a JSON object or array, got %q", string(data[:1]))
	}

	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode snapshot envelope: %w", err)
	}
	if wire.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedSchemaVersion, wire.SchemaVersion, SchemaVersion)
	}

	raw := bytes.TrimSpace(wire.Annotations)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrNoAnnotations
	}
	if raw[0] != '[' {
		return nil, fmt.Errorf("%w: annotations is not an array", ErrNoAnnotations)
	}

	snap := &Snapshot{
		SchemaVersion: wire.SchemaVersion,
		CreatedAt:     wire.CreatedAt,
		Scene:         wire.Scene,
	}
	if err := decodeRecords(raw, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func decodeRecords(raw []byte, snap *Snapshot) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decode annotations array: %w", err)
	}

	snap.Annotations = make([]Record, 0, len(items))
	for i, item := range items {
		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil {
			snap.Rejected = append(snap.Rejected, RejectedRecord{Index: i, Err: err})
			continue
		}
		snap.Annotations = append(snap.Annotations, rec)
	}
	return nil
}
