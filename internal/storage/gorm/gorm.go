// Package gormstorage stores snapshots in a SQL database through gorm.
// The sqlite and postgres backends embed it and only differ in how the
// connection is opened.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sceneannotate/annotator/internal/database"
	"github.com/sceneannotate/annotator/internal/model"
	"github.com/sceneannotate/annotator/internal/model/convert"
	"github.com/sceneannotate/annotator/internal/storage"
	"github.com/sceneannotate/annotator/pkg/core"
	"gorm.io/gorm"
)

// Dependencies holds everything the gorm backend needs.
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// Backend implements storage.Backend on top of an open gorm connection.
type Backend struct {
	deps    Dependencies
	dbReady bool
}

func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}
	if err := database.Migrate(b.deps.DB, b.deps.Logger); err != nil {
		return err
	}
	b.dbReady = true
	return nil
}

// Close closes the underlying connection pool.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	b.dbReady = false
	return sqlDB.Close()
}

// DB exposes the connection to embedding backends.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SaveSnapshot inserts the snapshot and its annotations in one transaction
// and returns the new snapshot's UUID.
func (b *Backend) SaveSnapshot(snap *core.Snapshot) (string, error) {
	if !b.dbReady {
		return "", errors.New("gorm backend not initialized")
	}
	if snap == nil {
		return "", errors.New("nil snapshot")
	}

	id := uuid.New()
	row, err := convert.SnapshotToGorm(id, snap)
	if err != nil {
		return "", err
	}

	err = b.deps.DB.Transaction(func(tx *gorm.DB) error {
		annotations := row.Annotations
		row.Annotations = nil
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		if len(annotations) == 0 {
			return nil
		}
		if err := tx.Create(&annotations).Error; err != nil {
			return fmt.Errorf("insert annotations: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	b.deps.Logger.Debug().
		Str("id", id.String()).
		Str("scene", snap.Scene).
		Int("count", len(snap.Annotations)).
		Msg("Snapshot saved")
	return id.String(), nil
}

// LoadSnapshot reads a snapshot and its annotations in saved order.
func (b *Backend) LoadSnapshot(id string) (*core.Snapshot, error) {
	if !b.dbReady {
		return nil, errors.New("gorm backend not initialized")
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, id)
	}

	var row model.Snapshot
	err = b.deps.DB.
		Preload("Annotations", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", uid).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap := convert.SnapshotToCore(row)
	for _, rej := range snap.Rejected {
		b.deps.Logger.Warn().Err(rej.Err).Int("index", rej.Index).Str("id", id).Msg("Undecodable annotation row")
	}
	return snap, nil
}

// ListSnapshots returns snapshot summaries, newest first.
func (b *Backend) ListSnapshots() ([]core.SnapshotInfo, error) {
	if !b.dbReady {
		return nil, errors.New("gorm backend not initialized")
	}

	var rows []model.Snapshot
	if err := b.deps.DB.Order("saved_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	infos := make([]core.SnapshotInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, convert.SnapshotInfo(row))
	}
	return infos, nil
}

// DeleteSnapshot soft-deletes a snapshot. Its annotation rows stay until the
// snapshot row is purged.
func (b *Backend) DeleteSnapshot(id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q", storage.ErrNotFound, id)
	}
	res := b.deps.DB.Delete(&model.Snapshot{}, "id = ?", uid)
	if res.Error != nil {
		return fmt.Errorf("delete snapshot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", storage.ErrNotFound, id)
	}
	return nil
}
