// Package postgres is the gorm backend on PostgreSQL.
package postgres

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sceneannotate/annotator/internal/config"
	"github.com/sceneannotate/annotator/internal/database"
	gormstorage "github.com/sceneannotate/annotator/internal/storage/gorm"
	"github.com/sceneannotate/annotator/pkg/core"
)

var errNotConnected = errors.New("postgres backend not initialized")

// Backend connects on Init and then defers to the gorm backend.
type Backend struct {
	cfg  config.DBConfig
	log  zerolog.Logger
	gorm *gormstorage.Backend
}

func New(cfg config.DBConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// Init opens the connection and migrates the schema.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg, b.log)
	if err != nil {
		return err
	}
	g := gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.log})
	if err := g.Init(); err != nil {
		_ = g.Close()
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.gorm = g
	return nil
}

func (b *Backend) Close() error {
	if b.gorm == nil {
		return nil
	}
	return b.gorm.Close()
}

func (b *Backend) SaveSnapshot(snap *core.Snapshot) (string, error) {
	if b.gorm == nil {
		return "", errNotConnected
	}
	return b.gorm.SaveSnapshot(snap)
}

func (b *Backend) LoadSnapshot(id string) (*core.Snapshot, error) {
	if b.gorm == nil {
		return nil, errNotConnected
	}
	return b.gorm.LoadSnapshot(id)
}

func (b *Backend) ListSnapshots() ([]core.SnapshotInfo, error) {
	if b.gorm == nil {
		return nil, errNotConnected
	}
	return b.gorm.ListSnapshots()
}
