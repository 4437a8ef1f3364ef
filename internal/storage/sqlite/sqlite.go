// Package sqlitestorage is the gorm backend on SQLite. With no path the
// database lives in memory and is copied to disk with VACUUM INTO on an
// interval and on close.
package sqlitestorage

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sceneannotate/annotator/internal/config"
	"github.com/sceneannotate/annotator/internal/database"
	gormstorage "github.com/sceneannotate/annotator/internal/storage/gorm"
)

// Backend wraps the gorm backend with the periodic dump.
type Backend struct {
	*gormstorage.Backend
	cfg      config.SQLiteConfig
	inMemory bool
	log      zerolog.Logger

	stopChan  chan struct{}
	done      sync.WaitGroup
	closeOnce sync.Once
}

// New opens the database named by cfg.Path, or a shared in-memory one when
// the path is empty.
func New(cfg config.SQLiteConfig, log zerolog.Logger) (*Backend, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = database.SharedMemoryDSN
	}
	db, err := database.OpenSQLite(dsn, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		cfg:      cfg,
		inMemory: isMemoryDSN(dsn),
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema and starts the dump loop for in-memory databases.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.inMemory && b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.done.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump loop, writes a final dump and closes the database.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stopChan)
		b.done.Wait()

		if b.inMemory && b.cfg.DumpPath != "" {
			if dumpErr := database.DumpToDisk(b.DB(), b.cfg.DumpPath, b.log); dumpErr != nil {
				b.log.Error().Err(dumpErr).Msg("Final dump failed")
			}
		}
		err = b.Backend.Close()
	})
	return err
}

func (b *Backend) dumpLoop() {
	defer b.done.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := database.DumpToDisk(b.DB(), b.cfg.DumpPath, b.log); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			}
		}
	}
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
