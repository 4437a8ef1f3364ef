package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sceneannotate/annotator/internal/config"
	"github.com/sceneannotate/annotator/internal/storage"
	filestorage "github.com/sceneannotate/annotator/internal/storage/file"
	"github.com/sceneannotate/annotator/internal/storage/memory"
	pgstorage "github.com/sceneannotate/annotator/internal/storage/postgres"
	sqlitestorage "github.com/sceneannotate/annotator/internal/storage/sqlite"
	wsstorage "github.com/sceneannotate/annotator/internal/storage/websocket"
	"github.com/spf13/viper"
)

// websocketPath is appended to api.serverUrl when no websocket URL is configured
const websocketPath = "/ws/annotations"

func createStorageBackend(storageCfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	switch storageTypeName(storageCfg.Type) {
	case "postgres":
		logger.Info("Postgres storage backend selected", "host", storageCfg.DB.Host, "database", storageCfg.DB.Database)
		return pgstorage.New(storageCfg.DB, storageLogger("postgres")), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, storageLogger("sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend selected", "path", storageCfg.SQLite.Path, "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "websocket":
		wsCfg := storageCfg.Websocket
		if wsCfg.URL == "" {
			wsCfg.URL = httpToWS(viper.GetString("api.serverUrl")) + websocketPath
		}
		if wsCfg.Secret == "" {
			wsCfg.Secret = viper.GetString("api.apiKey")
		}
		logger.Info("WebSocket storage backend selected", "url", wsCfg.URL)
		return wsstorage.New(wsstorage.Config{
			URL:        wsCfg.URL,
			Secret:     wsCfg.Secret,
			AckTimeout: wsCfg.AckTimeout,
		}, logger), nil

	case "memory":
		logger.Warn("Memory storage backend selected, snapshots are discarded on exit")
		return memory.New(), nil

	case "file":
		logger.Debug("File storage backend selected", "dir", storageCfg.File.OutputDir)
		return filestorage.New(storageCfg.File, logger), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// openBackend runs Init and releases whatever Init managed to open when it fails
func openBackend(b storage.Backend) error {
	if err := b.Init(); err != nil {
		initErr := fmt.Errorf("failed to initialize storage backend: %w", err)
		if closeErr := b.Close(); closeErr != nil {
			return errors.Join(initErr, fmt.Errorf("closing storage backend: %w", closeErr))
		}
		return initErr
	}
	return nil
}

func storageTypeName(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return "file"
	}
	return t
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
