package postgres

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sceneannotate/annotator/internal/config"
	"github.com/sceneannotate/annotator/internal/storage"
	"github.com/sceneannotate/annotator/pkg/core"
	"github.com/stretchr/testify/assert"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestInit_Unreachable(t *testing.T) {
	b := New(config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "annotations",
	}, zerolog.Nop())

	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestCallsBeforeInit(t *testing.T) {
	b := New(config.DBConfig{}, zerolog.Nop())

	_, err := b.SaveSnapshot(core.NewSnapshot("s", nil, time.Now()))
	assert.ErrorIs(t, err, errNotConnected)
	_, err = b.LoadSnapshot("x")
	assert.ErrorIs(t, err, errNotConnected)
	_, err = b.ListSnapshots()
	assert.ErrorIs(t, err, errNotConnected)
}
