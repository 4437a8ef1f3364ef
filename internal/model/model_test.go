package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseModelsHaveTables(t *testing.T) {
	var names []string
	for _, m := range DatabaseModels {
		tabler, ok := m.(interface{ TableName() string })
		require.True(t, ok, "%T has no table name", m)
		names = append(names, tabler.TableName())
	}
	assert.Equal(t, []string{"snapshots", "annotations"}, names)
}

func TestSnapshotBeforeCreate(t *testing.T) {
	t.Run("assigns missing id", func(t *testing.T) {
		s := &Snapshot{Scene: "harbour"}
		require.NoError(t, s.BeforeCreate(nil))
		assert.NotEqual(t, uuid.Nil, s.ID)
		assert.Equal(t, uuid.Version(4), s.ID.Version())
	})

	t.Run("keeps caller id", func(t *testing.T) {
		id := uuid.MustParse("6f1c4a52-8a65-4c52-9c0e-6a1f3f1f6a10")
		s := &Snapshot{ID: id}
		require.NoError(t, s.BeforeCreate(nil))
		assert.Equal(t, id, s.ID)
	})
}
