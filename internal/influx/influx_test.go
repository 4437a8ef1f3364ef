package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/sceneannotate/annotator/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationPoint(t *testing.T) {
	op := Operation{
		Name:     "save",
		Scene:    "harbor",
		Backend:  "sqlite",
		Count:    4,
		Skipped:  1,
		Duration: 1500 * time.Microsecond,
		At:       time.Unix(1700000000, 0),
	}

	line := influxdb2_write.PointToLineProtocol(op.Point(), time.Second)
	assert.Equal(t, "annotation_ops,backend=sqlite,op=save,scene=harbor count=4i,duration_ms=1.5,skipped=1i 1700000000\n", line)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{Enabled: false}, "", zerolog.Nop())
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.Valid())
	assert.Error(t, m.Record(Operation{Name: "save"}))
}

func TestConnect_UnreachableUsesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:  true,
		Host:     "127.0.0.1",
		Port:     "1",
		Protocol: "http",
		Org:      "annotator",
		Bucket:   "annotator",
	}, backup, zerolog.Nop())

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.Valid())

	require.NoError(t, m.Record(Operation{Name: "load", Scene: "s", Count: 2, At: time.Unix(10, 0)}))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	assert.Contains(t, string(data), "annotation_ops,op=load,scene=s count=2i")
	assert.Contains(t, string(data), "10000000000\n")
}
