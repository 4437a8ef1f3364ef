package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSnapshot(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := NewSnapshot("slide-7", []Record{
		{
			ShapeKind:  ShapeRectangle,
			Vertices:   []Vector3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}},
			Transform:  IdentityTransform(),
			StyleColor: ColorRed,
			Opacity:    1,
			Label:      "tumor margin",
		},
	}, created)

	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schemaVersion":1`)
	assert.Contains(t, string(data), `"shapeKind":"rectangle"`)

	got, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, got.SchemaVersion)
	assert.Equal(t, "slide-7", got.Scene)
	assert.True(t, created.Equal(got.CreatedAt))
	require.Len(t, got.Annotations, 1)
	assert.Equal(t, snap.Annotations[0], got.Annotations[0])
	assert.Empty(t, got.Rejected)
}

func TestEncodeSnapshot_NilAnnotationsWritesEmptyArray(t *testing.T) {
	data, err := EncodeSnapshot(&Snapshot{SchemaVersion: SchemaVersion})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"annotations":[]`)
}

func TestDecodeSnapshot_LegacyBareArray(t *testing.T) {
	data := []byte(`[{"shapeKind":"polygon","vertices":[{"x":1,"y":2,"z":0}],"opacity":0.5}]`)

	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.SchemaVersion)
	require.Len(t, snap.Annotations, 1)
	assert.Equal(t, ShapePolygon, snap.Annotations[0].ShapeKind)
	assert.Equal(t, 0.5, snap.Annotations[0].Opacity)
}

func TestDecodeSnapshot_EmptyArrayIsNotAnError(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"schemaVersion":1,"annotations":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, snap.Annotations)
	assert.Empty(t, snap.Annotations)
}

func TestDecodeSnapshot_Failures(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "  ", wantErr: ErrEmptyInput},
		{name: "missing annotations", input: `{"schemaVersion":1}`, wantErr: ErrNoAnnotations},
		{name: "null annotations", input: `{"schemaVersion":1,"annotations":null}`, wantErr: ErrNoAnnotations},
		{name: "object annotations", input: `{"schemaVersion":1,"annotations":{"a":1}}`, wantErr: ErrNoAnnotations},
		{name: "newer schema", input: `{"schemaVersion":99,"annotations":[]}`, wantErr: ErrUnsupportedSchemaVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeSnapshot_ScalarInput(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`42`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON object or array")
}

func TestDecodeSnapshot_RejectsUndecodableEntriesIndividually(t *testing.T) {
	data := []byte(`{"schemaVersion":1,"annotations":[
		{"shapeKind":"polygon","vertices":[{"x":0,"y":0,"z":0}],"opacity":1},
		{"shapeKind":"polygon","vertices":"not-an-array","opacity":1},
		{"shapeKind":"freehandLine","vertices":[{"x":1,"y":1,"z":0}],"opacity":1}
	]}`)

	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, snap.Annotations, 2)
	assert.Equal(t, ShapePolygon, snap.Annotations[0].ShapeKind)
	assert.Equal(t, ShapeFreehandLine, snap.Annotations[1].ShapeKind)
	require.Len(t, snap.Rejected, 1)
	assert.Equal(t, 1, snap.Rejected[0].Index)
}

func TestSnapshotInfo(t *testing.T) {
	snap := NewSnapshot("scene", []Record{{ShapeKind: ShapeEllipse}}, time.Unix(0, 0))
	info := snap.Info("abc")
	assert.Equal(t, "abc", info.ID)
	assert.Equal(t, "scene", info.Scene)
	assert.Equal(t, 1, info.Count)
	assert.Equal(t, SchemaVersion, info.SchemaVersion)
}
