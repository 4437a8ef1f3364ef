package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraph(t *testing.T) {
	g := NewGraph("slide")
	require.NotNil(t, g.Layer())
	assert.Equal(t, "slide", g.Root().Name)
	assert.Equal(t, g.Root(), g.Layer().Parent())
	assert.Equal(t, RoleLayer, g.Layer().Role)
}

func TestGraphFromRoot_ReusesExistingLayer(t *testing.T) {
	root := NewNode("root", RoleUnset)
	cam := NewNode("camera", RoleCamera)
	layer := NewNode("my layer", RoleLayer)
	root.Add(cam, layer)

	g := GraphFromRoot(root)
	assert.Equal(t, layer, g.Layer())
	assert.Equal(t, 2, root.Len())
}

func TestGraphFromRoot_CreatesLayer(t *testing.T) {
	root := NewNode("root", RoleUnset)
	g := GraphFromRoot(root)
	assert.Equal(t, DefaultLayerName, g.Layer().Name)
	assert.Equal(t, 1, root.Len())
}

func TestGraph_ClearAnnotations(t *testing.T) {
	g := NewGraph("root")
	cam := NewNode("camera", RoleCamera)
	g.Add(cam)
	a := NewNode("polygon annotation", RoleAnnotation)
	b := NewNode("ellipse annotation", RoleAnnotation)
	g.Layer().Add(a, b)

	assert.Equal(t, 2, g.ClearAnnotations())
	assert.Equal(t, 0, g.Layer().Len())
	assert.Nil(t, a.Parent())
	assert.Equal(t, g.Root(), cam.Parent())
	assert.Equal(t, 0, g.ClearAnnotations())
}

func TestGraph_RemoveAnnotationsEverywhere(t *testing.T) {
	g := NewGraph("root")
	group := NewNode("group", RoleHelper)
	inGroup := NewNode("rectangle annotation", RoleUnset)
	nested := NewNode("child annotation", RoleAnnotation)
	inGroup.Add(nested)
	group.Add(inGroup)
	g.Add(group)
	g.Layer().Add(NewNode("x", RoleAnnotation))

	assert.Len(t, g.Annotations(), 3)
	assert.Equal(t, 2, g.RemoveAnnotations())
	assert.Empty(t, g.Annotations())
	assert.Equal(t, 0, group.Len())
	assert.Equal(t, inGroup, nested.Parent())
}
