package scene

import (
	"testing"

	"github.com/sceneannotate/annotator/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_ParseRoundTrip(t *testing.T) {
	for r := range roleNames {
		assert.Equal(t, r, ParseRole(r.String()))
	}
	assert.Equal(t, RoleUnset, ParseRole("spaceship"))
}

func TestDrawMode_ParseRoundTrip(t *testing.T) {
	for m := range drawModeNames {
		assert.Equal(t, m, ParseDrawMode(m.String()))
	}
	assert.Equal(t, DrawLineLoop, ParseDrawMode(""))
}

func TestGeometry_PointsDropsPartialTriple(t *testing.T) {
	g := &Geometry{Positions: []float32{1, 2, 3, 4, 5, 6, 7}}
	assert.Equal(t, 2, g.Count())
	assert.Equal(t, []core.Vector3{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}, g.Points())
}

func TestNewGeometry(t *testing.T) {
	pts := []core.Vector3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	g := NewGeometry(DrawLine, pts)
	assert.Equal(t, DrawLine, g.Mode)
	assert.Len(t, g.Positions, 9)
	assert.Equal(t, pts, g.Points())
}

func TestNewMaterial_Transparency(t *testing.T) {
	assert.False(t, NewMaterial(core.ColorRed, 1).Transparent)
	assert.True(t, NewMaterial(core.ColorRed, 0.4).Transparent)
	assert.InDelta(t, 0.4, NewMaterial(core.ColorRed, 0.4).Opacity, 1e-6)
}

func TestNode_AddMovesBetweenParents(t *testing.T) {
	a := NewNode("a", RoleUnset)
	b := NewNode("b", RoleUnset)
	c := NewNode("c", RoleUnset)

	a.Add(c)
	require.Equal(t, a, c.Parent())

	b.Add(c)
	assert.Equal(t, b, c.Parent())
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 1, b.Len())

	b.Add(b, nil)
	assert.Equal(t, 1, b.Len())
}

func TestNode_RemoveAndDetach(t *testing.T) {
	root := NewNode("root", RoleUnset)
	x := NewNode("x", RoleUnset)
	y := NewNode("y", RoleUnset)
	root.Add(x, y)

	assert.True(t, root.Remove(x))
	assert.False(t, root.Remove(x))
	assert.Nil(t, x.Parent())

	y.Detach()
	assert.Equal(t, 0, root.Len())
	y.Detach()
}

func TestNode_ChildrenIsCopy(t *testing.T) {
	root := NewNode("root", RoleUnset)
	root.Add(NewNode("x", RoleUnset))

	kids := root.Children()
	kids[0] = nil
	assert.NotNil(t, root.Children()[0])
}

func TestNode_TraversePreOrderAndStop(t *testing.T) {
	root := NewNode("root", RoleUnset)
	a := NewNode("a", RoleUnset)
	b := NewNode("b", RoleUnset)
	a1 := NewNode("a1", RoleUnset)
	a.Add(a1)
	root.Add(a, b)

	var names []string
	done := root.Traverse(func(n *Node) bool {
		names = append(names, n.Name)
		return true
	})
	assert.True(t, done)
	assert.Equal(t, []string{"root", "a", "a1", "b"}, names)

	names = nil
	done = root.Traverse(func(n *Node) bool {
		names = append(names, n.Name)
		return n.Name != "a1"
	})
	assert.False(t, done)
	assert.Equal(t, []string{"root", "a", "a1"}, names)
}

func TestIsAnnotation(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{"legacy name match", NewNode("rectangle annotation", RoleUnset), true},
		{"camera by name", NewNode("camera", RoleUnset), false},
		{"grid by name", NewNode("grid", RoleUnset), false},
		{"case sensitive", NewNode("Annotation", RoleUnset), false},
		{"explicit role", NewNode("box", RoleAnnotation), true},
		{"explicit role wins over name", NewNode("annotation camera", RoleCamera), false},
		{"layer is never an annotation", NewNode("annotations", RoleLayer), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAnnotation(tt.node))
		})
	}
}
