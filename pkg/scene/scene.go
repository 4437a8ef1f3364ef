// Package scene is the host scene graph that annotations are read from and
// rebuilt into. It carries only what the annotation layer needs: names,
// roles, transforms, position buffers, flat materials and user data.
package scene

import (
	"strings"

	"github.com/sceneannotate/annotator/pkg/core"
)

// Role is the explicit tag set on a node when it is created
type Role uint8

const (
	RoleUnset Role = iota
	RoleAnnotation
	RoleLayer
	RoleCamera
	RoleGrid
	RoleImage
	RoleHelper
)

var roleNames = map[Role]string{
	RoleUnset:      "",
	RoleAnnotation: "annotation",
	RoleLayer:      "layer",
	RoleCamera:     "camera",
	RoleGrid:       "grid",
	RoleImage:      "image",
	RoleHelper:     "helper",
}

func (r Role) String() string {
	return roleNames[r]
}

// ParseRole is the inverse of Role.String. Unknown names map to RoleUnset.
func ParseRole(s string) Role {
	for r, name := range roleNames {
		if name == s {
			return r
		}
	}
	return RoleUnset
}

// DrawMode selects how a position buffer is drawn
type DrawMode uint8

const (
	DrawLineLoop DrawMode = iota
	DrawLine
	DrawMesh
)

var drawModeNames = map[DrawMode]string{
	DrawLineLoop: "lineLoop",
	DrawLine:     "line",
	DrawMesh:     "mesh",
}

func (m DrawMode) String() string {
	return drawModeNames[m]
}

// ParseDrawMode is the inverse of DrawMode.String. Unknown names map to DrawLineLoop.
func ParseDrawMode(s string) DrawMode {
	for m, name := range drawModeNames {
		if name == s {
			return m
		}
	}
	return DrawLineLoop
}

// Geometry is a flat xyz position buffer
type Geometry struct {
	Positions []float32
	Mode      DrawMode
}

// NewGeometry packs points into a position buffer
func NewGeometry(mode DrawMode, points []core.Vector3) *Geometry {
	g := &Geometry{Mode: mode, Positions: make([]float32, 0, len(points)*3)}
	for _, p := range points {
		g.Positions = append(g.Positions, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return g
}

// Count returns the number of whole xyz triples in the buffer
func (g *Geometry) Count() int {
	return len(g.Positions) / 3
}

// Points unpacks the buffer in order. A trailing partial triple is dropped.
func (g *Geometry) Points() []core.Vector3 {
	n := g.Count()
	out := make([]core.Vector3, n)
	for i := 0; i < n; i++ {
		out[i] = core.Vector3{
			X: float64(g.Positions[i*3]),
			Y: float64(g.Positions[i*3+1]),
			Z: float64(g.Positions[i*3+2]),
		}
	}
	return out
}

// Material is a flat stroke/fill material
type Material struct {
	Color       core.Color
	Opacity     float32
	Transparent bool
}

// NewMaterial builds a material that is transparent only when opacity is below one
func NewMaterial(color core.Color, opacity float64) *Material {
	return &Material{
		Color:       color,
		Opacity:     float32(opacity),
		Transparent: opacity < 1,
	}
}

// Well-known user data keys written by the annotation tools
const (
	UserDataLabel  = "label"
	UserDataRow    = "row"
	UserDataColumn = "column"
)

// Node is one element of the scene tree
type Node struct {
	Name      string
	Role      Role
	Shape     core.ShapeKind
	Transform core.Transform
	Geometry  *Geometry
	Material  *Material
	UserData  map[string]any

	parent   *Node
	children []*Node
}

// NewNode creates a detached node with an identity transform
func NewNode(name string, role Role) *Node {
	return &Node{
		Name:      name,
		Role:      role,
		Transform: core.IdentityTransform(),
	}
}

// Parent returns the node's parent, or nil for a root or detached node
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the ordered child list
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Len returns the number of direct children
func (n *Node) Len() int {
	return len(n.children)
}

// Add appends children, detaching each from its previous parent first
func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		c.Detach()
		c.parent = n
		n.children = append(n.children, c)
	}
}

// Remove detaches a direct child. It reports whether child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return true
		}
	}
	return false
}

// Detach removes the node from its parent, if any
func (n *Node) Detach() {
	if n.parent != nil {
		n.parent.Remove(n)
	}
}

// Traverse walks the subtree depth-first, visiting a node before its
// children. Returning false from fn stops the walk.
func (n *Node) Traverse(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Traverse(fn) {
			return false
		}
	}
	return true
}

// annotationSubstring is the naming convention older tools use instead of a role
const annotationSubstring = "annotation"

// IsAnnotation reports whether n is an annotation. An explicit role decides;
// nodes without one fall back to a case-sensitive "annotation" name match.
func IsAnnotation(n *Node) bool {
	switch n.Role {
	case RoleAnnotation:
		return true
	case RoleUnset:
		return strings.Contains(n.Name, annotationSubstring)
	default:
		return false
	}
}
