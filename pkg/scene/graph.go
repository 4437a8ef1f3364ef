package scene

// DefaultLayerName names the layer that holds loaded annotations
const DefaultLayerName = "annotations"

// Graph is a scene tree with a dedicated annotation layer under its root.
// It is the context handed to save/load code; there is no package-level scene.
type Graph struct {
	root  *Node
	layer *Node
}

// NewGraph creates an empty scene with an annotation layer
func NewGraph(name string) *Graph {
	root := NewNode(name, RoleUnset)
	layer := NewNode(DefaultLayerName, RoleLayer)
	root.Add(layer)
	return &Graph{root: root, layer: layer}
}

// GraphFromRoot wraps an existing tree. The first layer node directly under
// root becomes the annotation layer; one is created if none exists.
func GraphFromRoot(root *Node) *Graph {
	for _, c := range root.children {
		if c.Role == RoleLayer {
			return &Graph{root: root, layer: c}
		}
	}
	layer := NewNode(DefaultLayerName, RoleLayer)
	root.Add(layer)
	return &Graph{root: root, layer: layer}
}

// Root returns the scene root
func (g *Graph) Root() *Node {
	return g.root
}

// Layer returns the annotation layer
func (g *Graph) Layer() *Node {
	return g.layer
}

// Add attaches nodes directly under the root
func (g *Graph) Add(nodes ...*Node) {
	g.root.Add(nodes...)
}

// ClearAnnotations empties the annotation layer and returns how many
// subtrees were removed. Nodes elsewhere in the scene are untouched.
func (g *Graph) ClearAnnotations() int {
	n := len(g.layer.children)
	for _, c := range g.layer.children {
		c.parent = nil
	}
	g.layer.children = nil
	return n
}

// RemoveAnnotations detaches every annotation node anywhere in the scene,
// including the layer's contents. Descendants go with their annotation ancestor.
func (g *Graph) RemoveAnnotations() int {
	var found []*Node
	var collect func(*Node)
	collect = func(n *Node) {
		for _, c := range n.children {
			if IsAnnotation(c) {
				found = append(found, c)
				continue
			}
			collect(c)
		}
	}
	collect(g.root)

	for _, n := range found {
		n.Detach()
	}
	return len(found)
}

// Annotations returns annotation nodes in depth-first order
func (g *Graph) Annotations() []*Node {
	var out []*Node
	g.root.Traverse(func(n *Node) bool {
		if IsAnnotation(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}
