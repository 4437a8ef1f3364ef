package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sceneannotate/annotator/pkg/core"
)

// DocumentVersion is the scene document format written by WriteDocument
const DocumentVersion = 1

// Document is a whole scene tree as JSON
type Document struct {
	Metadata DocumentMetadata `json:"metadata"`
	Object   NodeDocument     `json:"object"`
}

// DocumentMetadata describes the document itself
type DocumentMetadata struct {
	Version   int    `json:"version"`
	Generator string `json:"generator,omitempty"`
}

// NodeDocument is one serialized node with its subtree
type NodeDocument struct {
	Name      string            `json:"name"`
	Role      string            `json:"role,omitempty"`
	Shape     core.ShapeKind    `json:"shape,omitempty"`
	Transform *core.Transform   `json:"transform,omitempty"`
	Geometry  *GeometryDocument `json:"geometry,omitempty"`
	Material  *MaterialDocument `json:"material,omitempty"`
	UserData  map[string]any    `json:"userData,omitempty"`
	Children  []NodeDocument    `json:"children,omitempty"`
}

// GeometryDocument is a serialized position buffer
type GeometryDocument struct {
	Mode      string    `json:"mode"`
	Positions []float32 `json:"positions"`
}

// MaterialDocument is a serialized material
type MaterialDocument struct {
	Color       core.Color `json:"color"`
	Opacity     float32    `json:"opacity"`
	Transparent bool       `json:"transparent,omitempty"`
}

// ReadDocument decodes a scene document into a graph
func ReadDocument(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode scene document: %w", err)
	}
	if doc.Metadata.Version > DocumentVersion {
		return nil, fmt.Errorf("scene document version %d is newer than supported %d", doc.Metadata.Version, DocumentVersion)
	}
	return GraphFromRoot(nodeFromDocument(doc.Object)), nil
}

// WriteDocument encodes the graph as a scene document
func WriteDocument(w io.Writer, g *Graph, generator string) error {
	doc := Document{
		Metadata: DocumentMetadata{Version: DocumentVersion, Generator: generator},
		Object:   documentFromNode(g.Root()),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode scene document: %w", err)
	}
	return nil
}

// ReadDocumentFile reads a scene document from disk
func ReadDocumentFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene: %w", err)
	}
	defer f.Close()
	return ReadDocument(f)
}

// WriteDocumentFile replaces the scene document at path
func WriteDocumentFile(path string, g *Graph, generator string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create scene file: %w", err)
	}
	if err := WriteDocument(f, g, generator); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func nodeFromDocument(d NodeDocument) *Node {
	n := NewNode(d.Name, ParseRole(d.Role))
	n.Shape = d.Shape
	if d.Transform != nil {
		n.Transform = *d.Transform
	}
	if d.Geometry != nil {
		n.Geometry = &Geometry{
			Mode:      ParseDrawMode(d.Geometry.Mode),
			Positions: append([]float32(nil), d.Geometry.Positions...),
		}
	}
	if d.Material != nil {
		n.Material = &Material{
			Color:       d.Material.Color,
			Opacity:     d.Material.Opacity,
			Transparent: d.Material.Transparent,
		}
	}
	n.UserData = d.UserData
	for _, c := range d.Children {
		n.Add(nodeFromDocument(c))
	}
	return n
}

func documentFromNode(n *Node) NodeDocument {
	t := n.Transform
	d := NodeDocument{
		Name:      n.Name,
		Role:      n.Role.String(),
		Shape:     n.Shape,
		Transform: &t,
		UserData:  n.UserData,
	}
	if n.Geometry != nil {
		d.Geometry = &GeometryDocument{
			Mode:      n.Geometry.Mode.String(),
			Positions: n.Geometry.Positions,
		}
	}
	if n.Material != nil {
		d.Material = &MaterialDocument{
			Color:       n.Material.Color,
			Opacity:     n.Material.Opacity,
			Transparent: n.Material.Transparent,
		}
	}
	for _, c := range n.children {
		d.Children = append(d.Children, documentFromNode(c))
	}
	return d
}
