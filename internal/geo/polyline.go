package geo

import (
	"github.com/sceneannotate/annotator/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// LineString converts vertices to an XYZ line string, passing each through tr
func LineString(vs []core.Vector3, tr Transformer) geom.LineString {
	if len(vs) == 0 {
		return geom.LineString{}
	}
	seq := sequence(vs, tr)
	return geom.NewLineString(seq)
}

// Ring converts vertices to a closed XYZ ring, appending the first vertex
// when the outline does not already end on it
func Ring(vs []core.Vector3, tr Transformer) geom.LineString {
	if len(vs) == 0 {
		return geom.LineString{}
	}
	if vs[0] != vs[len(vs)-1] {
		closed := make([]core.Vector3, len(vs), len(vs)+1)
		copy(closed, vs)
		vs = append(closed, vs[0])
	}
	return geom.NewLineString(sequence(vs, tr))
}

func sequence(vs []core.Vector3, tr Transformer) geom.Sequence {
	if tr == nil {
		tr = Identity
	}
	coords := make([]float64, 0, len(vs)*3)
	for _, v := range vs {
		x, y, z := tr(v.X, v.Y, v.Z)
		coords = append(coords, x, y, z)
	}
	return geom.NewSequence(coords, geom.DimXYZ)
}

// distinctXY counts vertices with distinct XY positions
func distinctXY(vs []core.Vector3) int {
	seen := make(map[[2]float64]struct{}, len(vs))
	for _, v := range vs {
		seen[[2]float64{v.X, v.Y}] = struct{}{}
	}
	return len(seen)
}
