package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultCentroidTolerance is the per-axis tolerance used when deciding that
// two faces sit at the same horizontal position.
const DefaultCentroidTolerance = 1e-5

// DefaultVerticalTolerance is the tolerance used when assigning corners to
// the top or bottom face. Zero reproduces exact floating-point matching.
const DefaultVerticalTolerance = 1e-6

// ObjectFace is the planar set of cuboid corners sharing an extreme vertical
// coordinate, reduced to its in-plane centroid. Height is the mean vertical
// coordinate of the corners.
type ObjectFace struct {
	Corners  []Point
	Centroid Planar
	Height   float64
}

// NewObjectFace builds a face and computes its centroid over the corners it
// was given. An empty corner list yields a zero centroid.
func NewObjectFace(corners []Point) ObjectFace {
	f := ObjectFace{Corners: corners}
	if len(corners) == 0 {
		return f
	}
	xs := make([]float64, len(corners))
	ys := make([]float64, len(corners))
	zs := make([]float64, len(corners))
	for i, p := range corners {
		xs[i] = p.X
		ys[i] = p.Y
		zs[i] = p.Z
	}
	f.Centroid = Planar{X: stat.Mean(xs, nil), Z: stat.Mean(zs, nil)}
	f.Height = stat.Mean(ys, nil)
	return f
}

// DegenerateFaceError reports a bounding face that did not hold exactly
// FaceCornerCount corners, which happens when the cuboid is rotated or
// malformed. Faces are still built from the matched subset.
type DegenerateFaceError struct {
	TopCount    int
	BottomCount int
}

func (e *DegenerateFaceError) Error() string {
	return fmt.Sprintf("degenerate cuboid faces: top=%d bottom=%d corners (want %d each)",
		e.TopCount, e.BottomCount, FaceCornerCount)
}

// ExtractBoundingFaces splits a cuboid into its top and bottom faces.
//
// Corners within tol of the lowest vertical coordinate form the bottom face
// and corners within tol of the highest form the top face. When either face
// does not hold exactly four corners the faces are still returned, together
// with a *DegenerateFaceError describing the counts.
func ExtractBoundingFaces(c Cuboid, tol float64) (top, bottom ObjectFace, diag *DegenerateFaceError) {
	minY, maxY := c.VerticalExtent()

	var topCorners, bottomCorners []Point
	for _, p := range c {
		if math.Abs(p.Y-minY) <= tol {
			bottomCorners = append(bottomCorners, p)
		}
		if math.Abs(p.Y-maxY) <= tol {
			topCorners = append(topCorners, p)
		}
	}

	top = NewObjectFace(topCorners)
	bottom = NewObjectFace(bottomCorners)
	if len(topCorners) != FaceCornerCount || len(bottomCorners) != FaceCornerCount {
		diag = &DegenerateFaceError{TopCount: len(topCorners), BottomCount: len(bottomCorners)}
	}
	return top, bottom, diag
}

// FacesEqual reports whether two faces sit at the same horizontal position:
// both centroid axis differences must be strictly below tol. It compares
// position only, not face identity or corner order.
func FacesEqual(a, b ObjectFace, tol float64) bool {
	return math.Abs(a.Centroid.X-b.Centroid.X) < tol &&
		math.Abs(a.Centroid.Z-b.Centroid.Z) < tol
}

// Bounds returns the in-plane rectangle covered by the face's corners.
func (f ObjectFace) Bounds() (min, max Planar) {
	if len(f.Corners) == 0 {
		return min, max
	}
	min = f.Corners[0].Planar()
	max = min
	for _, p := range f.Corners[1:] {
		min.X = math.Min(min.X, p.X)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max
}
