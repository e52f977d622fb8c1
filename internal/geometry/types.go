package geometry

import "fmt"

// CornerCount is the number of corners in a Cuboid.
const CornerCount = 8

// FaceCornerCount is the number of corners expected on a bounding face of an
// axis-aligned cuboid.
const FaceCornerCount = 4

// Point is a 3-D coordinate in the scene frame (Y vertical).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Planar is an in-plane coordinate pair (the vertical axis dropped).
type Planar struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Planar projects p onto the horizontal plane.
func (p Point) Planar() Planar {
	return Planar{X: p.X, Z: p.Z}
}

// Cuboid is one object's bounding box at one instant, as 8 unordered corners.
type Cuboid [CornerCount]Point

// NewCuboid builds a Cuboid from a corner list. The list must hold exactly
// CornerCount points.
func NewCuboid(points []Point) (Cuboid, error) {
	var c Cuboid
	if len(points) != CornerCount {
		return c, fmt.Errorf("cuboid needs %d corners, got %d", CornerCount, len(points))
	}
	copy(c[:], points)
	return c, nil
}

// AxisAlignedBox returns the 8 corners of the box spanning min and max.
func AxisAlignedBox(min, max Point) Cuboid {
	var c Cuboid
	i := 0
	for _, y := range []float64{min.Y, max.Y} {
		for _, x := range []float64{min.X, max.X} {
			for _, z := range []float64{min.Z, max.Z} {
				c[i] = Point{X: x, Y: y, Z: z}
				i++
			}
		}
	}
	return c
}

// VerticalExtent returns the lowest and highest vertical coordinate.
func (c Cuboid) VerticalExtent() (minY, maxY float64) {
	minY, maxY = c[0].Y, c[0].Y
	for _, p := range c[1:] {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return minY, maxY
}
