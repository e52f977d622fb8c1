package gravity

import "github.com/MCS-OSU/mcs-eval3/internal/geometry"

// ActuallyRested reports whether the target's bottom face stayed at the same
// horizontal position between the drop and the end of the scene.
func ActuallyRested(atDrop, atEnd geometry.ObjectFace, tol float64) bool {
	return geometry.FacesEqual(atDrop, atEnd, tol)
}
