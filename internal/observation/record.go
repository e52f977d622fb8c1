package observation

import (
	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
)

// StepRecord is one simulation step as reported by the environment driver.
type StepRecord struct {
	Step                 int                         `json:"step"`
	ObjectList           map[string]ObjectState      `json:"object_list"`
	StructuralObjectList map[string]StructuralObject `json:"structural_object_list"`
}

// ObjectState describes a dynamic (movable) object.
type ObjectState struct {
	Dimensions []geometry.Point `json:"dimensions"`
	Position   *geometry.Point  `json:"position,omitempty"`
}

// StructuralObject describes a static object such as the support or pole.
type StructuralObject struct {
	Dimensions       []geometry.Point `json:"dimensions"`
	TextureColorList []string         `json:"texture_color_list,omitempty"`
}

// Cuboid converts the object's corner list. ok is false when the list does
// not hold exactly geometry.CornerCount corners.
func (o ObjectState) Cuboid() (geometry.Cuboid, bool) {
	c, err := geometry.NewCuboid(o.Dimensions)
	return c, err == nil
}

// Cuboid converts the structural object's corner list.
func (s StructuralObject) Cuboid() (geometry.Cuboid, bool) {
	c, err := geometry.NewCuboid(s.Dimensions)
	return c, err == nil
}

// Signal returns the release-mechanism signal carried by a structural object:
// the first texture colour. ok is false when no colour is reported.
func (s StructuralObject) Signal() (string, bool) {
	if len(s.TextureColorList) == 0 {
		return "", false
	}
	return s.TextureColorList[0], true
}

// Target returns the dynamic object with the given id.
func (r *StepRecord) Target(id string) (ObjectState, bool) {
	if r == nil || id == "" {
		return ObjectState{}, false
	}
	o, ok := r.ObjectList[id]
	return o, ok
}

// Structural returns the structural object with the given id.
func (r *StepRecord) Structural(id string) (StructuralObject, bool) {
	if r == nil || id == "" {
		return StructuralObject{}, false
	}
	s, ok := r.StructuralObjectList[id]
	return s, ok
}
