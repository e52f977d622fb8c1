package observation

import (
	"sort"
	"strings"
)

// FloorID is the literal id of the floor object. It is never a support
// candidate.
const FloorID = "floor"

// DefaultIDMinLength is the id length structural objects must exceed before
// they are considered as support or pole candidates.
const DefaultIDMinLength = 35

// DefaultPoleMarker marks a structural id as the release mechanism.
const DefaultPoleMarker = "pole_"

// Selector applies the id conventions that identify the scene's actors.
type Selector struct {
	IDMinLength int
	PoleMarker  string
}

// DefaultSelector returns a Selector using the environment's conventions.
func DefaultSelector() Selector {
	return Selector{IDMinLength: DefaultIDMinLength, PoleMarker: DefaultPoleMarker}
}

// TargetID returns the tracked dynamic object id. When several dynamic
// objects are present the lexicographically lowest id wins. Returns "" when
// the object list is empty.
func (s Selector) TargetID(r *StepRecord) string {
	if r == nil {
		return ""
	}
	return lowestKey(r.ObjectList)
}

// StructuralIDs classifies the qualifying structural ids into the support
// and the pole. Ids no longer than IDMinLength are ignored. Either result may
// be "" when absent from this step.
func (s Selector) StructuralIDs(r *StepRecord) (supportID, poleID string) {
	if r == nil {
		return "", ""
	}
	ids := make([]string, 0, len(r.StructuralObjectList))
	for id := range r.StructuralObjectList {
		if len(id) > s.IDMinLength && id != FloorID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		if s.PoleMarker != "" && strings.Contains(id, s.PoleMarker) {
			if poleID == "" {
				poleID = id
			}
			continue
		}
		if supportID == "" {
			supportID = id
		}
	}
	return supportID, poleID
}

func lowestKey[V any](m map[string]V) string {
	best := ""
	for k := range m {
		if best == "" || k < best {
			best = k
		}
	}
	return best
}
