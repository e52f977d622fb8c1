package gravity

import "errors"

// ErrEmptyHistory is returned when the drop step is requested for a release
// signal history with no samples.
var ErrEmptyHistory = errors.New("release signal history is empty")

// NoDrop is the drop index reported when the signal never changes.
const NoDrop = -1

// DetermineDropStep returns the index of the last sample before the release
// signal first differs from its initial value. It returns NoDrop when the
// signal never changes, which includes a single-sample history: that case is
// indistinguishable from an object that was never released.
func DetermineDropStep[T comparable](history []T) (int, error) {
	if len(history) == 0 {
		return NoDrop, ErrEmptyHistory
	}
	initial := history[0]
	for i := 1; i < len(history); i++ {
		if history[i] != initial {
			return i - 1, nil
		}
	}
	return NoDrop, nil
}
