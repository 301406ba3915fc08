package detection

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrConfiguration indicates the threshold table does not cover a class the
// detector emitted. It is fatal to the current call.
var ErrConfiguration = errors.New("configuration error")

// Thresholds holds the per-class minimum acceptable score, one entry per
// non-background category. Class labels are 1-indexed against the table:
// label L maps to Thresholds[L-1]. Background (label 0) is never indexed.
type Thresholds []float32

// For returns the threshold for a class label, or ErrConfiguration when the
// table has no entry for it.
func (t Thresholds) For(label int) (float32, error) {
	idx := label - 1
	if idx < 0 || idx >= len(t) {
		return 0, errors.Wrapf(ErrConfiguration, "no confidence threshold for label %d (table has %d entries)", label, len(t))
	}
	return t[idx], nil
}

// Select filters and ranks the detections of one image.
//
// A detection survives when its ranking score strictly exceeds the threshold
// of its class. The ranking score is the mask-quality score when the
// detector produced one, the raw detection score otherwise. Survivors are
// sorted by that score descending; ties keep their insertion order.
//
// An empty input or zero survivors yield an empty Set and a nil error. A
// label with no threshold entry yields ErrConfiguration.
func Select(dets Set, thresholds Thresholds) (Set, error) {
	kept := make(Set, 0, len(dets))
	for _, d := range dets {
		thr, err := thresholds.For(d.Label)
		if err != nil {
			return nil, err
		}
		if d.RankScore() > thr {
			kept = append(kept, d)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RankScore() > kept[j].RankScore()
	})

	return kept, nil
}
