package stitch

import (
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/timeline"
)

// coverage records which timesteps of the output have been written, by
// index from the first timestep.
type coverage struct {
	origin time.Time
	step   time.Duration
	steps  *roaring.Bitmap
}

func newCoverage(origin time.Time, step time.Duration) *coverage {
	return &coverage{origin: origin, step: step, steps: roaring.New()}
}

// mark records the timestep starting at t. Writing a timestep twice is
// an invariant violation.
func (c *coverage) mark(t time.Time) error {
	d := t.Sub(c.origin)
	if d < 0 || d%c.step != 0 {
		return ErrRowOrder.New("%s is off the %s grid starting %s", timeline.FormatStamp(t), c.step, timeline.FormatStamp(c.origin))
	}
	if !c.steps.CheckedAdd(uint32(d / c.step)) {
		return timeline.ErrInvariant.New("timestep %s written twice", timeline.FormatStamp(t))
	}
	return nil
}

// complete reports whether exactly the first n timesteps were written.
func (c *coverage) complete(n int) bool {
	if n == 0 {
		return c.steps.IsEmpty()
	}
	return c.steps.GetCardinality() == uint64(n) && c.steps.Maximum() == uint32(n-1)
}
