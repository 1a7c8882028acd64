package timeline

import "github.com/zeebo/errs"

var (
	// Error is the error class for malformed timeline input.
	Error = errs.Class("timeline")

	// ErrSameUploadOverlap is returned when two ranges sharing an upload key
	// overlap. It means the same upload was processed twice upstream.
	ErrSameUploadOverlap = errs.Class("same upload overlap")

	// ErrInvariant is returned when a finished timeline still overlaps or
	// has a hole. It indicates a bug in Build or FillGaps.
	ErrInvariant = errs.Class("timeline invariant violation")

	// ErrUnknownResolution is returned for resolutions other than
	// half-hourly and hourly.
	ErrUnknownResolution = errs.Class("unknown resolution")
)
