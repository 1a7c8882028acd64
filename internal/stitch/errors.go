package stitch

import "github.com/zeebo/errs"

var (
	// Error is the error class for reading sources and writing the output.
	Error = errs.Class("stitch")

	// ErrRowOrder is returned when a source row steps backwards in time or
	// off the resolution grid.
	ErrRowOrder = errs.Class("row order")
)
