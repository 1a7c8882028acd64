package combine

import "github.com/zeebo/errs"

var (
	// Error is the error class for run orchestration.
	Error = errs.Class("combine")
	// ErrNoCandidates marks a run with no eligible uploads. It is
	// reported as an outcome, never returned from Run.
	ErrNoCandidates = errs.Class("no candidates")
)
