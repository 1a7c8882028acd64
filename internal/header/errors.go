package header

import "github.com/zeebo/errs"

// Error is the error class for header reading and reconciliation.
var Error = errs.Class("header")
