package header

import (
	"regexp"
)

// DefaultPattern accepts upper-case variable names such as TA_1_1_1.
const DefaultPattern = `^[A-Z][A-Z0-9_]*$`

// Validator decides whether a column name may appear in the combined
// output. The naming grammar itself lives outside this package.
type Validator interface {
	Valid(name string) bool
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(name string) bool

// Valid implements Validator.
func (f ValidatorFunc) Valid(name string) bool { return f(name) }

// AcceptAll keeps every non-empty column.
var AcceptAll Validator = ValidatorFunc(func(name string) bool { return name != "" })

// Pattern is a Validator matching names against a regular expression.
type Pattern struct {
	re *regexp.Regexp
}

// NewPattern compiles expr; an empty expr uses DefaultPattern.
func NewPattern(expr string) (*Pattern, error) {
	if expr == "" {
		expr = DefaultPattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, Error.New("column pattern %q: %v", expr, err)
	}
	return &Pattern{re: re}, nil
}

// Valid implements Validator.
func (p *Pattern) Valid(name string) bool {
	return p.re.MatchString(name)
}
