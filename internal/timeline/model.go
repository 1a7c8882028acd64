package timeline

import (
	"fmt"
)

// Range is a half-open interval [Start, End) of YYYYMMDDHHMM stamps.
type Range struct {
	Start string
	End   string
}

// Validate checks both stamps and that Start < End.
func (r Range) Validate() error {
	if _, err := ParseStamp(r.Start); err != nil {
		return err
	}
	if _, err := ParseStamp(r.End); err != nil {
		return err
	}
	if r.Start >= r.End {
		return Error.New("range %s is empty or inverted", r)
	}
	return nil
}

// Contains reports whether ts lies in [Start, End).
func (r Range) Contains(ts string) bool {
	return r.Start <= ts && ts < r.End
}

// Empty reports whether the range covers nothing.
func (r Range) Empty() bool {
	return r.Start >= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%s,%s)", r.Start, r.End)
}

// UploadKey orders uploads by recency: a greater key is a more recent
// upload. Keys compare lexicographically.
type UploadKey string

// GapKey is reserved for synthetic gap entries and never valid on a
// real candidate.
const GapKey UploadKey = ""

// Candidate is one uploaded file and the interval it covers.
// Candidates are never mutated once constructed; timeline entries refer
// back to them with their own sub-range.
type Candidate struct {
	Range

	Name           string // location of the source file
	UploadKey      UploadKey
	ProcessID      string
	OriginalName   string
	PriorProcessID string

	// Status is owned by the caller and passed through untouched.
	Status any
}

// Validate checks the candidate can take part in a merge.
func (c *Candidate) Validate() error {
	if c.Name == "" {
		return Error.New("candidate has no name")
	}
	if c.UploadKey == GapKey {
		return Error.New("candidate %s has no upload key", c.Name)
	}
	if err := c.Range.Validate(); err != nil {
		return Error.New("candidate %s: %v", c.Name, err)
	}
	return nil
}

func (c *Candidate) String() string {
	return fmt.Sprintf("%s%s@%s", c.Name, c.Range, c.UploadKey)
}

// Entry is one element of a Timeline. Source is nil for gap entries.
type Entry struct {
	Range
	Source *Candidate
}

// IsGap reports whether the entry is a synthetic gap.
func (e Entry) IsGap() bool {
	return e.Source == nil
}

// UploadKey returns the source's key, or GapKey.
func (e Entry) UploadKey() UploadKey {
	if e.Source == nil {
		return GapKey
	}
	return e.Source.UploadKey
}

func (e Entry) String() string {
	if e.Source == nil {
		return "gap" + e.Range.String()
	}
	return e.Source.Name + e.Range.String()
}

// SkipList holds candidates that were fully superseded by newer uploads.
type SkipList []*Candidate

// Timeline is an ordered sequence of entries. Once finalized, starts are
// strictly ascending and each entry ends where the next begins.
type Timeline []Entry

// CheckNoOverlap verifies that no entry runs past the start of the next.
func (t Timeline) CheckNoOverlap() error {
	for i := 1; i < len(t); i++ {
		prev, cur := t[i-1], t[i]
		if cur.Empty() || prev.Start >= cur.Start {
			return ErrInvariant.New("entry %d %s out of order after %s", i, cur, prev)
		}
		if prev.End > cur.Start {
			return ErrInvariant.New("entry %s overlaps %s", prev, cur)
		}
	}
	return nil
}

// Check verifies the finalized invariants: no overlap and no residual hole.
func (t Timeline) Check() error {
	if err := t.CheckNoOverlap(); err != nil {
		return err
	}
	for i := 1; i < len(t); i++ {
		if t[i-1].End != t[i].Start {
			return ErrInvariant.New("hole between %s and %s", t[i-1], t[i])
		}
	}
	return nil
}

// Span returns [first start, last end). The zero Range for an empty timeline.
func (t Timeline) Span() Range {
	if len(t) == 0 {
		return Range{}
	}
	return Range{Start: t[0].Start, End: t[len(t)-1].End}
}

// Sources returns the distinct candidates referenced by the timeline in
// order of first appearance.
func (t Timeline) Sources() []*Candidate {
	seen := make(map[*Candidate]struct{})
	var out []*Candidate
	for _, e := range t {
		if e.Source == nil {
			continue
		}
		if _, ok := seen[e.Source]; ok {
			continue
		}
		seen[e.Source] = struct{}{}
		out = append(out, e.Source)
	}
	return out
}

// Gaps returns the ranges of all gap entries.
func (t Timeline) Gaps() []Range {
	var out []Range
	for _, e := range t {
		if e.IsGap() {
			out = append(out, e.Range)
		}
	}
	return out
}
