package timeline

// Trim records a leading-edge correction made by FillGaps: the first
// entry started on Dec 31 00:00 and was moved to Jan 1 00:00 of the
// following year.
type Trim struct {
	Source string
	From   string
	To     string
}

// FillGaps inserts a gap entry for every discontinuity in t so the
// result is contiguous, and pads the front back to Jan 1 00:00 of the
// first year. t must not overlap. The input is not modified.
func FillGaps(t Timeline) (Timeline, []Range, *Trim, error) {
	for _, e := range t {
		if err := e.Range.Validate(); err != nil {
			return nil, nil, nil, err
		}
	}
	rest := append(Timeline(nil), t...)

	trim, rest, err := trimLeadingEdge(rest)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(rest) == 0 {
		return nil, nil, trim, nil
	}

	out := make(Timeline, 0, 2*len(rest)+1)
	var gaps []Range
	addGap := func(r Range) {
		gaps = append(gaps, r)
		out = append(out, Entry{Range: r})
	}

	if first := rest[0].Start; first != yearStart(first) {
		addGap(Range{Start: yearStart(first), End: first})
	}
	for i, e := range rest {
		if i > 0 {
			prev := rest[i-1]
			switch {
			case prev.End > e.Start:
				return nil, nil, nil, ErrInvariant.New("entry %s overlaps %s", prev, e)
			case prev.End < e.Start:
				addGap(Range{Start: prev.End, End: e.Start})
			}
		}
		out = append(out, e)
	}

	if err := out.Check(); err != nil {
		return nil, nil, nil, err
	}
	return out, gaps, trim, nil
}

// trimLeadingEdge treats a first entry starting at Dec 31 00:00 as data
// of the next year: everything before Jan 1 00:00 is cut off, dropping
// entries that lie wholly before it.
func trimLeadingEdge(t Timeline) (*Trim, Timeline, error) {
	if len(t) == 0 || !isYearEndMidnight(t[0].Start) {
		return nil, t, nil
	}
	to, err := nextYearStart(t[0].Start)
	if err != nil {
		return nil, nil, err
	}
	trim := &Trim{From: t[0].Start, To: to}
	if t[0].Source != nil {
		trim.Source = t[0].Source.Name
	}
	for len(t) > 0 && t[0].Start < to {
		if to < t[0].End {
			t[0].Start = to
			break
		}
		t = t[1:]
	}
	return trim, t, nil
}
