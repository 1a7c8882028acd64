package timeline

import (
	"sort"
)

// Build resolves candidates into one ordered, non-overlapping timeline.
//
// Candidates are placed most recent first, so any interval claimed by
// several uploads is taken from the one with the greatest upload key.
// Each candidate contributes the parts of its range not yet covered; a
// candidate left with nothing to contribute goes to the skip list. Two
// candidates sharing an upload key may not overlap.
//
// The result may still contain holes; see FillGaps.
func Build(candidates []*Candidate) (Timeline, SkipList, error) {
	ordered := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			return nil, nil, Error.New("nil candidate")
		}
		if err := c.Validate(); err != nil {
			return nil, nil, err
		}
		ordered = append(ordered, c)
	}
	sortByRecency(ordered)
	if err := checkSameUpload(ordered); err != nil {
		return nil, nil, err
	}

	b := &builder{}
	var skipped SkipList
	for _, c := range ordered {
		placed, err := b.merge(c)
		if err != nil {
			return nil, nil, err
		}
		if placed == 0 {
			skipped = append(skipped, c)
		}
	}

	if err := b.entries.CheckNoOverlap(); err != nil {
		return nil, nil, err
	}
	return b.entries, skipped, nil
}

// sortByRecency orders by upload key descending, then start, then name.
func sortByRecency(cs []*Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.UploadKey != b.UploadKey {
			return a.UploadKey > b.UploadKey
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Name < b.Name
	})
}

// checkSameUpload rejects overlapping candidates within one upload. The
// merge step only sees overlaps that are not already hidden under newer
// data, so this runs over the sorted candidates first.
func checkSameUpload(sorted []*Candidate) error {
	var prev *Candidate
	for _, c := range sorted {
		if prev != nil && prev.UploadKey == c.UploadKey && prev.End > c.Start {
			return ErrSameUploadOverlap.New("%s overlaps %s (upload %s)", c, prev, c.UploadKey)
		}
		if prev == nil || prev.UploadKey != c.UploadKey || c.End > prev.End {
			prev = c
		}
	}
	return nil
}

type builder struct {
	entries Timeline
}

// locate returns the index of the entry containing ts and true, or the
// index at which an entry starting at ts would be inserted and false.
func (b *builder) locate(ts string) (int, bool) {
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].Start > ts
	})
	if i > 0 && b.entries[i-1].Contains(ts) {
		return i - 1, true
	}
	return i, false
}

func (b *builder) insert(i int, e Entry) {
	b.entries = append(b.entries, Entry{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = e
}

// merge places the uncovered parts of c and returns how many entries it
// added. Fragments of c still to be resolved sit on a worklist; a fragment
// is done once its start reaches its end.
func (b *builder) merge(c *Candidate) (int, error) {
	placed := 0
	work := []Range{c.Range}
	for len(work) > 0 {
		frag := work[len(work)-1]
		work = work[:len(work)-1]
		if frag.Empty() {
			continue
		}

		i, found := b.locate(frag.Start)
		if found {
			e := b.entries[i]
			if e.UploadKey() == c.UploadKey {
				return placed, ErrSameUploadOverlap.New("%s overlaps %s at %s (upload %s)",
					c.Name, e.Source.Name, frag.Start, c.UploadKey)
			}
			if e.End < frag.End {
				work = append(work, Range{Start: e.End, End: frag.End})
			}
			continue
		}

		if i < len(b.entries) && b.entries[i].Start < frag.End {
			next := b.entries[i].Start
			b.insert(i, Entry{Range: Range{Start: frag.Start, End: next}, Source: c})
			placed++
			work = append(work, Range{Start: next, End: frag.End})
			continue
		}

		b.insert(i, Entry{Range: frag, Source: c})
		placed++
	}
	return placed, nil
}
