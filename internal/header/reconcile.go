package header

// Reconcile computes the combined header from the source headers, given
// in timeline order. The leading columns (the timestamps) always come
// first and bypass v. The remaining columns are the de-duplicated union in
// first-seen order, minus the names v rejects; those are returned
// separately, each once.
func Reconcile(headers [][]string, v Validator, leading ...string) (unified, rejected []string) {
	if v == nil {
		v = AcceptAll
	}
	seen := make(map[string]struct{}, len(leading))
	unified = append(unified, leading...)
	for _, name := range leading {
		seen[name] = struct{}{}
	}
	for _, h := range headers {
		for _, name := range h {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			if !v.Valid(name) {
				rejected = append(rejected, name)
				continue
			}
			unified = append(unified, name)
		}
	}
	return unified, rejected
}

// Map sends a source column position to its position in the combined
// header, or -1 when the column is dropped.
type Map []int

// NewMap builds the Map from src to unified. A name repeated in src maps
// only its first occurrence.
func NewMap(src, unified []string) Map {
	pos := make(map[string]int, len(unified))
	for i, name := range unified {
		if _, ok := pos[name]; !ok {
			pos[name] = i
		}
	}
	m := make(Map, len(src))
	used := make(map[int]bool, len(src))
	for i, name := range src {
		j, ok := pos[name]
		if !ok || used[j] {
			m[i] = -1
			continue
		}
		used[j] = true
		m[i] = j
	}
	return m
}

// Index returns the source position feeding unified column dst, or -1.
func (m Map) Index(dst int) int {
	for i, j := range m {
		if j == dst {
			return i
		}
	}
	return -1
}

// Apply writes row into out, which must have the combined header's
// width. Columns the source does not provide get missing.
func (m Map) Apply(row, out []string, missing string) {
	for i := range out {
		out[i] = missing
	}
	for i, j := range m {
		if j < 0 || i >= len(row) {
			continue
		}
		out[j] = row[i]
	}
}
