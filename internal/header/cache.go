package header

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of headers kept in a Cache.
const DefaultCacheSize = 256

// Cache reads source headers through a filesystem and keeps the most
// recently used ones. A source the timeline split into several entries
// is read once. Safe for concurrent use.
type Cache struct {
	fs      billy.Filesystem
	headers *lru.Cache[string, []string]
}

// NewCache returns a Cache over fs holding up to size headers.
func NewCache(fs billy.Filesystem, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	headers, err := lru.New[string, []string](size)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &Cache{fs: fs, headers: headers}, nil
}

// Header returns the header row of the named file. The returned slice is
// shared and must not be modified.
func (c *Cache) Header(name string) ([]string, error) {
	if h, ok := c.headers.Get(name); ok {
		return h, nil
	}
	f, err := c.fs.Open(name)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("open %s: %w", name, err))
	}
	defer func() { _ = f.Close() }()

	h, err := Read(f)
	if err != nil {
		return nil, Error.New("%s: %v", name, err)
	}
	c.headers.Add(name, h)
	return h, nil
}

// Headers returns the headers of names in order.
func (c *Cache) Headers(names []string) ([][]string, error) {
	out := make([][]string, 0, len(names))
	for _, name := range names {
		h, err := c.Header(name)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// Read parses the first CSV record of r as a header. Names are trimmed
// and a leading byte order mark is dropped.
func Read(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rec, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, Error.New("empty file")
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return Normalize(rec), nil
}

// Normalize trims every name and strips a UTF-8 byte order mark from the
// first.
func Normalize(rec []string) []string {
	out := make([]string, len(rec))
	for i, name := range rec {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		out[i] = strings.TrimSpace(name)
	}
	return out
}
