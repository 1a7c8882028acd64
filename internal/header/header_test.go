package header

import (
	"os"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_UnionInFirstSeenOrder(t *testing.T) {
	headers := [][]string{
		{"TIMESTAMP_START", "TIMESTAMP_END", "TA", "G", "bad name"},
		{"TIMESTAMP_END", "TIMESTAMP_START", "SW_IN", "TA", "H"},
		{"TIMESTAMP_START", "TIMESTAMP_END", "G", "bad name", "LE"},
	}
	v, err := NewPattern("")
	require.NoError(t, err)

	unified, rejected := Reconcile(headers, v, "TIMESTAMP_START", "TIMESTAMP_END")
	assert.Equal(t, []string{"TIMESTAMP_START", "TIMESTAMP_END", "TA", "G", "SW_IN", "H", "LE"}, unified)
	assert.Equal(t, []string{"bad name"}, rejected)
}

func TestReconcile_NilValidatorDropsEmptyNames(t *testing.T) {
	unified, rejected := Reconcile([][]string{{"A", "", "B"}}, nil)
	assert.Equal(t, []string{"A", "B"}, unified)
	assert.Equal(t, []string{""}, rejected)
}

func TestReconcile_ValidatorFunc(t *testing.T) {
	v := ValidatorFunc(func(name string) bool { return !strings.HasPrefix(name, "X") })
	unified, rejected := Reconcile([][]string{{"A", "XB", "C"}}, v)
	assert.Equal(t, []string{"A", "C"}, unified)
	assert.Equal(t, []string{"XB"}, rejected)
}

func TestMap_MissingColumnGetsSentinel(t *testing.T) {
	unified := []string{"TIMESTAMP_START", "TIMESTAMP_END", "TA", "G"}
	src := []string{"TIMESTAMP_START", "TIMESTAMP_END", "TA", "DROPPED"}

	m := NewMap(src, unified)
	assert.Equal(t, Map{0, 1, 2, -1}, m)
	assert.Equal(t, -1, m.Index(3))
	assert.Equal(t, 2, m.Index(2))

	out := make([]string, len(unified))
	m.Apply([]string{"201001010000", "201001010030", "1.5", "zzz"}, out, "-9999")
	assert.Equal(t, []string{"201001010000", "201001010030", "1.5", "-9999"}, out)
}

func TestMap_ReorderedAndDuplicateColumns(t *testing.T) {
	unified := []string{"A", "B", "C"}
	m := NewMap([]string{"C", "A", "C"}, unified)
	assert.Equal(t, Map{2, 0, -1}, m)

	out := make([]string, 3)
	m.Apply([]string{"c", "a"}, out, "-9999")
	assert.Equal(t, []string{"a", "-9999", "c"}, out)
}

func TestNewPattern_Invalid(t *testing.T) {
	_, err := NewPattern("([")
	require.Error(t, err)
	assert.True(t, Error.Has(err))
}

func TestCache_ReadsOnce(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "a.csv", []byte("\ufeffTIMESTAMP_START, TIMESTAMP_END ,TA\n201001010000,201001010030,1\n"), 0o644))

	c, err := NewCache(fs, 4)
	require.NoError(t, err)

	h, err := c.Header("a.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"TIMESTAMP_START", "TIMESTAMP_END", "TA"}, h)

	// served from the cache once the file is gone
	require.NoError(t, fs.Remove("a.csv"))
	h, err = c.Header("a.csv")
	require.NoError(t, err)
	assert.Equal(t, "TA", h[2])
}

func TestCache_Errors(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "empty.csv", nil, 0o644))

	c, err := NewCache(fs, 0)
	require.NoError(t, err)

	_, err = c.Header("missing.csv")
	assert.True(t, Error.Has(err))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = c.Headers([]string{"empty.csv"})
	assert.True(t, Error.Has(err))
}
