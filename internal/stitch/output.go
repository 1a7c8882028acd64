package stitch

import (
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/zeebo/errs"
)

// output is a temp file next to dst that replaces dst only on commit, so
// an aborted run never leaves a partial file behind.
type output struct {
	fs  billy.Filesystem
	tmp billy.File
	dst string
}

func createOutput(fs billy.Filesystem, dst string) (*output, error) {
	dir := filepath.Dir(dst)
	if dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, Error.New("mkdir %s: %v", dir, err)
		}
	}
	tmp, err := fs.TempFile(dir, ".combine-")
	if err != nil {
		return nil, Error.New("create temp file: %v", err)
	}
	return &output{fs: fs, tmp: tmp, dst: dst}, nil
}

func (o *output) Write(p []byte) (int, error) {
	return o.tmp.Write(p)
}

func (o *output) commit() error {
	name := o.tmp.Name()
	if err := o.tmp.Close(); err != nil {
		_ = o.fs.Remove(name) // best-effort cleanup
		return Error.New("close temp: %v", err)
	}
	if err := o.fs.Rename(name, o.dst); err != nil {
		_ = o.fs.Remove(name) // best-effort cleanup
		return Error.New("rename temp to %s: %v", o.dst, err)
	}
	return nil
}

func (o *output) abort() error {
	name := o.tmp.Name()
	return errs.Combine(o.tmp.Close(), o.fs.Remove(name))
}
