package discover

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/zeebo/errs"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/api"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/timeline"
)

// Error is the error class for candidate discovery.
var Error = errs.Class("discover")

// Source supplies the candidates of one (site, resolution) run.
type Source interface {
	Candidates(ctx context.Context, site string, res timeline.Resolution) ([]*timeline.Candidate, error)
}

// Manifest discovers candidates listed in a JSON manifest file. Uploads
// are selected with a JSONPath expression and then filtered by site and
// resolution. The manifest is re-read on every call.
type Manifest struct {
	fs       billy.Filesystem
	path     string
	selector jp.Expr
}

// NewManifest returns a Manifest reading path from fs. An empty selector
// means api.DefaultSelector.
func NewManifest(fs billy.Filesystem, path, selector string) (*Manifest, error) {
	if selector == "" {
		selector = api.DefaultSelector
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, Error.New("invalid jsonpath '%s': %v", selector, err)
	}
	return &Manifest{fs: fs, path: path, selector: x}, nil
}

// Candidates implements Source.
func (m *Manifest) Candidates(ctx context.Context, site string, res timeline.Resolution) ([]*timeline.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uploads, err := m.Uploads()
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(m.path)
	var out []*timeline.Candidate
	for _, u := range uploads {
		if u.Site != site {
			continue
		}
		r, err := timeline.ParseResolution(u.Resolution)
		if err != nil || r != res {
			continue
		}
		name := m.fs.Join(base, u.File)
		if _, err := m.fs.Stat(name); err != nil {
			return nil, Error.Wrap(fmt.Errorf("%s upload %s: %w", site, u.File, err))
		}
		c := &timeline.Candidate{
			Range:          timeline.Range{Start: u.Start, End: u.End},
			Name:           name,
			UploadKey:      timeline.UploadKey(u.UploadKey),
			ProcessID:      u.ProcessID,
			OriginalName:   u.OriginalName,
			PriorProcessID: u.PriorProcessID,
		}
		if u.Status != nil {
			c.Status = u.Status
		}
		if err := c.Validate(); err != nil {
			return nil, Error.Wrap(err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Uploads parses the manifest and returns every selected upload.
func (m *Manifest) Uploads() ([]api.Upload, error) {
	data, err := util.ReadFile(m.fs, m.path)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("read manifest %s: %w", m.path, err))
	}
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, Error.New("parse manifest %s: %v", m.path, err)
	}

	matches := m.selector.Get(doc)
	out := make([]api.Upload, 0, len(matches))
	for i, match := range matches {
		fields, ok := match.(map[string]any)
		if !ok {
			return nil, Error.New("%s: selection %d is %T, not an object", m.path, i, match)
		}
		u, err := decodeUpload(fields)
		if err != nil {
			return nil, Error.New("%s: upload %d: %v", m.path, i, err)
		}
		out = append(out, u)
	}
	return out, nil
}

func decodeUpload(fields map[string]any) (api.Upload, error) {
	var u api.Upload
	var err error
	get := func(key string, required bool) string {
		if err != nil {
			return ""
		}
		v, ok := fields[key]
		if !ok || v == nil {
			if required {
				err = fmt.Errorf("missing %q", key)
			}
			return ""
		}
		switch v := v.(type) {
		case string:
			return v
		case int64:
			if key == "upload_key" {
				if v < 0 {
					err = fmt.Errorf("%q is negative (%d)", key, v)
					return ""
				}
				return fmt.Sprintf("%020d", v)
			}
			return fmt.Sprint(v)
		default:
			err = fmt.Errorf("%q has type %T", key, v)
			return ""
		}
	}

	u.Site = get("site", true)
	u.Resolution = get("resolution", true)
	u.File = get("file", true)
	u.Start = get("start", true)
	u.End = get("end", true)
	u.UploadKey = get("upload_key", true)
	u.ProcessID = get("process_id", false)
	u.OriginalName = get("original_name", false)
	u.PriorProcessID = get("prior_process_id", false)
	if err != nil {
		return api.Upload{}, err
	}
	if status, ok := fields["status"].(map[string]any); ok {
		u.Status = status
	}
	return u, nil
}
