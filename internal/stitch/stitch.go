package stitch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/header"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/timeline"
)

// DefaultMissingValue fills every field a source does not provide.
const DefaultMissingValue = "-9999"

// Options controls the shape of the combined output.
type Options struct {
	Resolution     timeline.Resolution
	MissingValue   string
	TimestampStart string
	TimestampEnd   string
}

// EntryStats describes what was written for one timeline entry.
type EntryStats struct {
	timeline.Range
	Source string // empty for gaps
	Rows   int    // rows taken from the source, or synthesized for a gap
	Filled int    // missing-value rows written inside a source entry
}

// Stats summarizes one Stitch call.
type Stats struct {
	Rows        int // data rows written, excluding the header
	SourceRows  int
	GapRows     int
	FilledRows  int
	Entries     []EntryStats
	Destination string
}

// Stitcher streams the rows behind a finished timeline into one CSV file.
type Stitcher struct {
	fs   billy.Filesystem
	opts Options
	log  *zap.Logger
}

// New returns a Stitcher reading sources from and writing output to fs.
func New(fs billy.Filesystem, opts Options, log *zap.Logger) (*Stitcher, error) {
	if opts.Resolution.Step() == 0 {
		return nil, timeline.ErrUnknownResolution.New("%q", string(opts.Resolution))
	}
	if opts.MissingValue == "" {
		opts.MissingValue = DefaultMissingValue
	}
	if opts.TimestampStart == "" || opts.TimestampEnd == "" {
		return nil, Error.New("timestamp column names are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stitcher{fs: fs, opts: opts, log: log}, nil
}

// Stitch writes unified followed by one row per timestep of tl to dst.
// tl must satisfy Timeline.Check. Nothing is left at dst on error.
func (s *Stitcher) Stitch(ctx context.Context, dst string, tl timeline.Timeline, unified []string) (_ *Stats, err error) {
	if len(tl) == 0 {
		return nil, Error.New("empty timeline")
	}
	if err := tl.Check(); err != nil {
		return nil, err
	}
	w, err := s.newRowWriter(tl.Span().Start, unified)
	if err != nil {
		return nil, err
	}

	out, err := createOutput(s.fs, dst)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if abortErr := out.abort(); abortErr != nil {
				s.log.Warn("discard partial output", zap.String("dst", dst), zap.Error(abortErr))
			}
		}
	}()

	w.csv = csv.NewWriter(out)
	if err := w.csv.Write(unified); err != nil {
		return nil, Error.Wrap(err)
	}

	stats := &Stats{Destination: dst}
	for _, e := range tl {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var es EntryStats
		if e.IsGap() {
			es, err = s.writeGap(w, e)
		} else {
			es, err = s.copyEntry(w, e)
		}
		if err != nil {
			return nil, err
		}
		stats.Entries = append(stats.Entries, es)
		if e.IsGap() {
			stats.GapRows += es.Rows
		} else {
			stats.SourceRows += es.Rows
			stats.FilledRows += es.Filled
		}
		s.log.Debug("entry written", zap.Stringer("entry", e), zap.Int("rows", es.Rows), zap.Int("filled", es.Filled))
	}

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return nil, Error.Wrap(err)
	}

	want, err := s.opts.Resolution.Steps(tl.Span())
	if err != nil {
		return nil, err
	}
	stats.Rows = stats.SourceRows + stats.GapRows + stats.FilledRows
	if stats.Rows != want || !w.cover.complete(want) {
		return nil, timeline.ErrInvariant.New("wrote %d rows for %s, want %d", stats.Rows, tl.Span(), want)
	}

	if err := out.commit(); err != nil {
		return nil, err
	}
	return stats, nil
}

// rowWriter writes rows of the combined width and tracks coverage.
type rowWriter struct {
	csv     *csv.Writer
	cover   *coverage
	unified []string
	step    time.Duration
	missing string
	tsStart int
	tsEnd   int
	row     []string
}

func (s *Stitcher) newRowWriter(first string, unified []string) (*rowWriter, error) {
	origin, err := timeline.ParseStamp(first)
	if err != nil {
		return nil, err
	}
	w := &rowWriter{
		cover:   newCoverage(origin, s.opts.Resolution.Step()),
		unified: unified,
		step:    s.opts.Resolution.Step(),
		missing: s.opts.MissingValue,
		tsStart: indexOf(unified, s.opts.TimestampStart),
		tsEnd:   indexOf(unified, s.opts.TimestampEnd),
		row:     make([]string, len(unified)),
	}
	if w.tsStart < 0 || w.tsEnd < 0 {
		return nil, Error.New("combined header lacks %s or %s", s.opts.TimestampStart, s.opts.TimestampEnd)
	}
	return w, nil
}

// missingRow writes a row with only the timestamps set.
func (w *rowWriter) missingRow(start time.Time) error {
	for i := range w.row {
		w.row[i] = w.missing
	}
	w.row[w.tsStart] = timeline.FormatStamp(start)
	w.row[w.tsEnd] = timeline.FormatStamp(start.Add(w.step))
	return w.write(start)
}

func (w *rowWriter) write(start time.Time) error {
	if err := w.cover.mark(start); err != nil {
		return err
	}
	return Error.Wrap(w.csv.Write(w.row))
}

// fill writes missing rows from *cursor up to end and advances the cursor.
func (w *rowWriter) fill(cursor *time.Time, end time.Time) (int, error) {
	n := 0
	for cursor.Before(end) {
		if err := w.missingRow(*cursor); err != nil {
			return n, err
		}
		*cursor = cursor.Add(w.step)
		n++
	}
	return n, nil
}

func (s *Stitcher) writeGap(w *rowWriter, e timeline.Entry) (EntryStats, error) {
	es := EntryStats{Range: e.Range}
	start, err := timeline.ParseStamp(e.Start)
	if err != nil {
		return es, err
	}
	end, err := timeline.ParseStamp(e.End)
	if err != nil {
		return es, err
	}
	es.Rows, err = w.fill(&start, end)
	return es, err
}

// copyEntry emits the source rows of e, from the first row starting at or
// after e.Start through the row ending at e.End. Holes in the source and
// a source that stops early are padded with missing rows.
func (s *Stitcher) copyEntry(w *rowWriter, e timeline.Entry) (EntryStats, error) {
	name := e.Source.Name
	es := EntryStats{Range: e.Range, Source: name}

	f, err := s.fs.Open(name)
	if err != nil {
		return es, Error.Wrap(fmt.Errorf("open %s: %w", name, err))
	}
	defer func() { _ = f.Close() }() // read-only

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	rec, err := cr.Read()
	if err != nil {
		return es, Error.New("%s: read header: %v", name, err)
	}
	src := header.Normalize(rec)
	m := header.NewMap(src, w.unified)
	srcStart, srcEnd := m.Index(w.tsStart), m.Index(w.tsEnd)
	if srcStart < 0 || srcEnd < 0 {
		return es, Error.New("%s: missing %s or %s column", name, s.opts.TimestampStart, s.opts.TimestampEnd)
	}

	cursor, err := timeline.ParseStamp(e.Start)
	if err != nil {
		return es, err
	}
	end, err := timeline.ParseStamp(e.End)
	if err != nil {
		return es, err
	}

	started := false
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return es, Error.New("%s: %v", name, err)
		}
		if srcStart >= len(rec) || srcEnd >= len(rec) {
			line, _ := cr.FieldPos(0)
			return es, Error.New("%s:%d: short row", name, line)
		}
		rowStart := strings.TrimSpace(rec[srcStart])
		rowEnd := strings.TrimSpace(rec[srcEnd])
		t, err := timeline.ParseStamp(rowStart)
		if err != nil {
			line, _ := cr.FieldPos(srcStart)
			return es, Error.New("%s:%d: %v", name, line, err)
		}
		if rowStart < e.Start {
			if started {
				line, _ := cr.FieldPos(srcStart)
				return es, ErrRowOrder.New("%s:%d: row %s goes back before %s", name, line, rowStart, e.Start)
			}
			continue
		}
		if rowStart >= e.End {
			break
		}
		if t.Before(cursor) {
			line, _ := cr.FieldPos(srcStart)
			return es, ErrRowOrder.New("%s:%d: row %s after %s", name, line, rowStart, timeline.FormatStamp(cursor.Add(-w.step)))
		}
		n, err := w.fill(&cursor, t)
		es.Filled += n
		if err != nil {
			return es, err
		}
		if !cursor.Equal(t) {
			return es, ErrRowOrder.New("%s: row %s is off the %s grid", name, rowStart, w.step)
		}
		if want := timeline.FormatStamp(t.Add(w.step)); rowEnd != want {
			return es, ErrRowOrder.New("%s: row %s ends at %s, want %s", name, rowStart, rowEnd, want)
		}

		m.Apply(rec, w.row, w.missing)
		w.row[w.tsStart], w.row[w.tsEnd] = rowStart, rowEnd
		if err := w.write(t); err != nil {
			return es, err
		}
		es.Rows++
		started = true
		cursor = cursor.Add(w.step)
		if rowEnd >= e.End {
			break
		}
	}

	n, err := w.fill(&cursor, end)
	es.Filled += n
	return es, err
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
