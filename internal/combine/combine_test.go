package combine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/discover"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/header"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/report"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/timeline"
)

const (
	tsStart = "TIMESTAMP_START"
	tsEnd   = "TIMESTAMP_END"
)

// writeUpload writes n half-hourly rows from start. Values read
// "<tag>.<column>".
func writeUpload(t *testing.T, fs billy.Filesystem, name, tag, start string, n int, cols ...string) {
	t.Helper()
	origin, err := timeline.ParseStamp(start)
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString(strings.Join(append([]string{tsStart, tsEnd}, cols...), ",") + "\n")
	for i := 0; i < n; i++ {
		s := origin.Add(time.Duration(i) * 30 * time.Minute)
		fields := []string{timeline.FormatStamp(s), timeline.FormatStamp(s.Add(30 * time.Minute))}
		for _, c := range cols {
			fields = append(fields, tag+"."+c)
		}
		b.WriteString(strings.Join(fields, ",") + "\n")
	}
	require.NoError(t, util.WriteFile(fs, name, []byte(b.String()), 0o644))
}

type stubSource map[string][]*timeline.Candidate

func (s stubSource) Candidates(_ context.Context, site string, _ timeline.Resolution) ([]*timeline.Candidate, error) {
	return s[site], nil
}

func cand(name, start, end, key string) *timeline.Candidate {
	return &timeline.Candidate{Range: timeline.Range{Start: start, End: end}, Name: name, UploadKey: timeline.UploadKey(key)}
}

func newRunner(t *testing.T, fs billy.Filesystem, src discover.Source, sink report.Sink, opts Options) *Runner {
	t.Helper()
	opts.OutputDir = "out"
	opts.TimestampStart = tsStart
	opts.TimestampEnd = tsEnd
	r, err := New(fs, src, sink, opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r
}

func readLines(t *testing.T, fs billy.Filesystem, name string) []string {
	t.Helper()
	data, err := util.ReadFile(fs, name)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

const manifestAB = `{
  "uploads": [
    {"site": "US-Ha1", "resolution": "HH", "file": "a.csv", "start": "201001010000",
     "end": "201001020000", "upload_key": "20190301", "process_id": "101"},
    {"site": "US-Ha1", "resolution": "HH", "file": "b.csv", "start": "201001011200",
     "end": "201001030000", "upload_key": "20200301", "process_id": "102", "prior_process_id": "101"},
    {"site": "US-Ha1", "resolution": "HH", "file": "c.csv", "start": "201001020000",
     "end": "201001021200", "upload_key": "20180101", "process_id": "99"}
  ]
}`

func TestRun_NewerUploadWinsOverlap(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "data/manifest.json", []byte(manifestAB), 0o644))
	writeUpload(t, fs, "data/a.csv", "A", "201001010000", 48, "TA", "G")
	writeUpload(t, fs, "data/b.csv", "B", "201001011200", 72, "TA")
	writeUpload(t, fs, "data/c.csv", "C", "201001020000", 24, "TA")

	src, err := discover.NewManifest(fs, "data/manifest.json", "")
	require.NoError(t, err)
	sink := &report.Memory{}
	r := newRunner(t, fs, src, sink, Options{})

	res, err := r.Run(context.Background(), Job{Site: "US-Ha1", Resolution: "HH"})
	require.NoError(t, err)
	assert.Equal(t, StatusMerged, res.Status)
	assert.Equal(t, "out/US-Ha1_HH_201001010000_201001030000.csv", res.Output)
	assert.Equal(t, []string{tsStart, tsEnd, "TA", "G"}, res.Header)
	assert.Empty(t, res.Gaps)
	assert.Nil(t, res.Trim)

	require.Len(t, res.Timeline, 2)
	assert.Equal(t, "data/a.csv", res.Timeline[0].Source.Name)
	assert.Equal(t, timeline.Range{Start: "201001010000", End: "201001011200"}, res.Timeline[0].Range)
	assert.Equal(t, "data/b.csv", res.Timeline[1].Source.Name)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "data/c.csv", res.Skipped[0].Name)

	assert.Equal(t, 96, res.Stats.Rows)
	lines := readLines(t, fs, res.Output)
	require.Len(t, lines, 97)
	assert.Equal(t, "TIMESTAMP_START,TIMESTAMP_END,TA,G", lines[0])
	assert.Equal(t, "201001011130,201001011200,A.TA,A.G", lines[24])
	assert.Equal(t, "201001011200,201001011230,B.TA,-9999", lines[25])
	assert.Equal(t, "201001022330,201001030000,B.TA,-9999", lines[96])

	for _, kind := range []report.Kind{report.KindMergedFile, report.KindHeader, report.KindSkipList, report.KindGaps} {
		assert.Len(t, sink.ByKind(kind), 1, kind)
	}
	assert.Empty(t, sink.ByKind(report.KindTrim))
	assert.Empty(t, sink.ByKind(report.KindFilledRows))
	assert.Empty(t, sink.ByKind(report.KindFailed))

	merged := sink.ByKind(report.KindMergedFile)[0]
	assert.Equal(t, res.RunID, merged.RunID)
	assert.Equal(t, res.Output, merged.Message)
	skipped, ok := sink.ByKind(report.KindSkipList)[0].Payload.([]map[string]any)
	require.True(t, ok)
	require.Len(t, skipped, 1)
	assert.Equal(t, "99", skipped[0]["process_id"])
}

func TestRun_NoCandidates(t *testing.T) {
	fs := memfs.New()
	sink := &report.Memory{}
	r := newRunner(t, fs, stubSource{}, sink, Options{})

	res, err := r.Run(context.Background(), Job{Site: "US-XXX", Resolution: "HR"})
	require.NoError(t, err)
	assert.Equal(t, StatusNoCandidates, res.Status)
	assert.Empty(t, res.Output)

	outcomes := sink.Outcomes()
	require.Len(t, outcomes, 1)
	assert.Equal(t, report.KindNoCandidates, outcomes[0].Kind)
	assert.Contains(t, outcomes[0].Message, "US-XXX/HR")

	_, err = fs.Stat("out")
	assert.Error(t, err, "no output directory expected")
}

func TestRun_SameUploadOverlapFails(t *testing.T) {
	fs := memfs.New()
	writeUpload(t, fs, "a.csv", "A", "201001010000", 4, "TA")
	writeUpload(t, fs, "b.csv", "B", "201001010100", 4, "TA")
	src := stubSource{"S": {
		cand("a.csv", "201001010000", "201001010200", "7"),
		cand("b.csv", "201001010100", "201001010300", "7"),
	}}
	sink := &report.Memory{}
	r := newRunner(t, fs, src, sink, Options{})

	_, err := r.Run(context.Background(), Job{Site: "S", Resolution: "HH"})
	require.Error(t, err)
	assert.True(t, timeline.ErrSameUploadOverlap.Has(err))

	failed := sink.ByKind(report.KindFailed)
	require.Len(t, failed, 1)
	assert.Len(t, sink.Outcomes(), 1)
	_, err = fs.Stat("out")
	assert.Error(t, err)
}

func TestRun_UnknownResolution(t *testing.T) {
	sink := &report.Memory{}
	r := newRunner(t, memfs.New(), stubSource{}, sink, Options{})

	_, err := r.Run(context.Background(), Job{Site: "S", Resolution: "DD"})
	require.Error(t, err)
	assert.True(t, timeline.ErrUnknownResolution.Has(err))
	assert.Len(t, sink.ByKind(report.KindFailed), 1)
}

func TestRun_GapsTrimAndRejectedColumns(t *testing.T) {
	fs := memfs.New()
	// starts on Dec 31 00:00, so the first day belongs to the previous year
	writeUpload(t, fs, "a.csv", "A", "200912310000", 52, "TA", "bad col")
	writeUpload(t, fs, "b.csv", "B", "201001020000", 2, "TA")
	src := stubSource{"S": {
		cand("a.csv", "200912310000", "201001010200", "1"),
		cand("b.csv", "201001020000", "201001020100", "2"),
	}}
	v, err := header.NewPattern("")
	require.NoError(t, err)
	sink := &report.Memory{}
	r := newRunner(t, fs, src, sink, Options{Validator: v, MissingValue: "NA"})

	res, err := r.Run(context.Background(), Job{Site: "S", Resolution: "HH"})
	require.NoError(t, err)
	assert.Equal(t, "out/S_HH_201001010000_201001020100.csv", res.Output)
	require.NotNil(t, res.Trim)
	assert.Equal(t, "201001010000", res.Trim.To)
	assert.Equal(t, []timeline.Range{{Start: "201001010200", End: "201001020000"}}, res.Gaps)
	assert.Equal(t, []string{"bad col"}, res.Rejected)
	assert.Equal(t, []string{tsStart, tsEnd, "TA"}, res.Header)

	// 4 source rows, 44 gap rows, 2 source rows
	assert.Equal(t, 50, res.Stats.Rows)
	assert.Equal(t, 44, res.Stats.GapRows)
	lines := readLines(t, fs, res.Output)
	assert.Equal(t, "201001010000,201001010030,A.TA", lines[1])
	assert.Equal(t, "201001010200,201001010230,NA", lines[5])

	assert.Len(t, sink.ByKind(report.KindTrim), 1)
	assert.Len(t, sink.ByKind(report.KindRejectedColumns), 1)
}

func TestRun_FilledRowsReported(t *testing.T) {
	fs := memfs.New()
	writeUpload(t, fs, "a.csv", "A", "201001010000", 2, "TA")
	src := stubSource{"S": {cand("a.csv", "201001010000", "201001010200", "1")}}
	sink := &report.Memory{}
	r := newRunner(t, fs, src, sink, Options{})

	res, err := r.Run(context.Background(), Job{Site: "S", Resolution: "HH"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.FilledRows)
	filled := sink.ByKind(report.KindFilledRows)
	require.Len(t, filled, 1)
	assert.Equal(t, 2, filled[0].Payload)
}

func TestPlan_WritesNothing(t *testing.T) {
	fs := memfs.New()
	src := stubSource{"S": {
		cand("a.csv", "201001010100", "201001010200", "1"),
		cand("b.csv", "201001010300", "201001010400", "2"),
	}}
	sink := &report.Memory{}
	r := newRunner(t, fs, src, sink, Options{})

	res, err := r.Plan(context.Background(), Job{Site: "S", Resolution: "half-hourly"})
	require.NoError(t, err)
	assert.Equal(t, StatusPlanned, res.Status)
	assert.Equal(t, timeline.HalfHourly, res.Resolution)
	assert.Equal(t, "out/S_HH_201001010000_201001010400.csv", res.Output)
	assert.Equal(t, []timeline.Range{
		{Start: "201001010000", End: "201001010100"},
		{Start: "201001010200", End: "201001010300"},
	}, res.Gaps)
	assert.Nil(t, res.Stats)
	assert.Empty(t, sink.Outcomes())
	_, err = fs.Stat("out")
	assert.Error(t, err)
}

func TestRunAll_FailureDoesNotStopOthers(t *testing.T) {
	fs := memfs.New()
	writeUpload(t, fs, "a.csv", "A", "201001010000", 2, "TA")
	writeUpload(t, fs, "b.csv", "B", "201001010000", 2, "TA")
	src := stubSource{
		"S1": {cand("a.csv", "201001010000", "201001010100", "1")},
		"S2": {cand("b.csv", "201001010000", "201001010100", "1")},
	}
	sink := &report.Memory{}
	r := newRunner(t, fs, src, sink, Options{Workers: 1})

	jobs := []Job{
		{Site: "S1", Resolution: "HH"},
		{Site: "S1", Resolution: "DD"},
		{Site: "S2", Resolution: "HH"},
	}
	results, err := r.RunAll(context.Background(), jobs)
	require.Error(t, err)
	assert.True(t, Error.Has(err))
	assert.Contains(t, err.Error(), "S1/DD")

	require.Len(t, results, 3)
	require.NotNil(t, results[0])
	assert.Nil(t, results[1])
	require.NotNil(t, results[2])
	assert.NotEqual(t, results[0].RunID, results[2].RunID)

	_, err = fs.Stat(results[0].Output)
	assert.NoError(t, err)
	_, err = fs.Stat(results[2].Output)
	assert.NoError(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(memfs.New(), nil, nil, Options{TimestampStart: tsStart, TimestampEnd: tsEnd}, nil)
	assert.True(t, Error.Has(err))

	_, err = New(memfs.New(), stubSource{}, nil, Options{}, nil)
	assert.True(t, Error.Has(err))
}
