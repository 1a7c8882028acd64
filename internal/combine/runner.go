package combine

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/discover"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/header"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/report"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/stitch"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/timeline"
)

// Options configures a Runner.
type Options struct {
	OutputDir       string
	MissingValue    string
	TimestampStart  string
	TimestampEnd    string
	Validator       header.Validator // nil keeps every non-empty name
	HeaderCacheSize int
	Workers         int // RunAll parallelism; <= 0 means 1
}

// Job names one (site, resolution) pair to combine.
type Job struct {
	Site       string
	Resolution string
}

func (j Job) String() string { return j.Site + "/" + j.Resolution }

// Status summarizes how a run ended.
type Status string

const (
	StatusMerged       Status = "merged"
	StatusPlanned      Status = "planned"
	StatusNoCandidates Status = "no_candidates"
)

// Result describes a finished run.
type Result struct {
	RunID      string
	Job        Job
	Resolution timeline.Resolution
	Status     Status
	Output     string
	Header     []string
	Rejected   []string
	Timeline   timeline.Timeline
	Skipped    timeline.SkipList
	Gaps       []timeline.Range
	Trim       *timeline.Trim
	Stats      *stitch.Stats // nil unless Status is StatusMerged
}

// Runner combines the uploads of a site into one contiguous file per
// resolution. A Runner is safe for concurrent use; every Run owns its
// own state.
type Runner struct {
	fs      billy.Filesystem
	source  discover.Source
	sink    report.Sink
	headers *header.Cache
	opts    Options
	log     *zap.Logger
	newID   func() string
}

// New returns a Runner reading and writing through fs.
func New(fs billy.Filesystem, source discover.Source, sink report.Sink, opts Options, log *zap.Logger) (*Runner, error) {
	if source == nil {
		return nil, Error.New("no candidate source")
	}
	if sink == nil {
		sink = &report.Memory{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TimestampStart == "" || opts.TimestampEnd == "" {
		return nil, Error.New("timestamp column names are required")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	headers, err := header.NewCache(fs, opts.HeaderCacheSize)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &Runner{
		fs:      fs,
		source:  source,
		sink:    sink,
		headers: headers,
		opts:    opts,
		log:     log,
		newID:   uuid.NewString,
	}, nil
}

// Run combines one job and reports its outcomes. A job without uploads
// is not an error: the result has StatusNoCandidates. Any other failure
// is reported as a failed outcome and leaves no output behind.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	ru := r.newRun(job)
	res, err := ru.combine(ctx)
	if err != nil {
		ru.log.Error("combine failed", zap.Error(err))
		ru.report(context.WithoutCancel(ctx), report.KindFailed, err.Error(), nil)
		return nil, err
	}
	return res, nil
}

// Plan resolves the timeline of job without reading or writing any
// rows. Nothing is reported.
func (r *Runner) Plan(ctx context.Context, job Job) (*Result, error) {
	return r.newRun(job).plan(ctx)
}

func (r *Runner) newRun(job Job) *run {
	id := r.newID()
	return &run{
		Runner: r,
		id:     id,
		job:    job,
		log: r.log.With(
			zap.String("site", job.Site),
			zap.String("resolution", job.Resolution),
			zap.String("run_id", id),
		),
	}
}

// outputName returns where the combined file of a run lands.
func (r *Runner) outputName(site string, res timeline.Resolution, span timeline.Range) string {
	return r.fs.Join(r.opts.OutputDir, fmt.Sprintf("%s_%s_%s_%s.csv", site, res, span.Start, span.End))
}
