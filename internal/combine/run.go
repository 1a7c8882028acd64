package combine

import (
	"context"

	"go.uber.org/zap"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/header"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/report"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/stitch"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/timeline"
)

// run is the state of one Run call.
type run struct {
	*Runner
	id  string
	job Job
	log *zap.Logger
}

func (ru *run) report(ctx context.Context, kind report.Kind, msg string, payload any) {
	err := ru.sink.Report(ctx, report.Outcome{
		RunID:      ru.id,
		Site:       ru.job.Site,
		Resolution: ru.job.Resolution,
		Kind:       kind,
		Message:    msg,
		Payload:    payload,
	})
	if err != nil {
		ru.log.Warn("report outcome", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// plan discovers candidates and lays out the gap-filled timeline.
func (ru *run) plan(ctx context.Context) (*Result, error) {
	res, err := timeline.ParseResolution(ru.job.Resolution)
	if err != nil {
		return nil, err
	}
	out := &Result{RunID: ru.id, Job: ru.job, Resolution: res, Status: StatusPlanned}

	candidates, err := ru.source.Candidates(ctx, ru.job.Site, res)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		out.Status = StatusNoCandidates
		return out, nil
	}
	ru.log.Debug("candidates discovered", zap.Int("count", len(candidates)))

	built, skipped, err := timeline.Build(candidates)
	if err != nil {
		return nil, err
	}
	filled, gaps, trim, err := timeline.FillGaps(built)
	if err != nil {
		return nil, err
	}
	if len(filled) == 0 {
		return nil, Error.New("%s: no data left after the leading-edge trim", ru.job)
	}

	out.Timeline = filled
	out.Skipped = skipped
	out.Gaps = gaps
	out.Trim = trim
	out.Output = ru.outputName(ru.job.Site, res, filled.Span())
	return out, nil
}

func (ru *run) combine(ctx context.Context) (*Result, error) {
	out, err := ru.plan(ctx)
	if err != nil {
		return nil, err
	}
	if out.Status == StatusNoCandidates {
		err := ErrNoCandidates.New("no uploads for %s", ru.job)
		ru.log.Warn("nothing to combine")
		ru.report(ctx, report.KindNoCandidates, err.Error(), nil)
		return out, nil
	}

	names := make([]string, 0, len(out.Timeline))
	for _, c := range out.Timeline.Sources() {
		names = append(names, c.Name)
	}
	headers, err := ru.headers.Headers(names)
	if err != nil {
		return nil, err
	}
	out.Header, out.Rejected = header.Reconcile(headers, ru.opts.Validator, ru.opts.TimestampStart, ru.opts.TimestampEnd)

	st, err := stitch.New(ru.fs, stitch.Options{
		Resolution:     out.Resolution,
		MissingValue:   ru.opts.MissingValue,
		TimestampStart: ru.opts.TimestampStart,
		TimestampEnd:   ru.opts.TimestampEnd,
	}, ru.log)
	if err != nil {
		return nil, err
	}
	out.Stats, err = st.Stitch(ctx, out.Output, out.Timeline, out.Header)
	if err != nil {
		return nil, err
	}
	out.Status = StatusMerged

	ru.log.Info("combined",
		zap.String("output", out.Output),
		zap.Int("rows", out.Stats.Rows),
		zap.Int("skipped", len(out.Skipped)),
		zap.Int("gaps", len(out.Gaps)),
	)
	ru.reportResult(ctx, out)
	return out, nil
}

func (ru *run) reportResult(ctx context.Context, out *Result) {
	entries := make([]map[string]any, 0, len(out.Stats.Entries))
	for _, e := range out.Stats.Entries {
		entries = append(entries, map[string]any{
			"start":  e.Start,
			"end":    e.End,
			"source": e.Source,
			"rows":   e.Rows,
			"filled": e.Filled,
		})
	}
	ru.report(ctx, report.KindMergedFile, out.Output, map[string]any{
		"rows":        out.Stats.Rows,
		"source_rows": out.Stats.SourceRows,
		"gap_rows":    out.Stats.GapRows,
		"filled_rows": out.Stats.FilledRows,
		"entries":     entries,
	})
	ru.report(ctx, report.KindHeader, "combined header", out.Header)

	skipped := make([]map[string]any, 0, len(out.Skipped))
	for _, c := range out.Skipped {
		skipped = append(skipped, map[string]any{
			"file":             c.Name,
			"start":            c.Start,
			"end":              c.End,
			"upload_key":       string(c.UploadKey),
			"process_id":       c.ProcessID,
			"original_name":    c.OriginalName,
			"prior_process_id": c.PriorProcessID,
			"status":           c.Status,
		})
	}
	ru.report(ctx, report.KindSkipList, "uploads fully superseded", skipped)

	gaps := make([]map[string]string, 0, len(out.Gaps))
	for _, g := range out.Gaps {
		gaps = append(gaps, map[string]string{"start": g.Start, "end": g.End})
	}
	ru.report(ctx, report.KindGaps, "gaps filled with missing values", gaps)

	if out.Trim != nil {
		ru.report(ctx, report.KindTrim, "leading edge moved to "+out.Trim.To, map[string]string{
			"source": out.Trim.Source,
			"from":   out.Trim.From,
			"to":     out.Trim.To,
		})
	}
	if len(out.Rejected) > 0 {
		ru.report(ctx, report.KindRejectedColumns, "columns dropped by the name validator", out.Rejected)
	}
	if out.Stats.FilledRows > 0 {
		ru.report(ctx, report.KindFilledRows, "rows missing inside uploads", out.Stats.FilledRows)
	}
}
