package report

import (
	"context"
	"sync"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Error is the error class for outcome reporting.
var Error = errs.Class("report")

// Kind names what an outcome describes.
type Kind string

const (
	KindMergedFile      Kind = "merged_file"
	KindHeader          Kind = "header"
	KindSkipList        Kind = "skip_list"
	KindGaps            Kind = "gaps"
	KindTrim            Kind = "trim"
	KindRejectedColumns Kind = "rejected_columns"
	KindFilledRows      Kind = "filled_rows"
	KindNoCandidates    Kind = "no_candidates"
	KindFailed          Kind = "failed"
)

// Outcome is one structured result of a combine run.
type Outcome struct {
	RunID      string
	Site       string
	Resolution string
	Kind       Kind
	Message    string
	// Payload is JSON-encodable detail, e.g. the header list or skip list.
	// Outcomes read back from SQLite carry a json.RawMessage.
	Payload   any
	CreatedAt time.Time
}

// Sink accepts outcomes for downstream reporting.
type Sink interface {
	Report(ctx context.Context, o Outcome) error
}

// Memory keeps outcomes in memory. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	outcomes []Outcome
}

// Report implements Sink.
func (m *Memory) Report(_ context.Context, o Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
	return nil
}

// Outcomes returns a copy of everything reported so far.
func (m *Memory) Outcomes() []Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Outcome(nil), m.outcomes...)
}

// ByKind returns the reported outcomes of one kind.
func (m *Memory) ByKind(kind Kind) []Outcome {
	var out []Outcome
	for _, o := range m.Outcomes() {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

// LogSink writes outcomes to a zap logger.
type LogSink struct {
	Log *zap.Logger
}

// Report implements Sink.
func (s LogSink) Report(_ context.Context, o Outcome) error {
	level := zap.InfoLevel
	if o.Kind == KindFailed || o.Kind == KindNoCandidates {
		level = zap.WarnLevel
	}
	if ce := s.Log.Check(level, o.Message); ce != nil {
		ce.Write(
			zap.String("run_id", o.RunID),
			zap.String("site", o.Site),
			zap.String("resolution", o.Resolution),
			zap.String("kind", string(o.Kind)),
			zap.Any("payload", o.Payload),
		)
	}
	return nil
}

// Multi reports to every sink and combines their errors.
type Multi []Sink

// Report implements Sink.
func (m Multi) Report(ctx context.Context, o Outcome) error {
	var group errs.Group
	for _, s := range m {
		group.Add(s.Report(ctx, o))
	}
	return group.Err()
}
