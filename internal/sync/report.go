package sync

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal result of one item in a run.
type Outcome int

const (
	OutcomeExported Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExported:
		return "exported"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record is one ledger line. Records are appended in encounter order and
// never mutated afterwards, so a report can replay the run narratively.
type Record struct {
	ID       string
	Title    string
	Path     string
	Outcome  Outcome
	Reason   string
	Attempts int
	Bytes    int64
	IsFolder bool
}

// Failure is a ledger entry with enough detail to retry manually.
type Failure struct {
	ID       string
	Title    string
	Path     string
	Reason   string
	Attempts int
}

// RunReport is the immutable summary of one traversal.
type RunReport struct {
	RunID          string
	StartedAt      time.Time
	Elapsed        time.Duration
	Processed      int
	Exported       int
	Skipped        int
	Failed         int
	Folders        int
	UnknownFolders int
	BytesWritten   int64
	Records        []Record
	Failures       []Failure
}

// aggregator collects per-item outcomes during a run. Append-only; the
// engine is its sole writer.
type aggregator struct {
	runID     string
	startedAt time.Time
	records   []Record
	folders   int
}

func newAggregator() *aggregator {
	return &aggregator{
		runID:     uuid.NewString(),
		startedAt: time.Now(),
	}
}

func (a *aggregator) record(rec Record) {
	a.records = append(a.records, rec)
}

func (a *aggregator) folderVisited() {
	a.folders++
}

// finalize computes totals and freezes the report.
func (a *aggregator) finalize() *RunReport {
	report := &RunReport{
		RunID:     a.runID,
		StartedAt: a.startedAt,
		Elapsed:   time.Since(a.startedAt),
		Folders:   a.folders,
		Records:   append([]Record(nil), a.records...),
	}

	for _, rec := range report.Records {
		if !rec.IsFolder {
			report.Processed++
		}
		switch rec.Outcome {
		case OutcomeExported:
			report.Exported++
			report.BytesWritten += rec.Bytes
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
			if rec.IsFolder {
				report.UnknownFolders++
			}
			report.Failures = append(report.Failures, Failure{
				ID:       rec.ID,
				Title:    rec.Title,
				Path:     rec.Path,
				Reason:   rec.Reason,
				Attempts: rec.Attempts,
			})
		}
	}

	return report
}
