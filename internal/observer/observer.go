package observer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/brieflyhq/briefly-back/internal/notify"
	"github.com/brieflyhq/briefly-back/internal/repository"
)

type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeFailed    OutcomeKind = "failed"

	// OutcomeTimedOut is a local liveness verdict: the observer gave up
	// waiting. The server-side record is unaffected and may still
	// complete later.
	OutcomeTimedOut OutcomeKind = "timed_out"
)

type Outcome struct {
	Kind   OutcomeKind
	Record *domain.SummaryJob
	Detail string
}

// RecordReader is the read side of the status record store.
type RecordReader interface {
	GetJob(ctx context.Context, jobID string) (*domain.SummaryJob, error)
}

// Observer waits for a job to reach a terminal state: one initial read,
// a change subscription scoped to the id, and a wait ceiling. The
// subscription and the timer share one derived context so teardown
// cancels both together.
type Observer struct {
	reader   RecordReader
	notifier notify.Notifier
	ceiling  time.Duration
}

func New(reader RecordReader, notifier notify.Notifier, ceiling time.Duration) *Observer {
	if ceiling <= 0 {
		ceiling = 120 * time.Second
	}
	return &Observer{reader: reader, notifier: notifier, ceiling: ceiling}
}

func (o *Observer) Watch(ctx context.Context, jobID string) (Outcome, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before the initial read so an update landing between
	// the two is not lost.
	sub, err := o.notifier.Subscribe(watchCtx, jobID)
	if err != nil {
		return Outcome{}, fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	// Absence at the initial read is not an error: the record may not
	// be visible yet. The ceiling bounds how long we entertain that.
	current, err := o.reader.GetJob(ctx, jobID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Outcome{}, fmt.Errorf("initial read: %w", err)
	}
	if outcome, done := terminalOutcome(current); done {
		return outcome, nil
	}

	timer := time.NewTimer(o.ceiling)
	defer timer.Stop()

	for {
		select {
		case <-watchCtx.Done():
			return Outcome{}, watchCtx.Err()

		case <-timer.C:
			return Outcome{
				Kind:   OutcomeTimedOut,
				Record: current,
				Detail: "Processing is taking longer than expected. Please check back later.",
			}, nil

		case update, ok := <-sub.Updates():
			if !ok {
				return Outcome{}, fmt.Errorf("subscription closed for job %s", jobID)
			}
			// Full-record replacement, never a field merge.
			current = update
			if outcome, done := terminalOutcome(current); done {
				return outcome, nil
			}
		}
	}
}

func terminalOutcome(job *domain.SummaryJob) (Outcome, bool) {
	if job == nil || !job.Status.IsTerminal() {
		return Outcome{}, false
	}
	if job.Status == domain.StatusFailed {
		detail := job.StatusDetail
		if detail == "" {
			detail = "An unknown error occurred."
		}
		return Outcome{Kind: OutcomeFailed, Record: job, Detail: detail}, true
	}
	return Outcome{Kind: OutcomeCompleted, Record: job}, true
}

// StatusMessage maps each state to the human-readable progress line
// shown while waiting.
func StatusMessage(status domain.Status, detail string) string {
	switch status {
	case domain.StatusProcessing:
		return "Your document is in the queue for processing."
	case domain.StatusExtractingText:
		return "Extracting text from the document..."
	case domain.StatusSummarizing:
		return "The AI is generating the summary. This may take a moment..."
	case domain.StatusFailed:
		if detail == "" {
			detail = "An unknown error occurred."
		}
		return "Processing failed: " + detail
	case domain.StatusCompleted:
		return "Summary complete!"
	default:
		return "Processing document..."
	}
}
