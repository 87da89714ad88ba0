package observer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/brieflyhq/briefly-back/internal/notify"
	"github.com/brieflyhq/briefly-back/internal/repository"
)

func seedJob(t *testing.T, repo *repository.MemorySummaryJobsRepository, status domain.Status) *domain.SummaryJob {
	t.Helper()
	now := time.Now().UTC()
	job := &domain.SummaryJob{
		ID:        "job-1",
		FileName:  "notes.pdf",
		FileType:  "application/pdf",
		FilePath:  "anonymous/1-notes.pdf",
		Status:    domain.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("seed: %v", err)
	}
	switch status {
	case domain.StatusFailed:
		if _, err := repo.MarkFailed(context.Background(), job.ID, "boom"); err != nil {
			t.Fatalf("seed fail: %v", err)
		}
	case domain.StatusProcessing:
	default:
		t.Fatalf("unsupported seed status %s", status)
	}
	return job
}

func TestWatchReturnsImmediatelyForTerminalRecord(t *testing.T) {
	repo := repository.NewMemorySummaryJobsRepository()
	notifier := notify.NewLocalNotifier()
	seedJob(t, repo, domain.StatusFailed)

	watcher := New(repo, notifier, time.Minute)
	outcome, err := watcher.Watch(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if outcome.Kind != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", outcome.Kind)
	}
	if outcome.Detail != "boom" {
		t.Fatalf("expected status detail to surface, got %q", outcome.Detail)
	}
}

func TestWatchSeesCompletionEvent(t *testing.T) {
	repo := repository.NewMemorySummaryJobsRepository()
	notifier := notify.NewLocalNotifier()
	seedJob(t, repo, domain.StatusProcessing)

	watcher := New(repo, notifier, time.Minute)

	results := make(chan Outcome, 1)
	errs := make(chan error, 1)
	go func() {
		outcome, err := watcher.Watch(context.Background(), "job-1")
		if err != nil {
			errs <- err
			return
		}
		results <- outcome
	}()

	// Give the watcher time to subscribe before mutating.
	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	job, err := repo.AdvanceStatus(ctx, "job-1", domain.StatusProcessing, domain.StatusExtractingText)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	_ = notifier.Publish(ctx, job)
	job, _ = repo.AdvanceStatus(ctx, "job-1", domain.StatusExtractingText, domain.StatusSummarizing)
	_ = notifier.Publish(ctx, job)
	job, err = repo.MarkCompleted(ctx, "job-1", domain.SummaryResult{Summary: "done", KeyPoints: []string{}, ActionItems: []string{}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	_ = notifier.Publish(ctx, job)

	select {
	case outcome := <-results:
		if outcome.Kind != OutcomeCompleted {
			t.Fatalf("expected completed outcome, got %s", outcome.Kind)
		}
		if outcome.Record.Summary != "done" {
			t.Fatalf("expected full-record replacement, got %+v", outcome.Record)
		}
	case err := <-errs:
		t.Fatalf("watch failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("watch never observed completion")
	}
}

func TestWatchTimesOutLocallyWithoutTouchingRecord(t *testing.T) {
	repo := repository.NewMemorySummaryJobsRepository()
	notifier := notify.NewLocalNotifier()
	seedJob(t, repo, domain.StatusProcessing)

	watcher := New(repo, notifier, 50*time.Millisecond)
	outcome, err := watcher.Watch(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if outcome.Kind != OutcomeTimedOut {
		t.Fatalf("expected timed_out outcome, got %s", outcome.Kind)
	}

	// The record is untouched and still independently fetchable.
	job, err := repo.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get after timeout: %v", err)
	}
	if job.Status != domain.StatusProcessing {
		t.Fatalf("timeout must not mutate server state, got %s", job.Status)
	}

	// A later completion remains observable on a fresh read.
	ctx := context.Background()
	_, _ = repo.AdvanceStatus(ctx, "job-1", domain.StatusProcessing, domain.StatusExtractingText)
	_, _ = repo.AdvanceStatus(ctx, "job-1", domain.StatusExtractingText, domain.StatusSummarizing)
	if _, err := repo.MarkCompleted(ctx, "job-1", domain.SummaryResult{Summary: "late"}); err != nil {
		t.Fatalf("late completion: %v", err)
	}
	job, _ = repo.GetJob(ctx, "job-1")
	if job.Status != domain.StatusCompleted {
		t.Fatalf("late completion not visible, got %s", job.Status)
	}
}

func TestWatchWaitsWhenRecordNotYetVisible(t *testing.T) {
	repo := repository.NewMemorySummaryJobsRepository()
	notifier := notify.NewLocalNotifier()

	watcher := New(repo, notifier, 100*time.Millisecond)
	outcome, err := watcher.Watch(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if outcome.Kind != OutcomeTimedOut {
		t.Fatalf("absent record should wait until the ceiling, got %s", outcome.Kind)
	}
}

type wrappingReader struct{}

func (wrappingReader) GetJob(context.Context, string) (*domain.SummaryJob, error) {
	return nil, fmt.Errorf("load job: %w", repository.ErrNotFound)
}

func TestWatchTreatsWrappedNotFoundAsAbsence(t *testing.T) {
	notifier := notify.NewLocalNotifier()

	watcher := New(wrappingReader{}, notifier, 100*time.Millisecond)
	outcome, err := watcher.Watch(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("a wrapped not-found must not abort the watch: %v", err)
	}
	if outcome.Kind != OutcomeTimedOut {
		t.Fatalf("expected timed_out outcome, got %s", outcome.Kind)
	}
}

func TestStatusMessages(t *testing.T) {
	if got := StatusMessage(domain.StatusSummarizing, ""); got == "" {
		t.Fatalf("expected a progress message for summarizing")
	}
	if got := StatusMessage(domain.StatusFailed, "bad input"); got != "Processing failed: bad input" {
		t.Fatalf("unexpected failed message %q", got)
	}
	if got := StatusMessage(domain.Status("unknown"), ""); got != "Processing document..." {
		t.Fatalf("unexpected default message %q", got)
	}
}
