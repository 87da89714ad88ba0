package repository

import (
	"context"
	"testing"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
)

func newProcessingJob(id, owner string) *domain.SummaryJob {
	now := time.Now().UTC()
	return &domain.SummaryJob{
		ID:        id,
		OwnerID:   owner,
		FileName:  "report.pdf",
		FileType:  "application/pdf",
		FilePath:  owner + "/1700000000000-report.pdf",
		Status:    domain.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryRepoGetMissingJob(t *testing.T) {
	repo := NewMemorySummaryJobsRepository()
	if _, err := repo.GetJob(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoClaimIsExclusive(t *testing.T) {
	repo := NewMemorySummaryJobsRepository()
	ctx := context.Background()
	if err := repo.CreateJob(ctx, newProcessingJob("job-1", "owner-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	claimed, err := repo.AdvanceStatus(ctx, "job-1", domain.StatusProcessing, domain.StatusExtractingText)
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if claimed.Status != domain.StatusExtractingText {
		t.Fatalf("expected extracting_text, got %s", claimed.Status)
	}

	if _, err := repo.AdvanceStatus(ctx, "job-1", domain.StatusProcessing, domain.StatusExtractingText); err != ErrStatusConflict {
		t.Fatalf("expected ErrStatusConflict on duplicate claim, got %v", err)
	}
}

func TestMemoryRepoCompletePopulatesResultFields(t *testing.T) {
	repo := NewMemorySummaryJobsRepository()
	ctx := context.Background()
	_ = repo.CreateJob(ctx, newProcessingJob("job-1", ""))
	_, _ = repo.AdvanceStatus(ctx, "job-1", domain.StatusProcessing, domain.StatusExtractingText)
	_, _ = repo.AdvanceStatus(ctx, "job-1", domain.StatusExtractingText, domain.StatusSummarizing)

	done, err := repo.MarkCompleted(ctx, "job-1", domain.SummaryResult{
		Summary:   "Executive summary.",
		KeyPoints: []string{"point"},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if done.Summary == "" {
		t.Fatalf("expected non-empty summary")
	}
	if done.KeyPoints == nil || done.ActionItems == nil {
		t.Fatalf("result lists must be present, never nil")
	}
}

func TestMemoryRepoTerminalRecordsAreImmutable(t *testing.T) {
	repo := NewMemorySummaryJobsRepository()
	ctx := context.Background()
	_ = repo.CreateJob(ctx, newProcessingJob("job-1", ""))
	if _, err := repo.MarkFailed(ctx, "job-1", "extraction error"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	if _, err := repo.MarkFailed(ctx, "job-1", "again"); err != ErrStatusConflict {
		t.Fatalf("expected ErrStatusConflict on second fail, got %v", err)
	}
	if _, err := repo.AdvanceStatus(ctx, "job-1", domain.StatusFailed, domain.StatusExtractingText); err != ErrStatusConflict {
		t.Fatalf("expected ErrStatusConflict reviving a failed job, got %v", err)
	}

	job, _ := repo.GetJob(ctx, "job-1")
	if job.StatusDetail != "extraction error" {
		t.Fatalf("status detail overwritten: %q", job.StatusDetail)
	}
	if job.Summary != "" || len(job.KeyPoints) != 0 {
		t.Fatalf("failed job must not carry result fields")
	}
}

func TestMemoryRepoFailedFromAnyNonTerminalState(t *testing.T) {
	repo := NewMemorySummaryJobsRepository()
	ctx := context.Background()
	_ = repo.CreateJob(ctx, newProcessingJob("job-1", ""))
	_, _ = repo.AdvanceStatus(ctx, "job-1", domain.StatusProcessing, domain.StatusExtractingText)
	_, _ = repo.AdvanceStatus(ctx, "job-1", domain.StatusExtractingText, domain.StatusSummarizing)

	failed, err := repo.MarkFailed(ctx, "job-1", "model unreachable")
	if err != nil {
		t.Fatalf("fail from summarizing: %v", err)
	}
	if failed.Status != domain.StatusFailed || failed.StatusDetail == "" {
		t.Fatalf("expected failed with detail, got %s %q", failed.Status, failed.StatusDetail)
	}
}

func TestMemoryRepoCountJobsByOwner(t *testing.T) {
	repo := NewMemorySummaryJobsRepository()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = repo.CreateJob(ctx, newProcessingJob(id, "owner-1"))
	}
	_ = repo.CreateJob(ctx, newProcessingJob("d", "owner-2"))

	count, err := repo.CountJobsByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 jobs for owner-1, got %d", count)
	}
}

func TestMemoryRepoClonesOnRead(t *testing.T) {
	repo := NewMemorySummaryJobsRepository()
	ctx := context.Background()
	_ = repo.CreateJob(ctx, newProcessingJob("job-1", ""))

	first, _ := repo.GetJob(ctx, "job-1")
	first.Status = domain.StatusCompleted
	first.KeyPoints = append(first.KeyPoints, "mutation")

	second, _ := repo.GetJob(ctx, "job-1")
	if second.Status != domain.StatusProcessing || len(second.KeyPoints) != 0 {
		t.Fatalf("repository state leaked through returned pointer")
	}
}
