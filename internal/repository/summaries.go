package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
)

var (
	ErrNotFound = errors.New("resource not found")

	// ErrStatusConflict means the record exists but is not in the state
	// the conditional update expected. For the claim transition this is
	// how a duplicate worker trigger observes that the job is taken.
	ErrStatusConflict = errors.New("status conflict")
)

// SummaryJobsRepository abstracts persistence for summary job records.
// All mutations target exactly one record by id and are atomic.
type SummaryJobsRepository interface {
	CreateJob(ctx context.Context, job *domain.SummaryJob) error
	GetJob(ctx context.Context, jobID string) (*domain.SummaryJob, error)
	CountJobsByOwner(ctx context.Context, ownerID string) (int, error)

	// AdvanceStatus performs a conditional transition: the update applies
	// only if the record is currently in `from`. Returns ErrStatusConflict
	// otherwise.
	AdvanceStatus(ctx context.Context, jobID string, from, to domain.Status) (*domain.SummaryJob, error)

	// MarkCompleted writes the result fields and the completed status in
	// one update, applied only from the summarizing state.
	MarkCompleted(ctx context.Context, jobID string, result domain.SummaryResult) (*domain.SummaryJob, error)

	// MarkFailed moves any non-terminal record to failed with a detail
	// message. Terminal records are left untouched.
	MarkFailed(ctx context.Context, jobID, detail string) (*domain.SummaryJob, error)
}

// MemorySummaryJobsRepository stores jobs in memory for local development.
type MemorySummaryJobsRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.SummaryJob
}

func NewMemorySummaryJobsRepository() *MemorySummaryJobsRepository {
	return &MemorySummaryJobsRepository{
		jobs: make(map[string]*domain.SummaryJob),
	}
}

func (r *MemorySummaryJobsRepository) CreateJob(_ context.Context, job *domain.SummaryJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemorySummaryJobsRepository) GetJob(_ context.Context, jobID string) (*domain.SummaryJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemorySummaryJobsRepository) CountJobsByOwner(_ context.Context, ownerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, job := range r.jobs {
		if job.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (r *MemorySummaryJobsRepository) AdvanceStatus(
	_ context.Context,
	jobID string,
	from domain.Status,
	to domain.Status,
) (*domain.SummaryJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if job.Status != from || !from.CanTransition(to) {
		return nil, ErrStatusConflict
	}

	job.Status = to
	job.UpdatedAt = time.Now().UTC()
	return cloneJob(job), nil
}

func (r *MemorySummaryJobsRepository) MarkCompleted(
	_ context.Context,
	jobID string,
	result domain.SummaryResult,
) (*domain.SummaryJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if job.Status != domain.StatusSummarizing {
		return nil, ErrStatusConflict
	}

	job.Status = domain.StatusCompleted
	job.StatusDetail = ""
	job.Summary = result.Summary
	job.KeyPoints = append([]string{}, result.KeyPoints...)
	job.ActionItems = append([]string{}, result.ActionItems...)
	job.UpdatedAt = time.Now().UTC()
	return cloneJob(job), nil
}

func (r *MemorySummaryJobsRepository) MarkFailed(
	_ context.Context,
	jobID string,
	detail string,
) (*domain.SummaryJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil, ErrStatusConflict
	}

	job.Status = domain.StatusFailed
	job.StatusDetail = detail
	job.UpdatedAt = time.Now().UTC()
	return cloneJob(job), nil
}

func cloneJob(job *domain.SummaryJob) *domain.SummaryJob {
	if job == nil {
		return nil
	}
	clone := *job
	clone.KeyPoints = append([]string(nil), job.KeyPoints...)
	clone.ActionItems = append([]string(nil), job.ActionItems...)
	return &clone
}
