package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresSummaryJobsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSummaryJobsRepository(pool *pgxpool.Pool) *PostgresSummaryJobsRepository {
	return &PostgresSummaryJobsRepository{pool: pool}
}

const summaryJobColumns = `
	id, owner_id, file_name, file_type, file_path,
	status, status_detail, summary, key_points, action_items,
	created_at, updated_at`

func (r *PostgresSummaryJobsRepository) CreateJob(ctx context.Context, job *domain.SummaryJob) error {
	keyPoints, actionItems, err := encodeResultLists(job.KeyPoints, job.ActionItems)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO summary_jobs (
			id,
			owner_id,
			file_name,
			file_type,
			file_path,
			status,
			status_detail,
			summary,
			key_points,
			action_items,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		job.ID,
		job.OwnerID,
		job.FileName,
		job.FileType,
		job.FilePath,
		string(job.Status),
		job.StatusDetail,
		job.Summary,
		keyPoints,
		actionItems,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert summary job: %w", err)
	}
	return nil
}

func (r *PostgresSummaryJobsRepository) GetJob(ctx context.Context, jobID string) (*domain.SummaryJob, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+summaryJobColumns+`
		FROM summary_jobs
		WHERE id = $1
	`, jobID)
	return scanSummaryJob(row)
}

func (r *PostgresSummaryJobsRepository) CountJobsByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM summary_jobs WHERE owner_id = $1
	`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count jobs by owner: %w", err)
	}
	return count, nil
}

func (r *PostgresSummaryJobsRepository) AdvanceStatus(
	ctx context.Context,
	jobID string,
	from domain.Status,
	to domain.Status,
) (*domain.SummaryJob, error) {
	if !from.CanTransition(to) {
		return nil, ErrStatusConflict
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE summary_jobs
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+summaryJobColumns, jobID, string(from), string(to), time.Now().UTC())

	job, err := scanSummaryJob(row)
	if err == ErrNotFound {
		return nil, r.resolveConflict(ctx, jobID)
	}
	return job, err
}

func (r *PostgresSummaryJobsRepository) MarkCompleted(
	ctx context.Context,
	jobID string,
	result domain.SummaryResult,
) (*domain.SummaryJob, error) {
	keyPoints, actionItems, err := encodeResultLists(result.KeyPoints, result.ActionItems)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE summary_jobs
		SET status = $2,
			status_detail = '',
			summary = $3,
			key_points = $4,
			action_items = $5,
			updated_at = $6
		WHERE id = $1 AND status = $7
		RETURNING `+summaryJobColumns,
		jobID,
		string(domain.StatusCompleted),
		result.Summary,
		keyPoints,
		actionItems,
		time.Now().UTC(),
		string(domain.StatusSummarizing),
	)

	job, scanErr := scanSummaryJob(row)
	if scanErr == ErrNotFound {
		return nil, r.resolveConflict(ctx, jobID)
	}
	return job, scanErr
}

func (r *PostgresSummaryJobsRepository) MarkFailed(
	ctx context.Context,
	jobID string,
	detail string,
) (*domain.SummaryJob, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE summary_jobs
		SET status = $2, status_detail = $3, updated_at = $4
		WHERE id = $1 AND status NOT IN ($5, $6)
		RETURNING `+summaryJobColumns,
		jobID,
		string(domain.StatusFailed),
		detail,
		time.Now().UTC(),
		string(domain.StatusCompleted),
		string(domain.StatusFailed),
	)

	job, err := scanSummaryJob(row)
	if err == ErrNotFound {
		return nil, r.resolveConflict(ctx, jobID)
	}
	return job, err
}

// resolveConflict distinguishes "record absent" from "record exists but
// the conditional update did not apply".
func (r *PostgresSummaryJobsRepository) resolveConflict(ctx context.Context, jobID string) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM summary_jobs WHERE id = $1)
	`, jobID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check job existence: %w", err)
	}
	if exists {
		return ErrStatusConflict
	}
	return ErrNotFound
}

func scanSummaryJob(row pgx.Row) (*domain.SummaryJob, error) {
	var (
		job         domain.SummaryJob
		status      string
		keyPoints   []byte
		actionItems []byte
	)

	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.FileName,
		&job.FileType,
		&job.FilePath,
		&status,
		&job.StatusDetail,
		&job.Summary,
		&keyPoints,
		&actionItems,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan summary job: %w", err)
	}

	job.Status = domain.Status(status)
	if len(keyPoints) > 0 {
		if err := json.Unmarshal(keyPoints, &job.KeyPoints); err != nil {
			return nil, fmt.Errorf("decode key_points: %w", err)
		}
	}
	if len(actionItems) > 0 {
		if err := json.Unmarshal(actionItems, &job.ActionItems); err != nil {
			return nil, fmt.Errorf("decode action_items: %w", err)
		}
	}
	return &job, nil
}

func encodeResultLists(keyPoints, actionItems []string) ([]byte, []byte, error) {
	if keyPoints == nil {
		keyPoints = []string{}
	}
	if actionItems == nil {
		actionItems = []string{}
	}
	encodedKeyPoints, err := json.Marshal(keyPoints)
	if err != nil {
		return nil, nil, fmt.Errorf("encode key_points: %w", err)
	}
	encodedActionItems, err := json.Marshal(actionItems)
	if err != nil {
		return nil, nil, fmt.Errorf("encode action_items: %w", err)
	}
	return encodedKeyPoints, encodedActionItems, nil
}
