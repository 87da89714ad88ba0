package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresPaymentsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPaymentsRepository(pool *pgxpool.Pool) *PostgresPaymentsRepository {
	return &PostgresPaymentsRepository{pool: pool}
}

func (r *PostgresPaymentsRepository) HasTransaction(ctx context.Context, signature string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM processed_transactions WHERE signature = $1)
	`, signature).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transaction: %w", err)
	}
	return exists, nil
}

func (r *PostgresPaymentsRepository) RecordTransaction(ctx context.Context, tx *domain.ProcessedTransaction) error {
	recordedAt := tx.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	command, err := r.pool.Exec(ctx, `
		INSERT INTO processed_transactions (signature, plan, amount, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (signature) DO NOTHING
	`, tx.Signature, tx.Plan, tx.Amount, recordedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}
