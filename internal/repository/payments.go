package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
)

var ErrDuplicateTransaction = errors.New("transaction already processed")

// PaymentsRepository records verified payment signatures. Uniqueness of
// the signature is the replay guard.
type PaymentsRepository interface {
	HasTransaction(ctx context.Context, signature string) (bool, error)
	RecordTransaction(ctx context.Context, tx *domain.ProcessedTransaction) error
}

// MemoryPaymentsRepository stores processed transactions in memory for
// local development.
type MemoryPaymentsRepository struct {
	mu           sync.Mutex
	transactions map[string]domain.ProcessedTransaction
}

func NewMemoryPaymentsRepository() *MemoryPaymentsRepository {
	return &MemoryPaymentsRepository{
		transactions: make(map[string]domain.ProcessedTransaction),
	}
}

func (r *MemoryPaymentsRepository) HasTransaction(_ context.Context, signature string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.transactions[signature]
	return ok, nil
}

func (r *MemoryPaymentsRepository) RecordTransaction(_ context.Context, tx *domain.ProcessedTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transactions[tx.Signature]; ok {
		return ErrDuplicateTransaction
	}

	recorded := *tx
	if recorded.RecordedAt.IsZero() {
		recorded.RecordedAt = time.Now().UTC()
	}
	r.transactions[tx.Signature] = recorded
	return nil
}
