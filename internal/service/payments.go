package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/brieflyhq/briefly-back/internal/repository"
	"github.com/brieflyhq/briefly-back/internal/solana"
)

var (
	ErrPaymentReplay       = errors.New("transaction already used")
	ErrPaymentNotFound     = errors.New("transaction not found on chain")
	ErrPaymentFailed       = errors.New("transaction failed on chain")
	ErrPaymentWrongWallet  = errors.New("transaction does not pay the expected wallet")
	ErrPaymentWrongAmount  = errors.New("transaction amount does not match")
	ErrPaymentUnconfigured = errors.New("payment verification is not configured")
)

// TransactionFetcher is the chain lookup the verifier depends on.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

type PaymentsConfig struct {
	RecipientWallet string
	AmountTolerance float64
}

// PaymentsService verifies a client-submitted payment signature against
// the chain. The replay check runs before the RPC call so a known
// signature never costs a network round trip, and the signature is
// recorded only after every other check has passed.
type PaymentsService struct {
	payments repository.PaymentsRepository
	chain    TransactionFetcher
	logger   *log.Logger

	recipientWallet string
	amountTolerance float64
}

func NewPaymentsService(
	payments repository.PaymentsRepository,
	chain TransactionFetcher,
	config PaymentsConfig,
	logger *log.Logger,
) *PaymentsService {
	if logger == nil {
		logger = log.Default()
	}
	if config.AmountTolerance <= 0 {
		config.AmountTolerance = 0.0001
	}
	return &PaymentsService{
		payments:        payments,
		chain:           chain,
		logger:          logger,
		recipientWallet: strings.TrimSpace(config.RecipientWallet),
		amountTolerance: config.AmountTolerance,
	}
}

// Verify checks one signature for one expected SOL amount. All reasons
// for rejection map to distinct sentinel errors so the handler can give
// the client a precise failure code.
func (s *PaymentsService) Verify(ctx context.Context, signature, plan string, expectedAmount float64) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errors.New("signature is required")
	}
	if expectedAmount <= 0 {
		return errors.New("expected amount must be positive")
	}
	if s.recipientWallet == "" {
		return ErrPaymentUnconfigured
	}

	seen, err := s.payments.HasTransaction(ctx, signature)
	if err != nil {
		return fmt.Errorf("replay lookup: %w", err)
	}
	if seen {
		return ErrPaymentReplay
	}

	transaction, err := s.chain.GetTransaction(ctx, signature)
	if err != nil {
		if errors.Is(err, solana.ErrTransactionNotFound) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("fetch transaction: %w", err)
	}
	if transaction.Failed {
		return ErrPaymentFailed
	}

	matched := false
	for _, transfer := range transaction.Transfers {
		if transfer.Destination != s.recipientWallet {
			continue
		}
		matched = true
		if math.Abs(transfer.AmountSOL()-expectedAmount) <= s.amountTolerance {
			record := &domain.ProcessedTransaction{
				Signature:  signature,
				Plan:       plan,
				Amount:     transfer.AmountSOL(),
				RecordedAt: time.Now().UTC(),
			}
			if err := s.payments.RecordTransaction(ctx, record); err != nil {
				if errors.Is(err, repository.ErrDuplicateTransaction) {
					return ErrPaymentReplay
				}
				return fmt.Errorf("record transaction: %w", err)
			}
			s.logger.Printf("verified payment %s for plan %s (%.4f SOL)", signature, plan, transfer.AmountSOL())
			return nil
		}
	}

	if matched {
		return ErrPaymentWrongAmount
	}
	return ErrPaymentWrongWallet
}
