package service

import (
	"context"
	"errors"
	"testing"

	"github.com/brieflyhq/briefly-back/internal/repository"
	"github.com/brieflyhq/briefly-back/internal/solana"
)

type fakeChain struct {
	transaction *solana.Transaction
	err         error

	calls int
}

func (f *fakeChain) GetTransaction(_ context.Context, _ string) (*solana.Transaction, error) {
	f.calls++
	return f.transaction, f.err
}

func paymentOf(destination string, lamports uint64) *solana.Transaction {
	return &solana.Transaction{
		Signature: "sig-1",
		Transfers: []solana.Transfer{{
			Source:      "payer",
			Destination: destination,
			Lamports:    lamports,
		}},
	}
}

func newPaymentsService(chain TransactionFetcher) (*PaymentsService, *repository.MemoryPaymentsRepository) {
	payments := repository.NewMemoryPaymentsRepository()
	svc := NewPaymentsService(payments, chain, PaymentsConfig{
		RecipientWallet: "merchant",
		AmountTolerance: 0.0001,
	}, nil)
	return svc, payments
}

func TestVerifyAcceptsMatchingPayment(t *testing.T) {
	svc, payments := newPaymentsService(&fakeChain{transaction: paymentOf("merchant", 100_000_000)})

	if err := svc.Verify(context.Background(), "sig-1", "pro", 0.1); err != nil {
		t.Fatalf("verify: %v", err)
	}
	seen, _ := payments.HasTransaction(context.Background(), "sig-1")
	if !seen {
		t.Fatalf("signature should be recorded after verification")
	}
}

func TestVerifyRejectsReplayWithoutRPCCall(t *testing.T) {
	chain := &fakeChain{transaction: paymentOf("merchant", 100_000_000)}
	svc, _ := newPaymentsService(chain)

	if err := svc.Verify(context.Background(), "sig-1", "pro", 0.1); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	err := svc.Verify(context.Background(), "sig-1", "pro", 0.1)
	if !errors.Is(err, ErrPaymentReplay) {
		t.Fatalf("expected ErrPaymentReplay, got %v", err)
	}
	if chain.calls != 1 {
		t.Fatalf("replay must be rejected before the chain lookup, got %d calls", chain.calls)
	}
}

func TestVerifyRejectsWrongWallet(t *testing.T) {
	svc, payments := newPaymentsService(&fakeChain{transaction: paymentOf("someone-else", 100_000_000)})

	err := svc.Verify(context.Background(), "sig-1", "pro", 0.1)
	if !errors.Is(err, ErrPaymentWrongWallet) {
		t.Fatalf("expected ErrPaymentWrongWallet, got %v", err)
	}
	seen, _ := payments.HasTransaction(context.Background(), "sig-1")
	if seen {
		t.Fatalf("rejected signature must not be recorded")
	}
}

func TestVerifyRejectsWrongAmount(t *testing.T) {
	svc, _ := newPaymentsService(&fakeChain{transaction: paymentOf("merchant", 50_000_000)})

	err := svc.Verify(context.Background(), "sig-1", "pro", 0.1)
	if !errors.Is(err, ErrPaymentWrongAmount) {
		t.Fatalf("expected ErrPaymentWrongAmount, got %v", err)
	}
}

func TestVerifyToleratesTinyAmountDrift(t *testing.T) {
	// 0.09999 SOL against an expected 0.1 is inside the 0.0001 tolerance.
	svc, _ := newPaymentsService(&fakeChain{transaction: paymentOf("merchant", 99_990_000)})
	if err := svc.Verify(context.Background(), "sig-1", "pro", 0.1); err != nil {
		t.Fatalf("drift within tolerance should verify: %v", err)
	}
}

func TestVerifyRejectsOnChainFailure(t *testing.T) {
	transaction := paymentOf("merchant", 100_000_000)
	transaction.Failed = true
	svc, _ := newPaymentsService(&fakeChain{transaction: transaction})

	err := svc.Verify(context.Background(), "sig-1", "pro", 0.1)
	if !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
}

func TestVerifyRejectsUnknownSignature(t *testing.T) {
	svc, _ := newPaymentsService(&fakeChain{err: solana.ErrTransactionNotFound})

	err := svc.Verify(context.Background(), "sig-unknown", "pro", 0.1)
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestVerifyRequiresConfiguredWallet(t *testing.T) {
	svc := NewPaymentsService(repository.NewMemoryPaymentsRepository(), &fakeChain{}, PaymentsConfig{}, nil)

	err := svc.Verify(context.Background(), "sig-1", "pro", 0.1)
	if !errors.Is(err, ErrPaymentUnconfigured) {
		t.Fatalf("expected ErrPaymentUnconfigured, got %v", err)
	}
}
