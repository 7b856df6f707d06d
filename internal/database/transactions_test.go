package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"nfc-wallet-go/internal/store"
)

func TestGetTransactionHistory_PaginatesNewestFirst(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	payer := seedWallet(t, service, "payer", 100000)
	merchant := seedWallet(t, service, "merchant", 0)

	for i := 0; i < 5; i++ {
		params := settleParams(payer, merchant, 1000, fmt.Sprintf("nonce-%d", i))
		if _, err := service.Settle(ctx, params); err != nil {
			t.Fatalf("Settle %d failed: %v", i, err)
		}
	}

	page, total, err := service.GetTransactionHistory(ctx, payer.Id, 2, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(page) != 2 {
		t.Errorf("Expected page of 2, got %d", len(page))
	}

	rest, _, err := service.GetTransactionHistory(ctx, payer.Id, 10, 2)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("Expected remaining 3, got %d", len(rest))
	}
}

func TestGetTransactionHistory_CoversBothSides(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	payer := seedWallet(t, service, "payer", 100000)
	merchant := seedWallet(t, service, "merchant", 0)

	if _, err := service.Settle(ctx, settleParams(payer, merchant, 1000, "nonce-1")); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	_, payerTotal, err := service.GetTransactionHistory(ctx, payer.Id, 10, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	_, merchantTotal, err := service.GetTransactionHistory(ctx, merchant.Id, 10, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}

	if payerTotal != 1 || merchantTotal != 1 {
		t.Errorf("Expected the entry on both sides, got payer=%d merchant=%d", payerTotal, merchantTotal)
	}
}

func TestGetTransaction_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.GetTransaction(context.Background(), "missing")
	if !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("Expected ErrTransactionNotFound, got %v", err)
	}
}

func TestGetTransaction_RoundTripsFields(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	payer := seedWallet(t, service, "payer", 100000)
	merchant := seedWallet(t, service, "merchant", 0)

	params := settleParams(payer, merchant, 2500, "nonce-1")
	params.IdempotencyKey = "key-1"
	settled, err := service.Settle(ctx, params)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	fetched, err := service.GetTransaction(ctx, settled.Id)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if fetched.Amount != 2500 {
		t.Errorf("Expected amount 2500, got %d", fetched.Amount)
	}
	if fetched.Nonce != "nonce-1" {
		t.Errorf("Expected nonce round-trip, got %q", fetched.Nonce)
	}
	if fetched.IdempotencyKey != "key-1" {
		t.Errorf("Expected idempotency key round-trip, got %q", fetched.IdempotencyKey)
	}
}
