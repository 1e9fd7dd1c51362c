package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func TestAppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	rec := &TradingFeeRecord{
		UserID:          "user-1",
		WalletAddress:   "0xabc",
		TradeAmount:     decimal.NewFromInt(50),
		FeeAmount:       decimal.NewFromFloat(1.25),
		FeeRate:         decimal.NewFromFloat(0.025),
		TransactionHash: "0xdeadbeef",
		OrderID:         "order-1",
		Status:          StatusCollected,
		CollectedAt:     &now,
	}
	require.NoError(t, s.Append(ctx, rec))
	assert.NotEmpty(t, rec.ID)

	got, err := s.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StatusCollected, got[0].Status)
	assert.True(t, got[0].FeeAmount.Equal(decimal.NewFromFloat(1.25)))
	assert.Equal(t, "0xdeadbeef", got[0].TransactionHash)
	require.NotNil(t, got[0].CollectedAt)
}

func TestFailedRecordKeepsTxHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &TradingFeeRecord{
		UserID:          "user-2",
		WalletAddress:   "0xabc",
		TradeAmount:     decimal.NewFromInt(10),
		FeeAmount:       decimal.NewFromFloat(0.25),
		FeeRate:         decimal.NewFromFloat(0.025),
		TransactionHash: "0xreverted",
		Status:          StatusFailed,
	}
	require.NoError(t, s.Append(ctx, rec))

	failed, err := s.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "0xreverted", failed[0].TransactionHash)
	assert.Nil(t, failed[0].CollectedAt)
}

func TestOneRowPerAttempt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := &TradingFeeRecord{
			UserID:        "user-3",
			WalletAddress: "0xabc",
			TradeAmount:   decimal.NewFromInt(int64(i + 1)),
			FeeAmount:     decimal.NewFromFloat(0.1),
			FeeRate:       decimal.NewFromFloat(0.025),
			Status:        StatusFailed,
		}
		require.NoError(t, s.Append(ctx, rec))
	}

	got, err := s.ListByUser(ctx, "user-3")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
