// Package ledger persists the trading-fee audit trail. The table is
// append-only: one row per collection attempt, written once with its terminal
// status, never updated. Failed rows are the input for manual reconciliation
// against the chain.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fee record status. A failed collection is never silently retried.
const (
	StatusPending   = "pending"
	StatusCollected = "collected"
	StatusFailed    = "failed"
)

// TradingFeeRecord is one fee-collection attempt. The record exists whether
// or not the on-chain transfer succeeded, so ledger state can be reconciled
// against the chain.
type TradingFeeRecord struct {
	ID              string
	UserID          string
	WalletAddress   string
	TradeAmount     decimal.Decimal
	FeeAmount       decimal.Decimal
	FeeRate         decimal.Decimal
	TransactionHash string
	OrderID         string
	Status          string
	CollectedAt     *time.Time
	CreatedAt       time.Time
}

// Store is the SQLite-backed fee ledger.
type Store struct {
	db *sql.DB
}

// NewStore wires a Store and runs its migration.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS trading_fee_records (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  wallet_address TEXT NOT NULL,
  trade_amount TEXT NOT NULL,
  fee_amount TEXT NOT NULL,
  fee_rate TEXT NOT NULL,
  transaction_hash TEXT,
  order_id TEXT,
  status TEXT NOT NULL,
  collected_at TEXT,
  created_at TEXT NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("migrate trading_fee_records: %w", err)
	}
	return nil
}

// Append writes one record. The row is immutable after this call; there is
// deliberately no update method on this store.
func (s *Store) Append(ctx context.Context, r *TradingFeeRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	var collectedAt any
	if r.CollectedAt != nil {
		collectedAt = r.CollectedAt.Format(time.RFC3339Nano)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO trading_fee_records
  (id,user_id,wallet_address,trade_amount,fee_amount,fee_rate,transaction_hash,order_id,status,collected_at,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
`,
		r.ID,
		r.UserID,
		r.WalletAddress,
		r.TradeAmount.String(),
		r.FeeAmount.String(),
		r.FeeRate.String(),
		r.TransactionHash,
		r.OrderID,
		r.Status,
		collectedAt,
		r.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ListByUser returns the user's fee records, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]TradingFeeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id,user_id,wallet_address,trade_amount,fee_amount,fee_rate,transaction_hash,order_id,status,collected_at,created_at
FROM trading_fee_records WHERE user_id=? ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListFailed returns failed collections for manual reconciliation.
func (s *Store) ListFailed(ctx context.Context) ([]TradingFeeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id,user_id,wallet_address,trade_amount,fee_amount,fee_rate,transaction_hash,order_id,status,collected_at,created_at
FROM trading_fee_records WHERE status=? ORDER BY created_at DESC
`, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]TradingFeeRecord, error) {
	var out []TradingFeeRecord
	for rows.Next() {
		var r TradingFeeRecord
		var trade, fee, rate, created string
		var txHash, orderID, collected sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.WalletAddress, &trade, &fee, &rate,
			&txHash, &orderID, &r.Status, &collected, &created); err != nil {
			return nil, err
		}
		var err error
		if r.TradeAmount, err = decimal.NewFromString(trade); err != nil {
			return nil, fmt.Errorf("bad trade_amount %q: %w", trade, err)
		}
		if r.FeeAmount, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("bad fee_amount %q: %w", fee, err)
		}
		if r.FeeRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("bad fee_rate %q: %w", rate, err)
		}
		r.TransactionHash = txHash.String
		r.OrderID = orderID.String
		if collected.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, collected.String); err == nil {
				r.CollectedAt = &ts
			}
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
