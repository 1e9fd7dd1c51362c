package trading

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/polyterm/polyterm/internal/feepolicy"
	"github.com/polyterm/polyterm/internal/ledger"
	"github.com/polyterm/polyterm/internal/ports"
	"github.com/polyterm/polyterm/internal/vault"
	"github.com/polyterm/polyterm/internal/wallets"
)

const confirmWait = 2 * time.Minute

// CollectRequest asks for the platform fee on one trade to be swept from the
// user's custodial wallet to the fee wallet.
type CollectRequest struct {
	UserID      string
	OrderID     string
	TradeAmount decimal.Decimal
}

// CollectResult reports a completed fee collection.
type CollectResult struct {
	FeeAmount       decimal.Decimal
	TransactionHash string
	RecordID        string
}

// Collector sweeps platform fees on-chain and writes the audit trail.
//
// Ledger discipline: precondition failures (bad request, fees disabled,
// wallet problems, insufficient balance) write nothing, because no transfer
// was attempted. Once a transfer is broadcast, exactly one record is written
// for the attempt, collected or failed, and a failed record keeps the tx hash
// for reconciliation.
type Collector struct {
	wallets  ports.WalletSource
	vault    *vault.Vault
	balances ports.BalanceReader
	chain    ports.CollateralTransferor
	ledger   ports.FeeLedger
	policy   *feepolicy.Policy
	log      *logrus.Entry
}

// NewCollector wires a Collector.
func NewCollector(
	wallets ports.WalletSource,
	v *vault.Vault,
	balances ports.BalanceReader,
	chain ports.CollateralTransferor,
	feeLedger ports.FeeLedger,
	policy *feepolicy.Policy,
	log *logrus.Entry,
) *Collector {
	return &Collector{
		wallets:  wallets,
		vault:    v,
		balances: balances,
		chain:    chain,
		ledger:   feeLedger,
		policy:   policy,
		log:      log,
	}
}

// CollectFee computes the fee for the trade and transfers it to the fee
// wallet.
func (c *Collector) CollectFee(ctx context.Context, req CollectRequest) (*CollectResult, error) {
	if req.UserID == "" {
		return nil, invalidRequest("user id is required")
	}
	if !req.TradeAmount.IsPositive() {
		return nil, invalidRequest("trade amount must be positive, got %s", req.TradeAmount)
	}
	if !c.policy.Enabled() {
		return nil, newErr(CodeConfiguration, "fee collection is not configured")
	}

	fee := c.policy.Fee(req.TradeAmount)
	if fee.IsZero() {
		return nil, invalidRequest("computed fee is zero for trade amount %s", req.TradeAmount)
	}

	w, err := c.wallets.GetByUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, wallets.ErrNotFound) {
			return nil, newErr(CodeWalletNotFound, "no custodial wallet for user")
		}
		return nil, wrapErr(CodeTransport, "load wallet", err)
	}

	// Same integrity gate as signing: collection runs with its own decrypt,
	// never with a key handed over from an earlier operation.
	key, err := openWalletKey(c.vault, w, req.UserID, c.log)
	if err != nil {
		return nil, err
	}
	defer key.destroy()

	balance, err := c.balances.CollateralBalance(ctx, common.HexToAddress(w.Address))
	if err != nil {
		return nil, wrapErr(CodeTransport, "cannot verify fee balance", err)
	}
	if balance.LessThan(fee) {
		return nil, insufficientBalance(CodeInsufficientBalanceForFee, fee.Sub(balance))
	}

	txHash, err := c.chain.TransferCollateral(ctx, key.priv, common.HexToAddress(c.policy.FeeWallet()), fee)
	if err != nil {
		// Broadcast never happened; nothing on chain to reconcile, but the
		// attempt is recorded so operators see the failure.
		c.appendRecord(ctx, req, w.Address, fee, "", ledger.StatusFailed, nil)
		return nil, &Error{Code: CodeFeeCollectionFailure, Message: "fee transfer broadcast failed", cause: err}
	}

	if _, err := c.chain.WaitConfirmed(ctx, txHash, confirmWait); err != nil {
		c.appendRecord(ctx, req, w.Address, fee, txHash.Hex(), ledger.StatusFailed, nil)
		return nil, &Error{
			Code:    CodeFeeCollectionFailure,
			Message: "fee transfer not confirmed",
			TxHash:  txHash.Hex(),
			cause:   err,
		}
	}

	now := time.Now().UTC()
	recordID := c.appendRecord(ctx, req, w.Address, fee, txHash.Hex(), ledger.StatusCollected, &now)

	return &CollectResult{
		FeeAmount:       fee,
		TransactionHash: txHash.Hex(),
		RecordID:        recordID,
	}, nil
}

// appendRecord writes the single ledger row for this attempt. A write failure
// after a confirmed transfer must not turn a successful collection into an
// error, so the failure is logged and swallowed.
func (c *Collector) appendRecord(
	ctx context.Context,
	req CollectRequest,
	walletAddr string,
	fee decimal.Decimal,
	txHash string,
	status string,
	collectedAt *time.Time,
) string {
	rec := &ledger.TradingFeeRecord{
		UserID:          req.UserID,
		WalletAddress:   walletAddr,
		TradeAmount:     req.TradeAmount,
		FeeAmount:       fee,
		FeeRate:         c.policy.Rate(),
		TransactionHash: txHash,
		OrderID:         req.OrderID,
		Status:          status,
		CollectedAt:     collectedAt,
	}
	if err := c.ledger.Append(ctx, rec); err != nil {
		c.log.WithFields(logrus.Fields{
			"user_id": req.UserID,
			"tx_hash": txHash,
			"status":  status,
		}).WithError(err).Error("fee ledger write failed, record lost")
	}
	return rec.ID
}
