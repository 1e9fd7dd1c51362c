// Package ports holds small capability interfaces shared across layers.
//
// NOTE: intentionally a "neutral" package so the trading services depend on
// behavior, not on the CLOB client / ethclient / sqlite concretions, and so
// tests can substitute stubs.
package ports

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	clobtypes "github.com/polyterm/polyterm/clob/types"
	"github.com/polyterm/polyterm/internal/ledger"
	"github.com/polyterm/polyterm/internal/wallets"
)

// WalletSource loads custodial wallets.
type WalletSource interface {
	GetByUser(ctx context.Context, userID string) (*wallets.CustodialWallet, error)
}

// NonceSource fetches the exchange nonce for a wallet address.
type NonceSource interface {
	FetchNonce(ctx context.Context, address string) (int64, error)
}

// OrderPoster submits a signed order to the exchange. One shot, no retries.
type OrderPoster interface {
	PostOrder(
		ctx context.Context,
		address string,
		creds *clobtypes.ApiKeyCreds,
		order *clobtypes.SignedOrder,
		orderType clobtypes.OrderType,
		deferExec bool,
	) (*clobtypes.OrderResponse, error)
}

// BalanceReader reads on-chain collateral balances in whole token units.
type BalanceReader interface {
	CollateralBalance(ctx context.Context, address common.Address) (decimal.Decimal, error)
}

// CollateralTransferor broadcasts an ERC-20 transfer and waits for one
// confirmation.
type CollateralTransferor interface {
	TransferCollateral(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, amount decimal.Decimal) (common.Hash, error)
	WaitConfirmed(ctx context.Context, txHash common.Hash, maxWait time.Duration) (*ethtypes.Receipt, error)
}

// FeeLedger appends fee-collection records. Append-only.
type FeeLedger interface {
	Append(ctx context.Context, r *ledger.TradingFeeRecord) error
}
