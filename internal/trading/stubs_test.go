package trading

import (
	"context"
	"crypto/ecdsa"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	clobtypes "github.com/polyterm/polyterm/clob/types"
	"github.com/polyterm/polyterm/internal/ledger"
	"github.com/polyterm/polyterm/internal/wallets"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type stubWallets struct {
	wallet *wallets.CustodialWallet
	err    error
}

func (s *stubWallets) GetByUser(_ context.Context, _ string) (*wallets.CustodialWallet, error) {
	return s.wallet, s.err
}

type stubNonces struct {
	nonce int64
	err   error
}

func (s *stubNonces) FetchNonce(_ context.Context, _ string) (int64, error) {
	return s.nonce, s.err
}

type stubPoster struct {
	calls int
	resp  *clobtypes.OrderResponse
	err   error
}

func (s *stubPoster) PostOrder(
	_ context.Context,
	_ string,
	_ *clobtypes.ApiKeyCreds,
	_ *clobtypes.SignedOrder,
	_ clobtypes.OrderType,
	_ bool,
) (*clobtypes.OrderResponse, error) {
	s.calls++
	return s.resp, s.err
}

type stubBalances struct {
	balance decimal.Decimal
	err     error
}

func (s *stubBalances) CollateralBalance(_ context.Context, _ common.Address) (decimal.Decimal, error) {
	return s.balance, s.err
}

type stubChain struct {
	transferCalls int
	txHash        common.Hash
	transferErr   error
	confirmErr    error
}

func (s *stubChain) TransferCollateral(_ context.Context, _ *ecdsa.PrivateKey, _ common.Address, _ decimal.Decimal) (common.Hash, error) {
	s.transferCalls++
	if s.transferErr != nil {
		return common.Hash{}, s.transferErr
	}
	return s.txHash, nil
}

func (s *stubChain) WaitConfirmed(_ context.Context, txHash common.Hash, _ time.Duration) (*ethtypes.Receipt, error) {
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: txHash}, nil
}

type stubLedger struct {
	records []ledger.TradingFeeRecord
	err     error
}

func (s *stubLedger) Append(_ context.Context, r *ledger.TradingFeeRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, *r)
	return nil
}
