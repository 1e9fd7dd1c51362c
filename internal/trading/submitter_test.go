package trading

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clobclient "github.com/polyterm/polyterm/clob/client"
	clobtypes "github.com/polyterm/polyterm/clob/types"
	"github.com/polyterm/polyterm/internal/feepolicy"
)

const (
	testWalletAddr = "0x1111111111111111111111111111111111111111"
	testFeeWallet  = "0x2222222222222222222222222222222222222222"
)

func testCreds() *clobtypes.ApiKeyCreds {
	return &clobtypes.ApiKeyCreds{Key: "k", Secret: "c2VjcmV0", Passphrase: "p"}
}

func testOrder(maker string) *clobtypes.SignedOrder {
	return &clobtypes.SignedOrder{
		Salt:      1,
		Maker:     maker,
		Signer:    maker,
		Side:      clobtypes.SideBuy,
		Signature: "0xabcd",
	}
}

func TestSubmitOrderSuccess(t *testing.T) {
	poster := &stubPoster{resp: &clobtypes.OrderResponse{Success: true, OrderID: "ord-1"}}
	balances := &stubBalances{balance: d("100")}
	sub := NewSubmitter(poster, balances, feepolicy.New(decimal.Zero, testFeeWallet), testLog())

	trade := d("50")
	res, err := sub.SubmitOrder(context.Background(), SubmitRequest{
		WalletAddress: testWalletAddr,
		Creds:         testCreds(),
		Order:         testOrder(testWalletAddr),
		TradeAmount:   &trade,
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", res.OrderID)
	assert.True(t, res.FeeDue.Equal(d("1.25")))
	assert.Equal(t, 1, poster.calls)
}

func TestSubmitOrderAddressMismatchNeverReachesExchange(t *testing.T) {
	poster := &stubPoster{resp: &clobtypes.OrderResponse{Success: true}}
	sub := NewSubmitter(poster, &stubBalances{balance: d("100")}, feepolicy.New(decimal.Zero, testFeeWallet), testLog())

	_, err := sub.SubmitOrder(context.Background(), SubmitRequest{
		WalletAddress: testWalletAddr,
		Creds:         testCreds(),
		Order:         testOrder("0x3333333333333333333333333333333333333333"),
	})
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeAddressMismatch, te.Code)
	assert.Zero(t, poster.calls)
}

func TestSubmitOrderInsufficientBalanceShortfall(t *testing.T) {
	// $50 trade at 2.5% needs $51.25; with $40 on hand the shortfall is 11.25.
	poster := &stubPoster{}
	sub := NewSubmitter(poster, &stubBalances{balance: d("40")}, feepolicy.New(decimal.Zero, testFeeWallet), testLog())

	trade := d("50")
	_, err := sub.SubmitOrder(context.Background(), SubmitRequest{
		WalletAddress: testWalletAddr,
		Creds:         testCreds(),
		Order:         testOrder(testWalletAddr),
		TradeAmount:   &trade,
	})
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInsufficientBalance, te.Code)
	require.NotNil(t, te.Shortfall)
	assert.True(t, te.Shortfall.Equal(d("11.25")))
	assert.Zero(t, poster.calls)
}

func TestSubmitOrderBalanceReadFailureFailsClosed(t *testing.T) {
	poster := &stubPoster{}
	sub := NewSubmitter(poster, &stubBalances{err: errors.New("rpc timeout")}, feepolicy.New(decimal.Zero, testFeeWallet), testLog())

	trade := d("50")
	_, err := sub.SubmitOrder(context.Background(), SubmitRequest{
		WalletAddress: testWalletAddr,
		Creds:         testCreds(),
		Order:         testOrder(testWalletAddr),
		TradeAmount:   &trade,
	})
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTransport, te.Code)
	assert.Zero(t, poster.calls)
}

func TestSubmitOrderFeeDisabledSkipsBalanceCheck(t *testing.T) {
	poster := &stubPoster{resp: &clobtypes.OrderResponse{Success: true, OrderID: "ord-2"}}
	balances := &stubBalances{err: errors.New("rpc down")}
	sub := NewSubmitter(poster, balances, feepolicy.New(decimal.Zero, ""), testLog())

	trade := d("50")
	res, err := sub.SubmitOrder(context.Background(), SubmitRequest{
		WalletAddress: testWalletAddr,
		Creds:         testCreds(),
		Order:         testOrder(testWalletAddr),
		TradeAmount:   &trade,
	})
	require.NoError(t, err)
	assert.True(t, res.FeeDue.IsZero())
	assert.Equal(t, 1, poster.calls)
}

func TestSubmitOrderRejectionCarriesRawCode(t *testing.T) {
	rej := &clobclient.RejectionError{
		Category:   clobclient.RejectionBalance,
		RawCode:    "INVALID_ORDER_NOT_ENOUGH_BALANCE",
		StatusCode: 400,
	}
	poster := &stubPoster{err: rej}
	sub := NewSubmitter(poster, &stubBalances{balance: d("100")}, feepolicy.New(decimal.Zero, testFeeWallet), testLog())

	_, err := sub.SubmitOrder(context.Background(), SubmitRequest{
		WalletAddress: testWalletAddr,
		Creds:         testCreds(),
		Order:         testOrder(testWalletAddr),
	})
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeExchangeRejection, te.Code)
	assert.Equal(t, "INVALID_ORDER_NOT_ENOUGH_BALANCE", te.RawCode)
}

func TestSubmitOrderTransportError(t *testing.T) {
	poster := &stubPoster{err: errors.New("connection reset")}
	sub := NewSubmitter(poster, &stubBalances{balance: d("100")}, feepolicy.New(decimal.Zero, testFeeWallet), testLog())

	_, err := sub.SubmitOrder(context.Background(), SubmitRequest{
		WalletAddress: testWalletAddr,
		Creds:         testCreds(),
		Order:         testOrder(testWalletAddr),
	})
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTransport, te.Code)
}
