package trading

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	clobclient "github.com/polyterm/polyterm/clob/client"
	"github.com/polyterm/polyterm/clob/signing"
	clobtypes "github.com/polyterm/polyterm/clob/types"
	"github.com/polyterm/polyterm/internal/ports"
	"github.com/polyterm/polyterm/internal/vault"
	"github.com/polyterm/polyterm/internal/wallets"
)

// SignRequest carries user-supplied trade parameters. Everything is validated
// before any key material is touched.
type SignRequest struct {
	TokenID    string
	Side       clobtypes.Side
	Price      decimal.Decimal
	Size       decimal.Decimal
	NegRisk    bool
	FeeRateBps int64
	Expiration int64
}

// Signer turns trade parameters plus the user's custodial wallet into a
// fully signed, exchange-ready order. The raw private key never leaves a
// single signing call.
type Signer struct {
	wallets   ports.WalletSource
	vault     *vault.Vault
	nonces    ports.NonceSource
	chainID   clobtypes.Chain
	contracts *clobclient.ContractConfig
	log       *logrus.Entry
}

// NewSigner wires a Signer for the given chain.
func NewSigner(
	walletSource ports.WalletSource,
	v *vault.Vault,
	nonces ports.NonceSource,
	chainID clobtypes.Chain,
	log *logrus.Entry,
) (*Signer, error) {
	contracts, err := clobclient.GetContractConfig(chainID)
	if err != nil {
		return nil, wrapErr(CodeConfiguration, "unsupported chain", err)
	}
	return &Signer{
		wallets:   walletSource,
		vault:     v,
		nonces:    nonces,
		chainID:   chainID,
		contracts: contracts,
		log:       log,
	}, nil
}

// SignOrder builds and signs an order for the authenticated user.
func (s *Signer) SignOrder(ctx context.Context, userID string, req SignRequest) (*clobtypes.SignedOrder, error) {
	tokenID, err := validateSignRequest(&req)
	if err != nil {
		return nil, err
	}

	w, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, wallets.ErrNotFound) {
			return nil, newErr(CodeWalletNotFound, "no custodial wallet for user")
		}
		return nil, wrapErr(CodeTransport, "load wallet", err)
	}

	key, err := s.openWalletKey(w, userID)
	if err != nil {
		return nil, err
	}

	makerAmount, takerAmount := orderAmounts(req.Side, req.Price, req.Size)

	// A failed or missing nonce response means a fresh wallet: use 0.
	nonce, err := s.nonces.FetchNonce(ctx, w.Address)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": userID,
			"wallet":  w.Address,
		}).WithError(err).Warn("nonce fetch failed, defaulting to 0")
		nonce = 0
	}

	orderData := &signing.OrderData{
		Salt:          rand.Int63(),
		Maker:         w.Address,
		Signer:        w.Address,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    big.NewInt(req.Expiration),
		Nonce:         big.NewInt(nonce),
		FeeRateBps:    big.NewInt(req.FeeRateBps),
		Side:          req.Side,
		SignatureType: clobtypes.SignatureTypeEOA,
	}

	exchangeAddress := s.contracts.ExchangeForMarket(req.NegRisk)

	signature, err := signing.BuildOrderSignature(key.priv, s.chainID, exchangeAddress, orderData)
	key.destroy()
	if err != nil {
		return nil, wrapErr(CodeTransport, "sign order", err)
	}

	return &clobtypes.SignedOrder{
		Salt:          orderData.Salt,
		Maker:         orderData.Maker,
		Signer:        orderData.Signer,
		Taker:         orderData.Taker,
		TokenID:       req.TokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Expiration:    orderData.Expiration.String(),
		Nonce:         orderData.Nonce.String(),
		FeeRateBps:    orderData.FeeRateBps.String(),
		Side:          req.Side,
		SignatureType: int(clobtypes.SignatureTypeEOA),
		Signature:     signature,
	}, nil
}

// openWalletKey decrypts the wallet key and re-verifies that the derived
// address matches the stored one. Any mismatch is a hard integrity failure.
// Shared by Signer and Collector; each caller re-checks, neither trusts the
// other's result.
func (s *Signer) openWalletKey(w *wallets.CustodialWallet, userID string) (*walletKey, error) {
	return openWalletKey(s.vault, w, userID, s.log)
}

func validateSignRequest(req *SignRequest) (*big.Int, error) {
	req.TokenID = strings.TrimSpace(req.TokenID)
	if req.TokenID == "" {
		return nil, invalidRequest("tokenId is required")
	}
	tokenID, ok := new(big.Int).SetString(req.TokenID, 10)
	if !ok || tokenID.Sign() < 0 {
		return nil, invalidRequest("tokenId %q is not a valid token id", req.TokenID)
	}
	if req.Side != clobtypes.SideBuy && req.Side != clobtypes.SideSell {
		return nil, invalidRequest("side must be BUY or SELL")
	}
	one := decimal.NewFromInt(1)
	if req.Price.LessThanOrEqual(decimal.Zero) || req.Price.GreaterThanOrEqual(one) {
		return nil, invalidRequest("price must be in (0, 1), got %s", req.Price)
	}
	if req.Size.LessThanOrEqual(decimal.Zero) {
		return nil, invalidRequest("size must be positive, got %s", req.Size)
	}
	return tokenID, nil
}
