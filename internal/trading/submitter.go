package trading

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	clobclient "github.com/polyterm/polyterm/clob/client"
	clobtypes "github.com/polyterm/polyterm/clob/types"
	"github.com/polyterm/polyterm/internal/feepolicy"
	"github.com/polyterm/polyterm/internal/ports"
)

// SubmitRequest carries an already-signed order plus the caller's claimed
// wallet and exchange credentials.
type SubmitRequest struct {
	WalletAddress string
	Creds         *clobtypes.ApiKeyCreds
	Order         *clobtypes.SignedOrder
	OrderType     clobtypes.OrderType
	// TradeAmount is the notional hint for the solvency precondition.
	// When nil (or the fee wallet is unconfigured) the balance check is
	// skipped.
	TradeAmount *decimal.Decimal
}

// SubmitResult is the exchange's acceptance of an order.
type SubmitResult struct {
	OrderID string
	Raw     *clobtypes.OrderResponse
	// FeeDue is the platform fee the caller is expected to collect for this
	// trade (zero when no trade amount hint was supplied or fees are off).
	FeeDue decimal.Decimal
}

// Submitter validates preconditions and forwards a signed order to the
// exchange. It performs no retries: an order either succeeds, is definitively
// rejected, or fails in transport. Retrying a partially-submitted order
// risks duplicate fills and must be a deliberate caller decision.
type Submitter struct {
	exchange ports.OrderPoster
	balances ports.BalanceReader
	policy   *feepolicy.Policy
	log      *logrus.Entry
}

// NewSubmitter wires a Submitter.
func NewSubmitter(
	exchange ports.OrderPoster,
	balances ports.BalanceReader,
	policy *feepolicy.Policy,
	log *logrus.Entry,
) *Submitter {
	return &Submitter{
		exchange: exchange,
		balances: balances,
		policy:   policy,
		log:      log,
	}
}

// SubmitOrder runs precondition checks and posts the order.
func (s *Submitter) SubmitOrder(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.Order == nil {
		return nil, invalidRequest("signed order is required")
	}
	if req.Creds == nil || req.Creds.Key == "" {
		return nil, invalidRequest("exchange credentials are required")
	}
	orderType := req.OrderType
	if orderType == "" {
		orderType = clobtypes.OrderTypeGTC
	}

	// The maker on the signed order must be the wallet the caller claims.
	// Rejecting here prevents submitting an order signed by one wallet under
	// credentials belonging to another.
	if !strings.EqualFold(req.Order.Maker, req.WalletAddress) {
		s.log.WithFields(logrus.Fields{
			"claimed": req.WalletAddress,
			"maker":   req.Order.Maker,
		}).Warn("order maker does not match claimed wallet address")
		return nil, newErr(CodeAddressMismatch, "order maker does not match wallet address")
	}

	feeDue := decimal.Zero
	if s.policy.Enabled() && req.TradeAmount != nil {
		totalDue := s.policy.TotalDue(*req.TradeAmount)
		feeDue = s.policy.Fee(*req.TradeAmount)

		// Solvency check happens strictly before the exchange call. On RPC
		// failure we fail closed: cannot verify solvency != solvent.
		balance, err := s.balances.CollateralBalance(ctx, common.HexToAddress(req.WalletAddress))
		if err != nil {
			return nil, wrapErr(CodeTransport, "cannot verify solvency", err)
		}
		if balance.LessThan(totalDue) {
			return nil, insufficientBalance(CodeInsufficientBalance, totalDue.Sub(balance))
		}
	}

	resp, err := s.exchange.PostOrder(ctx, req.WalletAddress, req.Creds, req.Order, orderType, false)
	if err != nil {
		var rej *clobclient.RejectionError
		if errors.As(err, &rej) {
			return nil, &Error{
				Code:    CodeExchangeRejection,
				Message: string(rej.Category),
				RawCode: rej.RawCode,
				cause:   rej,
			}
		}
		return nil, wrapErr(CodeTransport, "exchange call failed", err)
	}

	return &SubmitResult{
		OrderID: resp.OrderID,
		Raw:     resp,
		FeeDue:  feeDue,
	}, nil
}
