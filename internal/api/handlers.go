package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	clobtypes "github.com/polyterm/polyterm/clob/types"
	"github.com/polyterm/polyterm/internal/credstore"
	"github.com/polyterm/polyterm/internal/trading"
	"github.com/polyterm/polyterm/internal/wallets"
)

func (s *Server) handleWalletProvision(c *gin.Context) {
	w, err := s.provisioner.Provision(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, wallets.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "wallet already exists"})
			return
		}
		s.log.WithField("user_id", userID(c)).WithError(err).Error("wallet provisioning failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wallet provisioning failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"address":    w.Address,
		"created_at": w.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleWalletGet(c *gin.Context) {
	w, err := s.wallets.GetByUser(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, wallets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no wallet for user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":    w.Address,
		"created_at": w.CreatedAt.Format(time.RFC3339),
	})
}

type credentialsRequest struct {
	Key        string `json:"key"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

func (s *Server) handleCredentialsPut(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	creds := &clobtypes.ApiKeyCreds{Key: req.Key, Secret: req.Secret, Passphrase: req.Passphrase}
	if err := s.creds.Put(userID(c), creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type orderRequest struct {
	TokenID    string `json:"token_id"`
	Side       string `json:"side"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	NegRisk    bool   `json:"neg_risk"`
	OrderType  string `json:"order_type"`
	FeeRateBps int64  `json:"fee_rate_bps"`
	Expiration int64  `json:"expiration"`
}

func (r *orderRequest) toSignRequest() (trading.SignRequest, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return trading.SignRequest{}, errors.New("price must be a decimal string")
	}
	size, err := decimal.NewFromString(r.Size)
	if err != nil {
		return trading.SignRequest{}, errors.New("size must be a decimal string")
	}
	return trading.SignRequest{
		TokenID:    r.TokenID,
		Side:       clobtypes.Side(r.Side),
		Price:      price,
		Size:       size,
		NegRisk:    r.NegRisk,
		FeeRateBps: r.FeeRateBps,
		Expiration: r.Expiration,
	}, nil
}

func (s *Server) handleOrderSign(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	signReq, err := req.toSignRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.signer.SignOrder(c.Request.Context(), userID(c), signReq)
	if err != nil {
		s.writeTradingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// handleOrderPlace signs and submits in one call. Fee collection stays a
// separate request so a fee-side failure never blocks order placement.
func (s *Server) handleOrderPlace(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	signReq, err := req.toSignRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid := userID(c)

	creds, err := s.creds.Get(uid)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no exchange credentials for user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	order, err := s.signer.SignOrder(c.Request.Context(), uid, signReq)
	if err != nil {
		s.writeTradingError(c, err)
		return
	}

	tradeAmount := signReq.Size.Truncate(2).Mul(signReq.Price).Truncate(4)
	res, err := s.submitter.SubmitOrder(c.Request.Context(), trading.SubmitRequest{
		WalletAddress: order.Maker,
		Creds:         creds,
		Order:         order,
		OrderType:     clobtypes.OrderType(req.OrderType),
		TradeAmount:   &tradeAmount,
	})
	if err != nil {
		s.writeTradingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":     res.OrderID,
		"fee_due":      res.FeeDue.String(),
		"trade_amount": tradeAmount.String(),
	})
}

type submitOrderRequest struct {
	Order       clobtypes.SignedOrder `json:"order"`
	OrderType   string                `json:"order_type"`
	TradeAmount string                `json:"trade_amount"`
}

// handleOrderSubmit forwards an already-signed order. The order's maker is
// checked against the user's custodial wallet, so a signed payload cannot be
// replayed under another user's credentials.
func (s *Server) handleOrderSubmit(c *gin.Context) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	uid := userID(c)

	w, err := s.wallets.GetByUser(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, wallets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no wallet for user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	creds, err := s.creds.Get(uid)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no exchange credentials for user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var tradeAmount *decimal.Decimal
	if req.TradeAmount != "" {
		v, err := decimal.NewFromString(req.TradeAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "trade_amount must be a decimal string"})
			return
		}
		tradeAmount = &v
	}

	res, err := s.submitter.SubmitOrder(c.Request.Context(), trading.SubmitRequest{
		WalletAddress: w.Address,
		Creds:         creds,
		Order:         &req.Order,
		OrderType:     clobtypes.OrderType(req.OrderType),
		TradeAmount:   tradeAmount,
	})
	if err != nil {
		s.writeTradingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": res.OrderID,
		"fee_due":  res.FeeDue.String(),
	})
}

type collectRequest struct {
	OrderID     string `json:"order_id"`
	TradeAmount string `json:"trade_amount"`
}

func (s *Server) handleFeeCollect(c *gin.Context) {
	var req collectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	tradeAmount, err := decimal.NewFromString(req.TradeAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trade_amount must be a decimal string"})
		return
	}

	res, err := s.collector.CollectFee(c.Request.Context(), trading.CollectRequest{
		UserID:      userID(c),
		OrderID:     req.OrderID,
		TradeAmount: tradeAmount,
	})
	if err != nil {
		s.writeTradingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fee_amount": res.FeeAmount.String(),
		"tx_hash":    res.TransactionHash,
		"record_id":  res.RecordID,
	})
}

func (s *Server) handleFeeList(c *gin.Context) {
	records, err := s.feeLedger.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(records))
	for _, r := range records {
		item := gin.H{
			"id":           r.ID,
			"order_id":     r.OrderID,
			"trade_amount": r.TradeAmount.String(),
			"fee_amount":   r.FeeAmount.String(),
			"fee_rate":     r.FeeRate.String(),
			"status":       r.Status,
			"tx_hash":      r.TransactionHash,
			"created_at":   r.CreatedAt.Format(time.RFC3339),
		}
		if r.CollectedAt != nil {
			item["collected_at"] = r.CollectedAt.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}
