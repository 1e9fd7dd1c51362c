// Package api exposes the trading core over HTTP. Callers are the terminal's
// own backend services; the X-User-ID header identifies the custodial account
// and is assumed to be set by an upstream auth layer.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/polyterm/polyterm/internal/credstore"
	"github.com/polyterm/polyterm/internal/ledger"
	"github.com/polyterm/polyterm/internal/trading"
	"github.com/polyterm/polyterm/internal/wallets"
)

const userHeader = "X-User-ID"

type Server struct {
	wallets     *wallets.Store
	provisioner *wallets.Provisioner
	signer      *trading.Signer
	submitter   *trading.Submitter
	collector   *trading.Collector
	creds       *credstore.Store
	feeLedger   *ledger.Store
	log         *logrus.Entry
}

func New(
	walletStore *wallets.Store,
	provisioner *wallets.Provisioner,
	signer *trading.Signer,
	submitter *trading.Submitter,
	collector *trading.Collector,
	creds *credstore.Store,
	feeLedger *ledger.Store,
	log *logrus.Entry,
) *Server {
	return &Server{
		wallets:     walletStore,
		provisioner: provisioner,
		signer:      signer,
		submitter:   submitter,
		collector:   collector,
		creds:       creds,
		feeLedger:   feeLedger,
		log:         log,
	}
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.Use(s.requireUser)

	api.POST("/wallets", s.handleWalletProvision)
	api.GET("/wallets/me", s.handleWalletGet)

	api.PUT("/credentials", s.handleCredentialsPut)

	api.POST("/orders/sign", s.handleOrderSign)
	api.POST("/orders/submit", s.handleOrderSubmit)
	api.POST("/orders", s.handleOrderPlace)

	api.POST("/fees/collect", s.handleFeeCollect)
	api.GET("/fees", s.handleFeeList)

	return r
}

// requireUser rejects requests without a user identity.
func (s *Server) requireUser(c *gin.Context) {
	if c.GetHeader(userHeader) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + userHeader + " header"})
		return
	}
	c.Next()
}

func userID(c *gin.Context) string {
	return c.GetHeader(userHeader)
}

// writeTradingError maps core error codes onto HTTP statuses and renders the
// stable JSON envelope.
func (s *Server) writeTradingError(c *gin.Context, err error) {
	te, ok := trading.AsError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	body := gin.H{
		"error": te.Message,
		"code":  string(te.Code),
	}
	if te.Shortfall != nil {
		body["shortfall"] = te.Shortfall.String()
	}
	if te.RawCode != "" {
		body["exchange_code"] = te.RawCode
	}
	if te.TxHash != "" {
		body["tx_hash"] = te.TxHash
	}

	c.JSON(statusFor(te.Code), body)
}

func statusFor(code trading.Code) int {
	switch code {
	case trading.CodeInvalidRequest:
		return http.StatusBadRequest
	case trading.CodeWalletNotFound:
		return http.StatusNotFound
	case trading.CodeAddressMismatch:
		return http.StatusForbidden
	case trading.CodeInsufficientBalance, trading.CodeInsufficientBalanceForFee:
		return http.StatusPaymentRequired
	case trading.CodeExchangeRejection:
		return http.StatusUnprocessableEntity
	case trading.CodeTransport, trading.CodeFeeCollectionFailure:
		return http.StatusBadGateway
	default:
		// CONFIGURATION_ERROR, WALLET_INTEGRITY_ERROR
		return http.StatusInternalServerError
	}
}
