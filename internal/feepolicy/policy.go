// Package feepolicy computes platform fees. Pure arithmetic, no I/O.
package feepolicy

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultRate is the platform fee as a fraction of trade notional (2.5%).
var DefaultRate = decimal.NewFromFloat(0.025)

// Policy is an immutable fee configuration.
type Policy struct {
	rate      decimal.Decimal
	feeWallet string
}

// New builds a policy. A zero rate is replaced by DefaultRate; an empty fee
// wallet disables collection entirely (Enabled reports false).
func New(rate decimal.Decimal, feeWallet string) *Policy {
	if rate.IsZero() {
		rate = DefaultRate
	}
	return &Policy{
		rate:      rate,
		feeWallet: strings.TrimSpace(feeWallet),
	}
}

// Rate returns the platform fee rate.
func (p *Policy) Rate() decimal.Decimal { return p.rate }

// FeeWallet returns the platform receiving address, empty when unconfigured.
func (p *Policy) FeeWallet() string { return p.feeWallet }

// Enabled reports whether a platform fee wallet is configured. Checked before
// any balance precondition; all collection is a no-op when false.
func (p *Policy) Enabled() bool { return p.feeWallet != "" }

// Fee returns tradeAmount * rate.
func (p *Policy) Fee(tradeAmount decimal.Decimal) decimal.Decimal {
	return tradeAmount.Mul(p.rate)
}

// TotalDue returns tradeAmount + Fee(tradeAmount).
func (p *Policy) TotalDue(tradeAmount decimal.Decimal) decimal.Decimal {
	return tradeAmount.Add(p.Fee(tradeAmount))
}
