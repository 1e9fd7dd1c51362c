package trading

import (
	"math/big"

	"github.com/shopspring/decimal"

	clobtypes "github.com/polyterm/polyterm/clob/types"
)

// Amount pipeline. The exchange reconstructs the notional with its own
// rounding and rejects orders that disagree, so the sequence below must not
// be collapsed into a single multiplication:
//
//  1. truncate size to 2 decimal places
//  2. notional = size * price, truncated to 4 decimal places
//  3. scale to 10^6 base units and truncate to an integer
//
// All steps run on decimals; float drift cannot change the signed amounts
// between construction and submission.

const collateralDecimals = 6

// orderAmounts returns (makerAmount, takerAmount) in integer base units.
// BUY: maker pays collateral (notional), taker receives shares.
// SELL: maker gives shares, taker pays collateral (notional).
func orderAmounts(side clobtypes.Side, price, size decimal.Decimal) (*big.Int, *big.Int) {
	sizeR := size.Truncate(2)
	notional := sizeR.Mul(price).Truncate(4)

	sharesBU := sizeR.Shift(collateralDecimals).Truncate(0).BigInt()
	notionalBU := notional.Shift(collateralDecimals).Truncate(0).BigInt()

	if side == clobtypes.SideBuy {
		return notionalBU, sharesBU
	}
	return sharesBU, notionalBU
}
