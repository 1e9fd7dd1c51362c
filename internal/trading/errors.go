package trading

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Code is a stable, user-facing error category. Every failure of the trading
// core carries one.
type Code string

const (
	CodeConfiguration             Code = "CONFIGURATION_ERROR"
	CodeWalletNotFound            Code = "WALLET_NOT_FOUND"
	CodeWalletIntegrity           Code = "WALLET_INTEGRITY_ERROR"
	CodeInvalidRequest            Code = "INVALID_REQUEST"
	CodeInsufficientBalance       Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientBalanceForFee Code = "INSUFFICIENT_BALANCE_FOR_FEE"
	CodeAddressMismatch           Code = "ADDRESS_MISMATCH"
	CodeExchangeRejection         Code = "EXCHANGE_REJECTION"
	CodeTransport                 Code = "TRANSPORT_ERROR"
	CodeFeeCollectionFailure      Code = "FEE_COLLECTION_FAILURE"
)

// Error is the typed error returned across the trading core's boundary.
// Integrity failures carry no key-adjacent detail; shortfall errors always
// carry the exact numeric shortfall so the UI need not re-derive it.
type Error struct {
	Code      Code
	Message   string
	Shortfall *decimal.Decimal // set for the two insufficient-balance codes
	RawCode   string           // exchange error code, for EXCHANGE_REJECTION
	TxHash    string           // set for FEE_COLLECTION_FAILURE when a tx exists
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// AsError extracts a trading *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func newErr(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func wrapErr(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

func invalidRequest(format string, args ...any) *Error {
	return newErr(CodeInvalidRequest, fmt.Sprintf(format, args...))
}

func insufficientBalance(code Code, shortfall decimal.Decimal) *Error {
	s := shortfall
	return &Error{
		Code:      code,
		Message:   fmt.Sprintf("balance short by %s", s.String()),
		Shortfall: &s,
	}
}
