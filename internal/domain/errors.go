package domain

import (
	"errors"
	"fmt"
)

// Code is a machine-readable failure kind. The set is closed: collaborators
// route resubmission decisions on it, so new codes are a wire-level change.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Lookup failures
	CodeNotFound Code = "NOT_FOUND"

	// Custody precondition failures
	CodeNotOwner    Code = "NOT_OWNER"
	CodeNotApproved Code = "NOT_APPROVED"

	// Validation failures
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeSelfTrade    Code = "SELF_TRADE"

	// Auction bid failures
	CodeBelowStartPrice Code = "BELOW_START_PRICE"
	CodeBidTooLow       Code = "BID_TOO_LOW"
	CodeBidsExist       Code = "BIDS_EXIST"

	// Lifecycle failures
	CodeTooEarly         Code = "TOO_EARLY"
	CodeAlreadyFinalized Code = "ALREADY_FINALIZED"

	// Settlement failures
	CodePaymentDistributionFailed Code = "PAYMENT_DISTRIBUTION_FAILED"
)

// Error is a typed settlement failure. Op names the operation that rejected
// the request, in the form "component.operation".
type Error struct {
	Code Code
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Msg, e.Code)
}

// Is makes errors.Is match on the code alone, so callers can compare against
// a bare &Error{Code: ...} sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// E builds a typed failure.
func E(code Code, op, format string, args ...any) error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the failure code, or CodeUnknown for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
