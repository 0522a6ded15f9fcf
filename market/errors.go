package market

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validation errors: the request itself is malformed.
var (
	ErrInvalidPrice       = errors.New("listing price must be greater than zero")
	ErrWrongPaymentAmount = errors.New("payment does not match the listing price")
	ErrFeeTooHigh         = errors.New("fee rate above the allowed maximum")
)

// Authorization errors: the caller may not perform the operation.
var (
	ErrNotOwner     = errors.New("caller does not own the asset")
	ErrNotApproved  = errors.New("marketplace is not approved to transfer the asset")
	ErrNotSeller    = errors.New("caller is not the listing seller")
	ErrSelfPurchase = errors.New("seller cannot buy their own listing")
	ErrNotAdmin     = errors.New("caller is not the marketplace owner")
)

// State errors: the listing is not in a state that admits the operation.
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrAlreadySettled  = errors.New("listing already settled")
)

// ErrOperationInProgress rejects a mutating call made while another mutating
// call is still in flight against the same engine. This includes reentrant
// calls made from inside a callback of an external transfer.
var ErrOperationInProgress = errors.New("another mutating operation is in progress")

// ErrNothingToWithdraw rejects a fee sweep when the accumulated balance is
// zero. It does not indicate a fault.
var ErrNothingToWithdraw = errors.New("no accumulated balance to withdraw")

// TransferError wraps a failure reported by one of the external collaborators
// while moving the asset or value. The triggering operation has been fully
// unwound by the time this error is returned.
type TransferError struct {
	What string // "asset" or "value"
	Err  error
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s transfer failed", e.What)
	}
	return fmt.Sprintf("%s transfer failed: %s", e.What, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// MarshalJSON and UnmarshalJSON let the error cross an RPC boundary with
// its leg and cause intact. The cause arrives as an opaque error.

func (e *TransferError) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(struct {
		What  string
		Cause string
	}{e.What, cause})
}

func (e *TransferError) UnmarshalJSON(b []byte) error {
	var raw struct {
		What  string
		Cause string
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.What = raw.What
	if raw.Cause != "" {
		e.Err = errors.New(raw.Cause)
	}
	return nil
}

// ErrorKind buckets engine errors for reporting.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindState         ErrorKind = "state"
	KindTransfer      ErrorKind = "transfer"
	KindInternal      ErrorKind = "internal"
)

// Kind classifies err into the error taxonomy. Unknown errors are reported
// as internal.
func Kind(err error) ErrorKind {
	var te *TransferError
	switch {
	case errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrWrongPaymentAmount),
		errors.Is(err, ErrFeeTooHigh):
		return KindValidation
	case errors.Is(err, ErrNotOwner),
		errors.Is(err, ErrNotApproved),
		errors.Is(err, ErrNotSeller),
		errors.Is(err, ErrSelfPurchase),
		errors.Is(err, ErrNotAdmin):
		return KindAuthorization
	case errors.Is(err, ErrListingNotFound),
		errors.Is(err, ErrAlreadySettled),
		errors.Is(err, ErrNothingToWithdraw),
		errors.Is(err, ErrOperationInProgress):
		return KindState
	case errors.As(err, &te):
		return KindTransfer
	default:
		return KindInternal
	}
}
