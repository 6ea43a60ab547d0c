package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents standardized error codes for ledger operations
type ErrorCode string

const (
	// Input validation
	ErrCodeInvalidInput        ErrorCode = "invalid_input"
	ErrCodeInvalidExpiration   ErrorCode = "invalid_expiration"
	ErrCodeDuplicateCommitment ErrorCode = "duplicate_commitment"

	// Authorization and state preconditions
	ErrCodeAuthorizationFailed  ErrorCode = "authorization_failed"
	ErrCodeAlreadySettled       ErrorCode = "already_settled"
	ErrCodeExpired              ErrorCode = "expired"
	ErrCodeNotYetExpired        ErrorCode = "not_yet_expired"
	ErrCodeNotSender            ErrorCode = "not_sender"
	ErrCodeNotOperator          ErrorCode = "not_operator"
	ErrCodeNothingToWithdraw    ErrorCode = "nothing_to_withdraw"
	ErrCodeTransfersOutstanding ErrorCode = "transfers_outstanding"

	// Global gates
	ErrCodeInstanceLockedOut ErrorCode = "instance_locked_out"
	ErrCodeInstanceKilled    ErrorCode = "instance_killed"
	ErrCodeAlreadyPaused     ErrorCode = "already_paused"
	ErrCodeNotPaused         ErrorCode = "not_paused"

	// Runtime boundary
	ErrCodeInsufficientFunds ErrorCode = "insufficient_funds"
	ErrCodeArithmeticFault   ErrorCode = "arithmetic_fault"
	ErrCodeInternal          ErrorCode = "internal_error"
)

// LedgerError is a coded, user-facing failure. Two LedgerErrors match under
// errors.Is when their codes are equal, so sentinels can carry no detail while
// call sites attach one.
type LedgerError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidInput         = New(ErrCodeInvalidInput, "Input is malformed or empty")
	ErrInvalidExpiration    = New(ErrCodeInvalidExpiration, "Expiration window is zero or above the maximum")
	ErrDuplicateCommitment  = New(ErrCodeDuplicateCommitment, "Commitment has already been used")
	ErrAuthorizationFailed  = New(ErrCodeAuthorizationFailed, "Secrets do not match any transfer")
	ErrAlreadySettled       = New(ErrCodeAlreadySettled, "Transfer has already been settled")
	ErrExpired              = New(ErrCodeExpired, "Transfer has expired")
	ErrNotYetExpired        = New(ErrCodeNotYetExpired, "Transfer has not expired yet")
	ErrNotSender            = New(ErrCodeNotSender, "Caller is not the sender of this transfer")
	ErrNotOperator          = New(ErrCodeNotOperator, "Caller is not the operator")
	ErrNothingToWithdraw    = New(ErrCodeNothingToWithdraw, "No benefits to withdraw")
	ErrTransfersOutstanding = New(ErrCodeTransfersOutstanding, "Benefits are locked while transfers are pending")
	ErrInstanceLockedOut    = New(ErrCodeInstanceLockedOut, "Ledger is paused")
	ErrInstanceKilled       = New(ErrCodeInstanceKilled, "Ledger has been killed")
	ErrAlreadyPaused        = New(ErrCodeAlreadyPaused, "Ledger is already paused")
	ErrNotPaused            = New(ErrCodeNotPaused, "Ledger is not paused")
	ErrInsufficientFunds    = New(ErrCodeInsufficientFunds, "Not enough balance in your account")
	ErrArithmeticFault      = New(ErrCodeArithmeticFault, "Arithmetic overflow or underflow")
	ErrInternal             = New(ErrCodeInternal, "Server error, please try again")
)

func New(code ErrorCode, message string) *LedgerError {
	return &LedgerError{Code: code, Message: message}
}

// Newf keeps the code of base and replaces its message.
func Newf(base *LedgerError, format string, args ...interface{}) error {
	return &LedgerError{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first LedgerError in err's chain, or
// ErrCodeInternal for anything else.
func CodeOf(err error) ErrorCode {
	var le *LedgerError
	if stderrors.As(err, &le) {
		return le.Code
	}
	return ErrCodeInternal
}

// As extracts a LedgerError from err's chain; uncoded errors become internal.
func As(err error) *LedgerError {
	var le *LedgerError
	if stderrors.As(err, &le) {
		return le
	}
	return &LedgerError{Code: ErrCodeInternal, Message: err.Error()}
}

func Is(err error, target error) bool {
	return stderrors.Is(err, target)
}
