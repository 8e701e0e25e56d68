package types

import (
	"errors"
	"fmt"
)

// Protocol errors are identified by an integer code so that callers (and the
// RPC layer) can match on the exact failure without string comparison. Every
// failed operation is rejected in full: an error here always means the
// transaction it happened in was rolled back.

type ErrorCode uint32

const (
	ErrorSuccess ErrorCode = iota
	ErrorUnknown

	// Authorization errors.
	ErrorUnauthorized

	// State errors: the operation is invalid for the current lifecycle stage.
	ErrorTaskNotActive
	ErrorTaskCompleted
	ErrorAlreadyCommitted
	ErrorAlreadyRevealed
	ErrorNotCommitted

	// Validation errors.
	ErrorZeroPayment
	ErrorInsufficientServers
	ErrorInvalidDeposit
	ErrorCommitmentMismatch

	// Transfer errors: a value movement to a specific recipient failed.
	ErrorTransferFailed
)

var errorCodeNames = map[ErrorCode]string{
	ErrorSuccess:             "Success",
	ErrorUnknown:             "Unknown",
	ErrorUnauthorized:        "Unauthorized",
	ErrorTaskNotActive:       "TaskNotActive",
	ErrorTaskCompleted:       "TaskAlreadyCompleted",
	ErrorAlreadyCommitted:    "AlreadyCommitted",
	ErrorAlreadyRevealed:     "AlreadyRevealed",
	ErrorNotCommitted:        "NotCommitted",
	ErrorZeroPayment:         "ZeroPayment",
	ErrorInsufficientServers: "InsufficientServers",
	ErrorInvalidDeposit:      "InvalidDeposit",
	ErrorCommitmentMismatch:  "CommitmentMismatch",
	ErrorTransferFailed:      "TransferFailed",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", c)
}

type ProtocolError interface {
	error
	Code() ErrorCode
}

var _ ProtocolError = new(BaseError)

type BaseError struct {
	code ErrorCode
}

func NewError(code ErrorCode) *BaseError {
	return &BaseError{code: code}
}

func (e *BaseError) Code() ErrorCode { return e.code }

func (e *BaseError) Error() string { return e.code.String() }

// Is makes errors.Is match any protocol error carrying the same code.
func (e *BaseError) Is(target error) bool {
	var other ProtocolError
	return errors.As(target, &other) && other.Code() == e.code
}

var _ ProtocolError = new(VerboseError)

// VerboseError is a BaseError with a human-readable detail message.
type VerboseError struct {
	BaseError
	msg string
}

func NewVerboseError(code ErrorCode, format string, args ...any) *VerboseError {
	return &VerboseError{
		BaseError: BaseError{code: code},
		msg:       fmt.Sprintf(format, args...),
	}
}

func (e *VerboseError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

// NewTransferFailedError reports a failed disbursement to a specific recipient.
func NewTransferFailedError(recipient Address, amount Value) *VerboseError {
	return NewVerboseError(ErrorTransferFailed, "recipient=%s, amount=%s", recipient, amount)
}

// IsProtocolError extracts the error code if err is a protocol error.
func IsProtocolError(err error) (ErrorCode, bool) {
	var pe ProtocolError
	if errors.As(err, &pe) {
		return pe.Code(), true
	}
	return ErrorSuccess, false
}
