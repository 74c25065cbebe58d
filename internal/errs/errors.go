package errs

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code classifies a failure by how the rest of the system reacts to it.
type Code string

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeTransient           Code = "TRANSIENT"
	CodeProtocol            Code = "PROTOCOL"
	CodeIdentityConflict    Code = "IDENTITY_CONFLICT"
	CodeConnectionLifecycle Code = "CONNECTION_LIFECYCLE"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeFailedPrecondition  Code = "FAILED_PRECONDITION"
	CodeInternal            Code = "INTERNAL"
)

// AppError carries a Code alongside a message and an optional cause.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Transient(message string, cause error) error {
	return Wrap(CodeTransient, message, cause)
}

func Protocol(message string, cause error) error {
	return Wrap(CodeProtocol, message, cause)
}

func IdentityConflict(message string) error {
	return New(CodeIdentityConflict, message)
}

func Lifecycle(message string, cause error) error {
	return Wrap(CodeConnectionLifecycle, message, cause)
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func FailedPrecondition(msg string) error {
	return New(CodeFailedPrecondition, msg)
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

var grpcCodes = map[Code]codes.Code{
	CodeTransient:           codes.Unavailable,
	CodeProtocol:            codes.DataLoss,
	CodeIdentityConflict:    codes.Aborted,
	CodeConnectionLifecycle: codes.Unavailable,
	CodeInvalidArgument:     codes.InvalidArgument,
	CodeNotFound:            codes.NotFound,
	CodeFailedPrecondition:  codes.FailedPrecondition,
	CodeInternal:            codes.Internal,
}

// GRPCStatus converts err into a gRPC status error. Errors that are already
// statuses pass through unchanged.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	c, ok := grpcCodes[CodeOf(err)]
	if !ok {
		c = codes.Unknown
	}
	return status.Error(c, err.Error())
}
