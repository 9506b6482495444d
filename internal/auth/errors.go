package auth

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Status codes returned by Cognito that callers commonly branch on.
const (
	StatusUsernameExists      = "UsernameExistsException"
	StatusNotAuthorized       = "NotAuthorizedException"
	StatusUserNotFound        = "UserNotFoundException"
	StatusUserNotConfirmed    = "UserNotConfirmedException"
	StatusCodeMismatch        = "CodeMismatchException"
	StatusExpiredCode         = "ExpiredCodeException"
	StatusInvalidPassword     = "InvalidPasswordException"
	StatusInvalidParameter    = "InvalidParameterException"
	StatusTooManyRequests     = "TooManyRequestsException"
	StatusLimitExceeded       = "LimitExceededException"
	StatusPasswordResetNeeded = "PasswordResetRequiredException"

	// StatusRequestError marks failures that never produced a provider
	// response: transport errors, missing credentials, cancelled contexts.
	StatusRequestError = "RequestError"
)

// Error is the failure outcome of every Service operation.
type Error struct {
	Status  string `json:"status"`
	Message string `json:"message"`

	err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// newError packages err as an *Error. Provider API errors keep their code
// and message verbatim.
func newError(err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &Error{
			Status:  apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
			err:     err,
		}
	}

	return &Error{
		Status:  StatusRequestError,
		Message: err.Error(),
		err:     err,
	}
}

// StatusOf returns the status carried by err, or "" when err is nil or not
// an identity error.
func StatusOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return ""
}
