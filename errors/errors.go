package errors

import (
	"fmt"
)

const (
	ErrNotFound          = "NOT FOUND"
	ErrInvalidInput      = "INVALID INPUT"
	ErrRemoteUnavailable = "REMOTE UNAVAILABLE"
	ErrRemoteRejected    = "REMOTE REJECTED"
	ErrLocalFailure      = "LOCAL FAILURE"
	ErrInternal          = "INTERNAL"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorResponse) Error() string {
	return fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
}

// CodeOf walks the wrap chain and returns the code of the first
// ErrorResponse it finds, or ErrInternal when the chain carries none.
func CodeOf(err error) string {
	for err != nil {
		if appErr, ok := err.(ErrorResponse); ok {
			return appErr.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ErrInternal
		}
		err = u.Unwrap()
	}
	return ErrInternal
}
