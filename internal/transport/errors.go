package transport

import (
	"fmt"
	"net/http"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
)

type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindServer       Kind = "server"
)

// APIError is returned for every failed call
// errors.Is matches it against apperrors.ErrNetwork, ErrUnauthorized, ErrValidation, ErrServer
type APIError struct {
	Kind   Kind
	Status int // zero when the server was never reached

	// Fields from the backend error payload
	Code        string
	Description string
	Fields      map[string][]string

	Err error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error: kind=%s", e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(", status=%d", e.Status)
	}
	if e.Code != "" {
		msg += ", error=" + e.Code
	}
	if e.Description != "" {
		msg += ", description=" + e.Description
	}
	if e.Err != nil {
		msg += fmt.Sprintf(", err=%v", e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case KindNetwork:
		return target == apperrors.ErrNetwork
	case KindUnauthorized:
		return target == apperrors.ErrUnauthorized
	case KindValidation:
		return target == apperrors.ErrValidation
	case KindServer:
		return target == apperrors.ErrServer
	default:
		return false
	}
}

// Message suitable to show to the user
func (e *APIError) Message() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Kind == KindNetwork:
		return "Could not connect to server"
	case e.Code != "":
		return e.Code
	case e.Status != 0:
		return http.StatusText(e.Status)
	default:
		return "Unknown error"
	}
}

// kindOf maps not successful HTTP status to error kind
func kindOf(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}
