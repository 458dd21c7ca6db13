package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrUnsupportedModel    = errors.New("unsupported model")
	ErrProviderRejected    = errors.New("provider rejected request")
	ErrProviderTaskFailed  = errors.New("provider task failed")
	ErrProviderTimeout     = errors.New("provider polling timed out")
	ErrProviderUnreachable = errors.New("provider unreachable")
	ErrPipelineFailure     = errors.New("local pipeline failure")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrEmailTaken          = errors.New("email already registered")
)

// ProviderError attributes a failure to a named provider while remaining
// matchable against the sentinel kinds above via errors.Is.
type ProviderError struct {
	Provider string
	Kind     error
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}

// NewProviderError builds a ProviderError for the given provider and kind.
func NewProviderError(provider string, kind error, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Message: message}
}
