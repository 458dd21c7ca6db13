package generation

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tryon-backend/internal/domain"
)

// Envelope is the uniform wrapper returned by every generation-family
// endpoint. Code 0 means success and data is present; any other code mirrors
// an HTTP-like status and data is absent.
type Envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Data      any    `json:"data"`
}

// NewRequestID mints a short human-scannable id such as
// req_1717171717000_a1b2. Uniqueness comes from the random suffix rather
// than from hashing request content.
func NewRequestID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:4])
}

// Success wraps a payload in a code-0 envelope.
func Success(requestID string, data any) Envelope {
	return Envelope{Code: 0, Message: "success", RequestID: requestID, Data: data}
}

// Failure maps an error to its envelope code and message. Clients always get
// a response body they can render, never a bare transport error.
func Failure(requestID string, err error) Envelope {
	return Envelope{Code: codeFor(err), Message: err.Error(), RequestID: requestID}
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedProvider),
		errors.Is(err, domain.ErrUnsupportedModel),
		errors.Is(err, domain.ErrProviderRejected):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrProviderTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrProviderUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
