package generation

import (
	"net/http"
	"regexp"
	"testing"

	"tryon-backend/internal/domain"
)

func TestRequestIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^req_\d{13}_[0-9a-f]{4}$`)
	id := NewRequestID("req")
	if !pattern.MatchString(id) {
		t.Fatalf("request id %q does not match expected shape", id)
	}
	if NewRequestID("req") == id {
		t.Fatal("consecutive request ids should differ")
	}
}

func TestSuccessEnvelopeInvariant(t *testing.T) {
	env := Success("req_1", map[string]string{"k": "v"})
	if env.Code != 0 || env.Data == nil {
		t.Fatalf("success envelope must have code 0 and data: %+v", env)
	}
}

func TestFailureCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrUnsupportedProvider, http.StatusBadRequest},
		{domain.ErrUnsupportedModel, http.StatusBadRequest},
		{domain.NewProviderError("kling", domain.ErrProviderRejected, "bad prompt"), http.StatusBadRequest},
		{domain.NewProviderError("kling", domain.ErrProviderTaskFailed, "nsfw"), http.StatusInternalServerError},
		{domain.NewProviderError("kling", domain.ErrProviderTimeout, ""), http.StatusGatewayTimeout},
		{domain.NewProviderError("fal", domain.ErrProviderUnreachable, "dial"), http.StatusBadGateway},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrPipelineFailure, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		env := Failure("req_1", tc.err)
		if env.Code != tc.want {
			t.Errorf("Failure(%v).Code = %d, want %d", tc.err, env.Code, tc.want)
		}
		if env.Data != nil {
			t.Errorf("failure envelope for %v must not carry data", tc.err)
		}
		if env.Message == "" {
			t.Errorf("failure envelope for %v must carry a message", tc.err)
		}
	}
}
