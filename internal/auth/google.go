package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tryon-backend/internal/domain"
)

const defaultUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProfile is the subset of Google's userinfo response this service
// links to an account.
type GoogleProfile struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleVerifier resolves a frontend-supplied access token to a Google
// profile by calling the userinfo endpoint.
type GoogleVerifier struct {
	userinfoURL string
	httpClient  *http.Client
}

// NewGoogleVerifier builds a verifier; an empty userinfoURL selects Google's
// production endpoint.
func NewGoogleVerifier(userinfoURL string, httpClient *http.Client) *GoogleVerifier {
	if userinfoURL == "" {
		userinfoURL = defaultUserinfoURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleVerifier{userinfoURL: userinfoURL, httpClient: httpClient}
}

// Profile fetches the profile behind an OAuth access token. Any rejection
// from Google maps to ErrUnauthorized.
func (g *GoogleVerifier) Profile(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: create userinfo request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("auth: fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: userinfo status %d: %s",
			domain.ErrUnauthorized, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: decode userinfo: %w", err)
	}
	if profile.Sub == "" || profile.Email == "" {
		return nil, fmt.Errorf("%w: incomplete google profile", domain.ErrUnauthorized)
	}
	return &profile, nil
}
