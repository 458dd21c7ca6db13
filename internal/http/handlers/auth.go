package handlers

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tryon-backend/internal/auth"
	"tryon-backend/internal/domain"
)

const verificationCodeTTL = 15 * time.Minute

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type googleSignInRequest struct {
	AccessToken string `json:"access_token"`
}

type authResponse struct {
	Token string            `json:"token,omitempty"`
	User  domain.PublicUser `json:"user"`
}

// Register creates an account with a bcrypt password hash. When outbound
// email is configured a verification code is sent; otherwise the account is
// verified immediately so local setups work without SendGrid.
func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		a.error(w, http.StatusBadRequest, "bad_request", "name, email and a password of at least 8 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.Logger.Error().Err(err).Msg("hash password failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create account")
		return
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      a.isAdminEmail(req.Email),
	}

	if a.Mailer.Enabled() {
		code, err := verificationCode()
		if err != nil {
			a.Logger.Error().Err(err).Msg("generate verification code failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to create account")
			return
		}
		expires := time.Now().Add(verificationCodeTTL)
		user.VerificationCode = code
		user.VerificationCodeExpiresAt = &expires
	} else {
		user.Verified = true
	}

	created, err := a.Users.Create(r.Context(), user)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			a.error(w, http.StatusConflict, "conflict", "email already registered")
			return
		}
		a.Logger.Error().Err(err).Msg("create user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create account")
		return
	}

	if a.Mailer.Enabled() {
		if err := a.Mailer.SendVerificationCode(r.Context(), created.Email, created.Name, created.VerificationCode); err != nil {
			a.Logger.Error().Err(err).Str("email", created.Email).Msg("send verification email failed")
		}
	}

	a.json(w, http.StatusCreated, authResponse{User: created.Public()})
}

// Login authenticates with email and password and issues an access token.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	user, err := a.Users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}
	if !user.Verified {
		a.error(w, http.StatusForbidden, "forbidden", "email not verified")
		return
	}
	if !user.IsActive {
		a.error(w, http.StatusForbidden, "forbidden", "account disabled")
		return
	}

	token, err := a.Tokens.Issue(user)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign token failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, authResponse{Token: token, User: user.Public()})
}

// VerifyEmail consumes a verification code and marks the account verified.
func (a *App) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	user, err := a.Users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "account not found")
		return
	}
	if user.Verified {
		a.json(w, http.StatusOK, authResponse{User: user.Public()})
		return
	}
	if user.VerificationCode == "" || req.Code != user.VerificationCode {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid verification code")
		return
	}
	if user.VerificationCodeExpiresAt != nil && time.Now().After(*user.VerificationCodeExpiresAt) {
		a.error(w, http.StatusBadRequest, "bad_request", "verification code expired")
		return
	}

	user.Verified = true
	user.VerificationCode = ""
	user.VerificationCodeExpiresAt = nil
	updated, err := a.Users.Update(r.Context(), user)
	if err != nil {
		a.Logger.Error().Err(err).Msg("verify email update failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to verify email")
		return
	}
	a.json(w, http.StatusOK, authResponse{User: updated.Public()})
}

// GoogleSignIn exchanges a Google access token for a local account and
// access token, creating or linking the account as needed.
func (a *App) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req googleSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "access_token required")
		return
	}

	profile, err := a.Google.Profile(r.Context(), req.AccessToken)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("google profile fetch failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid google token")
		return
	}

	user, err := a.resolveGoogleUser(r, profile)
	if err != nil {
		a.Logger.Error().Err(err).Msg("google sign-in persistence failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign in")
		return
	}

	token, err := a.Tokens.Issue(user)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign token failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, authResponse{Token: token, User: user.Public()})
}

// Me returns the authenticated caller's profile.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	a.json(w, http.StatusOK, user.Public())
}

func (a *App) resolveGoogleUser(r *http.Request, profile *auth.GoogleProfile) (*domain.User, error) {
	email := strings.ToLower(profile.Email)

	if existing, err := a.Users.GetByGoogleID(r.Context(), profile.Sub); err == nil {
		existing.GoogleEmail = email
		existing.GooglePicture = profile.Picture
		return a.Users.Update(r.Context(), existing)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing, err := a.Users.GetByEmail(r.Context(), email); err == nil {
		existing.GoogleID = profile.Sub
		existing.GoogleEmail = email
		existing.GooglePicture = profile.Picture
		existing.Verified = true
		return a.Users.Update(r.Context(), existing)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Google attests the email, so the account starts verified.
	return a.Users.Create(r.Context(), &domain.User{
		ID:            uuid.NewString(),
		Name:          profile.Name,
		Email:         email,
		Avatar:        profile.Picture,
		IsActive:      true,
		Verified:      true,
		GoogleID:      profile.Sub,
		GoogleEmail:   email,
		GooglePicture: profile.Picture,
		IsAdmin:       a.isAdminEmail(email),
	})
}

func (a *App) isAdminEmail(email string) bool {
	for _, admin := range a.Config.AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
