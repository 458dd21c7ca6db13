package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"tryon-backend/internal/auth"
	"tryon-backend/internal/domain"
	"tryon-backend/internal/generation"
	"tryon-backend/internal/infra"
	"tryon-backend/internal/middleware"
	"tryon-backend/internal/tryon"
)

type userRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

type generationService interface {
	GenerateImage(ctx context.Context, params generation.ImageParams) (*domain.Result, error)
	VirtualTryOn(ctx context.Context, params generation.TryOnParams) (*domain.Result, error)
	GenerateCampaign(ctx context.Context, prompt, garmentImageURL string) (string, error)
}

type tryOnPipeline interface {
	DescribeGarment(ctx context.Context, imageBytes []byte, garmentType string) (string, error)
	SynthesizeHumanModel(ctx context.Context, prompt, productDescription string, steps int, guidance float64, seed int64) (string, error)
	CompositeAndCaption(ctx context.Context, clothBytes []byte, garmentType, humanModelURL, campaignContext string) (*tryon.CompositeOutput, error)
}

type imageReader interface {
	Read(name string) ([]byte, error)
}

type emailSender interface {
	Enabled() bool
	SendVerificationCode(ctx context.Context, toEmail, toName, code string) error
}

type googleProfileFetcher interface {
	Profile(ctx context.Context, accessToken string) (*auth.GoogleProfile, error)
}

// App carries the handler dependencies; one instance serves all routes.
type App struct {
	Config     *infra.Config
	Logger     *infra.Logger
	Users      userRepository
	Tokens     *auth.TokenIssuer
	Google     googleProfileFetcher
	Mailer     emailSender
	Generation generationService
	Pipeline   tryOnPipeline
	Store      imageReader
	HTTPClient *http.Client
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: code, Message: message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
