package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tryon-backend/internal/domain"
	"tryon-backend/internal/infra"
	"tryon-backend/internal/providers/catvton"
	"tryon-backend/internal/providers/fal"
	"tryon-backend/internal/providers/kling"
	"tryon-backend/internal/providers/replicate"
)

const defaultNegativePrompt = "low quality, unrealistic, no cloths"

type klingClient interface {
	GenerateImage(ctx context.Context, req kling.ImageRequest) (*kling.ImageResult, error)
}

type replicateClient interface {
	GenerateImage(ctx context.Context, req replicate.ImageRequest) (*replicate.ImageResult, error)
}

type falClient interface {
	VirtualTryOn(ctx context.Context, req fal.TryOnRequest) (*fal.TryOnResult, error)
}

type catVTONClient interface {
	VirtualTryOn(ctx context.Context, req catvton.TryOnRequest) (*catvton.TryOnResult, error)
}

type visionClient interface {
	AnalyzeImage(ctx context.Context, imageRef string) (string, error)
	GenerateCampaign(ctx context.Context, prompt, imageRef string) (string, error)
}

// Options wires the provider adapters into the orchestrator. Vision is
// optional; without it prompt enrichment and campaigns are unavailable.
type Options struct {
	Kling     klingClient
	Replicate replicateClient
	Fal       falClient
	CatVTON   catVTONClient
	Vision    visionClient
	Logger    *infra.Logger
}

// Service is the provider-agnostic facade over the generation backends. It
// enriches prompts, dispatches by provider, and converges every outcome to
// the normalized domain.Result shape.
type Service struct {
	kling     klingClient
	replicate replicateClient
	fal       falClient
	catVTON   catVTONClient
	vision    visionClient
	logger    *infra.Logger
}

// ImageParams are the request fields for text-to-image generation.
type ImageParams struct {
	Provider        string
	Model           string
	Prompt          string
	NegativePrompt  string
	GarmentImageURL string
	ReferenceImage  string
	NumImages       int
	Size            string
	AspectRatio     string
	Guidance        float64
}

// TryOnParams are the request fields for remote virtual try-on.
type TryOnParams struct {
	Model           string
	HumanImageURL   string
	GarmentImageURL string
	GarmentType     string
}

// NewService constructs the orchestrator.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		logger = &discard
	}
	return &Service{
		kling:     opts.Kling,
		replicate: opts.Replicate,
		fal:       opts.Fal,
		catVTON:   opts.CatVTON,
		vision:    opts.Vision,
		logger:    logger,
	}
}

// GenerateImage dispatches a text-to-image request to kling or replicate.
// When a garment image is supplied the prompt is enriched with a vision
// description first; enrichment failure is logged and ignored so a flaky
// vision backend never blocks generation.
func (s *Service) GenerateImage(ctx context.Context, params ImageParams) (*domain.Result, error) {
	provider, err := domain.ParseProvider(params.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, params.Provider)
	}

	prompt := params.Prompt
	if params.GarmentImageURL != "" && s.vision != nil {
		description, err := s.vision.AnalyzeImage(ctx, params.GarmentImageURL)
		if err != nil {
			s.logger.Warn().Err(err).Msg("generation: vision enrichment failed, using original prompt")
		} else if description != "" {
			prompt = prompt + ", wearing " + description
		}
	}

	negativePrompt := params.NegativePrompt
	if negativePrompt == "" {
		negativePrompt = defaultNegativePrompt
	}

	switch provider {
	case domain.ProviderKling:
		result, err := s.kling.GenerateImage(ctx, kling.ImageRequest{
			ModelName:      params.Model,
			Prompt:         prompt,
			NegativePrompt: negativePrompt,
			N:              params.NumImages,
			ReferenceImage: params.ReferenceImage,
			Size:           params.Size,
			AspectRatio:    params.AspectRatio,
		})
		if err != nil {
			return nil, err
		}
		return &domain.Result{
			TaskID:    result.TaskID,
			Images:    result.Images,
			Status:    domain.StatusSucceed,
			CreatedAt: result.CreatedAt,
			UpdatedAt: result.UpdatedAt,
		}, nil
	case domain.ProviderReplicate:
		result, err := s.replicate.GenerateImage(ctx, replicate.ImageRequest{
			Model:      params.Model,
			Prompt:     prompt,
			Guidance:   params.Guidance,
			NumOutputs: params.NumImages,
		})
		if err != nil {
			return nil, err
		}
		// Replicate's sync response has no timestamps; stamp our own.
		now := time.Now().UnixMilli()
		return &domain.Result{
			TaskID:    result.TaskID,
			Images:    result.Images,
			Status:    domain.StatusSucceed,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, params.Provider)
	}
}

// VirtualTryOn routes a try-on request to FAL or the remote CatVTON service.
// Any other model name degrades to a pass-through placeholder that echoes
// the human image back with a synthetic task id instead of erroring.
func (s *Service) VirtualTryOn(ctx context.Context, params TryOnParams) (*domain.Result, error) {
	now := time.Now().UnixMilli()

	switch strings.ToLower(strings.TrimSpace(params.Model)) {
	case "leffa", "fal":
		result, err := s.fal.VirtualTryOn(ctx, fal.TryOnRequest{
			HumanImageURL:   params.HumanImageURL,
			GarmentImageURL: params.GarmentImageURL,
		})
		if err != nil {
			return nil, err
		}
		return &domain.Result{
			TaskID:    result.TaskID,
			Images:    result.Images,
			Status:    domain.StatusSucceed,
			CreatedAt: now,
			UpdatedAt: time.Now().UnixMilli(),
			Logs:      result.Logs,
		}, nil
	case "cat-vton", "catvton":
		result, err := s.catVTON.VirtualTryOn(ctx, catvton.TryOnRequest{
			HumanImageURL:   params.HumanImageURL,
			GarmentImageURL: params.GarmentImageURL,
		})
		if err != nil {
			return nil, err
		}
		return &domain.Result{
			TaskID:    result.TaskID,
			Images:    result.Images,
			Status:    domain.StatusSucceed,
			CreatedAt: now,
			UpdatedAt: time.Now().UnixMilli(),
			Logs:      result.Logs,
		}, nil
	default:
		s.logger.Info().
			Str("model", params.Model).
			Msg("generation: no adapter for try-on model, echoing human image")
		return &domain.Result{
			TaskID:    fmt.Sprintf("placeholder_%d", now),
			Images:    []string{params.HumanImageURL},
			Status:    domain.StatusSucceed,
			CreatedAt: now,
			UpdatedAt: now,
			Logs:      []string{fmt.Sprintf("model %q is not integrated, returning input image", params.Model)},
		}, nil
	}
}

// GenerateCampaign produces marketing copy for a garment image.
func (s *Service) GenerateCampaign(ctx context.Context, prompt, garmentImageURL string) (string, error) {
	if s.vision == nil {
		return "", domain.NewProviderError("openai", domain.ErrProviderUnreachable, "vision client not configured")
	}
	return s.vision.GenerateCampaign(ctx, prompt, garmentImageURL)
}
