package tryon

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tryon-backend/internal/domain"
)

// Runtime talks to the local inference server hosting the three heavyweight
// models (auto-masker, compositor, text-to-image). The models live in that
// process for its whole lifetime; this client only carries requests.
type Runtime struct {
	baseURL    string
	httpClient *http.Client
}

// RuntimeOptions configures the inference server client.
type RuntimeOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

type maskRequest struct {
	Image     string `json:"image"`
	ClothType string `json:"cloth_type"`
}

type compositeRequest struct {
	PersonImage   string  `json:"person_image"`
	ClothImage    string  `json:"cloth_image"`
	MaskImage     string  `json:"mask_image"`
	NumSteps      int     `json:"num_inference_steps"`
	GuidanceScale float64 `json:"guidance_scale"`
}

type txt2imgRequest struct {
	Prompt        string  `json:"prompt"`
	NumSteps      int     `json:"num_inference_steps"`
	GuidanceScale float64 `json:"guidance_scale"`
	Seed          int64   `json:"seed"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
}

type imageResponse struct {
	Image  string `json:"image"`
	Detail string `json:"detail"`
}

// NewRuntime constructs the inference server client.
func NewRuntime(opts RuntimeOptions) *Runtime {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Diffusion steps on a busy accelerator can take minutes.
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:7860"
	}
	return &Runtime{baseURL: baseURL, httpClient: httpClient}
}

// Mask asks the auto-masker for a binary garment mask over the person image.
func (r *Runtime) Mask(ctx context.Context, personImage []byte, garmentType domain.GarmentType) ([]byte, error) {
	return r.imageCall(ctx, "/mask", maskRequest{
		Image:     base64.StdEncoding.EncodeToString(personImage),
		ClothType: string(garmentType),
	})
}

// Composite runs the garment-compositing model.
func (r *Runtime) Composite(ctx context.Context, personImage, clothImage, maskImage []byte, steps int, guidance float64) ([]byte, error) {
	return r.imageCall(ctx, "/tryon", compositeRequest{
		PersonImage:   base64.StdEncoding.EncodeToString(personImage),
		ClothImage:    base64.StdEncoding.EncodeToString(clothImage),
		MaskImage:     base64.StdEncoding.EncodeToString(maskImage),
		NumSteps:      steps,
		GuidanceScale: guidance,
	})
}

// Txt2Img runs the text-to-image model.
func (r *Runtime) Txt2Img(ctx context.Context, prompt string, steps int, guidance float64, seed int64, width, height int) ([]byte, error) {
	return r.imageCall(ctx, "/txt2img", txt2imgRequest{
		Prompt:        prompt,
		NumSteps:      steps,
		GuidanceScale: guidance,
		Seed:          seed,
		Width:         width,
		Height:        height,
	})
}

// ReleaseMemory tells the inference server to drop its accelerator memory
// pool. Called after a failed pipeline run so repeated failures do not
// exhaust the device.
func (r *Runtime) ReleaseMemory(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/release-memory", nil)
	if err != nil {
		return fmt.Errorf("runtime: create release request: %w", err)
	}
	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("runtime: release memory: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("runtime: release memory: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

func (r *Runtime) imageCall(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("runtime: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("runtime: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPipelineFailure, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: status %d: %s", domain.ErrPipelineFailure, path,
			resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %s: invalid response: %v", domain.ErrPipelineFailure, path, err)
	}
	if decoded.Image == "" {
		return nil, fmt.Errorf("%w: %s: empty image in response: %s", domain.ErrPipelineFailure, path, decoded.Detail)
	}
	imageBytes, err := base64.StdEncoding.DecodeString(decoded.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode image: %v", domain.ErrPipelineFailure, path, err)
	}
	return imageBytes, nil
}
