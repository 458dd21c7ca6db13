package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tryon-backend/internal/domain"
)

const defaultBaseURL = "https://api.replicate.com/v1"

// Models maps the model names accepted by the API to Replicate identifiers.
// Only flux-dev is supported; anything else is rejected before calling out
// so unsupported models fail with a clear message instead of an upstream one.
var Models = map[string]string{
	"flux-dev": "black-forest-labs/flux-dev",
}

// Options controls how the Replicate client is configured.
type Options struct {
	APIToken   string
	BaseURL    string
	HTTPClient *http.Client
}

// Client performs synchronous Replicate predictions using the blocking
// `Prefer: wait` mode, so a single round trip returns the output URLs.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

// ImageRequest carries the flux-dev inputs.
type ImageRequest struct {
	Model      string
	Prompt     string
	Guidance   float64
	NumOutputs int
}

// ImageResult is the outcome of a synchronous prediction.
type ImageResult struct {
	TaskID string
	Images []string
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt        string  `json:"prompt"`
	GuidanceScale float64 `json:"guidance_scale,omitempty"`
	NumOutputs    int     `json:"num_outputs,omitempty"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// NewClient constructs a Replicate client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiToken:   strings.TrimSpace(opts.APIToken),
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// GenerateImage runs a prediction for a whitelisted model and returns the
// generated image URLs. Outputs without the expected image extension are
// silently dropped; that filtering is deliberate, not defensive.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	modelID, ok := Models[strings.ToLower(strings.TrimSpace(req.Model))]
	if !ok {
		return nil, domain.NewProviderError("replicate", domain.ErrUnsupportedModel,
			fmt.Sprintf("only 'flux-dev' is supported, got %q", req.Model))
	}

	numOutputs := req.NumOutputs
	if numOutputs <= 0 {
		numOutputs = 1
	}
	body, err := json.Marshal(predictionRequest{Input: predictionInput{
		Prompt:        req.Prompt,
		GuidanceScale: req.Guidance,
		NumOutputs:    numOutputs,
	}})
	if err != nil {
		return nil, fmt.Errorf("replicate: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, modelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	httpReq.Header.Set("Prefer", "wait")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError("replicate", domain.ErrProviderUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, domain.NewProviderError("replicate", domain.ErrProviderRejected,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var prediction predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, domain.NewProviderError("replicate", domain.ErrProviderUnreachable,
			fmt.Sprintf("invalid response: %v", err))
	}
	if prediction.Error != "" {
		return nil, domain.NewProviderError("replicate", domain.ErrProviderTaskFailed, prediction.Error)
	}

	return &ImageResult{
		TaskID: taskID(prediction.ID),
		Images: imageURLs(prediction.Output),
	}, nil
}

// imageURLs extracts output URLs, keeping only entries with the webp
// extension flux-dev produces. Output may be a single string or a list.
func imageURLs(raw json.RawMessage) []string {
	var outputs []string
	if err := json.Unmarshal(raw, &outputs); err != nil {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil
		}
		outputs = []string{single}
	}

	var urls []string
	for _, out := range outputs {
		if strings.HasSuffix(out, ".webp") {
			urls = append(urls, out)
		}
	}
	return urls
}

func taskID(predictionID string) string {
	if predictionID != "" {
		return "replicate_" + predictionID
	}
	return "replicate_" + uuid.NewString()[:8]
}
