package kling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tryon-backend/internal/domain"
	"tryon-backend/internal/infra"
)

const (
	defaultBaseURL      = "https://api.kling.ai"
	imageGenEndpoint    = "/v1/images/generations"
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 30
)

// Options controls how the Kling client is configured. PollInterval and
// MaxAttempts bound the status-polling loop; the defaults cap a generation
// at roughly sixty seconds of waiting.
type Options struct {
	AccessToken  string
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
	MaxAttempts  int
	Logger       *infra.Logger
}

// Client speaks Kling's two-phase protocol: submit a generation task, then
// poll its status until it reaches a terminal state.
type Client struct {
	accessToken  string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  int
	logger       *infra.Logger
}

// ImageRequest mirrors Kling's image generation payload.
type ImageRequest struct {
	ModelName      string `json:"model_name,omitempty"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	N              int    `json:"n,omitempty"`
	ReferenceImage string `json:"reference_image,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
}

// ImageResult is the terminal outcome of a Kling generation task.
type ImageResult struct {
	TaskID    string
	Images    []string
	Status    string
	CreatedAt int64
	UpdatedAt int64
}

type apiEnvelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type taskData struct {
	TaskID        string `json:"task_id"`
	TaskStatus    string `json:"task_status"`
	TaskStatusMsg string `json:"task_status_msg"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
	TaskResult    *struct {
		Images []struct {
			Index int    `json:"index"`
			URL   string `json:"url"`
		} `json:"images"`
	} `json:"task_result"`
}

// NewClient constructs a Kling client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		logger = &discard
	}
	return &Client{
		accessToken:  strings.TrimSpace(opts.AccessToken),
		baseURL:      baseURL,
		httpClient:   httpClient,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		logger:       logger,
	}
}

// GenerateImage submits a generation task and polls until it succeeds,
// fails, or the attempt budget runs out. A failed task or an exhausted
// budget surfaces as a typed provider error; no partial state is retained.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if req.ModelName == "" {
		req.ModelName = "kling-v1"
	}
	if req.ResponseFormat == "" {
		req.ResponseFormat = "url"
	}

	submitted, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("task_id", submitted.TaskID).
		Msg("kling: task submitted, polling for completion")

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := c.taskStatus(ctx, submitted.TaskID)
		if err != nil {
			return nil, err
		}

		switch status.TaskStatus {
		case "failed":
			msg := status.TaskStatusMsg
			if msg == "" {
				msg = "unknown error"
			}
			return nil, domain.NewProviderError("kling", domain.ErrProviderTaskFailed, msg)
		case "succeed":
			var images []string
			if status.TaskResult != nil {
				for _, img := range status.TaskResult.Images {
					images = append(images, img.URL)
				}
			}
			return &ImageResult{
				TaskID:    submitted.TaskID,
				Images:    images,
				Status:    status.TaskStatus,
				CreatedAt: submitted.CreatedAt,
				UpdatedAt: status.UpdatedAt,
			}, nil
		}
	}

	return nil, domain.NewProviderError("kling", domain.ErrProviderTimeout,
		fmt.Sprintf("no terminal state after %d attempts", c.maxAttempts))
}

func (c *Client) submit(ctx context.Context, req ImageRequest) (*taskData, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("kling: marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s%s?access_token=%s", c.baseURL, imageGenEndpoint, url.QueryEscape(c.accessToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kling: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	envelope, err := c.invoke(httpReq)
	if err != nil {
		return nil, err
	}
	if envelope.Code != 0 {
		return nil, domain.NewProviderError("kling", domain.ErrProviderRejected, envelope.Message)
	}

	var data taskData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("kling: decode task data: %w", err)
	}
	return &data, nil
}

func (c *Client) taskStatus(ctx context.Context, taskID string) (*taskData, error) {
	endpoint := fmt.Sprintf("%s%s/%s?access_token=%s", c.baseURL, imageGenEndpoint,
		url.PathEscape(taskID), url.QueryEscape(c.accessToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("kling: create status request: %w", err)
	}

	envelope, err := c.invoke(httpReq)
	if err != nil {
		return nil, err
	}
	if envelope.Code != 0 {
		return nil, domain.NewProviderError("kling", domain.ErrProviderRejected, envelope.Message)
	}

	var data taskData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("kling: decode status data: %w", err)
	}
	return &data, nil
}

func (c *Client) invoke(req *http.Request) (*apiEnvelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("kling", domain.ErrProviderUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, domain.NewProviderError("kling", domain.ErrProviderRejected,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, domain.NewProviderError("kling", domain.ErrProviderUnreachable,
			fmt.Sprintf("invalid response: %v", err))
	}
	return &envelope, nil
}
