package fal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tryon-backend/internal/domain"
	"tryon-backend/internal/infra"
)

const (
	defaultBaseURL  = "https://queue.fal.run"
	tryOnModelPath  = "/fal-ai/leffa/virtual-tryon"
	statusCompleted = "COMPLETED"
)

// Options controls how the FAL client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to FAL's queue API: submit a request, stream progress events
// while accumulating their logs, then fetch the final response.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// TryOnRequest carries the two image references for the leffa try-on model.
type TryOnRequest struct {
	HumanImageURL   string `json:"human_image_url"`
	GarmentImageURL string `json:"garment_image_url"`
}

// TryOnResult is the outcome of a try-on run, including the progress logs
// collected while the queue processed the request.
type TryOnResult struct {
	TaskID string
	Images []string
	Logs   []string
}

type queueSubmitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type queueEvent struct {
	Status string `json:"status"`
	Logs   []struct {
		Message string `json:"message"`
	} `json:"logs"`
}

type tryOnResponse struct {
	Image *struct {
		URL string `json:"url"`
	} `json:"image"`
}

// NewClient constructs a FAL client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// The stream stays open for the full duration of the queue run.
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		logger = &discard
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// VirtualTryOn runs the leffa try-on model. A response without the expected
// image field yields an empty image list rather than an error; that
// permissiveness matches the upstream API's looser contract.
func (c *Client) VirtualTryOn(ctx context.Context, req TryOnRequest) (*TryOnResult, error) {
	submitted, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	logs, err := c.streamEvents(ctx, submitted.StatusURL)
	if err != nil {
		return nil, err
	}

	final, err := c.fetchResult(ctx, submitted.ResponseURL)
	if err != nil {
		return nil, err
	}

	var images []string
	if final.Image != nil && final.Image.URL != "" {
		images = []string{final.Image.URL}
	} else {
		c.logger.Warn().
			Str("request_id", submitted.RequestID).
			Msg("fal: response missing image field, returning empty result")
	}

	return &TryOnResult{
		TaskID: taskID(submitted.RequestID),
		Images: images,
		Logs:   logs,
	}, nil
}

func (c *Client) submit(ctx context.Context, req TryOnRequest) (*queueSubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("fal: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tryOnModelPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fal: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError("fal", domain.ErrProviderUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, domain.NewProviderError("fal", domain.ErrProviderRejected,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var submitted queueSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return nil, domain.NewProviderError("fal", domain.ErrProviderUnreachable,
			fmt.Sprintf("invalid submit response: %v", err))
	}
	if submitted.StatusURL == "" {
		submitted.StatusURL = fmt.Sprintf("%s%s/requests/%s/status", c.baseURL, tryOnModelPath, submitted.RequestID)
	}
	if submitted.ResponseURL == "" {
		submitted.ResponseURL = fmt.Sprintf("%s%s/requests/%s", c.baseURL, tryOnModelPath, submitted.RequestID)
	}
	return &submitted, nil
}

// streamEvents consumes the server-sent event stream until the queue signals
// completion or the stream ends, collecting log messages along the way. The
// event count is unbounded by design; termination comes from the provider.
func (c *Client) streamEvents(ctx context.Context, statusURL string) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL+"/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("fal: create stream request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError("fal", domain.ErrProviderUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, domain.NewProviderError("fal", domain.ErrProviderRejected,
			fmt.Sprintf("stream status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var logs []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var event queueEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		for _, entry := range event.Logs {
			if entry.Message != "" {
				logs = append(logs, entry.Message)
			}
		}
		if event.Status == statusCompleted {
			break
		}
	}
	return logs, nil
}

func (c *Client) fetchResult(ctx context.Context, responseURL string) (*tryOnResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, responseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fal: create result request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError("fal", domain.ErrProviderUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, domain.NewProviderError("fal", domain.ErrProviderTaskFailed,
			fmt.Sprintf("result status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var final tryOnResponse
	if err := json.NewDecoder(resp.Body).Decode(&final); err != nil {
		return nil, domain.NewProviderError("fal", domain.ErrProviderUnreachable,
			fmt.Sprintf("invalid result response: %v", err))
	}
	return &final, nil
}

func taskID(requestID string) string {
	if requestID != "" {
		return "fal_" + requestID
	}
	return "fal_" + uuid.NewString()[:8]
}
