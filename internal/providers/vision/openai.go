package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tryon-backend/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"
	defaultTimeout = 60 * time.Second
)

// Options controls how the OpenAI vision client is configured.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps the vision-capable chat completions API for the handful of
// prompts this service needs: garment descriptions, marketing captions, and
// campaign copy.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	ImageURL *imageURLValue `json:"image_url,omitempty"`
}

type imageURLValue struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Garment-type specific system instructions for product descriptions. The
// selection is total: unknown types get the upper-body template.
var garmentPrompts = map[domain.GarmentType]string{
	domain.GarmentUpper: "You are a world class fashion designer. " +
		"Write a detailed description of the upper body garment shown in the image, " +
		"focusing on its fit, sleeve style, fabric type, neckline, and any notable design elements " +
		"or features, in one or two lines. " +
		"Do not start with \"This image shows a pair of beige cargo ...\"; start with \"a pair of beige cargo ...\".",
	domain.GarmentLower: "You are a world class fashion designer. " +
		"Write a detailed description of the lower body garment shown in the image, " +
		"focusing on its fit, fabric type, waist style, and any notable design elements " +
		"or features, in one or two lines. " +
		"Do not start with \"This image shows a pair of beige cargo ...\"; start with \"a pair of beige cargo ...\".",
	domain.GarmentOverall: "You are a world class fashion designer. " +
		"Write a detailed description of the overall garment shown in the image, " +
		"focusing on its fit, fabric type, sleeve style, neckline, and any notable design elements " +
		"or features, in one or two lines. " +
		"Do not start with \"This image shows a pair of beige cargo ...\"; start with \"a pair of beige cargo ...\".",
}

const captionSystemPrompt = "You are a world-class marketing expert. " +
	"Your task is to create engaging, professional, and contextually relevant campaign captions " +
	"based on the details provided. Use creative language to highlight the product's key features " +
	"and align with the campaign's goals. Ensure the captions are tailored to the specific " +
	"advertising context provided."

// NewClient constructs an OpenAI vision client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

// AnalyzeImage returns a concise description of the clothing item at the
// given reference (URL or data URL). Used for best-effort prompt enrichment.
func (c *Client) AnalyzeImage(ctx context.Context, imageRef string) (string, error) {
	return c.complete(ctx, []chatMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: "Describe this clothing item in detail, focusing on its style, color, " +
				"pattern, material, and any distinctive features. Keep the description concise but comprehensive."},
			{Type: "image_url", ImageURL: &imageURLValue{URL: imageRef}},
		},
	}}, 800)
}

// DescribeGarment produces a product description for the local try-on flow.
// The image is supplied inline as PNG bytes.
func (c *Client) DescribeGarment(ctx context.Context, imageBytes []byte, garmentType domain.GarmentType) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageBytes)
	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: promptForGarment(garmentType)},
		{Role: "user", Content: []contentPart{
			{Type: "image_url", ImageURL: &imageURLValue{URL: dataURL}},
		}},
	}, 0)
}

// GenerateCaptions creates campaign captions for a product description and
// advertising context.
func (c *Client) GenerateCaptions(ctx context.Context, productDescription, campaignContext string) (string, error) {
	userPrompt := fmt.Sprintf("Campaign Context: %s\nProduct Description: %s\n"+
		"Generate captivating captions for this campaign that align with the provided context.",
		campaignContext, productDescription)
	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: captionSystemPrompt},
		{Role: "user", Content: userPrompt},
	}, 0)
}

// GenerateCampaign produces campaign copy for a garment image and theme.
func (c *Client) GenerateCampaign(ctx context.Context, prompt, imageRef string) (string, error) {
	text := fmt.Sprintf("Generate a creative and engaging campaign for this clothing item. "+
		"The campaign theme is: %s. Focus on highlighting the unique features and appeal of the garment. "+
		"The campaign should be catchy, memorable, and suitable for marketing purposes.", prompt)
	return c.complete(ctx, []chatMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: &imageURLValue{URL: imageRef}},
		},
	}}, 1000)
}

func (c *Client) complete(ctx context.Context, messages []chatMessage, maxTokens int) (string, error) {
	payload := chatRequest{Model: c.model, Messages: messages, MaxTokens: maxTokens}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("vision: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("vision: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", domain.NewProviderError("openai", domain.ErrProviderUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != nil {
			return "", domain.NewProviderError("openai", domain.ErrProviderRejected, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		return "", domain.NewProviderError("openai", domain.ErrProviderRejected,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", domain.NewProviderError("openai", domain.ErrProviderUnreachable,
			fmt.Sprintf("invalid response: %v", err))
	}
	if len(decoded.Choices) == 0 {
		return "", domain.NewProviderError("openai", domain.ErrProviderTaskFailed, "no choices in response")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

// promptForGarment selects the system instruction for a garment type,
// defaulting to the upper-body template for anything unrecognized.
func promptForGarment(garmentType domain.GarmentType) string {
	if prompt, ok := garmentPrompts[garmentType]; ok {
		return prompt
	}
	return garmentPrompts[domain.GarmentUpper]
}
