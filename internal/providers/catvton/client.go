package catvton

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tryon-backend/internal/domain"
	"tryon-backend/internal/infra"
)

// Store is the slice of the file store this adapter needs: persisting the
// decoded result image and getting back a servable reference.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Options controls how the CatVTON client is configured.
type Options struct {
	Endpoint   string
	HTTPClient *http.Client
	Store      Store
	Steps      int
	Guidance   float64
	Seed       int64
	Logger     *infra.Logger
}

// Client uploads a person image and a garment image to a CatVTON inference
// microservice and persists the returned composite locally. This is the one
// adapter with a durable side effect: the decoded image is written to the
// generated-images directory under a task-derived filename.
type Client struct {
	endpoint   string
	httpClient *http.Client
	store      Store
	steps      int
	guidance   float64
	seed       int64
	logger     *infra.Logger
}

// TryOnRequest carries the two image references. Either may be an http(s)
// URL or an inline data URL.
type TryOnRequest struct {
	HumanImageURL   string
	GarmentImageURL string
}

// TryOnResult references the locally stored composite image.
type TryOnResult struct {
	TaskID string
	Images []string
	Logs   []string
}

type inferenceResponse struct {
	Image  string `json:"image"`
	Detail string `json:"detail"`
}

// NewClient constructs a CatVTON client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 3 * time.Minute}
	}
	steps := opts.Steps
	if steps <= 0 {
		steps = 50
	}
	guidance := opts.Guidance
	if guidance <= 0 {
		guidance = 2.5
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		logger = &discard
	}
	return &Client{
		endpoint:   strings.TrimSpace(opts.Endpoint),
		httpClient: httpClient,
		store:      opts.Store,
		steps:      steps,
		guidance:   guidance,
		seed:       opts.Seed,
		logger:     logger,
	}
}

// VirtualTryOn fetches both images, uploads them as a multipart form along
// with the inference parameters, decodes the base64 result, and stores it
// under <task_id>.png.
func (c *Client) VirtualTryOn(ctx context.Context, req TryOnRequest) (*TryOnResult, error) {
	if c.endpoint == "" {
		return nil, domain.NewProviderError("cat-vton", domain.ErrProviderUnreachable, "endpoint not configured")
	}

	logs := []string{"Starting CatVTON processing"}

	humanImage, err := c.loadReference(ctx, req.HumanImageURL)
	if err != nil {
		return nil, domain.NewProviderError("cat-vton", domain.ErrProviderRejected,
			fmt.Sprintf("load human image: %v", err))
	}
	garmentImage, err := c.loadReference(ctx, req.GarmentImageURL)
	if err != nil {
		return nil, domain.NewProviderError("cat-vton", domain.ErrProviderRejected,
			fmt.Sprintf("load garment image: %v", err))
	}

	logs = append(logs, "Uploading images to CatVTON service")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writeFilePart(writer, "person_image", "person.png", humanImage); err != nil {
		return nil, err
	}
	if err := writeFilePart(writer, "cloth_image", "cloth.png", garmentImage); err != nil {
		return nil, err
	}
	_ = writer.WriteField("num_inference_steps", strconv.Itoa(c.steps))
	_ = writer.WriteField("guidance_scale", strconv.FormatFloat(c.guidance, 'f', -1, 64))
	_ = writer.WriteField("seed", strconv.FormatInt(c.seed, 10))
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("catvton: finalize form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("catvton: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError("cat-vton", domain.ErrProviderUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, domain.NewProviderError("cat-vton", domain.ErrProviderTaskFailed,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var decoded inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.NewProviderError("cat-vton", domain.ErrProviderUnreachable,
			fmt.Sprintf("invalid response: %v", err))
	}
	if decoded.Image == "" {
		return nil, domain.NewProviderError("cat-vton", domain.ErrProviderTaskFailed,
			strings.TrimSpace("empty image in response: "+decoded.Detail))
	}

	imageBytes, err := base64.StdEncoding.DecodeString(decoded.Image)
	if err != nil {
		return nil, domain.NewProviderError("cat-vton", domain.ErrProviderTaskFailed,
			fmt.Sprintf("decode result image: %v", err))
	}

	taskID := "catvton_" + uuid.NewString()[:8]
	storedURL, err := c.store.Write(ctx, taskID+".png", imageBytes)
	if err != nil {
		return nil, fmt.Errorf("catvton: persist result: %w", err)
	}

	logs = append(logs, "CatVTON processing completed successfully")
	c.logger.Debug().Str("task_id", taskID).Str("stored", storedURL).Msg("catvton: result stored")

	return &TryOnResult{
		TaskID: taskID,
		Images: []string{storedURL},
		Logs:   logs,
	}, nil
}

// loadReference resolves an image reference to raw bytes. Data URLs are
// decoded inline; anything else is fetched over HTTP.
func (c *Client) loadReference(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty image reference")
	}
	if strings.HasPrefix(ref, "data:") {
		idx := strings.Index(ref, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data url")
		}
		return base64.StdEncoding.DecodeString(ref[idx+1:])
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func writeFilePart(writer *multipart.Writer, field, filename string, data []byte) error {
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("catvton: create form file %s: %w", field, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("catvton: write form file %s: %w", field, err)
	}
	return nil
}
