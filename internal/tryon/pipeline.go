package tryon

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"tryon-backend/internal/domain"
	"tryon-backend/internal/infra"
)

// descriptionPlaceholder is returned when garment description generation
// fails; the flow degrades instead of propagating the vision error.
const descriptionPlaceholder = "Failed to generate product description."

// captionGarmentLabel is the product label fed to caption generation. It is
// deliberately generic rather than the per-garment description; see the
// campaign context for the actual product framing.
const captionGarmentLabel = "the garment"

// humanModelSteps is the sampling step count for base human synthesis when
// the caller omits one. It is lower than the compositing step count: the
// base photo only seeds the try-on and does not need the full schedule.
const humanModelSteps = 20

type inferenceRuntime interface {
	Mask(ctx context.Context, personImage []byte, garmentType domain.GarmentType) ([]byte, error)
	Composite(ctx context.Context, personImage, clothImage, maskImage []byte, steps int, guidance float64) ([]byte, error)
	Txt2Img(ctx context.Context, prompt string, steps int, guidance float64, seed int64, width, height int) ([]byte, error)
	ReleaseMemory(ctx context.Context) error
}

type garmentVision interface {
	DescribeGarment(ctx context.Context, imageBytes []byte, garmentType domain.GarmentType) (string, error)
	GenerateCaptions(ctx context.Context, productDescription, campaignContext string) (string, error)
}

type imageStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Options wires the pipeline's collaborators and fixed parameters.
type Options struct {
	Runtime    inferenceRuntime
	Vision     garmentVision
	Store      imageStore
	HTTPClient *http.Client
	Slots      int64
	Width      int
	Height     int
	Steps      int
	Guidance   float64
	Logger     *infra.Logger
}

// Pipeline runs the local try-on flow: describe a garment, synthesize a
// human model, composite the garment onto it. Accelerator memory is a single
// shared resource, so all three operations pass through a weighted semaphore
// sized to the number of accelerator slots (usually one). The pipeline is
// constructed once at startup and injected wherever it is needed.
type Pipeline struct {
	runtime    inferenceRuntime
	vision     garmentVision
	store      imageStore
	httpClient *http.Client
	gate       *semaphore.Weighted
	width      int
	height     int
	steps      int
	guidance   float64
	logger     *infra.Logger
}

// CompositeOutput pairs the stored try-on image with its campaign captions.
type CompositeOutput struct {
	ImageURL string
	Captions string
}

// NewPipeline constructs the pipeline with its admission gate.
func NewPipeline(opts Options) *Pipeline {
	slots := opts.Slots
	if slots < 1 {
		slots = 1
	}
	width := opts.Width
	if width <= 0 {
		width = 768
	}
	height := opts.Height
	if height <= 0 {
		height = 1024
	}
	steps := opts.Steps
	if steps <= 0 {
		steps = 50
	}
	guidance := opts.Guidance
	if guidance <= 0 {
		guidance = 2.5
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		logger = &discard
	}
	return &Pipeline{
		runtime:    opts.Runtime,
		vision:     opts.Vision,
		store:      opts.Store,
		httpClient: httpClient,
		gate:       semaphore.NewWeighted(slots),
		width:      width,
		height:     height,
		steps:      steps,
		guidance:   guidance,
		logger:     logger,
	}
}

// DescribeGarment resizes the garment onto the working canvas and asks the
// vision model for a product description. Failures degrade to a fixed
// placeholder string so the client flow can continue.
func (p *Pipeline) DescribeGarment(ctx context.Context, imageBytes []byte, garmentType string) (string, error) {
	if err := p.gate.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.gate.Release(1)

	normalized := domain.NormalizeGarmentType(garmentType)

	if p.vision == nil {
		p.logger.Warn().Msg("tryon: no vision client configured, returning placeholder description")
		return descriptionPlaceholder, nil
	}

	prepared, err := p.prepareGarment(imageBytes)
	if err != nil {
		p.logger.Warn().Err(err).Msg("tryon: garment preprocessing failed, returning placeholder description")
		return descriptionPlaceholder, nil
	}

	description, err := p.vision.DescribeGarment(ctx, prepared, normalized)
	if err != nil {
		p.logger.Warn().Err(err).Msg("tryon: description generation failed, returning placeholder")
		return descriptionPlaceholder, nil
	}
	return description, nil
}

// SynthesizeHumanModel generates a base human photo from the prompt and
// product description, stores it, and returns its URL. Failures propagate:
// compositing cannot proceed without this image.
func (p *Pipeline) SynthesizeHumanModel(ctx context.Context, prompt, productDescription string, steps int, guidance float64, seed int64) (string, error) {
	if err := p.gate.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.gate.Release(1)

	if steps <= 0 {
		steps = humanModelSteps
	}
	if guidance <= 0 {
		guidance = p.guidance
	}
	if seed == -1 {
		seed = rand.Int63()
	}

	fullPrompt := fmt.Sprintf("%s wearing %s, full body, photorealistic", prompt, productDescription)
	imageBytes, err := p.runtime.Txt2Img(ctx, fullPrompt, steps, guidance, seed, p.width, p.height)
	if err != nil {
		return "", err
	}

	url, err := p.store.Write(ctx, "human_"+uuid.NewString()[:8]+".png", imageBytes)
	if err != nil {
		return "", fmt.Errorf("%w: store human model: %v", domain.ErrPipelineFailure, err)
	}
	return url, nil
}

// CompositeAndCaption downloads the human model, masks it for the garment
// type, composites the garment on, generates captions, and stores the
// result. On any failure the accelerator memory is released exactly once
// before the error is reported.
func (p *Pipeline) CompositeAndCaption(ctx context.Context, clothBytes []byte, garmentType, humanModelURL, campaignContext string) (*CompositeOutput, error) {
	if err := p.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.gate.Release(1)

	out, err := p.composite(ctx, clothBytes, domain.NormalizeGarmentType(garmentType), humanModelURL, campaignContext)
	if err != nil {
		if releaseErr := p.runtime.ReleaseMemory(ctx); releaseErr != nil {
			p.logger.Error().Err(releaseErr).Msg("tryon: accelerator memory release failed")
		}
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) composite(ctx context.Context, clothBytes []byte, garmentType domain.GarmentType, humanModelURL, campaignContext string) (*CompositeOutput, error) {
	humanBytes, err := p.fetch(ctx, humanModelURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch human model: %v", domain.ErrPipelineFailure, err)
	}

	humanImg, err := decodeImage(humanBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: human model: %v", domain.ErrPipelineFailure, err)
	}
	clothImg, err := decodeImage(clothBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: garment: %v", domain.ErrPipelineFailure, err)
	}

	person, err := encodePNG(resizeAndCrop(humanImg, p.width, p.height))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPipelineFailure, err)
	}
	cloth, err := encodePNG(resizeAndPadding(clothImg, p.width, p.height))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPipelineFailure, err)
	}

	maskBytes, err := p.runtime.Mask(ctx, person, garmentType)
	if err != nil {
		return nil, err
	}
	maskImg, err := decodeImage(maskBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: mask: %v", domain.ErrPipelineFailure, err)
	}
	mask, err := encodePNG(blurMask(toGray(maskImg), 9))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPipelineFailure, err)
	}

	composited, err := p.runtime.Composite(ctx, person, cloth, mask, p.steps, p.guidance)
	if err != nil {
		return nil, err
	}

	var captions string
	if p.vision != nil {
		captions, err = p.vision.GenerateCaptions(ctx, captionGarmentLabel, campaignContext)
		if err != nil {
			return nil, fmt.Errorf("%w: captions: %v", domain.ErrPipelineFailure, err)
		}
	}

	url, err := p.store.Write(ctx, "tryon_"+uuid.NewString()[:8]+".png", composited)
	if err != nil {
		return nil, fmt.Errorf("%w: store composite: %v", domain.ErrPipelineFailure, err)
	}

	return &CompositeOutput{ImageURL: url, Captions: captions}, nil
}

func (p *Pipeline) prepareGarment(imageBytes []byte) ([]byte, error) {
	img, err := decodeImage(imageBytes)
	if err != nil {
		return nil, err
	}
	return encodePNG(resizeAndPadding(img, p.width, p.height))
}

func (p *Pipeline) fetch(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
