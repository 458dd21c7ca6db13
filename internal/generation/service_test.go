package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tryon-backend/internal/domain"
	"tryon-backend/internal/providers/catvton"
	"tryon-backend/internal/providers/fal"
	"tryon-backend/internal/providers/kling"
	"tryon-backend/internal/providers/replicate"
)

type stubKling struct {
	lastReq kling.ImageRequest
	result  *kling.ImageResult
	err     error
}

func (s *stubKling) GenerateImage(_ context.Context, req kling.ImageRequest) (*kling.ImageResult, error) {
	s.lastReq = req
	return s.result, s.err
}

type stubReplicate struct {
	lastReq replicate.ImageRequest
	result  *replicate.ImageResult
	err     error
}

func (s *stubReplicate) GenerateImage(_ context.Context, req replicate.ImageRequest) (*replicate.ImageResult, error) {
	s.lastReq = req
	return s.result, s.err
}

type stubFal struct {
	result *fal.TryOnResult
	err    error
	calls  int
}

func (s *stubFal) VirtualTryOn(_ context.Context, _ fal.TryOnRequest) (*fal.TryOnResult, error) {
	s.calls++
	return s.result, s.err
}

type stubCatVTON struct {
	result *catvton.TryOnResult
	err    error
	calls  int
}

func (s *stubCatVTON) VirtualTryOn(_ context.Context, _ catvton.TryOnRequest) (*catvton.TryOnResult, error) {
	s.calls++
	return s.result, s.err
}

type stubVision struct {
	description string
	campaign    string
	err         error
}

func (s *stubVision) AnalyzeImage(_ context.Context, _ string) (string, error) {
	return s.description, s.err
}

func (s *stubVision) GenerateCampaign(_ context.Context, _, _ string) (string, error) {
	return s.campaign, s.err
}

func TestGenerateImageUnsupportedProvider(t *testing.T) {
	svc := NewService(Options{})
	_, err := svc.GenerateImage(context.Background(), ImageParams{Provider: "midjourney", Prompt: "a dress"})
	if !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("err = %v, want ErrUnsupportedProvider", err)
	}
}

func TestGenerateImageEnrichesPromptFromVision(t *testing.T) {
	k := &stubKling{result: &kling.ImageResult{TaskID: "t1", Images: []string{"https://x/a.png"}, CreatedAt: 1, UpdatedAt: 2}}
	svc := NewService(Options{Kling: k, Vision: &stubVision{description: "a red silk blouse"}})

	result, err := svc.GenerateImage(context.Background(), ImageParams{
		Provider:        "Kling",
		Prompt:          "a model on a beach",
		GarmentImageURL: "https://x/garment.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "a model on a beach, wearing a red silk blouse"; k.lastReq.Prompt != want {
		t.Errorf("prompt = %q, want %q", k.lastReq.Prompt, want)
	}
	if k.lastReq.NegativePrompt != defaultNegativePrompt {
		t.Errorf("negative prompt = %q", k.lastReq.NegativePrompt)
	}
	if result.Status != domain.StatusSucceed || len(result.Images) == 0 {
		t.Errorf("result = %+v, want succeed with images", result)
	}
	if result.CreatedAt != 1 || result.UpdatedAt != 2 {
		t.Errorf("provider timestamps not preserved: %+v", result)
	}
}

func TestGenerateImageEnrichmentFailureIsNonFatal(t *testing.T) {
	k := &stubKling{result: &kling.ImageResult{TaskID: "t1", Images: []string{"https://x/a.png"}}}
	svc := NewService(Options{Kling: k, Vision: &stubVision{err: errors.New("vision down")}})

	_, err := svc.GenerateImage(context.Background(), ImageParams{
		Provider:        "kling",
		Prompt:          "a model on a beach",
		GarmentImageURL: "https://x/garment.png",
	})
	if err != nil {
		t.Fatalf("enrichment failure must not block generation: %v", err)
	}
	if k.lastReq.Prompt != "a model on a beach" {
		t.Errorf("prompt = %q, want unenriched original", k.lastReq.Prompt)
	}
}

func TestGenerateImageReplicateStampsTimestamps(t *testing.T) {
	r := &stubReplicate{result: &replicate.ImageResult{TaskID: "replicate_p1", Images: []string{"https://x/a.webp"}}}
	svc := NewService(Options{Replicate: r})

	result, err := svc.GenerateImage(context.Background(), ImageParams{
		Provider: "replicate", Model: "flux-dev", Prompt: "a coat",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CreatedAt == 0 || result.UpdatedAt == 0 {
		t.Errorf("timestamps not stamped: %+v", result)
	}
	if r.lastReq.Model != "flux-dev" {
		t.Errorf("model = %q", r.lastReq.Model)
	}
}

func TestGenerateImageReplicateUnsupportedModelPropagates(t *testing.T) {
	r := &stubReplicate{err: domain.NewProviderError("replicate", domain.ErrUnsupportedModel, "only flux-dev")}
	svc := NewService(Options{Replicate: r})

	_, err := svc.GenerateImage(context.Background(), ImageParams{Provider: "replicate", Model: "sdxl", Prompt: "x"})
	if !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("err = %v, want ErrUnsupportedModel", err)
	}
}

func TestVirtualTryOnRouting(t *testing.T) {
	f := &stubFal{result: &fal.TryOnResult{TaskID: "fal_r1", Images: []string{"https://fal/out.png"}, Logs: []string{"step"}}}
	c := &stubCatVTON{result: &catvton.TryOnResult{TaskID: "catvton_a1", Images: []string{"http://local/a1.png"}}}
	svc := NewService(Options{Fal: f, CatVTON: c})

	res, err := svc.VirtualTryOn(context.Background(), TryOnParams{Model: "Leffa", HumanImageURL: "h", GarmentImageURL: "g"})
	if err != nil || res.TaskID != "fal_r1" {
		t.Fatalf("leffa route: result %+v err %v", res, err)
	}
	if len(res.Logs) != 1 {
		t.Errorf("fal logs not carried through: %+v", res)
	}

	res, err = svc.VirtualTryOn(context.Background(), TryOnParams{Model: "cat-vton", HumanImageURL: "h", GarmentImageURL: "g"})
	if err != nil || res.TaskID != "catvton_a1" {
		t.Fatalf("cat-vton route: result %+v err %v", res, err)
	}
	if f.calls != 1 || c.calls != 1 {
		t.Fatalf("calls fal=%d catvton=%d", f.calls, c.calls)
	}
}

func TestVirtualTryOnUnknownModelEchoesHumanImage(t *testing.T) {
	svc := NewService(Options{})
	res, err := svc.VirtualTryOn(context.Background(), TryOnParams{
		Model: "idm-vton", HumanImageURL: "https://x/human.png", GarmentImageURL: "https://x/g.png",
	})
	if err != nil {
		t.Fatalf("placeholder must not error: %v", err)
	}
	if len(res.Images) != 1 || res.Images[0] != "https://x/human.png" {
		t.Fatalf("images = %v, want echoed human image", res.Images)
	}
	if !strings.HasPrefix(res.TaskID, "placeholder_") {
		t.Fatalf("task id = %s", res.TaskID)
	}
	if res.Status != domain.StatusSucceed {
		t.Fatalf("status = %s", res.Status)
	}
}

func TestGenerateCampaignRequiresVision(t *testing.T) {
	svc := NewService(Options{})
	if _, err := svc.GenerateCampaign(context.Background(), "summer sale", "https://x/g.png"); !errors.Is(err, domain.ErrProviderUnreachable) {
		t.Fatalf("err = %v, want ErrProviderUnreachable", err)
	}

	svc = NewService(Options{Vision: &stubVision{campaign: "Wear the summer."}})
	got, err := svc.GenerateCampaign(context.Background(), "summer sale", "https://x/g.png")
	if err != nil || got != "Wear the summer." {
		t.Fatalf("campaign = %q err %v", got, err)
	}
}
