package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tryon-backend/internal/domain"
	"tryon-backend/internal/generation"
)

type stubGeneration struct {
	imageResult *domain.Result
	imageErr    error
	tryOnResult *domain.Result
	tryOnErr    error
	campaign    string
	campaignErr error
}

func (s *stubGeneration) GenerateImage(_ context.Context, _ generation.ImageParams) (*domain.Result, error) {
	return s.imageResult, s.imageErr
}

func (s *stubGeneration) VirtualTryOn(_ context.Context, _ generation.TryOnParams) (*domain.Result, error) {
	return s.tryOnResult, s.tryOnErr
}

func (s *stubGeneration) GenerateCampaign(_ context.Context, _, _ string) (string, error) {
	return s.campaign, s.campaignErr
}

func testApp(gen generationService) *App {
	logger := zerolog.Nop()
	return &App{Logger: &logger, Generation: gen}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) generation.Envelope {
	t.Helper()
	var env generation.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestGenerateImageSuccessEnvelope(t *testing.T) {
	app := testApp(&stubGeneration{imageResult: &domain.Result{
		TaskID: "task-1", Images: []string{"https://x/a.png"}, Status: domain.StatusSucceed,
	}})

	req := httptest.NewRequest(http.MethodPost, "/image-generation/generate-image",
		strings.NewReader(`{"prompt":"a dress","provider":"kling"}`))
	rec := httptest.NewRecorder()
	app.GenerateImage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Code != 0 || env.Data == nil {
		t.Fatalf("envelope = %+v, want code 0 with data", env)
	}
	if !strings.HasPrefix(env.RequestID, "req_") {
		t.Errorf("request id = %q", env.RequestID)
	}
}

func TestGenerateImageFailureKeepsHTTP200(t *testing.T) {
	app := testApp(&stubGeneration{imageErr: domain.ErrUnsupportedProvider})

	req := httptest.NewRequest(http.MethodPost, "/image-generation/generate-image",
		strings.NewReader(`{"prompt":"a dress","provider":"midjourney"}`))
	rec := httptest.NewRecorder()
	app.GenerateImage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("transport status = %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Code != http.StatusBadRequest {
		t.Fatalf("envelope code = %d, want 400", env.Code)
	}
	if env.Data != nil {
		t.Fatal("failure envelope must not carry data")
	}
}

func TestGenerateImageMalformedBody(t *testing.T) {
	app := testApp(&stubGeneration{})
	req := httptest.NewRequest(http.MethodPost, "/image-generation/generate-image", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	app.GenerateImage(rec, req)

	env := decodeEnvelope(t, rec)
	if env.Code != http.StatusBadRequest {
		t.Fatalf("envelope code = %d, want 400", env.Code)
	}
}

func TestVirtualTryOnEnvelope(t *testing.T) {
	app := testApp(&stubGeneration{tryOnResult: &domain.Result{
		TaskID: "placeholder_1", Images: []string{"https://x/h.png"}, Status: domain.StatusSucceed,
	}})

	req := httptest.NewRequest(http.MethodPost, "/image-generation/virtual-try-on",
		strings.NewReader(`{"human_image_url":"https://x/h.png","garment_image_url":"https://x/g.png","model":"idm"}`))
	rec := httptest.NewRecorder()
	app.VirtualTryOn(rec, req)

	env := decodeEnvelope(t, rec)
	if env.Code != 0 {
		t.Fatalf("envelope code = %d", env.Code)
	}
	if !strings.HasPrefix(env.RequestID, "vton_") {
		t.Errorf("request id = %q", env.RequestID)
	}
}

func TestGenerateCampaignEnvelope(t *testing.T) {
	app := testApp(&stubGeneration{campaign: "Own the summer."})

	req := httptest.NewRequest(http.MethodPost, "/image-generation/generate-campaign",
		strings.NewReader(`{"prompt":"summer","garment_image_url":"https://x/g.png"}`))
	rec := httptest.NewRecorder()
	app.GenerateCampaign(rec, req)

	env := decodeEnvelope(t, rec)
	if env.Code != 0 {
		t.Fatalf("envelope code = %d", env.Code)
	}
	data, ok := env.Data.(map[string]any)
	if !ok || data["campaign"] != "Own the summer." {
		t.Fatalf("data = %#v", env.Data)
	}
	if !strings.HasPrefix(env.RequestID, "campaign_") {
		t.Errorf("request id = %q", env.RequestID)
	}
}
