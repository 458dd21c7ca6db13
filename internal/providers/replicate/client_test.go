package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tryon-backend/internal/domain"
)

func TestGenerateImageRejectsUnknownModel(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(Options{APIToken: "tok", BaseURL: srv.URL})
	_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "sdxl", Prompt: "p"})
	if !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("err = %v, want ErrUnsupportedModel", err)
	}
	if called {
		t.Fatal("client must not call out for unsupported models")
	}
}

func TestGenerateImageFiltersNonImageOutputs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/black-forest-labs/flux-dev/predictions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Prefer") != "wait" {
			t.Errorf("missing Prefer: wait header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "p123",
			"status": "succeeded",
			"output": []string{
				"https://replicate.delivery/a.webp",
				"https://replicate.delivery/metadata.json",
				"https://replicate.delivery/b.webp",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(Options{APIToken: "tok", BaseURL: srv.URL})
	result, err := client.GenerateImage(context.Background(), ImageRequest{Model: "FLUX-DEV", Prompt: "p", NumOutputs: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Images) != 2 {
		t.Fatalf("images = %v, want the two .webp outputs only", result.Images)
	}
	if result.TaskID != "replicate_p123" {
		t.Fatalf("task id = %s", result.TaskID)
	}
}

func TestGenerateImageSingleStringOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "p1",
			"status": "succeeded",
			"output": "https://replicate.delivery/only.webp",
		})
	}))
	defer srv.Close()

	client := NewClient(Options{APIToken: "tok", BaseURL: srv.URL})
	result, err := client.GenerateImage(context.Background(), ImageRequest{Model: "flux-dev", Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Images) != 1 || result.Images[0] != "https://replicate.delivery/only.webp" {
		t.Fatalf("images = %v", result.Images)
	}
}

func TestGenerateImageUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "p1", "status": "failed", "error": "NSFW content"})
	}))
	defer srv.Close()

	client := NewClient(Options{APIToken: "tok", BaseURL: srv.URL})
	_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "flux-dev", Prompt: "p"})
	if !errors.Is(err, domain.ErrProviderTaskFailed) {
		t.Fatalf("err = %v, want ErrProviderTaskFailed", err)
	}
}

func TestGenerateImageBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Options{APIToken: "bad", BaseURL: srv.URL})
	_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "flux-dev", Prompt: "p"})
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("err = %v, want ErrProviderRejected", err)
	}
}
