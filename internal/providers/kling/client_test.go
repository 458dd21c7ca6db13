package kling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tryon-backend/internal/domain"
)

func newTestServer(t *testing.T, submitCode int, statusFn func(poll int) map[string]any) (*httptest.Server, *int64) {
	t.Helper()
	var polls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code":       submitCode,
			"message":    "rejected by upstream",
			"request_id": "r1",
			"data": map[string]any{
				"task_id":    "task-1",
				"created_at": 1700000000000,
			},
		})
	})
	mux.HandleFunc("/v1/images/generations/task-1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&polls, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"code":       0,
			"message":    "ok",
			"request_id": "r2",
			"data":       statusFn(int(n)),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &polls
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		AccessToken:  "tok",
		BaseURL:      srv.URL,
		PollInterval: time.Millisecond,
		MaxAttempts:  30,
	})
}

func TestGenerateImageSucceedsOnFifthPoll(t *testing.T) {
	srv, polls := newTestServer(t, 0, func(poll int) map[string]any {
		if poll < 5 {
			return map[string]any{"task_id": "task-1", "task_status": "processing", "updated_at": 1}
		}
		return map[string]any{
			"task_id":     "task-1",
			"task_status": "succeed",
			"updated_at":  1700000060000,
			"task_result": map[string]any{
				"images": []map[string]any{{"index": 0, "url": "https://cdn.kling.ai/a.png"}},
			},
		}
	})

	result, err := newTestClient(srv).GenerateImage(context.Background(), ImageRequest{Prompt: "a coat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *polls != 5 {
		t.Fatalf("polls = %d, want 5", *polls)
	}
	if result.Status != "succeed" || len(result.Images) != 1 || result.Images[0] != "https://cdn.kling.ai/a.png" {
		t.Fatalf("unexpected result: %#v", result)
	}
	if result.CreatedAt != 1700000000000 || result.UpdatedAt != 1700000060000 {
		t.Fatalf("timestamps not propagated: %#v", result)
	}
}

func TestGenerateImageTimesOutAfterMaxAttempts(t *testing.T) {
	srv, polls := newTestServer(t, 0, func(poll int) map[string]any {
		return map[string]any{"task_id": "task-1", "task_status": "processing", "updated_at": 1}
	})

	_, err := newTestClient(srv).GenerateImage(context.Background(), ImageRequest{Prompt: "a coat"})
	if !errors.Is(err, domain.ErrProviderTimeout) {
		t.Fatalf("err = %v, want ErrProviderTimeout", err)
	}
	if *polls != 30 {
		t.Fatalf("polls = %d, want exactly 30", *polls)
	}
}

func TestGenerateImageTaskFailedCarriesMessage(t *testing.T) {
	srv, _ := newTestServer(t, 0, func(poll int) map[string]any {
		return map[string]any{
			"task_id":         "task-1",
			"task_status":     "failed",
			"task_status_msg": "content policy violation",
			"updated_at":      1,
		}
	})

	_, err := newTestClient(srv).GenerateImage(context.Background(), ImageRequest{Prompt: "a coat"})
	if !errors.Is(err, domain.ErrProviderTaskFailed) {
		t.Fatalf("err = %v, want ErrProviderTaskFailed", err)
	}
	if !strings.Contains(err.Error(), "content policy violation") {
		t.Fatalf("provider message not carried: %v", err)
	}
}

func TestGenerateImageSubmitRejected(t *testing.T) {
	srv, polls := newTestServer(t, 1101, func(poll int) map[string]any { return nil })

	_, err := newTestClient(srv).GenerateImage(context.Background(), ImageRequest{Prompt: "a coat"})
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("err = %v, want ErrProviderRejected", err)
	}
	if *polls != 0 {
		t.Fatalf("polls = %d, want 0 after rejected submit", *polls)
	}
}

func TestGenerateImageUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(Options{AccessToken: "tok", BaseURL: srv.URL, PollInterval: time.Millisecond})
	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "a coat"})
	if !errors.Is(err, domain.ErrProviderUnreachable) {
		t.Fatalf("err = %v, want ErrProviderUnreachable", err)
	}
}
