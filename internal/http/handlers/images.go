package handlers

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
)

const maxViewImageBytes = 20 << 20

// ViewImage fetches a remote image and re-encodes it as an inline data URL,
// preserving the upstream content type. Frontends use it to sidestep CORS
// restrictions on provider-hosted images.
func (a *App) ViewImage(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "url query parameter is required")
		return
	}

	httpReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid url")
		return
	}
	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("fetch image: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("upstream status %d", resp.StatusCode))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxViewImageBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "read image body failed")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	a.json(w, http.StatusOK, map[string]string{
		"data_url": "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	})
}

// ServeGeneratedImage serves a stored file by basename. The store reduces
// the name to its basename, so traversal attempts resolve inside the output
// directory or miss entirely.
func (a *App) ServeGeneratedImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := a.Store.Read(name)
	if err != nil {
		if os.IsNotExist(err) {
			a.error(w, http.StatusNotFound, "not_found", "image not found")
			return
		}
		a.Logger.Error().Err(err).Str("name", name).Msg("serve generated image failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read image")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
