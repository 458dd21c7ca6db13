package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
)

const maxUploadBytes = 32 << 20

type descriptionResponse struct {
	ProductDescription string `json:"product_description"`
}

type humanModelResponse struct {
	HumanModelURL string `json:"human_model_url"`
}

type finalTryOnResponse struct {
	TryOnImageURL string `json:"tryon_image_url"`
	Captions      string `json:"captions"`
}

// Description handles POST /description: a multipart cloth_image upload plus
// a cloth_type field, returning a product description. Failures inside the
// pipeline degrade to a placeholder string, so this endpoint only errors on
// malformed uploads.
func (a *App) Description(w http.ResponseWriter, r *http.Request) {
	clothBytes, ok := a.readUpload(w, r, "cloth_image")
	if !ok {
		return
	}
	clothType := r.FormValue("cloth_type")

	description, err := a.Pipeline.DescribeGarment(r.Context(), clothBytes, clothType)
	if err != nil {
		a.Logger.Error().Err(err).Msg("describe garment failed")
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	a.json(w, http.StatusOK, descriptionResponse{ProductDescription: description})
}

// HumanModel handles POST /human-model: form fields describing the person
// to synthesize, returning the stored image URL.
func (a *App) HumanModel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		if err := r.ParseForm(); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid form")
			return
		}
	}

	modelPrompt := r.FormValue("model_prompt")
	productDescription := r.FormValue("product_description")
	if modelPrompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "model_prompt is required")
		return
	}

	steps, _ := strconv.Atoi(r.FormValue("steps"))
	guidance, _ := strconv.ParseFloat(r.FormValue("guidance"), 64)
	seed := int64(-1)
	if raw := r.FormValue("seed"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			seed = parsed
		}
	}

	url, err := a.Pipeline.SynthesizeHumanModel(r.Context(), modelPrompt, productDescription, steps, guidance, seed)
	if err != nil {
		a.Logger.Error().Err(err).Msg("synthesize human model failed")
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	a.json(w, http.StatusOK, humanModelResponse{HumanModelURL: url})
}

// FinalTryOn handles POST /final-tryon: form fields referencing the outputs
// of the previous steps. The cloth image arrives as a URL and is downloaded
// server-side before compositing.
func (a *App) FinalTryOn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		if err := r.ParseForm(); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid form")
			return
		}
	}

	clothImageURL := r.FormValue("cloth_image_url")
	clothType := r.FormValue("cloth_type")
	humanModelURL := r.FormValue("human_model_url")
	campaignContext := r.FormValue("campaign_context")
	if clothImageURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "cloth_image_url is required")
		return
	}
	if humanModelURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "human_model_url is required")
		return
	}

	clothBytes, err := a.fetchImage(r, clothImageURL)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("fetch cloth image: %v", err))
		return
	}

	out, err := a.Pipeline.CompositeAndCaption(r.Context(), clothBytes, clothType, humanModelURL, campaignContext)
	if err != nil {
		a.Logger.Error().Err(err).Msg("final try-on failed")
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	a.json(w, http.StatusOK, finalTryOnResponse{TryOnImageURL: out.ImageURL, Captions: out.Captions})
}

// fetchImage downloads an image referenced by URL.
func (a *App) fetchImage(r *http.Request, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
}

// readUpload pulls one multipart file field and reports a client error when
// it is missing or unreadable.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return nil, false
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", field+" file is required")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "read "+field+" failed")
		return nil, false
	}
	return data, true
}
