package handlers

import (
	"encoding/json"
	"net/http"

	"tryon-backend/internal/generation"
)

type generateImageRequest struct {
	Prompt          string  `json:"prompt"`
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	GarmentImageURL string  `json:"garment_image_url"`
	ReferenceImage  string  `json:"reference_image"`
	NegativePrompt  string  `json:"negative_prompt"`
	NumImages       int     `json:"num_images"`
	Size            string  `json:"size"`
	AspectRatio     string  `json:"aspect_ratio"`
	Guidance        float64 `json:"guidance"`
}

type virtualTryOnRequest struct {
	HumanImageURL   string `json:"human_image_url"`
	GarmentImageURL string `json:"garment_image_url"`
	Model           string `json:"model"`
	GarmentType     string `json:"garment_type"`
}

type generateCampaignRequest struct {
	Prompt          string `json:"prompt"`
	GarmentImageURL string `json:"garment_image_url"`
}

// GenerateImage handles POST /image-generation/generate-image. The HTTP
// status is always 200; success or failure lives in the envelope code so
// clients never have to special-case transport errors.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	requestID := generation.NewRequestID("req")

	var req generateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusOK, generation.Envelope{
			Code: http.StatusBadRequest, Message: "invalid payload", RequestID: requestID,
		})
		return
	}

	result, err := a.Generation.GenerateImage(r.Context(), generation.ImageParams{
		Provider:        req.Provider,
		Model:           req.Model,
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		GarmentImageURL: req.GarmentImageURL,
		ReferenceImage:  req.ReferenceImage,
		NumImages:       req.NumImages,
		Size:            req.Size,
		AspectRatio:     req.AspectRatio,
		Guidance:        req.Guidance,
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("generate image failed")
		a.json(w, http.StatusOK, generation.Failure(requestID, err))
		return
	}
	a.json(w, http.StatusOK, generation.Success(requestID, result))
}

// VirtualTryOn handles POST /image-generation/virtual-try-on.
func (a *App) VirtualTryOn(w http.ResponseWriter, r *http.Request) {
	requestID := generation.NewRequestID("vton")

	var req virtualTryOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusOK, generation.Envelope{
			Code: http.StatusBadRequest, Message: "invalid payload", RequestID: requestID,
		})
		return
	}

	result, err := a.Generation.VirtualTryOn(r.Context(), generation.TryOnParams{
		Model:           req.Model,
		HumanImageURL:   req.HumanImageURL,
		GarmentImageURL: req.GarmentImageURL,
		GarmentType:     req.GarmentType,
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("virtual try-on failed")
		a.json(w, http.StatusOK, generation.Failure(requestID, err))
		return
	}
	a.json(w, http.StatusOK, generation.Success(requestID, result))
}

// GenerateCampaign handles POST /image-generation/generate-campaign.
func (a *App) GenerateCampaign(w http.ResponseWriter, r *http.Request) {
	requestID := generation.NewRequestID("campaign")

	var req generateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusOK, generation.Envelope{
			Code: http.StatusBadRequest, Message: "invalid payload", RequestID: requestID,
		})
		return
	}

	campaign, err := a.Generation.GenerateCampaign(r.Context(), req.Prompt, req.GarmentImageURL)
	if err != nil {
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("generate campaign failed")
		a.json(w, http.StatusOK, generation.Failure(requestID, err))
		return
	}
	a.json(w, http.StatusOK, generation.Success(requestID, map[string]string{"campaign": campaign}))
}
