package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"declutterAPI/middleware"
	"declutterAPI/services"
)

type AnalysisHandler struct {
	analysisService *services.AnalysisService
}

func NewAnalysisHandler(analysisService *services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// AnalyzeRoom takes a base64 photo, runs the vision model and replaces the
// room's task plan with the result.
func (h *AnalysisHandler) AnalyzeRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Image == "" {
		respondWithError(w, http.StatusBadRequest, "image is required")
		return
	}
	image, err := base64.StdEncoding.DecodeString(body.Image)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "image must be base64 encoded")
		return
	}

	analysis, err := h.analysisService.AnalyzeRoom(ctx, userID, mux.Vars(r)["roomId"], image)
	if err != nil {
		if errors.Is(err, services.ErrAnalysisRateLimited) {
			respondWithError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		respondWithError(w, http.StatusBadGateway, "Analysis failed, try again")
		return
	}
	if analysis == nil {
		respondWithError(w, http.StatusNotFound, "Room not found or analysis unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, analysis)
}

// AnalyzeProgress compares before and after photos of a room.
func (h *AnalysisHandler) AnalyzeProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Before string `json:"before"`
		After  string `json:"after"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Before == "" || body.After == "" {
		respondWithError(w, http.StatusBadRequest, "before and after images are required")
		return
	}
	before, err := base64.StdEncoding.DecodeString(body.Before)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "before must be base64 encoded")
		return
	}
	after, err := base64.StdEncoding.DecodeString(body.After)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "after must be base64 encoded")
		return
	}

	pa, err := h.analysisService.AnalyzeRoomProgress(ctx, userID, mux.Vars(r)["roomId"], before, after)
	if err != nil {
		if errors.Is(err, services.ErrAnalysisRateLimited) {
			respondWithError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		respondWithError(w, http.StatusBadGateway, "Analysis failed, try again")
		return
	}
	if pa == nil {
		respondWithError(w, http.StatusNotFound, "Room not found or analysis unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, pa)
}
