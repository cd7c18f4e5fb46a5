package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"declutterAPI/middleware"
	"declutterAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		services.CreateChallengeRequest
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.challengeService.CreateChallenge(ctx, userID, body.DisplayName, &body.CreateChallengeRequest)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if created == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Challenges need a cloud connection")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ChallengeHandler) ResolveInviteCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetUserID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'code' is required")
		return
	}

	ch, err := h.challengeService.ResolveInviteCode(ctx, code)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Invite lookup failed")
		return
	}
	if ch == nil {
		respondWithError(w, http.StatusNotFound, "Invite code not found")
		return
	}

	respondWithJSON(w, http.StatusOK, ch)
}

func (h *ChallengeHandler) JoinChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Code        string `json:"code"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	joined, err := h.challengeService.JoinChallenge(ctx, userID, body.DisplayName, body.Code)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to join challenge")
		return
	}
	if joined == nil {
		respondWithError(w, http.StatusConflict, "Challenge unavailable, expired, or already joined")
		return
	}

	respondWithJSON(w, http.StatusOK, joined)
}

func (h *ChallengeHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Progress int `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	participant, err := h.challengeService.UpdateProgress(ctx, userID, mux.Vars(r)["challengeId"], body.Progress)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to update progress")
		return
	}
	if participant == nil {
		respondWithError(w, http.StatusNotFound, "Challenge not found or not joinable")
		return
	}

	respondWithJSON(w, http.StatusOK, participant)
}

func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetUserID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	ch, err := h.challengeService.GetChallenge(ctx, mux.Vars(r)["challengeId"])
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to load challenge")
		return
	}
	if ch == nil {
		respondWithError(w, http.StatusNotFound, "Challenge not found")
		return
	}

	respondWithJSON(w, http.StatusOK, ch)
}

func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	challenges, err := h.challengeService.ListUserChallenges(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to list challenges")
		return
	}

	respondWithJSON(w, http.StatusOK, challenges)
}
