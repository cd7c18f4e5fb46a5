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

type SessionHandler struct {
	sessionService *services.SessionService
}

func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		services.CreateSessionRequest
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.sessionService.CreateSession(ctx, userID, body.DisplayName, &body.CreateSessionRequest)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if created == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Sessions need a cloud connection")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *SessionHandler) ResolveInviteCode(w http.ResponseWriter, r *http.Request) {
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

	sess, err := h.sessionService.ResolveInviteCode(ctx, code)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Invite lookup failed")
		return
	}
	if sess == nil {
		respondWithError(w, http.StatusNotFound, "Invite code not found or session ended")
		return
	}

	respondWithJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
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

	joined, err := h.sessionService.JoinSession(ctx, userID, body.DisplayName, body.Code)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to join session")
		return
	}
	if joined == nil {
		respondWithError(w, http.StatusConflict, "Session is full, ended, or unknown")
		return
	}

	respondWithJSON(w, http.StatusOK, joined)
}

func (h *SessionHandler) LeaveSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if !h.sessionService.LeaveSession(ctx, userID, mux.Vars(r)["sessionId"]) {
		respondWithError(w, http.StatusNotFound, "Session not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Left session"})
}

func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if !h.sessionService.EndSession(ctx, userID, mux.Vars(r)["sessionId"]) {
		respondWithError(w, http.StatusForbidden, "Only the host can end an active session")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Session ended"})
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetUserID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	sess, err := h.sessionService.GetSession(ctx, mux.Vars(r)["sessionId"])
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to load session")
		return
	}
	if sess == nil {
		respondWithError(w, http.StatusNotFound, "Session not found")
		return
	}

	respondWithJSON(w, http.StatusOK, sess)
}
