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

type SharedRoomHandler struct {
	sharedRoomService *services.SharedRoomService
}

func NewSharedRoomHandler(sharedRoomService *services.SharedRoomService) *SharedRoomHandler {
	return &SharedRoomHandler{
		sharedRoomService: sharedRoomService,
	}
}

func (h *SharedRoomHandler) ShareRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		RoomID   string `json:"roomId"`
		IsPublic bool   `json:"isPublic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RoomID == "" {
		respondWithError(w, http.StatusBadRequest, "roomId is required")
		return
	}

	share, err := h.sharedRoomService.ShareRoom(ctx, userID, body.RoomID, body.IsPublic)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to share room")
		return
	}
	if share == nil {
		respondWithError(w, http.StatusConflict, "Room must be synced to the cloud before sharing")
		return
	}

	respondWithJSON(w, http.StatusCreated, share)
}

func (h *SharedRoomHandler) JoinSharedRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.sharedRoomService.JoinSharedRoom(ctx, userID, body.Code)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to join shared room")
		return
	}
	if view == nil {
		respondWithError(w, http.StatusNotFound, "Invite code not found")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *SharedRoomHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	shares, err := h.sharedRoomService.ListShares(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to list shared rooms")
		return
	}

	respondWithJSON(w, http.StatusOK, shares)
}

func (h *SharedRoomHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if !h.sharedRoomService.Revoke(ctx, userID, mux.Vars(r)["shareId"]) {
		respondWithError(w, http.StatusNotFound, "Share not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Share revoked"})
}
