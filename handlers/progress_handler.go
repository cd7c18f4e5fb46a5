package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"declutterAPI/internal/progress"
	"declutterAPI/internal/types/room"
	"declutterAPI/middleware"
	"declutterAPI/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ProgressHandler struct {
	progressService *services.ProgressService
	syncService     *services.SyncService
}

func NewProgressHandler(progressService *services.ProgressService, syncService *services.SyncService) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		syncService:     syncService,
	}
}

// GetSnapshot returns the full local store: rooms, stats, settings, mascot,
// collection. Always succeeds, even with no cloud backend.
func (h *ProgressHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	respondWithJSON(w, http.StatusOK, h.progressService.Snapshot(userID))
}

func (h *ProgressHandler) LoadAllData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	if _, err := h.syncService.EnsureProfile(ctx, userID, body.DisplayName, body.Email); err != nil {
		log.Printf("LoadAllData Handler: profile bootstrap failed for %s: %v", userID, err)
	}

	report, err := h.syncService.LoadAllData(ctx, userID)
	if err != nil {
		// partial loads still return data; the report says what landed
		log.Printf("LoadAllData Handler: partial load for %s: %v", userID, err)
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"report":   report,
		"snapshot": h.progressService.Snapshot(userID),
	})
}

func (h *ProgressHandler) SyncAllData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	report, err := h.syncService.SyncAllData(ctx, userID)
	if err != nil {
		log.Printf("SyncAllData Handler: partial sync for %s: %v", userID, err)
	}

	respondWithJSON(w, http.StatusOK, report)
}

func (h *ProgressHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req services.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.progressService.CreateRoom(ctx, userID, &req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ProgressHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var rm room.Room
	if err := json.NewDecoder(r.Body).Decode(&rm); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rm.ID = mux.Vars(r)["roomId"]

	updated, err := h.progressService.UpsertRoom(ctx, userID, rm)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ProgressHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	roomID := mux.Vars(r)["roomId"]
	if !h.progressService.DeleteRoom(ctx, userID, roomID) {
		respondWithError(w, http.StatusNotFound, "Room not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Room deleted successfully"})
}

func (h *ProgressHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	result, err := h.progressService.CompleteTask(ctx, userID, vars["roomId"], vars["taskId"])
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		respondWithError(w, http.StatusNotFound, "Task not found or already completed")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ProgressHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		DeviceToken string `json:"deviceToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DeviceToken == "" {
		respondWithError(w, http.StatusBadRequest, "deviceToken is required")
		return
	}

	h.syncService.RegisterDeviceToken(ctx, userID, body.DeviceToken)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Device registered successfully"})
}

// StreamSnapshots upgrades to a websocket and pushes a fresh snapshot on
// every local mutation and on every remote rooms change. The client only
// reads; its messages are discarded.
func (h *ProgressHandler) StreamSnapshots(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("StreamSnapshots: upgrade failed for %s: %v", userID, err)
		return
	}
	defer conn.Close()

	snapshots := make(chan progress.Snapshot, 8)
	unwatch := h.progressService.Watch(userID, func(snap progress.Snapshot) {
		select {
		case snapshots <- snap:
		default:
			// a newer snapshot will follow, dropping this one is fine
		}
	})
	defer unwatch()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopRemote, err := h.syncService.SubscribeToRooms(ctx, userID, nil)
	if err != nil {
		log.Printf("StreamSnapshots: remote subscription failed for %s: %v", userID, err)
	} else {
		defer stopRemote()
	}

	// reader goroutine: only there to notice the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(h.progressService.Snapshot(userID)); err != nil {
		return
	}
	for {
		select {
		case snap := <-snapshots:
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
