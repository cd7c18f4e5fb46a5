package handlers

import (
	"context"
	"net/http"
	"time"

	"declutterAPI/middleware"
	"declutterAPI/services"
)

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
	}
}

// GetWeeklyActivity returns the last seven days of activity counts, oldest
// day first.
func (h *ActivityHandler) GetWeeklyActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	week, err := h.activityService.Weekly(ctx, userID, time.Now())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to load weekly activity")
		return
	}

	respondWithJSON(w, http.StatusOK, week)
}
