package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"declutterAPI/internal/progress"
	"declutterAPI/internal/types/activity"
	"declutterAPI/internal/types/room"
	"declutterAPI/internal/types/stats"
)

type CreateRoomRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

type CompleteTaskResult struct {
	Task           room.Task       `json:"task"`
	UnlockedBadges []stats.Badge   `json:"unlockedBadges"`
	RoomClean      bool            `json:"roomClean"`
	Stats          stats.UserStats `json:"stats"`
	Level          int             `json:"level"`
	LevelProgress  int             `json:"levelProgress"`
}

// ProgressService applies user mutations to the local store first, then
// pushes to the cloud. The local write always succeeds; the cloud push is
// best-effort and retryable via a later full sync.
type ProgressService struct {
	syncSvc  *SyncService
	activity *ActivityService
	alerts   *AlertDispatcher
}

func NewProgressService(syncSvc *SyncService, activitySvc *ActivityService, alerts *AlertDispatcher) *ProgressService {
	return &ProgressService{syncSvc: syncSvc, activity: activitySvc, alerts: alerts}
}

func (s *ProgressService) Snapshot(uid string) progress.Snapshot {
	return s.syncSvc.State(uid).Snapshot()
}

func (s *ProgressService) Watch(uid string, fn func(progress.Snapshot)) func() {
	return s.syncSvc.State(uid).Watch(fn)
}

func (s *ProgressService) CreateRoom(ctx context.Context, uid string, req *CreateRoomRequest) (*room.Room, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("room name is required")
	}
	now := time.Now()
	r := room.Room{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Type:      req.Type,
		Emoji:     req.Emoji,
		Tasks:     []room.Task{},
		Photos:    []room.Photo{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.syncSvc.State(uid).UpsertRoom(r)
	s.syncSvc.SaveRoom(ctx, uid, r)
	return &r, nil
}

// UpsertRoom takes a full room from the client (photo attach, rename, ...)
// and stores it locally and remotely.
func (s *ProgressService) UpsertRoom(ctx context.Context, uid string, r room.Room) (*room.Room, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	r.UpdatedAt = time.Now()
	s.syncSvc.State(uid).UpsertRoom(r)
	s.syncSvc.SaveRoom(ctx, uid, r)
	return &r, nil
}

// DeleteRoom removes the room locally and remotely. Photos are embedded in
// the room document, so the delete cascades to them.
func (s *ProgressService) DeleteRoom(ctx context.Context, uid, roomID string) bool {
	if !s.syncSvc.State(uid).DeleteRoom(roomID) {
		return false
	}
	s.syncSvc.DeleteRoom(ctx, uid, roomID)
	return true
}

// CompleteTask checks off one task and applies the full gamification pass:
// XP, streak, badge scan, activity entry, stats push. Completing a task that
// is already complete returns nil.
func (s *ProgressService) CompleteTask(ctx context.Context, uid, roomID, taskID string) (*CompleteTaskResult, error) {
	state := s.syncSvc.State(uid)
	now := time.Now()

	task, unlocked, roomClean, ok := state.CompleteTask(roomID, taskID, now)
	if !ok {
		return nil, nil
	}

	// optimistic update already applied; everything below is persistence
	// and side effects
	for _, r := range state.Rooms() {
		if r.ID == roomID {
			s.syncSvc.SaveRoom(ctx, uid, r)
			break
		}
	}
	s.syncSvc.SaveStats(ctx, uid)

	s.activity.Record(ctx, uid, activity.TypeTaskCompleted, map[string]any{
		"roomId": roomID,
		"taskId": taskID,
	})
	if roomClean {
		s.activity.Record(ctx, uid, activity.TypeRoomCleaned, map[string]any{"roomId": roomID})
	}
	for _, b := range unlocked {
		s.activity.Record(ctx, uid, activity.TypeBadgeUnlocked, map[string]any{"badgeId": b.ID})
		if s.alerts != nil {
			s.alerts.Notify(uid, "Badge unlocked!", b.Name, map[string]any{"badgeId": b.ID})
		}
	}

	st := state.Stats()
	return &CompleteTaskResult{
		Task:           task,
		UnlockedBadges: unlocked,
		RoomClean:      roomClean,
		Stats:          st,
		Level:          st.Level(),
		LevelProgress:  st.LevelProgress(),
	}, nil
}
