package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"declutterAPI/internal/docstore"
	"declutterAPI/internal/progress"
	"declutterAPI/internal/timestamp"
	"declutterAPI/internal/types/profile"
	"declutterAPI/internal/types/room"
	"declutterAPI/internal/types/stats"
)

// Document paths, mirroring the remote layout.

func userDoc(uid string) string { return "users/" + uid }

func dataDoc(uid, name string) string { return "users/" + uid + "/data/" + name }

func roomDoc(uid, roomID string) string { return "users/" + uid + "/rooms/" + roomID }

func roomsCollection(uid string) string { return "users/" + uid + "/rooms" }

func activitiesCollection(uid string) string { return "users/" + uid + "/activities" }

// SyncReport says which sections of a full sync landed. A partially failed
// sync is retryable, not fatal: the local store keeps serving either way.
type SyncReport struct {
	Profile    bool `json:"profile"`
	Rooms      bool `json:"rooms"`
	Stats      bool `json:"stats"`
	Settings   bool `json:"settings"`
	Mascot     bool `json:"mascot"`
	Collection bool `json:"collection"`
}

// SyncService reconciles the local progress store with the cloud copy. Local
// mutations are authoritative until the next pull; a pull overwrites local
// state wholesale (last writer wins at document granularity).
type SyncService struct {
	store    docstore.Store
	progress *progress.Registry
}

func NewSyncService(store docstore.Store, registry *progress.Registry) *SyncService {
	return &SyncService{store: store, progress: registry}
}

func (s *SyncService) State(uid string) *progress.State {
	return s.progress.ForUser(uid)
}

// EnsureProfile creates the profile document on first sign-in. Existing
// profiles are left alone.
func (s *SyncService) EnsureProfile(ctx context.Context, uid, displayName, email string) (*profile.Profile, error) {
	var p profile.Profile
	found, err := s.store.Get(ctx, userDoc(uid), &p)
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}
	if found {
		return &p, nil
	}

	now := time.Now()
	p = profile.Profile{
		ID:          uid,
		DisplayName: displayName,
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Set(ctx, userDoc(uid), p); err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return &p, nil
}

func (s *SyncService) GetProfile(ctx context.Context, uid string) (*profile.Profile, error) {
	var p profile.Profile
	found, err := s.store.Get(ctx, userDoc(uid), &p)
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// LoadAllData pulls profile, rooms, stats, settings, mascot and collection in
// parallel and merges them wholesale into the local store. The remote copy is
// authoritative for everything read here.
func (s *SyncService) LoadAllData(ctx context.Context, uid string) (*SyncReport, error) {
	state := s.progress.ForUser(uid)
	report := &SyncReport{}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	record := func(section *bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			*section = true
			return
		}
		if errors.Is(err, docstore.ErrDisabled) {
			return
		}
		log.Printf("LoadAllData: section failed for %s: %v", uid, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	wg.Add(6)
	go func() {
		defer wg.Done()
		var p profile.Profile
		_, err := s.store.Get(ctx, userDoc(uid), &p)
		record(&report.Profile, err)
	}()
	go func() {
		defer wg.Done()
		rooms, err := s.loadRooms(ctx, uid)
		if err == nil {
			state.ReplaceRooms(rooms)
		}
		record(&report.Rooms, err)
	}()
	go func() {
		defer wg.Done()
		var st stats.UserStats
		found, err := s.store.Get(ctx, dataDoc(uid, "stats"), &st)
		if err == nil && found {
			state.SetStats(st)
		}
		record(&report.Stats, err)
	}()
	go func() {
		defer wg.Done()
		var v profile.Settings
		found, err := s.store.Get(ctx, dataDoc(uid, "settings"), &v)
		if err == nil && found {
			state.SetSettings(v)
		}
		record(&report.Settings, err)
	}()
	go func() {
		defer wg.Done()
		var v profile.Mascot
		found, err := s.store.Get(ctx, dataDoc(uid, "mascot"), &v)
		if err == nil && found {
			state.SetMascot(v)
		}
		record(&report.Mascot, err)
	}()
	go func() {
		defer wg.Done()
		var v profile.Collection
		found, err := s.store.Get(ctx, dataDoc(uid, "collection"), &v)
		if err == nil && found {
			state.SetCollection(v)
		}
		record(&report.Collection, err)
	}()
	wg.Wait()

	// day-boundary streak check runs against whatever state we now have
	state.EvaluateDay(time.Now())

	return report, firstErr
}

// SyncAllData pushes the local store to the cloud: one batched write for the
// profile-adjacent data documents, parallel independent writes for rooms.
// The two groups are deliberately not atomic with each other.
func (s *SyncService) SyncAllData(ctx context.Context, uid string) (*SyncReport, error) {
	state := s.progress.ForUser(uid)
	snap := state.Snapshot()
	report := &SyncReport{}

	ops := []docstore.WriteOp{
		{Path: dataDoc(uid, "stats"), Value: snap.Stats},
		{Path: dataDoc(uid, "settings"), Value: snap.Settings},
		{Path: dataDoc(uid, "mascot"), Value: snap.Mascot},
		{Path: dataDoc(uid, "collection"), Value: snap.Collection},
		{Path: userDoc(uid), Fields: map[string]any{
			"updatedAt": docstore.ServerTimestamp(),
		}},
	}

	var firstErr error
	if err := s.store.Batch(ctx, ops); err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return report, nil
		}
		log.Printf("SyncAllData: batched write failed for %s: %v", uid, err)
		firstErr = err
	} else {
		report.Profile = true
		report.Stats = true
		report.Settings = true
		report.Mascot = true
		report.Collection = true
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	roomsOK := true
	for _, r := range snap.Rooms {
		wg.Add(1)
		go func(r room.Room) {
			defer wg.Done()
			if err := s.store.Set(ctx, roomDoc(uid, r.ID), r); err != nil && !errors.Is(err, docstore.ErrDisabled) {
				log.Printf("SyncAllData: room %s push failed for %s: %v", r.ID, uid, err)
				mu.Lock()
				roomsOK = false
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(r)
	}
	wg.Wait()
	report.Rooms = roomsOK

	return report, firstErr
}

// SaveRoom pushes a single room right after a local mutation.
func (s *SyncService) SaveRoom(ctx context.Context, uid string, r room.Room) bool {
	if err := s.store.Set(ctx, roomDoc(uid, r.ID), r); err != nil {
		if !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("SaveRoom: push failed for %s/%s: %v", uid, r.ID, err)
		}
		return false
	}
	return true
}

// DeleteRoom removes the cloud copy after a local delete.
func (s *SyncService) DeleteRoom(ctx context.Context, uid, roomID string) bool {
	if err := s.store.Delete(ctx, roomDoc(uid, roomID)); err != nil {
		if !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("DeleteRoom: delete failed for %s/%s: %v", uid, roomID, err)
		}
		return false
	}
	return true
}

// SaveStats pushes only the stats document, used after task completions.
func (s *SyncService) SaveStats(ctx context.Context, uid string) bool {
	st := s.progress.ForUser(uid).Stats()
	if err := s.store.Set(ctx, dataDoc(uid, "stats"), st); err != nil {
		if !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("SaveStats: push failed for %s: %v", uid, err)
		}
		return false
	}
	return true
}

// RegisterDeviceToken stores the push token on the profile document.
func (s *SyncService) RegisterDeviceToken(ctx context.Context, uid, token string) bool {
	err := s.store.Update(ctx, userDoc(uid), map[string]any{
		"deviceToken": token,
		"updatedAt":   docstore.ServerTimestamp(),
	})
	if err != nil {
		if !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("RegisterDeviceToken: update failed for %s: %v", uid, err)
		}
		return false
	}
	return true
}

// SubscribeToRooms opens a standing listener on the user's rooms collection.
// Every remote change re-delivers the full collection; the local store
// replaces its room list wholesale on each delivery.
func (s *SyncService) SubscribeToRooms(ctx context.Context, uid string, onRooms func([]room.Room)) (func(), error) {
	state := s.progress.ForUser(uid)
	stop, err := s.store.Subscribe(ctx, docstore.Query{Collection: roomsCollection(uid)}, func(docs []docstore.Doc) {
		rooms := decodeRooms(docs)
		state.ReplaceRooms(rooms)
		if onRooms != nil {
			onRooms(rooms)
		}
	})
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return func() {}, nil
		}
		return nil, fmt.Errorf("failed to subscribe to rooms: %w", err)
	}
	return stop, nil
}

func (s *SyncService) loadRooms(ctx context.Context, uid string) ([]room.Room, error) {
	docs, err := s.store.Query(ctx, docstore.Query{Collection: roomsCollection(uid)})
	if err != nil {
		return nil, err
	}
	return decodeRooms(docs), nil
}

func decodeRooms(docs []docstore.Doc) []room.Room {
	rooms := make([]room.Room, 0, len(docs))
	for _, d := range docs {
		var r room.Room
		if err := d.Decode(&r); err != nil {
			// older mobile clients wrote timestamps as unix millis, which a
			// typed decode rejects
			tolerant, ok := decodeRoomTolerant(d)
			if !ok {
				log.Printf("decodeRooms: skipping %s: %v", d.ID, err)
				continue
			}
			r = tolerant
		}
		if r.ID == "" {
			r.ID = d.ID
		}
		rooms = append(rooms, r)
	}
	return rooms
}

// decodeRoomTolerant rebuilds a room from its raw map form, running every
// timestamp field through the tolerant codec.
func decodeRoomTolerant(d docstore.Doc) (room.Room, bool) {
	var raw map[string]any
	if err := d.Decode(&raw); err != nil {
		return room.Room{}, false
	}

	str := func(k string) string {
		s, _ := raw[k].(string)
		return s
	}
	num := func(v any) int {
		f, _ := v.(float64)
		return int(f)
	}

	r := room.Room{
		ID:              str("id"),
		Name:            str("name"),
		Type:            str("type"),
		Emoji:           str("emoji"),
		CurrentProgress: num(raw["currentProgress"]),
		MessLevel:       num(raw["messLevel"]),
		AISummary:       str("aiSummary"),
		LastAnalyzedAt:  timestamp.ToOptionalDate(raw["lastAnalyzedAt"]),
		CreatedAt:       timestamp.ToDate(raw["createdAt"]),
		UpdatedAt:       timestamp.ToDate(raw["updatedAt"]),
	}
	if tasks, ok := raw["tasks"].([]any); ok {
		for _, tv := range tasks {
			tm, ok := tv.(map[string]any)
			if !ok {
				continue
			}
			title, _ := tm["title"].(string)
			id, _ := tm["id"].(string)
			priority, _ := tm["priority"].(string)
			completed, _ := tm["completed"].(bool)
			r.Tasks = append(r.Tasks, room.Task{
				ID:               id,
				Title:            title,
				Priority:         room.Priority(priority),
				EstimatedMinutes: num(tm["estimatedMinutes"]),
				Completed:        completed,
				CompletedAt:      timestamp.ToOptionalDate(tm["completedAt"]),
			})
		}
	}
	if photos, ok := raw["photos"].([]any); ok {
		for _, pv := range photos {
			pm, ok := pv.(map[string]any)
			if !ok {
				continue
			}
			id, _ := pm["id"].(string)
			url, _ := pm["url"].(string)
			kind, _ := pm["kind"].(string)
			r.Photos = append(r.Photos, room.Photo{
				ID:      id,
				URL:     url,
				Kind:    kind,
				TakenAt: timestamp.ToDate(pm["takenAt"]),
			})
		}
	}
	return r, true
}
