// Package progress holds the canonical in-memory copy of a user's rooms,
// stats, settings, mascot and collection. It is always available: every
// mutation applies here first (optimistic update) and cloud persistence
// happens after the fact. Observers get notified on every mutation.
package progress

import (
	"sync"
	"time"

	"declutterAPI/internal/gamification"
	"declutterAPI/internal/types/profile"
	"declutterAPI/internal/types/room"
	"declutterAPI/internal/types/stats"
)

type Snapshot struct {
	Rooms      []room.Room        `json:"rooms"`
	Stats      stats.UserStats    `json:"stats"`
	Settings   profile.Settings   `json:"settings"`
	Mascot     profile.Mascot     `json:"mascot"`
	Collection profile.Collection `json:"collection"`
}

// State is one user's local store. A single mutex guards all fields; watcher
// callbacks run outside the lock with a deep-copied snapshot.
type State struct {
	mu         sync.Mutex
	rooms      []room.Room
	stats      stats.UserStats
	settings   profile.Settings
	mascot     profile.Mascot
	collection profile.Collection
	watchers   map[int]func(Snapshot)
	nextWatch  int
}

func NewState() *State {
	return &State{
		stats:    stats.UserStats{Badges: stats.DefaultBadges()},
		settings: profile.DefaultSettings(),
		mascot:   profile.DefaultMascot(),
		watchers: make(map[int]func(Snapshot)),
	}
}

// Registry hands out one State per user for the lifetime of the process.
type Registry struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewRegistry() *Registry {
	return &Registry{states: make(map[string]*State)}
}

func (r *Registry) ForUser(uid string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[uid]
	if !ok {
		st = NewState()
		r.states[uid] = st
	}
	return st
}

// Watch registers an observer. The returned function unregisters it.
func (s *State) Watch(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) Rooms() []room.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRooms(s.rooms)
}

func (s *State) Stats() stats.UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneStats(s.stats)
}

func (s *State) Settings() profile.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *State) Mascot() profile.Mascot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mascot
}

func (s *State) Collection() profile.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection
	c.Items = append([]profile.CollectibleItem(nil), s.collection.Items...)
	return c
}

// UpsertRoom inserts or replaces a room by id.
func (s *State) UpsertRoom(r room.Room) {
	s.mu.Lock()
	replaced := false
	for i := range s.rooms {
		if s.rooms[i].ID == r.ID {
			s.rooms[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		s.rooms = append(s.rooms, r)
	}
	s.notifyAndUnlock()
}

// DeleteRoom removes the room and, because photos are embedded, cascades
// their deletion.
func (s *State) DeleteRoom(roomID string) bool {
	s.mu.Lock()
	for i := range s.rooms {
		if s.rooms[i].ID == roomID {
			s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
			s.notifyAndUnlock()
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// ReplaceRooms swaps the whole room list. Used by the sync engine when a
// remote snapshot arrives: last writer wins at document granularity.
func (s *State) ReplaceRooms(rooms []room.Room) {
	s.mu.Lock()
	s.rooms = cloneRooms(rooms)
	s.notifyAndUnlock()
}

// CompleteTask marks the task done and applies all gamification arithmetic.
// Completing an already-completed task is a no-op. Returns the completed
// task, any badges newly unlocked, and whether the room became fully clean.
func (s *State) CompleteTask(roomID, taskID string, now time.Time) (room.Task, []stats.Badge, bool, bool) {
	s.mu.Lock()

	var target *room.Room
	for i := range s.rooms {
		if s.rooms[i].ID == roomID {
			target = &s.rooms[i]
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return room.Task{}, nil, false, false
	}
	task := target.TaskByID(taskID)
	if task == nil || task.Completed {
		s.mu.Unlock()
		return room.Task{}, nil, false, false
	}

	task.Completed = true
	t := now
	task.CompletedAt = &t
	target.UpdatedAt = now

	unlocked := gamification.ApplyTaskCompletion(&s.stats, task.EstimatedMinutes, now)

	roomClean := true
	for _, tk := range target.Tasks {
		if !tk.Completed {
			roomClean = false
			break
		}
	}
	if roomClean {
		target.CurrentProgress = 100
		unlocked = append(unlocked, gamification.ApplyRoomCleaned(&s.stats, now)...)
	} else if len(target.Tasks) > 0 {
		done := 0
		for _, tk := range target.Tasks {
			if tk.Completed {
				done++
			}
		}
		target.CurrentProgress = done * 100 / len(target.Tasks)
	}

	completed := *task
	s.notifyAndUnlock()
	return completed, unlocked, roomClean, true
}

// ReplaceTasks swaps a room's task list wholesale after re-analysis.
func (s *State) ReplaceTasks(roomID string, tasks []room.Task, messLevel int, summary string, analyzedAt time.Time) bool {
	s.mu.Lock()
	for i := range s.rooms {
		if s.rooms[i].ID == roomID {
			s.rooms[i].Tasks = append([]room.Task(nil), tasks...)
			s.rooms[i].MessLevel = messLevel
			s.rooms[i].AISummary = summary
			at := analyzedAt
			s.rooms[i].LastAnalyzedAt = &at
			s.rooms[i].CurrentProgress = 0
			s.rooms[i].UpdatedAt = analyzedAt
			s.notifyAndUnlock()
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// ApplyProgressAnalysis applies a before/after comparison: tasks named as
// completed get checked off and the room's progress is set.
func (s *State) ApplyProgressAnalysis(roomID string, pa room.ProgressAnalysis, now time.Time) ([]stats.Badge, bool) {
	var unlocked []stats.Badge
	for _, title := range pa.CompletedTasks {
		s.mu.Lock()
		var taskID string
		for i := range s.rooms {
			if s.rooms[i].ID != roomID {
				continue
			}
			for _, tk := range s.rooms[i].Tasks {
				if tk.Title == title && !tk.Completed {
					taskID = tk.ID
					break
				}
			}
		}
		s.mu.Unlock()
		if taskID == "" {
			continue
		}
		_, badges, _, ok := s.CompleteTask(roomID, taskID, now)
		if ok {
			unlocked = append(unlocked, badges...)
		}
	}

	s.mu.Lock()
	for i := range s.rooms {
		if s.rooms[i].ID == roomID {
			s.rooms[i].CurrentProgress = pa.ProgressPercentage
			s.rooms[i].UpdatedAt = now
			s.notifyAndUnlock()
			return unlocked, true
		}
	}
	s.mu.Unlock()
	return unlocked, false
}

// EvaluateDay runs the day-boundary streak check.
func (s *State) EvaluateDay(now time.Time) {
	s.mu.Lock()
	gamification.DecayStreak(&s.stats, now)
	s.notifyAndUnlock()
}

// Merge setters used by the sync engine: remote is authoritative on load.

func (s *State) SetStats(st stats.UserStats) {
	s.mu.Lock()
	s.stats = cloneStats(st)
	if len(s.stats.Badges) == 0 {
		s.stats.Badges = stats.DefaultBadges()
	}
	s.notifyAndUnlock()
}

func (s *State) SetSettings(v profile.Settings) {
	s.mu.Lock()
	s.settings = v
	s.notifyAndUnlock()
}

func (s *State) SetMascot(v profile.Mascot) {
	s.mu.Lock()
	s.mascot = v
	s.notifyAndUnlock()
}

func (s *State) SetCollection(v profile.Collection) {
	s.mu.Lock()
	s.collection = v
	s.collection.Items = append([]profile.CollectibleItem(nil), v.Items...)
	s.notifyAndUnlock()
}

// notifyAndUnlock snapshots under the lock, releases it, then runs watchers.
func (s *State) notifyAndUnlock() {
	snap := s.snapshotLocked()
	watchers := make([]func(Snapshot), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()
	for _, fn := range watchers {
		fn(snap)
	}
}

func (s *State) snapshotLocked() Snapshot {
	col := s.collection
	col.Items = append([]profile.CollectibleItem(nil), s.collection.Items...)
	return Snapshot{
		Rooms:      cloneRooms(s.rooms),
		Stats:      cloneStats(s.stats),
		Settings:   s.settings,
		Mascot:     s.mascot,
		Collection: col,
	}
}

func cloneRooms(rooms []room.Room) []room.Room {
	out := make([]room.Room, len(rooms))
	for i, r := range rooms {
		out[i] = r
		out[i].Tasks = append([]room.Task(nil), r.Tasks...)
		for j, tk := range r.Tasks {
			out[i].Tasks[j].SubTasks = append([]room.SubTask(nil), tk.SubTasks...)
		}
		out[i].Photos = append([]room.Photo(nil), r.Photos...)
	}
	return out
}

func cloneStats(st stats.UserStats) stats.UserStats {
	out := st
	out.Badges = append([]stats.Badge(nil), st.Badges...)
	return out
}
