package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declutterAPI/internal/docstore"
	"declutterAPI/internal/progress"
	"declutterAPI/internal/ratelimit"
	"declutterAPI/internal/types/room"
)

type stubAnalyzer struct {
	analysis *room.Analysis
	progress *room.ProgressAnalysis
	calls    int
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ []byte) (*room.Analysis, error) {
	s.calls++
	a := *s.analysis
	a.Tasks = append([]room.Task(nil), s.analysis.Tasks...)
	return &a, nil
}

func (s *stubAnalyzer) AnalyzeProgress(_ context.Context, _, _ []byte) (*room.ProgressAnalysis, error) {
	s.calls++
	p := *s.progress
	return &p, nil
}

func newAnalysisFixture(analyzer RoomAnalyzer, limit int) (*AnalysisService, *SyncService) {
	store := docstore.NewMemory()
	syncSvc := NewSyncService(store, progress.NewRegistry())
	activitySvc := NewActivityService(store)
	return NewAnalysisService(analyzer, ratelimit.NewFixedWindow(limit, time.Minute), syncSvc, activitySvc), syncSvc
}

func TestAnalyzeRoomReplacesTaskPlan(t *testing.T) {
	stub := &stubAnalyzer{analysis: &room.Analysis{
		MessLevel: 70,
		Summary:   "cluttered desk, clothes on the floor",
		Tasks: []room.Task{
			{Title: "Pick up clothes", Priority: room.PriorityHigh, EstimatedMinutes: 10},
			{Title: "Clear the desk"},
		},
	}}
	svc, syncSvc := newAnalysisFixture(stub, 10)
	ctx := context.Background()

	syncSvc.State("u1").UpsertRoom(room.Room{ID: "r1", Name: "Bedroom", Tasks: []room.Task{{ID: "old", Title: "stale plan"}}})

	analysis, err := svc.AnalyzeRoom(ctx, "u1", "r1", []byte("jpeg"))
	require.NoError(t, err)
	require.NotNil(t, analysis)

	rooms := syncSvc.State("u1").Rooms()
	require.Len(t, rooms[0].Tasks, 2)
	assert.Equal(t, "Pick up clothes", rooms[0].Tasks[0].Title)
	assert.NotEmpty(t, rooms[0].Tasks[0].ID, "tasks get ids assigned")
	assert.Equal(t, room.PriorityMedium, rooms[0].Tasks[1].Priority, "missing priority defaults to medium")
	assert.Equal(t, 70, rooms[0].MessLevel)
	assert.Equal(t, 0, rooms[0].CurrentProgress, "re-analysis resets progress")
}

func TestAnalyzeRoomUnknownRoom(t *testing.T) {
	stub := &stubAnalyzer{analysis: &room.Analysis{}}
	svc, _ := newAnalysisFixture(stub, 10)

	analysis, err := svc.AnalyzeRoom(context.Background(), "u1", "missing", []byte("jpeg"))
	require.NoError(t, err)
	assert.Nil(t, analysis)
}

func TestAnalyzeRoomRateLimited(t *testing.T) {
	stub := &stubAnalyzer{analysis: &room.Analysis{}}
	svc, syncSvc := newAnalysisFixture(stub, 2)
	ctx := context.Background()
	syncSvc.State("u1").UpsertRoom(room.Room{ID: "r1", Name: "Bedroom"})

	_, err := svc.AnalyzeRoom(ctx, "u1", "r1", []byte("a"))
	require.NoError(t, err)
	_, err = svc.AnalyzeRoom(ctx, "u1", "r1", []byte("b"))
	require.NoError(t, err)

	_, err = svc.AnalyzeRoom(ctx, "u1", "r1", []byte("c"))
	assert.ErrorIs(t, err, ErrAnalysisRateLimited)
	assert.Equal(t, 2, stub.calls, "rejected requests never reach the analyzer")
}

func TestAnalyzeRoomProgressChecksOffTasks(t *testing.T) {
	stub := &stubAnalyzer{progress: &room.ProgressAnalysis{
		ProgressPercentage: 50,
		CompletedTasks:     []string{"Pick up clothes"},
		Encouragement:      "halfway there",
	}}
	svc, syncSvc := newAnalysisFixture(stub, 10)
	ctx := context.Background()

	syncSvc.State("u1").UpsertRoom(room.Room{ID: "r1", Name: "Bedroom", Tasks: []room.Task{
		{ID: "t1", Title: "Pick up clothes"},
		{ID: "t2", Title: "Clear the desk"},
	}})

	pa, err := svc.AnalyzeRoomProgress(ctx, "u1", "r1", []byte("before"), []byte("after"))
	require.NoError(t, err)
	require.NotNil(t, pa)

	rooms := syncSvc.State("u1").Rooms()
	assert.True(t, rooms[0].Tasks[0].Completed)
	assert.False(t, rooms[0].Tasks[1].Completed)
	assert.Equal(t, 50, rooms[0].CurrentProgress)
	assert.Equal(t, 1, syncSvc.State("u1").Stats().TotalTasksCompleted)
}

func TestAnalyzeWithoutAnalyzer(t *testing.T) {
	svc, _ := newAnalysisFixture(nil, 10)
	analysis, err := svc.AnalyzeRoom(context.Background(), "u1", "r1", []byte("a"))
	require.NoError(t, err)
	assert.Nil(t, analysis, "no analyzer configured means a quiet nil")
}
