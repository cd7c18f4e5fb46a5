package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"declutterAPI/internal/ratelimit"
	"declutterAPI/internal/types/activity"
	"declutterAPI/internal/types/room"
)

// ErrAnalysisRateLimited tells the caller to try again later; the limiter is
// advisory quota protection, not a consistency mechanism.
var ErrAnalysisRateLimited = fmt.Errorf("analysis rate limit reached, try again later")

// RoomAnalyzer is the external AI collaborator. Consumed as a black box:
// no retry logic lives behind this interface, the caller's explicit
// "try again" is the only retry.
type RoomAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (*room.Analysis, error)
	AnalyzeProgress(ctx context.Context, before, after []byte) (*room.ProgressAnalysis, error)
}

const geminiModel = "gemini-2.0-flash"

// GeminiAnalyzer implements RoomAnalyzer against the Gemini vision API.
type GeminiAnalyzer struct {
	client *genai.Client
}

func NewGeminiAnalyzer(ctx context.Context, apiKey string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client}, nil
}

const analyzePrompt = `You are a cleaning coach. Look at this photo of a room and respond with JSON only:
{"messLevel": 0-100, "summary": "...", "tasks": [{"title": "...", "priority": "high|medium|low", "estimatedMinutes": N}], "quickWins": ["..."], "encouragement": "..."}`

const progressPrompt = `Compare these before and after photos of the same room. Respond with JSON only:
{"progressPercentage": 0-100, "completedTasks": ["..."], "remainingTasks": ["..."], "encouragement": "..."}`

func (g *GeminiAnalyzer) Analyze(ctx context.Context, image []byte) (*room.Analysis, error) {
	text, err := g.generate(ctx, genai.ImageData("jpeg", image), genai.Text(analyzePrompt))
	if err != nil {
		return nil, err
	}
	var out room.Analysis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}
	return &out, nil
}

func (g *GeminiAnalyzer) AnalyzeProgress(ctx context.Context, before, after []byte) (*room.ProgressAnalysis, error) {
	text, err := g.generate(ctx,
		genai.ImageData("jpeg", before),
		genai.ImageData("jpeg", after),
		genai.Text(progressPrompt),
	)
	if err != nil {
		return nil, err
	}
	var out room.ProgressAnalysis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("failed to parse progress response: %w", err)
	}
	return &out, nil
}

func (g *GeminiAnalyzer) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	model := g.client.GenerativeModel(geminiModel)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return cleanModelOutput(sb.String()), nil
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// AnalysisService runs the photo-to-task-plan flow: rate-limit check,
// analyzer call, then the local store mutation and a cloud push. The limiter
// is the process-wide handle constructed in main.
type AnalysisService struct {
	analyzer RoomAnalyzer
	limiter  *ratelimit.FixedWindow
	sync     *SyncService
	activity *ActivityService
}

func NewAnalysisService(analyzer RoomAnalyzer, limiter *ratelimit.FixedWindow, syncSvc *SyncService, activitySvc *ActivityService) *AnalysisService {
	return &AnalysisService{
		analyzer: analyzer,
		limiter:  limiter,
		sync:     syncSvc,
		activity: activitySvc,
	}
}

// AnalyzeRoom replaces the room's tasks wholesale with a fresh plan. The old
// task list is discarded: tasks' lifecycle is tied to the analysis cycle.
func (s *AnalysisService) AnalyzeRoom(ctx context.Context, uid, roomID string, image []byte) (*room.Analysis, error) {
	if s.analyzer == nil {
		return nil, nil
	}
	if !s.limiter.Allow(time.Now()) {
		return nil, ErrAnalysisRateLimited
	}

	analysis, err := s.analyzer.Analyze(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("room analysis failed: %w", err)
	}

	now := time.Now()
	for i := range analysis.Tasks {
		analysis.Tasks[i].ID = uuid.New().String()
		if analysis.Tasks[i].Priority == "" {
			analysis.Tasks[i].Priority = room.PriorityMedium
		}
	}

	state := s.sync.State(uid)
	if !state.ReplaceTasks(roomID, analysis.Tasks, analysis.MessLevel, analysis.Summary, now) {
		return nil, nil
	}

	for _, r := range state.Rooms() {
		if r.ID == roomID {
			s.sync.SaveRoom(ctx, uid, r)
			break
		}
	}
	s.activity.Record(ctx, uid, activity.TypeRoomAnalyzed, map[string]any{"roomId": roomID})

	return analysis, nil
}

// AnalyzeRoomProgress compares before/after photos, checks off tasks the
// model saw completed, and sets the room's progress percentage.
func (s *AnalysisService) AnalyzeRoomProgress(ctx context.Context, uid, roomID string, before, after []byte) (*room.ProgressAnalysis, error) {
	if s.analyzer == nil {
		return nil, nil
	}
	if !s.limiter.Allow(time.Now()) {
		return nil, ErrAnalysisRateLimited
	}

	pa, err := s.analyzer.AnalyzeProgress(ctx, before, after)
	if err != nil {
		return nil, fmt.Errorf("progress analysis failed: %w", err)
	}

	state := s.sync.State(uid)
	if _, ok := state.ApplyProgressAnalysis(roomID, *pa, time.Now()); !ok {
		return nil, nil
	}

	for _, r := range state.Rooms() {
		if r.ID == roomID {
			s.sync.SaveRoom(ctx, uid, r)
			break
		}
	}
	s.sync.SaveStats(ctx, uid)

	return pa, nil
}
