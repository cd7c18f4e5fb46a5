package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"declutterAPI/internal/docstore"
	"declutterAPI/internal/invite"
	"declutterAPI/internal/types/session"
)

func sessionDoc(id string) string { return "bodyDoublingSessions/" + id }

func sessionParticipantDoc(id, uid string) string {
	return "bodyDoublingSessions/" + id + "/participants/" + uid
}

func sessionParticipantsCollection(id string) string {
	return "bodyDoublingSessions/" + id + "/participants"
}

type CreateSessionRequest struct {
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes"`
	MaxParticipants int    `json:"maxParticipants"`
}

// SessionService manages body-doubling focus sessions. The host owns the
// lifecycle; participants self-add and self-deactivate. The capacity check
// runs on the transaction's read snapshot, which makes it reliable against
// concurrent joins through this service, and best-effort against writers
// that bypass it.
type SessionService struct {
	store  docstore.Store
	alerts *AlertDispatcher
}

func NewSessionService(store docstore.Store, alerts *AlertDispatcher) *SessionService {
	return &SessionService{store: store, alerts: alerts}
}

// CreateSession creates an active session with the host as first
// participant. Returns nil when the backend is unconfigured.
func (s *SessionService) CreateSession(ctx context.Context, uid, displayName string, req *CreateSessionRequest) (*session.WithParticipants, error) {
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("durationMinutes must be positive")
	}
	if req.MaxParticipants <= 0 {
		req.MaxParticipants = 8
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now()
	sess := session.Session{
		ID:              uuid.New().String(),
		HostID:          uid,
		Title:           req.Title,
		DurationMinutes: req.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
		Status:          session.StatusActive,
		InviteCode:      code,
		StartedAt:       &now,
		CreatedAt:       now,
	}
	host := session.Participant{
		UserID:      uid,
		DisplayName: displayName,
		IsActive:    true,
		JoinedAt:    now,
	}

	ops := []docstore.WriteOp{
		{Path: sessionDoc(sess.ID), Value: sess},
		{Path: sessionParticipantDoc(sess.ID, uid), Value: host},
	}
	if err := s.store.Batch(ctx, ops); err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		log.Printf("CreateSession: write failed for %s: %v", uid, err)
		return nil, err
	}

	return &session.WithParticipants{Session: sess, Participants: []session.Participant{host}}, nil
}

// ResolveInviteCode maps a code to its session; ended sessions resolve to
// nil, same as unknown codes.
func (s *SessionService) ResolveInviteCode(ctx context.Context, code string) (*session.Session, error) {
	if !invite.Valid(code) {
		return nil, nil
	}
	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: "bodyDoublingSessions",
		Filters:    []docstore.Filter{{Field: "inviteCode", Op: "==", Value: code}},
		Limit:      1,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, fmt.Errorf("invite lookup failed: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var sess session.Session
	if err := docs[0].Decode(&sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if !sess.Joinable() {
		return nil, nil
	}
	return &sess, nil
}

// JoinSession adds the caller as an active participant if a slot is free.
// The whole check-and-add runs in one transaction: the session is re-read,
// the caller's own participant document is checked, active participants are
// counted, and only then is the participant written.
func (s *SessionService) JoinSession(ctx context.Context, uid, displayName, code string) (*session.WithParticipants, error) {
	sess, err := s.ResolveInviteCode(ctx, code)
	if err != nil || sess == nil {
		return nil, err
	}

	now := time.Now()
	joined := false
	err = s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		var current session.Session
		found, err := tx.Get(sessionDoc(sess.ID), &current)
		if err != nil {
			return err
		}
		if !found || !current.Joinable() {
			return nil
		}

		var existing session.Participant
		already, err := tx.Get(sessionParticipantDoc(sess.ID, uid), &existing)
		if err != nil {
			return err
		}
		if already && existing.IsActive {
			return nil
		}

		docs, err := tx.Docs(docstore.Query{
			Collection: sessionParticipantsCollection(sess.ID),
			Filters:    []docstore.Filter{{Field: "isActive", Op: "==", Value: true}},
		})
		if err != nil {
			return err
		}
		if len(docs) >= current.MaxParticipants {
			return nil
		}

		p := session.Participant{
			UserID:      uid,
			DisplayName: displayName,
			IsActive:    true,
			JoinedAt:    now,
		}
		if already {
			// rejoin keeps the original join time
			p.JoinedAt = existing.JoinedAt
		}
		if err := tx.Set(sessionParticipantDoc(sess.ID, uid), p); err != nil {
			return err
		}
		joined = true
		return nil
	})
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		log.Printf("JoinSession: transaction failed for %s: %v", uid, err)
		return nil, err
	}
	if !joined {
		return nil, nil
	}

	return s.GetSession(ctx, sess.ID)
}

// LeaveSession flips the caller's isActive flag; the participant record
// stays for history.
func (s *SessionService) LeaveSession(ctx context.Context, uid, sessionID string) bool {
	now := time.Now()
	err := s.store.Update(ctx, sessionParticipantDoc(sessionID, uid), map[string]any{
		"isActive": false,
		"leftAt":   now,
	})
	if err != nil {
		if !errors.Is(err, docstore.ErrDisabled) && !errors.Is(err, docstore.ErrNotFound) {
			log.Printf("LeaveSession: update failed for %s/%s: %v", uid, sessionID, err)
		}
		return false
	}
	return true
}

// EndSession closes the session. Only the host may end it.
func (s *SessionService) EndSession(ctx context.Context, uid, sessionID string) bool {
	var sess session.Session
	found, err := s.store.Get(ctx, sessionDoc(sessionID), &sess)
	if err != nil || !found {
		return false
	}
	if sess.HostID != uid || sess.Status == session.StatusEnded {
		return false
	}

	now := time.Now()
	err = s.store.Update(ctx, sessionDoc(sessionID), map[string]any{
		"status":  string(session.StatusEnded),
		"endedAt": now,
	})
	if err != nil {
		if !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("EndSession: update failed for %s: %v", sessionID, err)
		}
		return false
	}
	return true
}

func (s *SessionService) GetSession(ctx context.Context, id string) (*session.WithParticipants, error) {
	var sess session.Session
	found, err := s.store.Get(ctx, sessionDoc(id), &sess)
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}

	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: sessionParticipantsCollection(id),
		OrderBy:    "joinedAt",
	})
	if err != nil && !errors.Is(err, docstore.ErrDisabled) {
		return nil, err
	}
	participants := make([]session.Participant, 0, len(docs))
	for _, d := range docs {
		var p session.Participant
		if err := d.Decode(&p); err != nil {
			continue
		}
		participants = append(participants, p)
	}
	return &session.WithParticipants{Session: sess, Participants: participants}, nil
}

func (s *SessionService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := invite.GenerateCode()
		if err != nil {
			return "", err
		}
		docs, err := s.store.Query(ctx, docstore.Query{
			Collection: "bodyDoublingSessions",
			Filters:    []docstore.Filter{{Field: "inviteCode", Op: "==", Value: code}},
			Limit:      1,
		})
		if err != nil {
			return "", err
		}
		if len(docs) == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique invite code")
}
