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
	"declutterAPI/internal/types/challenge"
	"declutterAPI/internal/types/sharedroom"
)

func challengeDoc(id string) string { return "challenges/" + id }

func challengeParticipantDoc(id, uid string) string {
	return "challenges/" + id + "/participants/" + uid
}

func challengeParticipantsCollection(id string) string {
	return "challenges/" + id + "/participants"
}

func userChallengeIndexDoc(uid, challengeID string) string {
	return "users/" + uid + "/challenges/" + challengeID
}

func connectionDoc(a, b string) string { return "connections/" + sharedroom.PairID(a, b) }

type CreateChallengeRequest struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Type         challenge.Type `json:"type"`
	Target       int            `json:"target"`
	DurationDays int            `json:"durationDays"`
}

// challengeIndex is the per-user pointer written at create/join so a user's
// challenges can be listed without a cross-parent query.
type challengeIndex struct {
	ChallengeID string    `json:"challengeId" firestore:"challengeId"`
	JoinedAt    time.Time `json:"joinedAt" firestore:"joinedAt"`
}

// ChallengeService coordinates multi-participant challenge documents.
// Participants are sub-documents keyed by user id: joining is a transaction
// against the parent and the caller's own participant document, and progress
// updates only ever touch the caller's document, so two participants can
// never clobber each other's progress.
type ChallengeService struct {
	store  docstore.Store
	alerts *AlertDispatcher
}

func NewChallengeService(store docstore.Store, alerts *AlertDispatcher) *ChallengeService {
	return &ChallengeService{store: store, alerts: alerts}
}

// CreateChallenge creates the document with the creator as sole initial
// participant and a fresh invite code. Returns nil when the backend is
// unreachable or unconfigured.
func (s *ChallengeService) CreateChallenge(ctx context.Context, uid, displayName string, req *CreateChallengeRequest) (*challenge.WithParticipants, error) {
	if req.Target <= 0 || req.DurationDays <= 0 {
		return nil, fmt.Errorf("target and durationDays must be positive")
	}

	code, err := s.uniqueCode(ctx, "challenges")
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now()
	ch := challenge.Challenge{
		ID:          uuid.New().String(),
		CreatorID:   uid,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Target:      req.Target,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, req.DurationDays),
		Status:      challenge.StatusInProgress,
		InviteCode:  code,
		CreatedAt:   now,
	}
	creator := challenge.Participant{
		UserID:      uid,
		DisplayName: displayName,
		Progress:    0,
		Joined:      now,
	}

	ops := []docstore.WriteOp{
		{Path: challengeDoc(ch.ID), Value: ch},
		{Path: challengeParticipantDoc(ch.ID, uid), Value: creator},
		{Path: userChallengeIndexDoc(uid, ch.ID), Value: challengeIndex{ChallengeID: ch.ID, JoinedAt: now}},
	}
	if err := s.store.Batch(ctx, ops); err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		log.Printf("CreateChallenge: write failed for %s: %v", uid, err)
		return nil, err
	}

	return &challenge.WithParticipants{Challenge: ch, Participants: []challenge.Participant{creator}}, nil
}

// ResolveInviteCode maps a code to its challenge. Unknown codes resolve to
// nil, not an error.
func (s *ChallengeService) ResolveInviteCode(ctx context.Context, code string) (*challenge.Challenge, error) {
	if !invite.Valid(code) {
		return nil, nil
	}
	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: "challenges",
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
	var ch challenge.Challenge
	if err := docs[0].Decode(&ch); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return &ch, nil
}

// JoinChallenge resolves the code and appends the caller as a participant.
// Returns nil if the code is unknown, the challenge is expired, or the caller
// already joined. An expired challenge is never mutated.
func (s *ChallengeService) JoinChallenge(ctx context.Context, uid, displayName, code string) (*challenge.WithParticipants, error) {
	ch, err := s.ResolveInviteCode(ctx, code)
	if err != nil || ch == nil {
		return nil, err
	}

	now := time.Now()
	joined := false
	err = s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		var current challenge.Challenge
		found, err := tx.Get(challengeDoc(ch.ID), &current)
		if err != nil {
			return err
		}
		if !found || !current.Joinable(now) {
			return nil
		}

		var existing challenge.Participant
		already, err := tx.Get(challengeParticipantDoc(ch.ID, uid), &existing)
		if err != nil {
			return err
		}
		if already {
			return nil
		}

		p := challenge.Participant{
			UserID:      uid,
			DisplayName: displayName,
			Progress:    0,
			Joined:      now,
		}
		if err := tx.Set(challengeParticipantDoc(ch.ID, uid), p); err != nil {
			return err
		}
		if err := tx.Set(userChallengeIndexDoc(uid, ch.ID), challengeIndex{ChallengeID: ch.ID, JoinedAt: now}); err != nil {
			return err
		}
		joined = true
		return nil
	})
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		log.Printf("JoinChallenge: transaction failed for %s: %v", uid, err)
		return nil, err
	}
	if !joined {
		return nil, nil
	}

	s.recordConnection(ctx, uid, ch.CreatorID, "challenge")

	return s.GetChallenge(ctx, ch.ID)
}

// UpdateProgress sets the caller's progress on a challenge. Progress never
// decreases; completion flips exactly once, when progress reaches the target.
func (s *ChallengeService) UpdateProgress(ctx context.Context, uid, challengeID string, value int) (*challenge.Participant, error) {
	now := time.Now()
	var result *challenge.Participant
	var completedTitle string

	err := s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		var ch challenge.Challenge
		found, err := tx.Get(challengeDoc(challengeID), &ch)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		if ch.Expired(now) {
			if challenge.CanTransition(ch.Status, challenge.StatusExpired) {
				return tx.Update(challengeDoc(challengeID), map[string]any{
					"status": string(challenge.StatusExpired),
				})
			}
			return nil
		}
		if ch.Status != challenge.StatusInProgress {
			return nil
		}

		var p challenge.Participant
		found, err = tx.Get(challengeParticipantDoc(challengeID, uid), &p)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		if value > p.Progress {
			p.Progress = value
		}
		if !p.Completed && p.Progress >= ch.Target {
			p.Completed = true
			t := now
			p.CompletedAt = &t
			completedTitle = ch.Title
			// first participant to finish wins the challenge
			if challenge.CanTransition(ch.Status, challenge.StatusCompleted) {
				if err := tx.Update(challengeDoc(challengeID), map[string]any{
					"status": string(challenge.StatusCompleted),
				}); err != nil {
					return err
				}
			}
		}
		if err := tx.Set(challengeParticipantDoc(challengeID, uid), p); err != nil {
			return err
		}
		result = &p
		return nil
	})
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		log.Printf("UpdateProgress: transaction failed for %s/%s: %v", uid, challengeID, err)
		return nil, err
	}

	if completedTitle != "" && s.alerts != nil {
		s.alerts.Notify(uid, "Challenge complete!", fmt.Sprintf("You finished %q", completedTitle), map[string]any{
			"challengeId": challengeID,
		})
	}
	return result, nil
}

// GetChallenge loads a challenge with its participants, marking it expired
// on read when the window has closed.
func (s *ChallengeService) GetChallenge(ctx context.Context, id string) (*challenge.WithParticipants, error) {
	var ch challenge.Challenge
	found, err := s.store.Get(ctx, challengeDoc(id), &ch)
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}

	if ch.Expired(time.Now()) && challenge.CanTransition(ch.Status, challenge.StatusExpired) {
		ch.Status = challenge.StatusExpired
		if err := s.store.Update(ctx, challengeDoc(id), map[string]any{
			"status": string(challenge.StatusExpired),
		}); err != nil && !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("GetChallenge: expire write failed for %s: %v", id, err)
		}
	}

	participants, err := s.listParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	return &challenge.WithParticipants{Challenge: ch, Participants: participants}, nil
}

// ListUserChallenges walks the user's challenge index.
func (s *ChallengeService) ListUserChallenges(ctx context.Context, uid string) ([]challenge.WithParticipants, error) {
	docs, err := s.store.Query(ctx, docstore.Query{Collection: "users/" + uid + "/challenges"})
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}

	var out []challenge.WithParticipants
	for _, d := range docs {
		var idx challengeIndex
		if err := d.Decode(&idx); err != nil {
			continue
		}
		cwp, err := s.GetChallenge(ctx, idx.ChallengeID)
		if err != nil || cwp == nil {
			continue
		}
		out = append(out, *cwp)
	}
	return out, nil
}

func (s *ChallengeService) listParticipants(ctx context.Context, id string) ([]challenge.Participant, error) {
	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: challengeParticipantsCollection(id),
		OrderBy:    "joined",
	})
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	participants := make([]challenge.Participant, 0, len(docs))
	for _, d := range docs {
		var p challenge.Participant
		if err := d.Decode(&p); err != nil {
			continue
		}
		participants = append(participants, p)
	}
	return participants, nil
}

// uniqueCode generates an invite code and verifies it is unused among the
// given collection's documents. Best effort: uniqueness is checked, not
// enforced transactionally.
func (s *ChallengeService) uniqueCode(ctx context.Context, collection string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := invite.GenerateCode()
		if err != nil {
			return "", err
		}
		docs, err := s.store.Query(ctx, docstore.Query{
			Collection: collection,
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

// recordConnection writes the pair document linking two users. Best effort:
// a failure here never blocks the join that triggered it.
func (s *ChallengeService) recordConnection(ctx context.Context, a, b, source string) {
	if a == b {
		return
	}
	conn := sharedroom.Connection{
		UserIDs:     []string{a, b},
		ConnectedAt: time.Now(),
		Source:      source,
	}
	if err := s.store.Set(ctx, connectionDoc(a, b), conn); err != nil && !errors.Is(err, docstore.ErrDisabled) {
		log.Printf("recordConnection: write failed for %s/%s: %v", a, b, err)
	}
}
