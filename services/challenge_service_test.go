package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declutterAPI/internal/docstore"
	"declutterAPI/internal/types/challenge"
)

func newChallengeFixture(t *testing.T) (*ChallengeService, *docstore.Memory) {
	t.Helper()
	store := docstore.NewMemory()
	return NewChallengeService(store, nil), store
}

func TestChallengeCreateAndResolve(t *testing.T) {
	svc, _ := newChallengeFixture(t)
	ctx := context.Background()

	created, err := svc.CreateChallenge(ctx, "alice", "Alice", &CreateChallengeRequest{
		Title:        "Spring reset",
		Type:         challenge.TypeTasksCount,
		Target:       20,
		DurationDays: 7,
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, challenge.StatusInProgress, created.Challenge.Status)
	assert.Len(t, created.Challenge.InviteCode, 6)
	require.Len(t, created.Participants, 1)
	assert.Equal(t, "alice", created.Participants[0].UserID)

	resolved, err := svc.ResolveInviteCode(ctx, created.Challenge.InviteCode)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, created.Challenge.ID, resolved.ID)

	unknown, err := svc.ResolveInviteCode(ctx, "ZZZZZZ")
	require.NoError(t, err)
	assert.Nil(t, unknown)

	malformed, err := svc.ResolveInviteCode(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, malformed)
}

func TestChallengeCreateValidation(t *testing.T) {
	svc, _ := newChallengeFixture(t)
	_, err := svc.CreateChallenge(context.Background(), "alice", "Alice", &CreateChallengeRequest{
		Title: "bad", Target: 0, DurationDays: 7,
	})
	assert.Error(t, err)
}

func TestChallengeJoinFlow(t *testing.T) {
	svc, _ := newChallengeFixture(t)
	ctx := context.Background()

	created, err := svc.CreateChallenge(ctx, "alice", "Alice", &CreateChallengeRequest{
		Title: "Spring reset", Type: challenge.TypeTasksCount, Target: 5, DurationDays: 7,
	})
	require.NoError(t, err)

	joined, err := svc.JoinChallenge(ctx, "bob", "Bob", created.Challenge.InviteCode)
	require.NoError(t, err)
	require.NotNil(t, joined)
	assert.Len(t, joined.Participants, 2)

	// duplicate join is rejected without mutating anything
	dup, err := svc.JoinChallenge(ctx, "bob", "Bob", created.Challenge.InviteCode)
	require.NoError(t, err)
	assert.Nil(t, dup)

	after, err := svc.GetChallenge(ctx, created.Challenge.ID)
	require.NoError(t, err)
	assert.Len(t, after.Participants, 2)

	// join shows up in both users' challenge lists
	forBob, err := svc.ListUserChallenges(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, forBob, 1)
	assert.Equal(t, created.Challenge.ID, forBob[0].Challenge.ID)
}

func TestChallengeExpiredJoinRejected(t *testing.T) {
	svc, store := newChallengeFixture(t)
	ctx := context.Background()

	created, err := svc.CreateChallenge(ctx, "alice", "Alice", &CreateChallengeRequest{
		Title: "Over", Type: challenge.TypeTasksCount, Target: 5, DurationDays: 7,
	})
	require.NoError(t, err)

	// push the window into the past
	require.NoError(t, store.Update(ctx, challengeDoc(created.Challenge.ID), map[string]any{
		"endDate": time.Now().Add(-time.Hour),
	}))

	joined, err := svc.JoinChallenge(ctx, "bob", "Bob", created.Challenge.InviteCode)
	require.NoError(t, err)
	assert.Nil(t, joined)

	after, err := svc.GetChallenge(ctx, created.Challenge.ID)
	require.NoError(t, err)
	assert.Len(t, after.Participants, 1, "expired challenge is never mutated by a join")
	assert.Equal(t, challenge.StatusExpired, after.Challenge.Status, "expiry is applied on read")
}

func TestChallengeProgressMonotonicAndCompletion(t *testing.T) {
	svc, _ := newChallengeFixture(t)
	ctx := context.Background()

	created, err := svc.CreateChallenge(ctx, "alice", "Alice", &CreateChallengeRequest{
		Title: "Five tasks", Type: challenge.TypeTasksCount, Target: 5, DurationDays: 7,
	})
	require.NoError(t, err)
	id := created.Challenge.ID

	p, err := svc.UpdateProgress(ctx, "alice", id, 3)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 3, p.Progress)

	// a stale lower value never decreases progress
	p, err = svc.UpdateProgress(ctx, "alice", id, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 3, p.Progress)

	p, err = svc.UpdateProgress(ctx, "alice", id, 5)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.Completed)
	require.NotNil(t, p.CompletedAt)
	firstCompletion := *p.CompletedAt

	after, err := svc.GetChallenge(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusCompleted, after.Challenge.Status)

	// further updates of a completed challenge are no-ops
	p, err = svc.UpdateProgress(ctx, "alice", id, 7)
	require.NoError(t, err)
	assert.Nil(t, p)

	after, err = svc.GetChallenge(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, after.Participants[0].CompletedAt)
	assert.Equal(t, firstCompletion.Unix(), after.Participants[0].CompletedAt.Unix(), "completion timestamp never moves")
}

func TestChallengeProgressForNonParticipant(t *testing.T) {
	svc, _ := newChallengeFixture(t)
	ctx := context.Background()

	created, err := svc.CreateChallenge(ctx, "alice", "Alice", &CreateChallengeRequest{
		Title: "Solo", Type: challenge.TypeTasksCount, Target: 5, DurationDays: 7,
	})
	require.NoError(t, err)

	p, err := svc.UpdateProgress(ctx, "mallory", created.Challenge.ID, 4)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestChallengeJoinRecordsConnection(t *testing.T) {
	svc, store := newChallengeFixture(t)
	ctx := context.Background()

	created, err := svc.CreateChallenge(ctx, "alice", "Alice", &CreateChallengeRequest{
		Title: "Pair up", Type: challenge.TypeTasksCount, Target: 5, DurationDays: 7,
	})
	require.NoError(t, err)

	_, err = svc.JoinChallenge(ctx, "bob", "Bob", created.Challenge.InviteCode)
	require.NoError(t, err)

	var conn map[string]any
	found, err := store.Get(ctx, connectionDoc("bob", "alice"), &conn)
	require.NoError(t, err)
	assert.True(t, found, "join links the two users")
}

func TestChallengeDisabledStore(t *testing.T) {
	svc := NewChallengeService(docstore.Disabled{}, nil)
	ctx := context.Background()

	created, err := svc.CreateChallenge(ctx, "alice", "Alice", &CreateChallengeRequest{
		Title: "Offline", Type: challenge.TypeTasksCount, Target: 5, DurationDays: 7,
	})
	require.NoError(t, err)
	assert.Nil(t, created, "no backend means a quiet nil, not an error")
}
