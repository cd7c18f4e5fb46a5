package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declutterAPI/internal/docstore"
	"declutterAPI/internal/types/session"
)

func TestSessionCreateDefaults(t *testing.T) {
	svc := NewSessionService(docstore.NewMemory(), nil)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "host", "Hope", &CreateSessionRequest{
		Title:           "Morning focus",
		DurationMinutes: 25,
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, session.StatusActive, created.Session.Status)
	assert.Equal(t, 8, created.Session.MaxParticipants)
	assert.NotNil(t, created.Session.StartedAt)
	require.Len(t, created.Participants, 1)
	assert.True(t, created.Participants[0].IsActive)

	_, err = svc.CreateSession(ctx, "host", "Hope", &CreateSessionRequest{DurationMinutes: 0})
	assert.Error(t, err)
}

func TestSessionJoinAndLeave(t *testing.T) {
	svc := NewSessionService(docstore.NewMemory(), nil)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "host", "Hope", &CreateSessionRequest{
		Title: "Focus", DurationMinutes: 25, MaxParticipants: 3,
	})
	require.NoError(t, err)
	code := created.Session.InviteCode

	joined, err := svc.JoinSession(ctx, "bob", "Bob", code)
	require.NoError(t, err)
	require.NotNil(t, joined)
	assert.Len(t, joined.Participants, 2)

	// active rejoin is a no-op
	again, err := svc.JoinSession(ctx, "bob", "Bob", code)
	require.NoError(t, err)
	assert.Nil(t, again)

	require.True(t, svc.LeaveSession(ctx, "bob", created.Session.ID))

	after, err := svc.GetSession(ctx, created.Session.ID)
	require.NoError(t, err)
	var bob *session.Participant
	for i := range after.Participants {
		if after.Participants[i].UserID == "bob" {
			bob = &after.Participants[i]
		}
	}
	require.NotNil(t, bob, "participant record survives leaving")
	assert.False(t, bob.IsActive)
	assert.NotNil(t, bob.LeftAt)

	// leaving freed the slot, bob can come back
	back, err := svc.JoinSession(ctx, "bob", "Bob", code)
	require.NoError(t, err)
	require.NotNil(t, back)
}

func TestSessionConcurrentJoinsRespectCapacity(t *testing.T) {
	svc := NewSessionService(docstore.NewMemory(), nil)
	ctx := context.Background()

	// host takes one slot, exactly one remains
	created, err := svc.CreateSession(ctx, "host", "Hope", &CreateSessionRequest{
		Title: "Tight", DurationMinutes: 25, MaxParticipants: 2,
	})
	require.NoError(t, err)
	code := created.Session.InviteCode

	users := []string{"u1", "u2", "u3", "u4"}
	results := make([]*session.WithParticipants, len(users))
	var wg sync.WaitGroup
	for i, uid := range users {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			res, err := svc.JoinSession(ctx, uid, uid, code)
			assert.NoError(t, err)
			results[i] = res
		}(i, uid)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res != nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "one slot, one winner")

	after, err := svc.GetSession(ctx, created.Session.ID)
	require.NoError(t, err)
	active := 0
	for _, p := range after.Participants {
		if p.IsActive {
			active++
		}
	}
	assert.Equal(t, 2, active)
}

func TestSessionEndHostOnly(t *testing.T) {
	svc := NewSessionService(docstore.NewMemory(), nil)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "host", "Hope", &CreateSessionRequest{
		Title: "Focus", DurationMinutes: 25,
	})
	require.NoError(t, err)
	id := created.Session.ID

	_, err = svc.JoinSession(ctx, "bob", "Bob", created.Session.InviteCode)
	require.NoError(t, err)

	assert.False(t, svc.EndSession(ctx, "bob", id), "only the host ends a session")
	assert.True(t, svc.EndSession(ctx, "host", id))
	assert.False(t, svc.EndSession(ctx, "host", id), "ending twice is rejected")

	after, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StatusEnded, after.Session.Status)
	assert.NotNil(t, after.Session.EndedAt)

	// ended sessions stop resolving
	resolved, err := svc.ResolveInviteCode(ctx, created.Session.InviteCode)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	joined, err := svc.JoinSession(ctx, "carol", "Carol", created.Session.InviteCode)
	require.NoError(t, err)
	assert.Nil(t, joined)
}
