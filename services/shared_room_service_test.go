package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declutterAPI/internal/docstore"
	"declutterAPI/internal/types/room"
)

func seedCloudRoom(t *testing.T, store *docstore.Memory, uid, roomID, name string) {
	t.Helper()
	err := store.Set(context.Background(), roomDoc(uid, roomID), room.Room{ID: roomID, Name: name})
	require.NoError(t, err)
}

func TestShareRoomRequiresCloudCopy(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewSharedRoomService(store)
	ctx := context.Background()

	share, err := svc.ShareRoom(ctx, "alice", "never-synced", false)
	require.NoError(t, err)
	assert.Nil(t, share)

	seedCloudRoom(t, store, "alice", "r1", "Living room")
	share, err = svc.ShareRoom(ctx, "alice", "r1", false)
	require.NoError(t, err)
	require.NotNil(t, share)
	assert.Len(t, share.InviteCode, 6)
	assert.Empty(t, share.SharedWith)
}

func TestJoinSharedRoom(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewSharedRoomService(store)
	ctx := context.Background()

	seedCloudRoom(t, store, "alice", "r1", "Living room")
	share, err := svc.ShareRoom(ctx, "alice", "r1", false)
	require.NoError(t, err)

	view, err := svc.JoinSharedRoom(ctx, "bob", share.InviteCode)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Contains(t, view.Share.SharedWith, "bob")
	require.NotNil(t, view.Room)
	assert.Equal(t, "Living room", view.Room.Name)

	// joining twice keeps the viewer list deduplicated
	view, err = svc.JoinSharedRoom(ctx, "bob", share.InviteCode)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, []string{"bob"}, view.Share.SharedWith)

	// the viewer link creates a connection record
	var conn map[string]any
	found, err := store.Get(ctx, connectionDoc("alice", "bob"), &conn)
	require.NoError(t, err)
	assert.True(t, found)

	unknown, err := svc.JoinSharedRoom(ctx, "bob", "ZZZZZZ")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestListSharesBothDirections(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewSharedRoomService(store)
	ctx := context.Background()

	seedCloudRoom(t, store, "alice", "r1", "Living room")
	seedCloudRoom(t, store, "carol", "r9", "Studio")

	aliceShare, err := svc.ShareRoom(ctx, "alice", "r1", false)
	require.NoError(t, err)
	carolShare, err := svc.ShareRoom(ctx, "carol", "r9", false)
	require.NoError(t, err)

	_, err = svc.JoinSharedRoom(ctx, "alice", carolShare.InviteCode)
	require.NoError(t, err)

	shares, err := svc.ListShares(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, shares, 2, "owned plus viewing")

	ids := []string{shares[0].ID, shares[1].ID}
	assert.Contains(t, ids, aliceShare.ID)
	assert.Contains(t, ids, carolShare.ID)
}

func TestRevokeOwnerOnly(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewSharedRoomService(store)
	ctx := context.Background()

	seedCloudRoom(t, store, "alice", "r1", "Living room")
	share, err := svc.ShareRoom(ctx, "alice", "r1", false)
	require.NoError(t, err)

	assert.False(t, svc.Revoke(ctx, "bob", share.ID))
	assert.True(t, svc.Revoke(ctx, "alice", share.ID))

	resolved, err := svc.JoinSharedRoom(ctx, "bob", share.InviteCode)
	require.NoError(t, err)
	assert.Nil(t, resolved, "revoked share no longer resolves")
}
