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
	"declutterAPI/internal/types/room"
	"declutterAPI/internal/types/sharedroom"
)

func sharedRoomDoc(id string) string { return "sharedRooms/" + id }

// SharedRoomView pairs the share record with the owner's room data.
type SharedRoomView struct {
	Share sharedroom.SharedRoom `json:"share"`
	Room  *room.Room            `json:"room,omitempty"`
}

// SharedRoomService lets a user expose one of their rooms to others via an
// invite code. The viewer list only grows (array-union append); revoking
// deletes the whole share document.
type SharedRoomService struct {
	store docstore.Store
}

func NewSharedRoomService(store docstore.Store) *SharedRoomService {
	return &SharedRoomService{store: store}
}

// ShareRoom creates a share for a room that has already been synced to the
// cloud. Returns nil when the room has no cloud copy or the backend is
// unconfigured.
func (s *SharedRoomService) ShareRoom(ctx context.Context, uid, roomID string, isPublic bool) (*sharedroom.SharedRoom, error) {
	var r room.Room
	found, err := s.store.Get(ctx, roomDoc(uid, roomID), &r)
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	sr := sharedroom.SharedRoom{
		ID:         uuid.New().String(),
		OwnerID:    uid,
		RoomID:     roomID,
		InviteCode: code,
		SharedWith: []string{},
		IsPublic:   isPublic,
		CreatedAt:  time.Now(),
	}
	if err := s.store.Set(ctx, sharedRoomDoc(sr.ID), sr); err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		log.Printf("ShareRoom: write failed for %s: %v", uid, err)
		return nil, err
	}
	return &sr, nil
}

// JoinSharedRoom resolves a code and appends the caller to the viewer list.
// The append is an array-union, so concurrent joins by different viewers
// never drop each other.
func (s *SharedRoomService) JoinSharedRoom(ctx context.Context, uid, code string) (*SharedRoomView, error) {
	if !invite.Valid(code) {
		return nil, nil
	}
	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: "sharedRooms",
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

	var sr sharedroom.SharedRoom
	if err := docs[0].Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode shared room: %w", err)
	}

	if sr.OwnerID != uid {
		err = s.store.Update(ctx, sharedRoomDoc(sr.ID), map[string]any{
			"sharedWith": docstore.ArrayUnion(uid),
		})
		if err != nil && !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("JoinSharedRoom: viewer append failed for %s: %v", sr.ID, err)
			return nil, err
		}
		sr.SharedWith = appendUnique(sr.SharedWith, uid)
		s.recordConnection(ctx, uid, sr.OwnerID)
	}

	view := &SharedRoomView{Share: sr}
	var r room.Room
	if found, err := s.store.Get(ctx, roomDoc(sr.OwnerID, sr.RoomID), &r); err == nil && found {
		view.Room = &r
	}
	return view, nil
}

// ListShares returns shares the user owns and shares they can view.
func (s *SharedRoomService) ListShares(ctx context.Context, uid string) ([]sharedroom.SharedRoom, error) {
	owned, err := s.store.Query(ctx, docstore.Query{
		Collection: "sharedRooms",
		Filters:    []docstore.Filter{{Field: "ownerId", Op: "==", Value: uid}},
	})
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}
	viewing, err := s.store.Query(ctx, docstore.Query{
		Collection: "sharedRooms",
		Filters:    []docstore.Filter{{Field: "sharedWith", Op: "array-contains", Value: uid}},
	})
	if err != nil && !errors.Is(err, docstore.ErrDisabled) {
		return nil, err
	}

	var out []sharedroom.SharedRoom
	for _, d := range append(owned, viewing...) {
		var sr sharedroom.SharedRoom
		if err := d.Decode(&sr); err != nil {
			continue
		}
		out = append(out, sr)
	}
	return out, nil
}

// Revoke deletes a share. Owner only.
func (s *SharedRoomService) Revoke(ctx context.Context, uid, shareID string) bool {
	var sr sharedroom.SharedRoom
	found, err := s.store.Get(ctx, sharedRoomDoc(shareID), &sr)
	if err != nil || !found || sr.OwnerID != uid {
		return false
	}
	if err := s.store.Delete(ctx, sharedRoomDoc(shareID)); err != nil {
		if !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("Revoke: delete failed for %s: %v", shareID, err)
		}
		return false
	}
	return true
}

func (s *SharedRoomService) recordConnection(ctx context.Context, a, b string) {
	conn := sharedroom.Connection{
		UserIDs:     []string{a, b},
		ConnectedAt: time.Now(),
		Source:      "shared_room",
	}
	if err := s.store.Set(ctx, connectionDoc(a, b), conn); err != nil && !errors.Is(err, docstore.ErrDisabled) {
		log.Printf("recordConnection: write failed for %s/%s: %v", a, b, err)
	}
}

func (s *SharedRoomService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := invite.GenerateCode()
		if err != nil {
			return "", err
		}
		docs, err := s.store.Query(ctx, docstore.Query{
			Collection: "sharedRooms",
			Filters:    []docstore.Filter{{Field: "inviteCode", Op: "==", Value: code}},
			Limit:      1,
		})
		if err != nil {
			if errors.Is(err, docstore.ErrDisabled) {
				return "", err
			}
			return "", err
		}
		if len(docs) == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique invite code")
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
