package sharedroom

import (
	"sort"
	"strings"
	"time"
)

// SharedRoom makes one of the owner's rooms visible to other users. The
// viewer list only grows; revoking a share deletes the whole document.
type SharedRoom struct {
	ID         string    `json:"id" firestore:"id"`
	OwnerID    string    `json:"ownerId" firestore:"ownerId"`
	RoomID     string    `json:"roomId" firestore:"roomId"`
	InviteCode string    `json:"inviteCode" firestore:"inviteCode"`
	SharedWith []string  `json:"sharedWith" firestore:"sharedWith"`
	IsPublic   bool      `json:"isPublic" firestore:"isPublic"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
}

// Connection records that two users have interacted through an invite.
type Connection struct {
	UserIDs     []string  `json:"userIds" firestore:"userIds"`
	ConnectedAt time.Time `json:"connectedAt" firestore:"connectedAt"`
	Source      string    `json:"source" firestore:"source"` // "challenge", "session", "shared_room"
}

// PairID builds the deterministic document id for a user pair, so the same
// two users always map to the same connection document.
func PairID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}
