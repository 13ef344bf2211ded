package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTraverseLockPolicies(t *testing.T) {
	w := New()
	alice, err := w.CreateUser("Alice", "pw", "")
	require.NoError(t, err)
	bob, err := w.CreateUser("Bob", "pw", "")
	require.NoError(t, err)

	room := w.Rooms[StartRoomID]
	room.Doors["iron gate"] = "tavern"

	// No policy: open.
	assert.True(t, w.CanTraverse(room, "iron gate", alice.UserID))

	// Empty policy: deny-all.
	room.DoorLocks = map[string]*LockPolicy{"iron gate": {}}
	assert.False(t, w.CanTraverse(room, "iron gate", alice.UserID))

	// Corrupt (nil) policy: deny.
	room.DoorLocks["iron gate"] = nil
	assert.False(t, w.CanTraverse(room, "iron gate", alice.UserID))

	// Allowlist.
	room.DoorLocks["iron gate"] = &LockPolicy{AllowIDs: []string{alice.UserID}}
	assert.True(t, w.CanTraverse(room, "iron gate", alice.UserID))
	assert.False(t, w.CanTraverse(room, "iron gate", bob.UserID))

	// Relationship rule.
	room.DoorLocks["iron gate"] = &LockPolicy{AllowRel: []RelRule{{Type: "friend", UserID: bob.UserID}}}
	assert.False(t, w.CanTraverse(room, "iron gate", alice.UserID), "no relationship recorded yet")
	w.SetRelationship(alice.UserID, bob.UserID, "friend")
	assert.True(t, w.CanTraverse(room, "iron gate", alice.UserID))

	// Deleted relationship target: rule skipped, not granted.
	delete(w.Users, bob.UserID)
	assert.False(t, w.CanTraverse(room, "iron gate", alice.UserID))
}
