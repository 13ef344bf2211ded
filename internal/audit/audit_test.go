package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tinymud/internal/world"
)

// linkedRooms builds two rooms joined by a fully reciprocal door, with the
// object view in agreement with the map view.
func linkedRooms(w *world.World, a, b *world.Room, name string) {
	a.Doors[name] = b.ID
	b.Doors[name] = a.ID

	fwd := world.NewObject(name, "A doorway named '"+name+"'.", world.TagImmovable, world.TagTravelPoint)
	fwd.LinkTargetRoomID = b.ID
	a.Objects[fwd.UUID] = fwd
	a.DoorIDs[name] = fwd.UUID

	back := world.NewObject(name, "A doorway named '"+name+"'.", world.TagImmovable, world.TagTravelPoint)
	back.LinkTargetRoomID = a.ID
	b.Objects[back.UUID] = back
	b.DoorIDs[name] = back.UUID
}

func TestHealthyWorldPassesAllChecks(t *testing.T) {
	w := world.New()
	tavern := world.NewRoom("tavern", "A warm tavern.")
	w.Rooms["tavern"] = tavern
	linkedRooms(w, w.Rooms[world.StartRoomID], tavern, "oak door")

	rep := Run(w)
	assert.Empty(t, rep.Issues)
	assert.Equal(t, 100, rep.Health)
}

func TestBrokenDoorReciprocityFlagged(t *testing.T) {
	w := world.New()
	tavern := world.NewRoom("tavern", "A warm tavern.")
	w.Rooms["tavern"] = tavern
	linkedRooms(w, w.Rooms[world.StartRoomID], tavern, "oak door")

	// Sever the return door but leave the forward side intact.
	delete(tavern.Doors, "oak door")
	delete(tavern.Objects, tavern.DoorIDs["oak door"])

	rep := Run(w)
	require.NotEmpty(t, rep.Issues)
	assert.Less(t, rep.Health, 100)
	assert.Contains(t, rep.Issues, `room start door "oak door" has no return door in tavern`)
}

func TestStairReciprocity(t *testing.T) {
	w := world.New()
	loft := world.NewRoom("loft", "A dusty loft.")
	w.Rooms["loft"] = loft
	start := w.Rooms[world.StartRoomID]
	start.StairsUpTo = "loft"
	loft.StairsDownTo = world.StartRoomID

	up := world.NewObject("stairs up", "A staircase leading up.", world.TagImmovable, world.TagTravelPoint)
	up.LinkTargetRoomID = "loft"
	start.Objects[up.UUID] = up
	down := world.NewObject("stairs down", "A staircase leading down.", world.TagImmovable, world.TagTravelPoint)
	down.LinkTargetRoomID = world.StartRoomID
	loft.Objects[down.UUID] = down

	assert.Empty(t, Run(w).Issues)

	loft.StairsDownTo = ""
	delete(loft.Objects, down.UUID)
	rep := Run(w)
	assert.NotEmpty(t, rep.Issues)
}

func TestDuplicateUUIDDetected(t *testing.T) {
	w := world.New()
	a := world.NewObject("coin", "A worn coin.", world.TagSmall)
	b := a.Clone(false) // same UUID, second location
	room := w.Rooms[world.StartRoomID]
	room.Objects[a.UUID] = a

	s := world.NewCharacterSheet("Mara", "a wanderer")
	require.GreaterOrEqual(t, s.Inventory.PlaceAuto(b), 0)
	w.NPCSheets["Mara"] = s
	room.NPCs["Mara"] = true
	w.NPCID("Mara")

	rep := Run(w)
	require.NotEmpty(t, rep.Issues)
	assert.Contains(t, rep.Issues[len(rep.Issues)-1], "duplicate UUID")
}

func TestTravelPointMissingLinkFlagged(t *testing.T) {
	w := world.New()
	portal := world.NewObject("shimmering arch", "An arch of light.", world.TagImmovable, world.TagTravelPoint)
	portal.LinkTargetRoomID = "nowhere"
	w.Rooms[world.StartRoomID].Objects[portal.UUID] = portal

	rep := Run(w)
	assert.NotEmpty(t, rep.Issues)
	assert.Less(t, rep.Health, 100)
}

func TestCleanupRemovesOrphanReferences(t *testing.T) {
	w := world.New()
	alice, err := w.CreateUser("Alice", "pw", "")
	require.NoError(t, err)
	bob, err := w.CreateUser("Bob", "pw", "")
	require.NoError(t, err)

	w.SetRelationship(alice.UserID, bob.UserID, "friend")
	room := w.Rooms[world.StartRoomID]
	room.Doors["iron gate"] = world.StartRoomID
	room.DoorLocks = map[string]*world.LockPolicy{
		"iron gate": {AllowIDs: []string{alice.UserID, bob.UserID}},
	}
	room.NPCs["Ghost"] = true // no sheet behind this name

	delete(w.Users, bob.UserID)
	Cleanup(w)

	assert.Empty(t, w.Relations[alice.UserID], "friendship with a deleted user is dropped")
	assert.Equal(t, []string{alice.UserID}, room.DoorLocks["iron gate"].AllowIDs)
	assert.False(t, room.NPCs["Ghost"])
}

func TestCleanupClampsSheets(t *testing.T) {
	w := world.New()
	alice, err := w.CreateUser("Alice", "pw", "")
	require.NoError(t, err)
	alice.Sheet.Needs.Hunger = -40
	alice.Sheet.Matrix["brave_cautious"] = 99

	s := world.NewCharacterSheet("Mara", "a wanderer")
	s.Planner.PlanQueue = []world.PlanStep{{Tool: "explode", Args: map[string]any{}}}
	w.NPCSheets["Mara"] = s
	w.Rooms[world.StartRoomID].NPCs["Mara"] = true

	Cleanup(w)

	assert.Equal(t, float64(0), alice.Sheet.Needs.Hunger)
	assert.Equal(t, 10, alice.Sheet.Matrix["brave_cautious"])
	assert.Empty(t, s.Planner.PlanQueue)
}
