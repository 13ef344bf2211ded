package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRules(t *testing.T) {
	w := New()

	_, err := w.CreateUser("A", "pw", "")
	assert.Error(t, err, "one-character names rejected")

	alice, err := w.CreateUser("Alice", "pw", "explorer")
	require.NoError(t, err)
	assert.True(t, alice.IsAdmin)

	_, err = w.CreateUser("alice", "pw2", "")
	assert.Error(t, err, "names are unique case-insensitively")

	bob, err := w.CreateUser("Bob", "pw", "merchant")
	require.NoError(t, err)
	assert.False(t, bob.IsAdmin, "only the first user is auto-admin")
}

func TestBindMoveUnbindPlayer(t *testing.T) {
	w := New()
	w.Rooms["tavern"] = NewRoom("tavern", "A warm tavern.")
	alice, err := w.CreateUser("Alice", "pw", "")
	require.NoError(t, err)

	p := w.BindPlayer("s1", alice)
	assert.Equal(t, StartRoomID, p.RoomID)
	assert.True(t, w.Rooms[StartRoomID].Players["s1"])

	require.NoError(t, w.MovePlayer("s1", "tavern"))
	assert.False(t, w.Rooms[StartRoomID].Players["s1"])
	assert.True(t, w.Rooms["tavern"].Players["s1"])

	assert.Error(t, w.MovePlayer("s1", "void"))

	w.UnbindPlayer("s1")
	assert.False(t, w.Rooms["tavern"].Players["s1"])
	assert.NotNil(t, w.Users[alice.UserID], "user persists after unbind")
}

func TestNPCIDStable(t *testing.T) {
	w := New()
	id1 := w.NPCID("Gareth")
	id2 := w.NPCID("Gareth")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, w.NPCID("Mira"))
}

func TestAdjacentRooms(t *testing.T) {
	w := New()
	w.Rooms["tavern"] = NewRoom("tavern", "")
	w.Rooms["loft"] = NewRoom("loft", "")
	start := w.Rooms[StartRoomID]
	start.Doors["oak door"] = "tavern"
	start.StairsUpTo = "loft"
	start.Doors["broken door"] = "missing" // dangling target filtered out

	assert.Equal(t, []string{"loft", "tavern"}, w.AdjacentRooms(start))
}

func TestTagValueParsing(t *testing.T) {
	o := NewObject("stew", "", TagSmall, "edible: 20", "Drinkable: +5")
	n, ok := o.TagValue("Edible")
	require.True(t, ok, "key matches case-insensitively")
	assert.Equal(t, 20, n)
	assert.Equal(t, 5, o.Hydration())
	assert.True(t, o.IsEdible())
	assert.True(t, o.IsDrinkable())

	plain := NewObject("rock", "", TagSmall)
	assert.False(t, plain.IsEdible())
}

func TestCloneFreshUUID(t *testing.T) {
	tmpl := NewObject("Bronze Sword", "a dull blade", TagSmall, TagWeapon)
	tmpl.WeaponDamage = 2
	inst := tmpl.Clone(true)
	assert.NotEqual(t, tmpl.UUID, inst.UUID)
	assert.Equal(t, tmpl.DisplayName, inst.DisplayName)
	assert.Equal(t, 2, inst.WeaponDamage)

	inst.AddTag(TagStowed)
	assert.False(t, tmpl.HasTag(TagStowed), "clone does not share tag storage")
}

func TestSheetClampAndMemory(t *testing.T) {
	s := NewCharacterSheet("Gareth", "")
	s.Needs.Hunger = -5
	s.Needs.Sleep = 400
	s.Matrix["brave_cautious"] = 99
	s.Planner.ActionPoints = -1
	s.ClampAll()
	assert.Equal(t, 0.0, s.Needs.Hunger)
	assert.Equal(t, 100.0, s.Needs.Sleep)
	assert.Equal(t, 10, s.Matrix["brave_cautious"])
	assert.Equal(t, 0, s.Planner.ActionPoints)

	for i := 0; i < MaxMemory+10; i++ {
		s.Remember("event")
	}
	assert.Len(t, s.Memory, MaxMemory)

	s.AdjustRelationship("x", 150)
	assert.Equal(t, 100, s.Relationships["x"])
	s.AdjustRelationship("x", -300)
	assert.Equal(t, -100, s.Relationships["x"])
}
