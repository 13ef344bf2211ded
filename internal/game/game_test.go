package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tinymud/internal/ai"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

func boundPlayer(t *testing.T, w *world.World, sid, name string) *world.Player {
	t.Helper()
	res := CreateAccount(w, sid, name, "hunter2", "a curious explorer")
	require.True(t, res.Handled)
	require.Empty(t, res.Err)
	return w.Players[sid]
}

func emitted(r service.Result) string {
	var parts []string
	for _, p := range r.Emits {
		parts = append(parts, p.Content)
	}
	return strings.Join(parts, "\n")
}

func TestAccountCreationAndAdminList(t *testing.T) {
	w := world.New()

	res := CreateAccount(w, "s1", "Alice", "hunter2", "a curious explorer")
	require.Empty(t, res.Err)
	assert.Contains(t, emitted(res), "[b]Alice[/b]")
	assert.Contains(t, emitted(res), "account has been created")

	res = CreateAccount(w, "s2", "Bob", "passw0rd", "a wary merchant")
	require.Empty(t, res.Err)

	res = ListAdmins(w)
	assert.Equal(t, "Admins: Alice.", emitted(res))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	w := world.New()
	boundPlayer(t, w, "s1", "Alice")
	w.UnbindPlayer("s1")

	res := Login(w, "s2", "Alice", "wrong")
	assert.Equal(t, "Unknown name or wrong password.", res.Err)

	res = Login(w, "s2", "alice", "hunter2")
	assert.Empty(t, res.Err)
	assert.NotNil(t, w.Players["s2"])
}

func TestRoomCreateAndDoorReciprocity(t *testing.T) {
	w := world.New()
	boundPlayer(t, w, "s1", "Alice")

	res := CreateRoom(w, "tavern", "A warm tavern.")
	require.Empty(t, res.Err)

	res = AddDoor(w, "tavern", "oak door", "start")
	require.Empty(t, res.Err)

	tavern, start := w.Rooms["tavern"], w.Rooms["start"]
	assert.Equal(t, "start", tavern.Doors["oak door"])
	assert.Equal(t, "tavern", start.Doors["oak door"])

	for _, room := range []*world.Room{tavern, start} {
		obj := room.FindObjectByName("oak door")
		require.NotNil(t, obj, "door object missing in %s", room.ID)
		assert.True(t, obj.HasTag(world.TagImmovable))
		assert.True(t, obj.HasTag(world.TagTravelPoint))
		assert.Equal(t, room.Doors["oak door"], obj.LinkTargetRoomID)
		assert.Equal(t, obj.UUID, room.DoorIDs["oak door"])
	}
}

func TestReciprocalDoorNameCollision(t *testing.T) {
	w := world.New()
	CreateRoom(w, "cellar", "A cold cellar.")
	CreateRoom(w, "tavern", "A warm tavern.")

	require.Empty(t, AddDoor(w, "start", "oak door", "cellar").Err)
	// The far side already uses "oak door" for a different target.
	require.Empty(t, AddDoor(w, "tavern", "oak door", "start").Err)

	start := w.Rooms["start"]
	assert.Equal(t, "tavern", start.Doors["oak door (to tavern)"])
	obj := start.FindObjectByName("oak door (to tavern)")
	require.NotNil(t, obj)
	assert.Equal(t, "tavern", obj.LinkTargetRoomID)
}

func TestPickupSlottingWieldAndEat(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")
	p.Sheet.Needs.Hunger = 50

	apple := world.NewObject("apple", "A crisp apple.", world.TagSmall, "Edible: 10")
	room := w.Rooms[p.RoomID]
	room.Objects[apple.UUID] = apple

	res := ExecuteAction(w, p, "Pick Up", "apple")
	require.Empty(t, res.Err)
	assert.Same(t, apple, p.Sheet.Inventory[world.SlotSmallFirst], "first small stow slot")
	assert.True(t, apple.HasTag(world.TagStowed))
	assert.Equal(t, float64(50), p.Sheet.Needs.Hunger, "picking up does not feed you")

	res = ExecuteAction(w, p, "Wield", "apple")
	assert.Equal(t, "The apple is not a weapon.", res.Err)

	res = ExecuteAction(w, p, "Eat", "apple")
	require.Empty(t, res.Err)
	assert.Equal(t, float64(60), p.Sheet.Needs.Hunger)
	assert.Equal(t, -1, p.Sheet.Inventory.FindByName("apple"))
}

func TestEatClampsAndSpawnsDeconstructOutputs(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")
	p.Sheet.Needs.Hunger = 95

	core := world.NewObject("apple core", "A gnawed core.", world.TagSmall)
	apple := world.NewObject("apple", "A crisp apple.", world.TagSmall, "Edible: 30")
	apple.DeconstructRecipe = []*world.Object{core}
	require.GreaterOrEqual(t, p.Sheet.Inventory.PlaceAuto(apple), 0)

	res := ExecuteAction(w, p, "Eat", "apple")
	require.Empty(t, res.Err)
	assert.Equal(t, float64(100), p.Sheet.Needs.Hunger)

	room := w.Rooms[p.RoomID]
	assert.NotNil(t, room.FindObjectByName("apple core"), "leftovers land in the room")
}

func TestInteractionVerbRouting(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")
	rock := world.NewObject("smooth rock", "A river stone.", world.TagSmall)
	w.Rooms[p.RoomID].Objects[rock.UUID] = rock

	res := HandleInteraction(w, p, "pick up the smooth rock")
	require.True(t, res.Handled)
	require.Empty(t, res.Err)
	assert.GreaterOrEqual(t, p.Sheet.Inventory.FindByName("smooth rock"), 0)

	assert.False(t, HandleInteraction(w, p, "ponder the orb").Handled)
}

func TestSearchSpawnsLootOnceThenOpenLists(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")

	chest := world.NewObject("sea chest", "A brine-crusted chest.", world.TagLarge, world.TagContainer, world.TagImmovable)
	w.Rooms[p.RoomID].Objects[chest.UUID] = chest

	pearl := world.NewObject("pearl", "A milky pearl.", world.TagSmall)
	pearl.LootLocationHint = &world.Object{DisplayName: "sea chest"}
	w.Templates["pearl"] = pearl

	res := ExecuteAction(w, p, "Open", "sea chest")
	assert.Equal(t, "You should search the sea chest first.", res.Err)

	res = ExecuteAction(w, p, "Search", "sea chest")
	require.Empty(t, res.Err)
	assert.Contains(t, emitted(res), "pearl")

	res = ExecuteAction(w, p, "Search", "sea chest")
	assert.Equal(t, "The sea chest has already been searched.", res.Err)

	res = ExecuteAction(w, p, "Open", "sea chest")
	require.Empty(t, res.Err)
	assert.Contains(t, emitted(res), "small: pearl")

	// Searched-container contents can be picked up directly.
	res = ExecuteAction(w, p, "Pick Up", "pearl")
	require.Empty(t, res.Err)
	assert.GreaterOrEqual(t, p.Sheet.Inventory.FindByName("pearl"), 0)
}

func TestLockedDoorWithDeletedRelationshipTarget(t *testing.T) {
	w := world.New()
	alice := boundPlayer(t, w, "s1", "Alice")
	bob := boundPlayer(t, w, "s2", "Bob")

	CreateRoom(w, "vault", "A sealed vault.")
	require.Empty(t, AddDoor(w, "start", "iron gate", "vault").Err)

	start := w.Rooms["start"]
	start.DoorLocks = map[string]*world.LockPolicy{
		"iron gate": {AllowRel: []world.RelRule{{Type: "friend", UserID: bob.UserID}}},
	}
	w.SetRelationship(alice.UserID, bob.UserID, "friend")

	require.Empty(t, Traverse(w, alice, "iron gate").Err, "friendship opens the gate")
	require.Empty(t, Traverse(w, alice, "iron gate").Err, "and back")

	w.UnbindPlayer("s2")
	delete(w.Users, bob.UserID)

	res := Traverse(w, alice, "iron gate")
	assert.Equal(t, "The iron gate is locked.", res.Err)
	assert.Equal(t, "start", alice.RoomID, "no transition on a locked door")
}

func TestMovementAnnouncesDepartureBeforeArrival(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")
	CreateRoom(w, "tavern", "A warm tavern.")
	require.Empty(t, AddDoor(w, "start", "oak door", "tavern").Err)

	res := Traverse(w, p, "oak")
	require.Empty(t, res.Err)
	require.Len(t, res.Broadcasts, 2)
	assert.Equal(t, "start", res.Broadcasts[0].RoomID)
	assert.Contains(t, res.Broadcasts[0].Payload.Content, "leaves through the oak door")
	assert.Equal(t, "tavern", res.Broadcasts[1].RoomID)
	assert.Contains(t, res.Broadcasts[1].Payload.Content, "enters")
	assert.Equal(t, "tavern", p.RoomID)
}

func TestCombatDamageYieldAndDeath(t *testing.T) {
	assert.Equal(t, 5, Damage(10, 0, 0))
	assert.Equal(t, 9, Damage(10, 6, 2))
	assert.Equal(t, 1, Damage(4, 0, 8), "floor of 1")

	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")
	room := w.Rooms[p.RoomID]

	// Default morale and personality keep the nerve roll comfortably
	// above the break point when the roll itself is high.
	brute := world.NewCharacterSheet("Brute", "a glowering thug")
	brute.HP, brute.MaxHP = 20, 20
	w.NPCSheets["Brute"] = brute
	room.NPCs["Brute"] = true
	w.NPCID("Brute")

	highRoll := func(int) int { return 100 }

	res := Attack(w, p, "Brute", highRoll)
	require.Empty(t, res.Err)
	assert.Equal(t, 15, brute.HP)
	assert.Contains(t, emitted(res), "strikes back")

	// At or below 30% of max HP the target yields regardless of the roll.
	brute.HP = 6
	res = Attack(w, p, "brute", highRoll)
	require.Empty(t, res.Err)
	assert.True(t, brute.Yielded)

	// Yielded targets take damage but never retaliate.
	hpBefore := p.Sheet.HP
	res = Attack(w, p, "Brute", highRoll)
	require.Empty(t, res.Err)
	assert.Equal(t, hpBefore, p.Sheet.HP)

	for !brute.IsDead {
		Attack(w, p, "Brute", highRoll)
	}
	assert.False(t, room.NPCs["Brute"], "the fallen leave the room")
	assert.NotNil(t, w.NPCSheets["Brute"], "but the sheet is kept")

	res = Attack(w, p, "Brute", highRoll)
	assert.NotEmpty(t, res.Err, "the dead cannot be fought")
}

func TestFleeFiltersLockedDoors(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")
	CreateRoom(w, "vault", "A sealed vault.")
	CreateRoom(w, "yard", "A muddy yard.")
	require.Empty(t, AddDoor(w, "start", "iron gate", "vault").Err)
	require.Empty(t, AddDoor(w, "start", "back door", "yard").Err)

	start := w.Rooms["start"]
	start.DoorLocks = map[string]*world.LockPolicy{"iron gate": {}}

	// Only "back door" survives the permission filter, so any roll takes it.
	res := Flee(w, p, func(n int) int { return n })
	require.Empty(t, res.Err)
	assert.Equal(t, "yard", p.RoomID)
}

func TestTradeAtomicSwapAndRollback(t *testing.T) {
	w := world.New()
	a := boundPlayer(t, w, "s1", "Alice")
	b := boundPlayer(t, w, "s2", "Bob")

	coin := world.NewObject("coin", "A worn coin.", world.TagSmall)
	gem := world.NewObject("gem", "A rough gem.", world.TagSmall)
	require.GreaterOrEqual(t, a.Sheet.Inventory.PlaceAuto(coin), 0)
	require.GreaterOrEqual(t, b.Sheet.Inventory.PlaceAuto(gem), 0)

	tr := NewTrade("s1", "s2")
	require.NoError(t, tr.Offer("s1", coin.UUID))
	require.NoError(t, tr.Offer("s2", gem.UUID))
	tr.Confirm("s1")
	tr.Confirm("s2")
	require.True(t, tr.Ready())

	res := ExecuteTrade(w, tr)
	require.Empty(t, res.Err)
	assert.GreaterOrEqual(t, a.Sheet.Inventory.FindByUUID(gem.UUID), 0)
	assert.GreaterOrEqual(t, b.Sheet.Inventory.FindByUUID(coin.UUID), 0)
	assert.Equal(t, a.UserID, gem.OwnerUserID)

	// A full receiving inventory rolls the whole exchange back.
	c := boundPlayer(t, w, "s3", "Cora")
	crate := world.NewObject("crate", "A heavy crate.", world.TagLarge)
	require.GreaterOrEqual(t, c.Sheet.Inventory.PlaceAuto(crate), 0)
	for i := 0; i < world.SlotCount; i++ {
		if a.Sheet.Inventory[i] == nil {
			filler := world.NewObject("pebble", "A pebble.", world.TagSmall)
			if !a.Sheet.Inventory.Place(i, filler) {
				big := world.NewObject("log", "A heavy log.", world.TagLarge)
				a.Sheet.Inventory.Place(i, big)
			}
		}
	}

	tr2 := NewTrade("s3", "s1")
	require.NoError(t, tr2.Offer("s3", crate.UUID))
	tr2.Confirm("s3")
	tr2.Confirm("s1")
	res = ExecuteTrade(w, tr2)
	assert.NotEmpty(t, res.Err)
	assert.GreaterOrEqual(t, c.Sheet.Inventory.FindByUUID(crate.UUID), 0, "offer returned to sender")
}

func TestTradeOfferChangeClearsConfirmations(t *testing.T) {
	w := world.New()
	a := boundPlayer(t, w, "s1", "Alice")
	boundPlayer(t, w, "s2", "Bob")

	coin := world.NewObject("coin", "A worn coin.", world.TagSmall)
	require.GreaterOrEqual(t, a.Sheet.Inventory.PlaceAuto(coin), 0)

	tr := NewTrade("s1", "s2")
	require.NoError(t, tr.Offer("s1", coin.UUID))
	tr.Confirm("s1")
	tr.Confirm("s2")
	require.True(t, tr.Ready())

	second := world.NewObject("button", "A brass button.", world.TagSmall)
	require.GreaterOrEqual(t, a.Sheet.Inventory.PlaceAuto(second), 0)
	require.NoError(t, tr.Offer("s1", second.UUID))
	assert.False(t, tr.Ready(), "changing the set reopens confirmation")
}

func TestCraftReportsMissingComponents(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")
	room := w.Rooms[p.RoomID]

	bench := world.NewObject("workbench", "A scarred bench.", world.TagImmovable, "craft spot:torch")
	room.Objects[bench.UUID] = bench

	torch := world.NewObject("torch", "A pitch-soaked torch.", world.TagSmall)
	torch.CraftingRecipe = []string{"stick", "rag"}
	w.Templates["torch"] = torch

	res := Craft(w, p, "torch")
	require.NotEmpty(t, res.Err)
	assert.Contains(t, res.Err, "stick (need 1, have 0)")

	stick := world.NewObject("stick", "A dry stick.", world.TagSmall)
	rag := world.NewObject("rag", "An oily rag.", world.TagSmall)
	require.GreaterOrEqual(t, p.Sheet.Inventory.PlaceAuto(stick), 0)
	require.GreaterOrEqual(t, p.Sheet.Inventory.PlaceAuto(rag), 0)

	res = Craft(w, p, "torch")
	require.Empty(t, res.Err)
	assert.NotNil(t, room.FindObjectByName("torch"))
	assert.Equal(t, -1, p.Sheet.Inventory.FindByName("stick"), "components consumed")
}

func TestGenerateNPCFallbackIsDeterministic(t *testing.T) {
	adapter := ai.NewAdapter(nil, 0, 0)

	w1 := world.New()
	w1.Name = "Emberfall"
	res := GenerateNPC(w1, adapter, "start", "", "", "")
	require.Empty(t, res.Err)
	require.Len(t, w1.Rooms["start"].SortedNPCs(), 1)
	first := w1.Rooms["start"].SortedNPCs()[0]

	w2 := world.New()
	w2.Name = "Emberfall"
	require.Empty(t, GenerateNPC(w2, adapter, "start", "", "", "").Err)
	assert.Equal(t, first, w2.Rooms["start"].SortedNPCs()[0])
}

func TestSayDrawsNPCReply(t *testing.T) {
	w := world.New()
	w.Name = "Emberfall"
	p := boundPlayer(t, w, "s1", "Alice")
	w.NPCSheets["Gareth"] = world.NewCharacterSheet("Gareth", "a weathered guard")
	w.Rooms[p.RoomID].NPCs["Gareth"] = true
	w.NPCID("Gareth")

	res, addr := Say(w, p, "Hello Gareth, any news?", 10)
	require.Empty(t, res.Err)
	require.NotNil(t, addr)
	assert.Equal(t, "Gareth", addr.NPC)
	assert.Equal(t, p.RoomID, addr.RoomID)
	assert.Contains(t, addr.Prompt, "Gareth")
	assert.Contains(t, w.NPCSheets["Gareth"].Memory[0], "Alice said")

	reply := ai.NewAdapter(nil, 0, 0).ChatOrFallback(addr.WorldName, NPCReplySystem, addr.Prompt, NPCReplyMaxTokens)
	rr, ok := NPCReply(w, addr, reply)
	require.True(t, ok)

	var npcSpoke bool
	for _, e := range rr.Emits {
		if e.Type == service.TypeNPC && e.Name == "Gareth" && e.Content != "" {
			npcSpoke = true
		}
	}
	assert.True(t, npcSpoke)
}

func TestNPCReplyDroppedWhenSceneChanges(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")
	w.NPCSheets["Gareth"] = world.NewCharacterSheet("Gareth", "a weathered guard")
	w.Rooms[p.RoomID].NPCs["Gareth"] = true
	w.NPCID("Gareth")

	_, addr := Say(w, p, "Hello Gareth", 10)
	require.NotNil(t, addr)

	w.NPCSheets["Gareth"].IsDead = true
	_, ok := NPCReply(w, addr, "…")
	assert.False(t, ok, "the dead do not chat")

	w.NPCSheets["Gareth"].IsDead = false
	delete(w.Rooms[addr.RoomID].NPCs, "Gareth")
	_, ok = NPCReply(w, addr, "…")
	assert.False(t, ok, "no reply from an NPC who left the room")
}

func TestRollDice(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")

	res := HandleRoll(w, p, "roll 2d6", func(n int) int { return n })
	require.True(t, res.Handled)
	require.Empty(t, res.Err)
	assert.Contains(t, emitted(res), "sacred geometric stones")
	assert.Contains(t, emitted(res), "[b]12[/b]")

	res = HandleRoll(w, p, "roll 2d6+3", func(n int) int { return n })
	require.Empty(t, res.Err)
	assert.Contains(t, emitted(res), "[b]15[/b]")

	res = HandleRoll(w, p, "roll 1d20 | private", func(n int) int { return 7 })
	require.Empty(t, res.Err)
	assert.Contains(t, emitted(res), "in secret")
	require.Len(t, res.Broadcasts, 1)
	assert.NotContains(t, res.Broadcasts[0].Payload.Content, "7")

	res = HandleRoll(w, p, "roll 0d6", func(n int) int { return 1 })
	assert.NotEmpty(t, res.Err)

	assert.False(t, HandleRoll(w, p, "rollick about", func(n int) int { return 1 }).Handled)
}

func TestDeadPlayersKeepTheirSheet(t *testing.T) {
	w := world.New()
	p := boundPlayer(t, w, "s1", "Alice")
	p.Sheet.IsDead = true

	res := Flee(w, p, func(n int) int { return 1 })
	assert.Equal(t, "The dead do not run.", res.Err)
}
