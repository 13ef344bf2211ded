package goap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tinymud/internal/ai"
	"github.com/talgya/tinymud/internal/world"
)

type plannerStub struct {
	reply string
	calls int
}

func (p *plannerStub) Complete(_ context.Context, _, _ string, _ int) (string, error) {
	p.calls++
	return p.reply, nil
}

func worldWithNPC(t *testing.T, npcName string) (*world.World, *world.CharacterSheet) {
	t.Helper()
	w := world.New()
	s := world.NewCharacterSheet(npcName, "a wanderer")
	w.NPCSheets[npcName] = s
	w.Rooms[world.StartRoomID].NPCs[npcName] = true
	w.NPCID(npcName)
	return w, s
}

func TestHungryNPCEatsFromRoomOffline(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	s.Needs.Hunger = 20
	s.Planner.ActionPoints = 2

	apple := world.NewObject("apple", "A crisp red apple.", world.TagSmall, "Edible: 30")
	room := w.Rooms[world.StartRoomID]
	room.Objects[apple.UUID] = apple

	adapter := ai.NewAdapter(nil, 0, 0)
	eng := &Engine{Cfg: DefaultConfig(), Adapter: adapter}
	msgs := eng.TickWorld(w)

	// Two actions executed: pick up, then eat. Satiation lands before the
	// end-of-tick drain, so 20 + 30 - 1.
	assert.InDelta(t, 49, s.Needs.Hunger, 0.001)
	assert.Equal(t, 1, s.Planner.ActionPoints, "regen to 3, two actions spent")
	assert.Empty(t, room.Objects, "apple gone from the room")
	assert.Equal(t, -1, s.Inventory.FindByName("apple"), "apple not retained")
	assert.Equal(t, 0, adapter.Calls, "endpoint never consulted in offline mode")

	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Payload.Content, "picks up the apple")
	assert.Contains(t, msgs[1].Payload.Content, "eats the apple")
	assert.Equal(t, "npc", msgs[0].Payload.Type)
}

func TestThirstPlanPrefersInventory(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	s.Needs.Thirst = 10
	flask := world.NewObject("flask", "A water flask.", world.TagSmall, "Drinkable: 40")
	require.GreaterOrEqual(t, s.Inventory.PlaceAuto(flask), 0)

	plan := BuildOfflinePlan(w, w.Rooms[world.StartRoomID], "Mara", s, DefaultConfig())
	require.Len(t, plan, 1)
	assert.Equal(t, "consume_object", plan[0].Tool)
	assert.Equal(t, flask.UUID, plan[0].Args["object_uuid"])
}

func TestLonelyNPCEmotes(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	s.Needs.Socialization = 5

	plan := BuildOfflinePlan(w, w.Rooms[world.StartRoomID], "Mara", s, DefaultConfig())
	require.Len(t, plan, 1)
	assert.Equal(t, "emote", plan[0].Tool)
}

func TestSleepPlanClaimsUnownedBed(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	s.Needs.Sleep = 5
	bed := world.NewObject("straw cot", "A lumpy cot.", world.TagLarge, world.TagBed, world.TagImmovable)
	w.Rooms[world.StartRoomID].Objects[bed.UUID] = bed

	plan := BuildOfflinePlan(w, w.Rooms[world.StartRoomID], "Mara", s, DefaultConfig())
	require.Len(t, plan, 2)
	assert.Equal(t, "claim", plan[0].Tool)
	assert.Equal(t, "sleep", plan[1].Tool)
	assert.Equal(t, bed.UUID, plan[1].Args["bed_uuid"])
}

func TestSleepLifecycle(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	s.Needs.Sleep = 5
	bed := world.NewObject("straw cot", "A lumpy cot.", world.TagLarge, world.TagBed, world.TagImmovable)
	bed.OwnerUserID = w.NPCID("Mara")
	w.Rooms[world.StartRoomID].Objects[bed.UUID] = bed

	eng := &Engine{Cfg: DefaultConfig(), Adapter: ai.NewAdapter(nil, 0, 0)}

	eng.TickWorld(w)
	assert.Equal(t, 3, s.Planner.SleepingTicksRemaining)
	assert.Equal(t, bed.UUID, s.Planner.SleepingBedUUID)

	before := s.Needs.Sleep
	eng.TickWorld(w)
	assert.Equal(t, 2, s.Planner.SleepingTicksRemaining)
	assert.Greater(t, s.Needs.Sleep, before, "sleep refills while sleeping")

	eng.TickWorld(w)
	msgs := eng.TickWorld(w)
	assert.Zero(t, s.Planner.SleepingTicksRemaining)
	assert.Empty(t, s.Planner.SleepingBedUUID)
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0].Payload.Content, "wakes up")
}

func TestFailedActionStillCostsAP(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	s.Planner.ActionPoints = 1
	s.Planner.PlanQueue = []world.PlanStep{
		{Tool: "get_object", Args: map[string]any{"object_name": "phantom"}},
		{Tool: "do_nothing", Args: map[string]any{}},
	}

	eng := &Engine{Cfg: DefaultConfig(), Adapter: ai.NewAdapter(nil, 0, 0)}
	msgs := eng.TickWorld(w)

	assert.Equal(t, 1, s.Planner.ActionPoints, "regen to 2, one point spent on the failure")
	assert.Empty(t, s.Planner.PlanQueue, "failure discards the rest of the plan")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Mara", msgs[0].Payload.Name)
}

func TestAIPlanningGatedOnPlayersPresent(t *testing.T) {
	stub := &plannerStub{reply: `[{"tool": "do_nothing", "args": {}}]`}
	w, s := worldWithNPC(t, "Mara")
	w.AdvancedGOAP = true
	s.Needs.Hunger = 10

	eng := &Engine{Cfg: DefaultConfig(), Adapter: ai.NewAdapter(stub, 0, 0)}

	// Empty room: nothing is staged even in advanced mode.
	assert.Empty(t, eng.StagePlanRequests(w))

	u, err := w.CreateUser("Alice", "pw", "")
	require.NoError(t, err)
	w.BindPlayer("sid-1", u)

	reqs := eng.StagePlanRequests(w)
	require.Len(t, reqs, 1, "live audience unlocks the AI planner")
	assert.Equal(t, "Mara", reqs[0].NPC)
	assert.Contains(t, reqs[0].Prompt, "Mara")

	plans := eng.GeneratePlans(reqs)
	assert.Equal(t, 1, stub.calls)
	eng.InstallPlans(w, plans)
	require.Len(t, s.Planner.PlanQueue, 1)
	assert.Equal(t, "do_nothing", s.Planner.PlanQueue[0].Tool)

	// A queued plan suppresses further staging.
	assert.Empty(t, eng.StagePlanRequests(w))
}

func TestInstallPlansRevalidatesWorldState(t *testing.T) {
	stub := &plannerStub{reply: `[{"tool": "do_nothing", "args": {}}]`}
	w, s := worldWithNPC(t, "Mara")
	w.AdvancedGOAP = true
	s.Needs.Hunger = 10
	u, err := w.CreateUser("Alice", "pw", "")
	require.NoError(t, err)
	w.BindPlayer("sid-1", u)

	eng := &Engine{Cfg: DefaultConfig(), Adapter: ai.NewAdapter(stub, 0, 0)}
	reqs := eng.StagePlanRequests(w)
	require.Len(t, reqs, 1)
	plans := eng.GeneratePlans(reqs)

	// The NPC died while the model was thinking: the plan is dropped.
	s.IsDead = true
	eng.InstallPlans(w, plans)
	assert.Empty(t, s.Planner.PlanQueue)

	// Alive but something else filled the queue first: also dropped.
	s.IsDead = false
	s.Planner.PlanQueue = []world.PlanStep{{Tool: "emote", Args: map[string]any{}}}
	eng.InstallPlans(w, plans)
	require.Len(t, s.Planner.PlanQueue, 1)
	assert.Equal(t, "emote", s.Planner.PlanQueue[0].Tool)

	// Gone from every room: dropped too.
	s.Planner.PlanQueue = nil
	delete(w.Rooms[world.StartRoomID].NPCs, "Mara")
	eng.InstallPlans(w, plans)
	assert.Empty(t, s.Planner.PlanQueue)
}

func TestModeSwitchClearsPlans(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	s.Planner.PlanQueue = []world.PlanStep{{Tool: "do_nothing", Args: map[string]any{}}}

	ResetAllPlans(w)
	assert.Empty(t, s.Planner.PlanQueue)
}

func TestCleanPlannerStateDropsMalformedEntries(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	s.Planner.PlanQueue = []world.PlanStep{
		{Tool: "teleport", Args: map[string]any{}},
		{Tool: "emote", Args: map[string]any{}},
		{Tool: "emote"},
	}
	s.Needs.Hunger = 250
	s.Planner.SleepingTicksRemaining = 2
	s.Planner.SleepingBedUUID = "no-such-bed"

	CleanPlannerState(w, "Mara", s)

	require.Len(t, s.Planner.PlanQueue, 1)
	assert.Equal(t, "emote", s.Planner.PlanQueue[0].Tool)
	assert.Equal(t, float64(100), s.Needs.Hunger)
	assert.Zero(t, s.Planner.SleepingTicksRemaining)
	assert.Empty(t, s.Planner.SleepingBedUUID)
}

func TestAuditIntegrityScore(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")

	issues, score := AuditIntegrity(w)
	assert.Empty(t, issues)
	assert.Equal(t, 100, score)

	s.Planner.ActionPoints = -2
	issues, score = AuditIntegrity(w)
	assert.NotEmpty(t, issues)
	assert.Less(t, score, 100)

	empty := world.New()
	_, score = AuditIntegrity(empty)
	assert.Equal(t, 100, score, "no NPCs means a perfect score")
}

func TestAutonomyFleeOverridesPlan(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	s.Needs.Safety = 10
	brute := world.NewCharacterSheet("Brute", "a glowering thug")
	brute.Personality.Aggression = 90
	w.NPCSheets["Brute"] = brute
	room := w.Rooms[world.StartRoomID]
	room.NPCs["Brute"] = true
	room.Doors["oak door"] = "tavern"
	w.Rooms["tavern"] = world.NewRoom("tavern", "A smoky tavern.")

	cands := EvaluateAutonomy(w, room, "Mara", s)
	require.NotEmpty(t, cands)
	assert.Equal(t, 90, cands[0].Priority)
	assert.Equal(t, "move_through", cands[0].Step.Tool)

	eng := &Engine{Cfg: DefaultConfig(), Adapter: ai.NewAdapter(nil, 0, 0)}
	eng.TickWorld(w)
	assert.True(t, w.Rooms["tavern"].NPCs["Mara"], "fled into the tavern")
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan(`Sure, here is the plan: [{"tool": "emote", "args": {}}] hope that helps`)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "emote", plan[0].Tool)
	assert.NotNil(t, plan[0].Args)

	_, err = ParsePlan(`[{"tool": "teleport", "args": {}}]`)
	assert.Error(t, err)

	_, err = ParsePlan(`no structure here`)
	assert.Error(t, err)

	_, err = ParsePlan(`[]`)
	assert.Error(t, err)
}

func TestMoveThroughLockedDoorFails(t *testing.T) {
	w, s := worldWithNPC(t, "Mara")
	room := w.Rooms[world.StartRoomID]
	room.Doors["iron gate"] = "vault"
	w.Rooms["vault"] = world.NewRoom("vault", "A sealed vault.")
	room.DoorLocks = map[string]*world.LockPolicy{"iron gate": {}}

	_, ok := ExecuteStep(w, "Mara", s, world.PlanStep{
		Tool: "move_through",
		Args: map[string]any{"name": "the iron gate"},
	}, DefaultConfig())
	assert.False(t, ok)
	assert.True(t, room.NPCs["Mara"], "still where they started")
}
