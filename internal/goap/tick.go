package goap

import (
	"log/slog"

	"github.com/talgya/tinymud/internal/ai"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// PlannerSystemPrompt frames the model as an NPC action planner.
const PlannerSystemPrompt = "You plan actions for a character in a text world. " +
	"Respond only with a JSON array of action records."

// Engine drives NPC autonomy once per world tick. The caller holds the
// world lock for the duration of TickWorld.
type Engine struct {
	Cfg     Config
	Adapter *ai.Adapter
}

// TickWorld advances every NPC by one tick and returns the broadcasts the
// tick produced. NPCs are processed in room-id order, then name order
// within a room, so identical world states produce identical output.
//
// Per-NPC order: AP regeneration, sleep bookkeeping, state cleanup,
// autonomy evaluation, planning, execution, and needs decay last.
func (e *Engine) TickWorld(w *world.World) []service.RoomMessage {
	var out []service.RoomMessage
	ticked := map[string]bool{}
	for _, roomID := range w.SortedRoomIDs() {
		room := w.Rooms[roomID]
		for _, npcName := range room.SortedNPCs() {
			// Movement can carry an NPC into a room not yet visited;
			// each NPC acts at most once per tick.
			if ticked[npcName] {
				continue
			}
			ticked[npcName] = true
			s, ok := w.NPCSheets[npcName]
			if !ok || s.IsDead {
				continue
			}
			out = append(out, e.tickNPC(w, room, npcName, s)...)
		}
	}
	return out
}

func (e *Engine) tickNPC(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet) []service.RoomMessage {
	var out []service.RoomMessage

	RegenAP(s, e.Cfg)

	sleeping := s.Planner.SleepingTicksRemaining > 0
	if sleeping {
		s.Planner.SleepingTicksRemaining--
		if s.Planner.SleepingTicksRemaining == 0 {
			s.Planner.SleepingBedUUID = ""
			out = append(out, emit(room, npcName, "wakes up, refreshed.")...)
		}
	}

	CleanPlannerState(w, npcName, s)

	if !sleeping {
		if cands := EvaluateAutonomy(w, room, npcName, s); len(cands) > 0 && cands[0].Priority >= OverrideThreshold {
			s.Planner.PlanQueue = append([]world.PlanStep{cands[0].Step}, s.Planner.PlanQueue...)
			slog.Debug("autonomy override", "npc", npcName, "action", cands[0].Description, "priority", cands[0].Priority)
		}

		if len(s.Planner.PlanQueue) == 0 {
			if _, val := LowestNeed(s); val < e.Cfg.NeedThreshold {
				s.Planner.PlanQueue = BuildOfflinePlan(w, room, npcName, s, e.Cfg)
			}
		}

		for s.Planner.ActionPoints > 0 && len(s.Planner.PlanQueue) > 0 {
			step := s.Planner.PlanQueue[0]
			s.Planner.PlanQueue = s.Planner.PlanQueue[1:]
			s.Planner.ActionPoints--

			msgs, ok := ExecuteStep(w, npcName, s, step, e.Cfg)
			out = append(out, msgs...)
			if !ok {
				// A failed step invalidates what follows it.
				s.Planner.PlanQueue = nil
				break
			}
			if step.Tool == "sleep" || step.Tool == "move_through" {
				break
			}
		}
	}

	alone := w.LivePlayersInRoom(room) == 0 && len(room.NPCs) <= 1
	stillSleeping := s.Planner.SleepingTicksRemaining > 0 || sleeping
	DecayNeeds(s, e.Cfg, alone, stillSleeping)
	return out
}

// PlanRequest is an AI planning prompt staged for one NPC. Prompts are
// built under the world lock; the model call happens elsewhere.
type PlanRequest struct {
	NPC    string
	Prompt string
}

// GeneratedPlan is the raw model output for one staged request.
type GeneratedPlan struct {
	NPC  string
	Text string
}

// StagePlanRequests collects prompts for every NPC that qualifies for AI
// planning this tick: advanced mode on, a live endpoint, a player present
// to witness the result, an empty plan queue, an unmet need, and the NPC
// awake and alive. Callers hold the world lock. Everyone else, and every
// AI failure downstream, falls back to the offline planner in TickWorld.
func (e *Engine) StagePlanRequests(w *world.World) []PlanRequest {
	if !w.AdvancedGOAP || !e.Adapter.Enabled() {
		return nil
	}
	var reqs []PlanRequest
	staged := map[string]bool{}
	for _, roomID := range w.SortedRoomIDs() {
		room := w.Rooms[roomID]
		if w.LivePlayersInRoom(room) == 0 {
			continue
		}
		for _, npcName := range room.SortedNPCs() {
			if staged[npcName] {
				continue
			}
			staged[npcName] = true
			s, ok := w.NPCSheets[npcName]
			if !ok || s.IsDead || s.Planner.SleepingTicksRemaining > 0 {
				continue
			}
			if len(s.Planner.PlanQueue) > 0 {
				continue
			}
			if _, val := LowestNeed(s); val >= e.Cfg.NeedThreshold {
				continue
			}
			reqs = append(reqs, PlanRequest{NPC: npcName, Prompt: BuildPrompt(w, room, npcName, s)})
		}
	}
	return reqs
}

// GeneratePlans performs the model calls for staged requests. It touches
// no world state, so callers run it outside the world lock.
func (e *Engine) GeneratePlans(reqs []PlanRequest) []GeneratedPlan {
	var plans []GeneratedPlan
	for _, req := range reqs {
		text, err := e.Adapter.Generate(PlannerSystemPrompt, req.Prompt, 800)
		if err != nil {
			slog.Warn("AI planning failed", "npc", req.NPC, "error", err)
			continue
		}
		plans = append(plans, GeneratedPlan{NPC: req.NPC, Text: text})
	}
	return plans
}

// InstallPlans parses generated plans and installs the valid ones. The
// world may have moved on since the prompts were staged, so each plan is
// re-validated: the NPC must still exist, be alive and awake, and have an
// empty queue. Callers hold the world lock.
func (e *Engine) InstallPlans(w *world.World, plans []GeneratedPlan) {
	for _, p := range plans {
		s, ok := w.NPCSheets[p.NPC]
		if !ok || s.IsDead || s.Planner.SleepingTicksRemaining > 0 {
			continue
		}
		if len(s.Planner.PlanQueue) > 0 || w.RoomOfNPC(p.NPC) == nil {
			continue
		}
		steps, err := ParsePlan(p.Text)
		if err != nil {
			slog.Warn("rejected AI plan", "npc", p.NPC, "error", err)
			continue
		}
		s.Planner.PlanQueue = steps
	}
}
