package goap

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/tinymud/internal/world"
)

// Tools is the permitted action-record vocabulary.
var Tools = map[string]bool{
	"get_object":     true,
	"consume_object": true,
	"emote":          true,
	"claim":          true,
	"unclaim":        true,
	"sleep":          true,
	"do_nothing":     true,
	"move_through":   true,
}

// ValidatePlannerState returns the problems with one NPC's planner block:
// malformed plan entries, out-of-range needs, negative AP, and inconsistent
// sleep state relative to the NPC's current room.
func ValidatePlannerState(w *world.World, npcName string, s *world.CharacterSheet) []string {
	var issues []string
	for i, step := range s.Planner.PlanQueue {
		if !Tools[step.Tool] {
			issues = append(issues, fmt.Sprintf("%s: plan entry %d has unknown tool %q", npcName, i, step.Tool))
		}
		if step.Args == nil {
			issues = append(issues, fmt.Sprintf("%s: plan entry %d has nil args", npcName, i))
		}
	}
	if s.Planner.ActionPoints < 0 {
		issues = append(issues, fmt.Sprintf("%s: negative action points", npcName))
	}
	for _, pair := range []struct {
		name string
		v    float64
	}{
		{"hunger", s.Needs.Hunger}, {"thirst", s.Needs.Thirst},
		{"socialization", s.Needs.Socialization}, {"sleep", s.Needs.Sleep},
	} {
		if pair.v < 0 || pair.v > 100 {
			issues = append(issues, fmt.Sprintf("%s: need %s out of range (%.1f)", npcName, pair.name, pair.v))
		}
	}
	if s.Planner.SleepingTicksRemaining > 0 && !ownedBedPresent(w, npcName, s) {
		issues = append(issues, fmt.Sprintf("%s: sleeping without an owned bed present", npcName))
	}
	if s.Planner.SleepingTicksRemaining <= 0 && s.Planner.SleepingBedUUID != "" {
		issues = append(issues, fmt.Sprintf("%s: stale sleeping bed reference", npcName))
	}
	return issues
}

// CleanPlannerState repairs what ValidatePlannerState flags: drops
// malformed plan entries, clamps needs and AP, and resets inconsistent
// sleep state. Invoked every tick and after world reload.
func CleanPlannerState(w *world.World, npcName string, s *world.CharacterSheet) {
	kept := s.Planner.PlanQueue[:0]
	dropped := 0
	for _, step := range s.Planner.PlanQueue {
		if Tools[step.Tool] && step.Args != nil {
			kept = append(kept, step)
		} else {
			dropped++
		}
	}
	s.Planner.PlanQueue = kept
	if dropped > 0 {
		slog.Warn("dropped malformed plan entries", "npc", npcName, "count", dropped)
	}

	s.ClampAll()

	if s.Planner.SleepingTicksRemaining > 0 && !ownedBedPresent(w, npcName, s) {
		s.Planner.SleepingTicksRemaining = 0
		s.Planner.SleepingBedUUID = ""
	}
	if s.Planner.SleepingTicksRemaining <= 0 {
		s.Planner.SleepingBedUUID = ""
		s.Planner.SleepingTicksRemaining = 0
	}
}

// ResetAllPlans clears every NPC's plan queue. Called when the advanced
// planning mode toggles so stale AI plans never outlive the switch.
func ResetAllPlans(w *world.World) {
	for name, s := range w.NPCSheets {
		if len(s.Planner.PlanQueue) > 0 {
			slog.Info("clearing plan queue on mode change", "npc", name, "entries", len(s.Planner.PlanQueue))
		}
		s.Planner.PlanQueue = nil
	}
}

// AuditIntegrity validates every NPC's planner state and returns the issue
// list plus a health score: 100 minus the failed-check share, where each
// NPC contributes three checks (plan shape, need bounds, sleep state).
func AuditIntegrity(w *world.World) ([]string, int) {
	var issues []string
	total := len(w.NPCSheets) * 3
	failed := 0
	for _, name := range sortedNPCNames(w) {
		s := w.NPCSheets[name]
		found := ValidatePlannerState(w, name, s)
		issues = append(issues, found...)
		failed += categorizeFailures(found)
	}
	if total == 0 {
		return issues, 100
	}
	score := 100 - failed*100/total
	if score < 0 {
		score = 0
	}
	return issues, score
}

func categorizeFailures(issues []string) int {
	// At most three failed categories per NPC.
	n := len(issues)
	if n > 3 {
		n = 3
	}
	return n
}

// ownedBedPresent reports whether the NPC's recorded sleeping bed is in
// its current room, tagged bed, and owned by the NPC.
func ownedBedPresent(w *world.World, npcName string, s *world.CharacterSheet) bool {
	room := w.RoomOfNPC(npcName)
	if room == nil {
		return false
	}
	bed, ok := room.Objects[s.Planner.SleepingBedUUID]
	if !ok {
		return false
	}
	return bed.HasTag(world.TagBed) && bed.OwnerUserID == w.NPCID(npcName)
}

func sortedNPCNames(w *world.World) []string {
	names := make([]string, 0, len(w.NPCSheets))
	for n := range w.NPCSheets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
