package goap

import (
	"sort"
	"strings"

	"github.com/talgya/tinymud/internal/world"
)

// Candidate is an autonomy proposal: a high-priority action derived from
// personality and extended needs rather than the goal planner.
type Candidate struct {
	Step        world.PlanStep
	Priority    int
	Description string
}

// OverrideThreshold: an autonomy candidate at or above this priority
// prepends to the plan queue, overriding planner output for the tick.
const OverrideThreshold = 80

// EvaluateAutonomy scores personality-driven impulses for the NPC and
// returns candidates sorted by priority descending (name order breaks
// ties). The caller prepends the top candidate when it clears
// OverrideThreshold.
func EvaluateAutonomy(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet) []Candidate {
	var out []Candidate

	// Flee when unsafe and a threat is in the room.
	if s.Needs.Safety < 20 {
		if threat := perceivedThreat(w, room, npcName); threat != "" {
			if exit := firstExit(room); exit != "" {
				out = append(out, Candidate{
					Step:        world.PlanStep{Tool: "move_through", Args: map[string]any{"name": exit}},
					Priority:    90,
					Description: "flees from " + threat,
				})
			}
		}
	}

	// Steal when irresponsible, greedy, and something valuable is lying around.
	if s.Personality.Responsibility < 30 && s.Needs.WealthDesire > 70 {
		if prize := valuableObject(room); prize != nil {
			out = append(out, Candidate{
				Step:        world.PlanStep{Tool: "get_object", Args: map[string]any{"object_name": prize.DisplayName}},
				Priority:    80 + int((30-s.Personality.Responsibility)/3),
				Description: "eyes the " + prize.DisplayName,
			})
		}
	}

	// Investigate an unexplored exit when curious.
	if s.Personality.Curiosity > 70 {
		if exit := unexploredExit(room, s); exit != "" {
			out = append(out, Candidate{
				Step:        world.PlanStep{Tool: "move_through", Args: map[string]any{"name": exit}},
				Priority:    80,
				Description: "is drawn toward the " + exit,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Description < out[j].Description
	})
	return out
}

// perceivedThreat returns the name of a hostile presence in the room: an
// NPC this one deeply dislikes, or any markedly aggressive NPC.
func perceivedThreat(w *world.World, room *world.Room, npcName string) string {
	for _, other := range room.SortedNPCs() {
		if other == npcName {
			continue
		}
		os, ok := w.NPCSheets[other]
		if !ok || os.IsDead {
			continue
		}
		if os.Personality.Aggression > 70 {
			return other
		}
		if rel, ok := w.NPCSheets[npcName].Relationships[w.NPCID(other)]; ok && rel < -50 {
			return other
		}
	}
	return ""
}

// valuableObject picks the most valuable portable object in the room.
func valuableObject(room *world.Room) *world.Object {
	var best *world.Object
	for _, o := range room.SortedObjects() {
		if o.HasTag(world.TagImmovable) || o.Value <= 0 {
			continue
		}
		if best == nil || o.Value > best.Value {
			best = o
		}
	}
	return best
}

// unexploredExit returns an exit name the NPC has no memory of taking.
func unexploredExit(room *world.Room, s *world.CharacterSheet) string {
	for _, name := range room.DoorNames() {
		if !remembers(s, "explored "+name) {
			return name
		}
	}
	return ""
}

func remembers(s *world.CharacterSheet, line string) bool {
	for _, m := range s.Memory {
		if strings.Contains(m, line) {
			return true
		}
	}
	return false
}

func firstExit(room *world.Room) string {
	names := room.DoorNames()
	if len(names) > 0 {
		return names[0]
	}
	if room.StairsUpTo != "" {
		return "stairs up"
	}
	if room.StairsDownTo != "" {
		return "stairs down"
	}
	return ""
}
