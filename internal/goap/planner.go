package goap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/talgya/tinymud/internal/ai"
	"github.com/talgya/tinymud/internal/world"
)

// MaxPlanLength caps AI-returned plans.
const MaxPlanLength = 4

// BuildOfflinePlan produces a deterministic plan for the NPC's most
// unsatisfied need. Always available; the fallback when the AI path is
// gated off or fails.
func BuildOfflinePlan(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet, cfg Config) []world.PlanStep {
	need, val := LowestNeed(s)
	if val >= cfg.NeedThreshold {
		return nil
	}

	switch need {
	case "hunger":
		if plan := consumePlan(room, s, (*world.Object).IsEdible); plan != nil {
			return plan
		}
	case "thirst":
		if plan := consumePlan(room, s, (*world.Object).IsDrinkable); plan != nil {
			return plan
		}
	case "socialization":
		return []world.PlanStep{{Tool: "emote", Args: map[string]any{}}}
	case "sleep":
		if plan := sleepPlan(w, room, npcName, s); plan != nil {
			return plan
		}
	}
	return []world.PlanStep{{Tool: "do_nothing", Args: map[string]any{}}}
}

// consumePlan finds something consumable: already in inventory, or in the
// room (pick up, then consume).
func consumePlan(room *world.Room, s *world.CharacterSheet, fits func(*world.Object) bool) []world.PlanStep {
	for _, o := range s.Inventory.Objects() {
		if fits(o) {
			return []world.PlanStep{
				{Tool: "consume_object", Args: map[string]any{"object_uuid": o.UUID}},
			}
		}
	}
	for _, o := range room.SortedObjects() {
		if fits(o) && !o.HasTag(world.TagImmovable) {
			return []world.PlanStep{
				{Tool: "get_object", Args: map[string]any{"object_name": o.DisplayName}},
				{Tool: "consume_object", Args: map[string]any{"object_uuid": o.UUID}},
			}
		}
	}
	return nil
}

// sleepPlan sleeps in an owned bed, or claims a free one first.
func sleepPlan(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet) []world.PlanStep {
	npcID := w.NPCID(npcName)
	var unowned *world.Object
	for _, o := range room.SortedObjects() {
		if !o.HasTag(world.TagBed) {
			continue
		}
		if o.OwnerUserID == npcID {
			return []world.PlanStep{{Tool: "sleep", Args: map[string]any{"bed_uuid": o.UUID}}}
		}
		if o.OwnerUserID == "" && unowned == nil {
			unowned = o
		}
	}
	if unowned != nil {
		return []world.PlanStep{
			{Tool: "claim", Args: map[string]any{"object_uuid": unowned.UUID}},
			{Tool: "sleep", Args: map[string]any{"bed_uuid": unowned.UUID}},
		}
	}
	return nil
}

// BuildPrompt bundles world metadata, the NPC's state, and its
// surroundings into the planning prompt. Built under the world lock; the
// adapter call itself happens outside it.
func BuildPrompt(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "World: %s — %s (conflict: %s, safety: %s)\n", w.Name, w.Description, w.Conflict, w.SafetyLevel)
	fmt.Fprintf(&b, "You are %s: %s\n", npcName, s.Description)
	fmt.Fprintf(&b, "Needs: hunger=%.0f thirst=%.0f socialization=%.0f sleep=%.0f\n",
		s.Needs.Hunger, s.Needs.Thirst, s.Needs.Socialization, s.Needs.Sleep)
	fmt.Fprintf(&b, "Personality: responsibility=%.0f aggression=%.0f confidence=%.0f curiosity=%.0f\n",
		s.Personality.Responsibility, s.Personality.Aggression, s.Personality.Confidence, s.Personality.Curiosity)

	fmt.Fprintf(&b, "Room %q: %s\n", room.ID, room.Description)
	for _, o := range room.SortedObjects() {
		fmt.Fprintf(&b, "- object %s uuid=%s tags=%s", o.DisplayName, o.UUID, strings.Join(o.Tags, ","))
		if n := o.Satiation(); n != 0 {
			fmt.Fprintf(&b, " satiation=%d", n)
		}
		if n := o.Hydration(); n != 0 {
			fmt.Fprintf(&b, " hydration=%d", n)
		}
		b.WriteString("\n")
	}
	for _, o := range s.Inventory.Objects() {
		fmt.Fprintf(&b, "- carried %s uuid=%s tags=%s\n", o.DisplayName, o.UUID, strings.Join(o.Tags, ","))
	}
	fmt.Fprintf(&b, "Exits: %s\n", strings.Join(room.DoorNames(), ", "))
	fmt.Fprintf(&b, "Respond with a JSON array of at most %d actions, each {\"tool\": ..., \"args\": {...}}. Tools: %s.\n",
		MaxPlanLength, toolList())
	return b.String()
}

// ParsePlan extracts and validates an action-record array from model text.
// Unknown tools, missing args, or an empty result are errors; oversized
// plans are truncated to MaxPlanLength.
func ParsePlan(text string) ([]world.PlanStep, error) {
	raw := ai.ExtractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON found in plan response")
	}
	var steps []world.PlanStep
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("empty plan")
	}
	if len(steps) > MaxPlanLength {
		steps = steps[:MaxPlanLength]
	}
	for i, step := range steps {
		if !Tools[step.Tool] {
			return nil, fmt.Errorf("plan entry %d: unknown tool %q", i, step.Tool)
		}
		if step.Args == nil {
			steps[i].Args = map[string]any{}
		}
	}
	return steps, nil
}

func toolList() string {
	names := make([]string, 0, len(Tools))
	for t := range Tools {
		names = append(names, t)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
