package goap

import (
	"fmt"
	"strings"

	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

var emoteLines = []string{
	"stretches and looks around.",
	"hums a quiet tune.",
	"scuffs a boot against the floor.",
	"mutters something under their breath.",
}

var grumbleLines = []string{
	"grumbles in frustration.",
	"frowns and shakes their head.",
	"sighs heavily.",
}

// ExecuteStep runs one action record for an NPC. It returns the broadcasts
// the action produced and whether it succeeded. The caller charges one
// action point either way.
func ExecuteStep(w *world.World, npcName string, s *world.CharacterSheet, step world.PlanStep, cfg Config) ([]service.RoomMessage, bool) {
	room := w.RoomOfNPC(npcName)
	if room == nil {
		return nil, false
	}
	switch step.Tool {
	case "get_object":
		return execGet(room, npcName, s, step)
	case "consume_object":
		return execConsume(room, npcName, s, step)
	case "emote":
		return execEmote(w, room, npcName, s, cfg)
	case "claim":
		return execClaim(w, room, npcName, s, step)
	case "unclaim":
		return execUnclaim(w, room, npcName, s, step)
	case "sleep":
		return execSleep(w, room, npcName, s, step, cfg)
	case "move_through":
		return execMove(w, room, npcName, s, step)
	case "do_nothing":
		return emit(room, npcName, "pauses to think."), true
	default:
		return grumble(room, npcName, s), false
	}
}

func execGet(room *world.Room, npcName string, s *world.CharacterSheet, step world.PlanStep) ([]service.RoomMessage, bool) {
	name := resolve.StripArticle(argString(step, "object_name"))
	obj := room.FindObjectByName(name)
	if obj == nil || obj.HasTag(world.TagImmovable) || obj.HasTag(world.TagTravelPoint) {
		return grumble(room, npcName, s), false
	}
	if s.Inventory.PlaceAuto(obj) < 0 {
		return grumble(room, npcName, s), false
	}
	delete(room.Objects, obj.UUID)
	return emit(room, npcName, fmt.Sprintf("picks up the %s.", obj.DisplayName)), true
}

func execConsume(room *world.Room, npcName string, s *world.CharacterSheet, step world.PlanStep) ([]service.RoomMessage, bool) {
	idx := s.Inventory.FindByUUID(argString(step, "object_uuid"))
	if idx < 0 {
		return grumble(room, npcName, s), false
	}
	obj := s.Inventory[idx]
	verb := ""
	switch {
	case obj.IsEdible():
		s.Needs.Hunger = world.ClampNeed(s.Needs.Hunger + float64(obj.Satiation()))
		verb = "eats"
	case obj.IsDrinkable():
		s.Needs.Thirst = world.ClampNeed(s.Needs.Thirst + float64(obj.Hydration()))
		verb = "drinks"
	default:
		return grumble(room, npcName, s), false
	}
	s.Inventory.Remove(idx)
	// Consumption leaves the deconstruction outputs behind in the room.
	for _, part := range obj.DeconstructRecipe {
		spawned := part.Clone(true)
		room.Objects[spawned.UUID] = spawned
	}
	return emit(room, npcName, fmt.Sprintf("%s the %s.", verb, obj.DisplayName)), true
}

func execEmote(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet, cfg Config) ([]service.RoomMessage, bool) {
	s.Needs.Socialization = world.ClampNeed(s.Needs.Socialization + cfg.SocialRefillEmote)
	line := emoteLines[len(s.Memory)%len(emoteLines)]
	// A warm gesture nudges sentiment toward anyone sharing the room.
	for _, other := range room.SortedNPCs() {
		if other != npcName {
			s.AdjustRelationship(w.NPCID(other), 1)
		}
	}
	return emit(room, npcName, line), true
}

func execClaim(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet, step world.PlanStep) ([]service.RoomMessage, bool) {
	obj, ok := room.Objects[argString(step, "object_uuid")]
	if !ok || (obj.OwnerUserID != "" && obj.OwnerUserID != w.NPCID(npcName)) {
		return grumble(room, npcName, s), false
	}
	obj.OwnerUserID = w.NPCID(npcName)
	return emit(room, npcName, fmt.Sprintf("lays claim to the %s.", obj.DisplayName)), true
}

func execUnclaim(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet, step world.PlanStep) ([]service.RoomMessage, bool) {
	obj, ok := room.Objects[argString(step, "object_uuid")]
	if !ok || obj.OwnerUserID != w.NPCID(npcName) {
		return grumble(room, npcName, s), false
	}
	obj.OwnerUserID = ""
	return emit(room, npcName, fmt.Sprintf("relinquishes the %s.", obj.DisplayName)), true
}

func execSleep(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet, step world.PlanStep, cfg Config) ([]service.RoomMessage, bool) {
	bed, ok := room.Objects[argString(step, "bed_uuid")]
	if !ok || !bed.HasTag(world.TagBed) || bed.OwnerUserID != w.NPCID(npcName) {
		return grumble(room, npcName, s), false
	}
	s.Planner.SleepingTicksRemaining = cfg.SleepTicks
	s.Planner.SleepingBedUUID = bed.UUID
	return emit(room, npcName, fmt.Sprintf("lies down on the %s and drifts off.", bed.DisplayName)), true
}

func execMove(w *world.World, room *world.Room, npcName string, s *world.CharacterSheet, step world.PlanStep) ([]service.RoomMessage, bool) {
	exit := resolveExit(room, resolve.StripArticle(argString(step, "name")))
	if exit == "" {
		return grumble(room, npcName, s), false
	}

	var targetID string
	switch exit {
	case "stairs up":
		targetID = room.StairsUpTo
	case "stairs down":
		targetID = room.StairsDownTo
	default:
		targetID = room.Doors[exit]
		if !w.CanTraverse(room, exit, w.NPCID(npcName)) {
			return grumble(room, npcName, s), false
		}
	}
	dest, ok := w.Rooms[targetID]
	if !ok {
		return grumble(room, npcName, s), false
	}

	delete(room.NPCs, npcName)
	dest.NPCs[npcName] = true
	s.Remember("explored " + exit)

	out := emit(room, npcName, fmt.Sprintf("leaves through the %s.", exit))
	out = append(out, emit(dest, npcName, "enters.")...)
	return out, true
}

// resolveExit matches an exit name case-insensitively against doors and
// stairs. With no name given and exactly one exit, that exit is taken.
func resolveExit(room *world.Room, name string) string {
	exits := room.DoorNames()
	if room.StairsUpTo != "" {
		exits = append(exits, "stairs up")
	}
	if room.StairsDownTo != "" {
		exits = append(exits, "stairs down")
	}
	if name == "" {
		if len(exits) == 1 {
			return exits[0]
		}
		return ""
	}
	for _, e := range exits {
		if strings.EqualFold(e, name) {
			return e
		}
	}
	return ""
}

func emit(room *world.Room, npcName, action string) []service.RoomMessage {
	return []service.RoomMessage{{
		RoomID:  room.ID,
		Payload: service.Speech(service.TypeNPC, npcName, fmt.Sprintf("[i]%s %s[/i]", npcName, action)),
	}}
}

func grumble(room *world.Room, npcName string, s *world.CharacterSheet) []service.RoomMessage {
	return emit(room, npcName, grumbleLines[len(s.Memory)%len(grumbleLines)])
}

func argString(step world.PlanStep, key string) string {
	v, _ := step.Args[key].(string)
	return strings.TrimSpace(v)
}
