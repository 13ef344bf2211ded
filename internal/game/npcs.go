package game

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/talgya/tinymud/internal/ai"
	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// AddNPC places a new NPC with a default sheet into a room.
func AddNPC(w *world.World, currentRoomID, roomRef, name, desc string) service.Result {
	roomID, err := resolve.ResolveRoom(roomRef, currentRoomID, w.SortedRoomIDs())
	if err != nil {
		return service.Fail(err.Error())
	}
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 32 {
		return service.Fail("An NPC name must be between 2 and 32 characters.")
	}
	if _, exists := w.NPCSheets[name]; exists {
		return service.Fail(fmt.Sprintf("An NPC named '%s' already exists.", name))
	}
	if desc == "" {
		desc = "An unremarkable figure."
	}
	w.NPCSheets[name] = world.NewCharacterSheet(name, desc)
	w.NPCID(name)
	w.Rooms[roomID].NPCs[name] = true
	r := service.OKText(fmt.Sprintf("[b]%s[/b] now dwells in %s.", name, roomID))
	return r.WithBroadcast(roomID, service.System(fmt.Sprintf("[i]%s arrives.[/i]", name)))
}

// RemoveNPC takes an NPC out of a room. The sheet is retained.
func RemoveNPC(w *world.World, currentRoomID, roomRef, nameRef string) service.Result {
	roomID, err := resolve.ResolveRoom(roomRef, currentRoomID, w.SortedRoomIDs())
	if err != nil {
		return service.Fail(err.Error())
	}
	room := w.Rooms[roomID]
	name, err := resolve.Resolve(nameRef, room.SortedNPCs())
	if err != nil {
		return service.Fail(err.Error())
	}
	delete(room.NPCs, name)
	r := service.OKText(fmt.Sprintf("[b]%s[/b] removed from %s.", name, roomID))
	return r.WithBroadcast(roomID, service.System(fmt.Sprintf("[i]%s departs.[/i]", name)))
}

// SetNPCDesc updates an NPC's description.
func SetNPCDesc(w *world.World, nameRef, desc string) service.Result {
	name, err := resolve.Resolve(nameRef, npcNames(w))
	if err != nil {
		return service.Fail(err.Error())
	}
	if strings.TrimSpace(desc) == "" {
		return service.Fail("A description is required.")
	}
	w.NPCSheets[name].Description = strings.TrimSpace(desc)
	return service.OKText(fmt.Sprintf("Description of [b]%s[/b] updated.", name))
}

// SetNPCAttr sets a core attribute, need, or personality trait by key.
func SetNPCAttr(w *world.World, nameRef, key, value string) service.Result {
	name, err := resolve.Resolve(nameRef, npcNames(w))
	if err != nil {
		return service.Fail(err.Error())
	}
	s := w.NPCSheets[name]
	key = strings.ToLower(strings.TrimSpace(key))

	if f, ferr := strconv.ParseFloat(strings.TrimSpace(value), 64); ferr == nil {
		switch key {
		case "hunger":
			s.Needs.Hunger = world.ClampNeed(f)
		case "thirst":
			s.Needs.Thirst = world.ClampNeed(f)
		case "socialization":
			s.Needs.Socialization = world.ClampNeed(f)
		case "sleep":
			s.Needs.Sleep = world.ClampNeed(f)
		case "safety":
			s.Needs.Safety = world.ClampNeed(f)
		case "wealth_desire":
			s.Needs.WealthDesire = world.ClampNeed(f)
		case "social_status":
			s.Needs.SocialStatus = world.ClampNeed(f)
		case "responsibility":
			s.Personality.Responsibility = world.ClampNeed(f)
		case "aggression":
			s.Personality.Aggression = world.ClampNeed(f)
		case "confidence":
			s.Personality.Confidence = world.ClampNeed(f)
		case "curiosity":
			s.Personality.Curiosity = world.ClampNeed(f)
		case "strength", "dexterity", "intelligence", "health", "morale":
			return setNPCIntAttr(s, name, key, int(f))
		default:
			return service.Fail(fmt.Sprintf("Unknown attribute '%s'.", key))
		}
		return service.OKText(fmt.Sprintf("%s of [b]%s[/b] set.", key, name))
	}
	return service.Fail(fmt.Sprintf("'%s' is not a number.", value))
}

func setNPCIntAttr(s *world.CharacterSheet, name, key string, v int) service.Result {
	clampAttr := func(n int) int {
		if n < world.AttrMin {
			return world.AttrMin
		}
		if n > world.AttrMax {
			return world.AttrMax
		}
		return n
	}
	switch key {
	case "strength":
		s.Strength = clampAttr(v)
	case "dexterity":
		s.Dexterity = clampAttr(v)
	case "intelligence":
		s.Intelligence = clampAttr(v)
	case "health":
		s.Health = clampAttr(v)
	case "morale":
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		s.Morale = v
	}
	return service.OKText(fmt.Sprintf("%s of [b]%s[/b] set.", key, name))
}

// SetNPCAspect sets one of the fate aspects.
func SetNPCAspect(w *world.World, nameRef, key, value string) service.Result {
	name, err := resolve.Resolve(nameRef, npcNames(w))
	if err != nil {
		return service.Fail(err.Error())
	}
	s := w.NPCSheets[name]
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "high_concept":
		s.HighConcept = value
	case "trouble":
		s.Trouble = value
	case "background":
		s.Background = value
	case "focus":
		s.Focus = value
	default:
		return service.Fail(fmt.Sprintf("Unknown aspect '%s'.", key))
	}
	return service.OKText(fmt.Sprintf("Aspect of [b]%s[/b] set.", name))
}

// SetNPCMatrix sets a psychosocial axis, clamped to its bounds.
func SetNPCMatrix(w *world.World, nameRef, axisRef, value string) service.Result {
	name, err := resolve.Resolve(nameRef, npcNames(w))
	if err != nil {
		return service.Fail(err.Error())
	}
	axis, err := resolve.Resolve(axisRef, world.MatrixAxes)
	if err != nil {
		return service.Fail(err.Error())
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return service.Fail(fmt.Sprintf("'%s' is not a number.", value))
	}
	s := w.NPCSheets[name]
	if s.Matrix == nil {
		s.Matrix = map[string]int{}
	}
	s.Matrix[axis] = world.ClampMatrix(n)
	return service.OKText(fmt.Sprintf("%s of [b]%s[/b] set to %d.", axis, name, s.Matrix[axis]))
}

// NPCSheet renders an NPC's character sheet.
func NPCSheet(w *world.World, nameRef string) service.Result {
	name, err := resolve.Resolve(nameRef, npcNames(w))
	if err != nil {
		return service.Fail(err.Error())
	}
	return service.OKText(renderSheet(name, w.NPCSheets[name]))
}

// GenerateNPC creates an NPC via the AI adapter, or the deterministic
// fallback when no endpoint is configured. With a live endpoint that
// fails, no NPC is created and the failure surfaces.
func GenerateNPC(w *world.World, adapter *ai.Adapter, currentRoomID, roomRef, nameHint, descHint string) service.Result {
	roomID := currentRoomID
	if roomRef != "" {
		var err error
		roomID, err = resolve.ResolveRoom(roomRef, currentRoomID, w.SortedRoomIDs())
		if err != nil {
			return service.Fail(err.Error())
		}
	}
	room := w.Rooms[roomID]

	context := fmt.Sprintf("room %s: %s; hint: %s %s", roomID, room.Description, nameHint, descHint)
	name, desc := nameHint, descHint
	if adapter.Enabled() {
		prompt := fmt.Sprintf(
			"Invent one inhabitant for this place. World: %s (%s). %s\n"+
				`Reply with JSON {"name": ..., "description": ...}. Safety: %s.`,
			w.Name, w.Conflict, context, w.SafetyLevel)
		text, err := adapter.Generate("You invent characters for a text world.", prompt, 300)
		if err != nil {
			return service.Fail("The muse is silent; no one was created.")
		}
		gn, gd, perr := parseGeneratedNPC(text)
		if perr != nil {
			return service.Fail("The muse spoke in riddles; no one was created.")
		}
		if name == "" {
			name = gn
		}
		if desc == "" {
			desc = gd
		}
	} else {
		fn, fd := ai.FallbackNPC(w.Name, context)
		if name == "" {
			name = fn
		}
		if desc == "" {
			desc = fd
		}
	}

	// The generated name may collide; suffix until free.
	base := name
	for i := 2; ; i++ {
		if _, exists := w.NPCSheets[name]; !exists {
			break
		}
		name = fmt.Sprintf("%s %d", base, i)
	}
	return AddNPC(w, currentRoomID, roomID, name, desc)
}

func parseGeneratedNPC(text string) (string, string, error) {
	raw := ai.ExtractJSON(text)
	if raw == "" {
		return "", "", fmt.Errorf("no JSON in response")
	}
	var out struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(out.Name) == "" {
		return "", "", fmt.Errorf("generated character has no name")
	}
	return strings.TrimSpace(out.Name), strings.TrimSpace(out.Description), nil
}

func npcNames(w *world.World) []string {
	names := make([]string, 0, len(w.NPCSheets))
	for n := range w.NPCSheets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
