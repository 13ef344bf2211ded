package game

import (
	"fmt"
	"strings"

	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// NPCReplyMaxTokens bounds the model's answer for one line of dialogue.
const NPCReplyMaxTokens = 200

// NPCReplySystem frames the model as the addressed character.
const NPCReplySystem = "You play a character in a text world."

// NPCAddress is a staged NPC reply: the prompt is built under the world
// lock, the adapter call happens outside it, and NPCReply re-validates
// the scene before anything is delivered.
type NPCAddress struct {
	NPC       string
	RoomID    string
	WorldName string
	Prompt    string
}

// Say broadcasts player speech to the room and credits socialization.
// When an NPC is present the closest-named one is picked to answer; its
// bookkeeping (memory, relationship, social refill) happens here and the
// returned address carries the reply prompt for the caller to resolve
// outside the world lock.
func Say(w *world.World, p *world.Player, text string, socialRefill float64) (service.Result, *NPCAddress) {
	room, ok := w.Rooms[p.RoomID]
	if !ok {
		return service.Fail("You are nowhere."), nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return service.Fail("Say what?"), nil
	}
	p.Sheet.Needs.Socialization = world.ClampNeed(p.Sheet.Needs.Socialization + socialRefill)

	name := p.Sheet.DisplayName
	r := service.OK(service.Speech(service.TypePlayer, name, text))
	r = r.WithBroadcast(room.ID, service.Speech(service.TypePlayer, name, text))

	npcName, listening := addressedNPC(room, text)
	if !listening {
		return r, nil
	}
	s := w.NPCSheets[npcName]
	s.Needs.Socialization = world.ClampNeed(s.Needs.Socialization + socialRefill)
	s.Remember(fmt.Sprintf("%s said: %s", name, truncate(text, 120)))
	s.AdjustRelationship(p.UserID, 1)

	prompt := fmt.Sprintf(
		"You are %s: %s\nWorld: %s. Safety: %s.\n%s says to you: %q\nReply in one or two sentences, in character.",
		npcName, s.Description, w.Name, w.SafetyLevel, name, text)
	return r, &NPCAddress{
		NPC:       npcName,
		RoomID:    room.ID,
		WorldName: w.Name,
		Prompt:    prompt,
	}
}

// NPCReply wraps a resolved reply for delivery. The world may have moved
// on while the model ran, so the NPC must still be alive and in the room
// the speech happened in; otherwise the reply is dropped.
func NPCReply(w *world.World, a *NPCAddress, reply string) (service.Result, bool) {
	room, ok := w.Rooms[a.RoomID]
	if !ok || !room.NPCs[a.NPC] {
		return service.Result{}, false
	}
	if s, ok := w.NPCSheets[a.NPC]; !ok || s.IsDead {
		return service.Result{}, false
	}
	payload := service.Speech(service.TypeNPC, a.NPC, strings.TrimSpace(reply))
	r := service.OK(payload)
	return r.WithBroadcast(a.RoomID, payload), true
}

// EmotePlayer broadcasts a freeform action line and credits socialization.
func EmotePlayer(w *world.World, p *world.Player, action string, socialRefill float64) service.Result {
	action = strings.TrimSpace(action)
	if action == "" {
		return service.Fail("Emote what?")
	}
	p.Sheet.Needs.Socialization = world.ClampNeed(p.Sheet.Needs.Socialization + socialRefill)
	line := fmt.Sprintf("[i]%s %s[/i]", p.Sheet.DisplayName, action)
	r := service.OK(service.Speech(service.TypePlayer, p.Sheet.DisplayName, line))
	return r.WithBroadcast(p.RoomID, service.Speech(service.TypePlayer, p.Sheet.DisplayName, line))
}

// addressedNPC picks the NPC a line of speech is directed at: a present
// NPC whose name appears in the text, or the alphabetically first NPC when
// none is named.
func addressedNPC(room *world.Room, text string) (string, bool) {
	npcs := room.SortedNPCs()
	if len(npcs) == 0 {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, name := range npcs {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name, true
		}
	}
	return npcs[0], true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
