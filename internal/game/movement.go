package game

import (
	"fmt"
	"strings"

	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

var movementVerbs = []string{"move through", "go through", "go", "walk", "enter", "climb"}

// HandleMovement routes free-text travel. A bare exit name also works when
// it matches one of the room's exits.
func HandleMovement(w *world.World, p *world.Player, text string) service.Result {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, v := range movementVerbs {
		if lower == v {
			return service.Fail("Go where?")
		}
		if strings.HasPrefix(lower, v+" ") {
			return Traverse(w, p, resolve.StripArticle(strings.TrimSpace(text[len(v)+1:])))
		}
	}
	// A bare exit name counts only on an exact-ish match; anything else
	// falls through to dialogue.
	if room, ok := w.Rooms[p.RoomID]; ok {
		stripped := resolve.StripArticle(strings.TrimSpace(text))
		for _, exit := range exitNames(room) {
			if strings.EqualFold(exit, stripped) {
				return Traverse(w, p, stripped)
			}
		}
	}
	return service.NotHandled()
}

// Traverse moves the player through a named door or stairs, enforcing
// locks, and announces the departure before the arrival.
func Traverse(w *world.World, p *world.Player, nameRef string) service.Result {
	room, ok := w.Rooms[p.RoomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	exit, err := resolve.Resolve(nameRef, exitNames(room))
	if err != nil {
		return service.Fail(err.Error())
	}

	var targetID string
	switch exit {
	case "stairs up":
		targetID = room.StairsUpTo
	case "stairs down":
		targetID = room.StairsDownTo
	default:
		targetID = room.Doors[exit]
		if !w.CanTraverse(room, exit, p.UserID) {
			return service.Fail(fmt.Sprintf("The %s is locked.", exit))
		}
	}
	dest, ok := w.Rooms[targetID]
	if !ok {
		return service.Fail(fmt.Sprintf("The %s leads nowhere.", exit))
	}

	fromID := room.ID
	if err := w.MovePlayer(p.SID, targetID); err != nil {
		return service.Fail("Something blocks the way.")
	}

	r := service.OKText(dest.Describe(w, p.SID))
	r = r.WithBroadcast(fromID, service.System(
		fmt.Sprintf("[i]%s leaves through the %s.[/i]", p.Sheet.DisplayName, exit)))
	return r.WithBroadcast(targetID, service.System(
		fmt.Sprintf("[i]%s enters.[/i]", p.Sheet.DisplayName)))
}

func exitNames(room *world.Room) []string {
	names := room.DoorNames()
	if room.StairsUpTo != "" {
		names = append(names, "stairs up")
	}
	if room.StairsDownTo != "" {
		names = append(names, "stairs down")
	}
	return names
}
