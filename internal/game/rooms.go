// Package game implements the world-mutation services behind the command
// surface: rooms, objects, NPCs, interaction, movement, trade, combat,
// accounts, and the player-facing readouts. Every function mutates under
// the caller's world lock and returns the uniform service result.
package game

import (
	"fmt"
	"strings"

	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// CreateRoom makes a new empty room with a unique id.
func CreateRoom(w *world.World, id, desc string) service.Result {
	id = strings.TrimSpace(id)
	if id == "" {
		return service.Fail("A room needs an id.")
	}
	if _, exists := w.Rooms[id]; exists {
		return service.Fail(fmt.Sprintf("Room '%s' already exists.", id))
	}
	if desc == "" {
		desc = "An unremarkable room."
	}
	w.Rooms[id] = world.NewRoom(id, desc)
	return service.OKText(fmt.Sprintf("Room [b]%s[/b] created.", id))
}

// SetRoomDesc updates a room's description; "here" targets the actor's room.
func SetRoomDesc(w *world.World, currentRoomID, roomRef, desc string) service.Result {
	id, err := resolve.ResolveRoom(roomRef, currentRoomID, w.SortedRoomIDs())
	if err != nil {
		return service.Fail(err.Error())
	}
	if strings.TrimSpace(desc) == "" {
		return service.Fail("A description is required.")
	}
	w.Rooms[id].Description = strings.TrimSpace(desc)
	return service.OKText(fmt.Sprintf("Description of [b]%s[/b] updated.", id))
}

// AddDoor links the actor's room to a target room with a named door,
// creating the reciprocal door and keeping both rooms' door map, door-id
// map, and travel-point objects in agreement.
func AddDoor(w *world.World, sourceRoomID, name, targetRef string) service.Result {
	source, ok := w.Rooms[sourceRoomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	name = resolve.StripQuotes(name)
	if name == "" {
		return service.Fail("A door needs a name.")
	}
	targetID, err := resolve.ResolveRoom(targetRef, sourceRoomID, w.SortedRoomIDs())
	if err != nil {
		return service.Fail(err.Error())
	}
	if targetID == sourceRoomID {
		return service.Fail("A door cannot lead back into the same room.")
	}
	if _, taken := source.Doors[name]; taken {
		return service.Fail(fmt.Sprintf("There is already a door named '%s' here.", name))
	}
	target := w.Rooms[targetID]

	attachDoor(source, name, targetID)
	backName := reciprocalDoorName(target, name, sourceRoomID)
	if backName != "" {
		attachDoor(target, backName, sourceRoomID)
	}
	return service.OKText(fmt.Sprintf("Door [b]%s[/b] now leads to [b]%s[/b].", name, targetID))
}

// RemoveDoor removes a door and its reciprocal from the far side.
func RemoveDoor(w *world.World, roomID, name string) service.Result {
	room, ok := w.Rooms[roomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	resolved, err := resolve.Resolve(name, room.DoorNames())
	if err != nil {
		return service.Fail(err.Error())
	}
	targetID := room.Doors[resolved]
	detachDoor(room, resolved)

	if target, ok := w.Rooms[targetID]; ok {
		for backName, backTarget := range target.Doors {
			if backTarget == roomID {
				detachDoor(target, backName)
				break
			}
		}
	}
	return service.OKText(fmt.Sprintf("Door [b]%s[/b] removed from both sides.", resolved))
}

// LinkDoor joins two rooms with explicitly named doors on each side.
func LinkDoor(w *world.World, aRef, aDoor, bRef, bDoor string) service.Result {
	ids := w.SortedRoomIDs()
	aID, err := resolve.Resolve(aRef, ids)
	if err != nil {
		return service.Fail(err.Error())
	}
	bID, err := resolve.Resolve(bRef, ids)
	if err != nil {
		return service.Fail(err.Error())
	}
	if aID == bID {
		return service.Fail("A door cannot lead back into the same room.")
	}
	aDoor, bDoor = resolve.StripQuotes(aDoor), resolve.StripQuotes(bDoor)
	if aDoor == "" || bDoor == "" {
		return service.Fail("Both door names are required.")
	}
	a, b := w.Rooms[aID], w.Rooms[bID]
	if _, taken := a.Doors[aDoor]; taken {
		return service.Fail(fmt.Sprintf("Room '%s' already has a door named '%s'.", aID, aDoor))
	}
	if _, taken := b.Doors[bDoor]; taken {
		return service.Fail(fmt.Sprintf("Room '%s' already has a door named '%s'.", bID, bDoor))
	}
	attachDoor(a, aDoor, bID)
	attachDoor(b, bDoor, aID)
	return service.OKText(fmt.Sprintf("Linked [b]%s[/b] and [b]%s[/b].", aID, bID))
}

// SetStairs connects the actor's room upward and/or downward, reciprocating
// on the far side. Empty arguments leave that direction untouched.
func SetStairs(w *world.World, roomID, upRef, downRef string) service.Result {
	room, ok := w.Rooms[roomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	if upRef == "" && downRef == "" {
		return service.Fail("Name a room above, below, or both.")
	}
	if upRef != "" {
		upID, err := resolve.ResolveRoom(upRef, roomID, w.SortedRoomIDs())
		if err != nil {
			return service.Fail(err.Error())
		}
		if upID == roomID {
			return service.Fail("Stairs cannot lead back into the same room.")
		}
		attachStairs(room, w.Rooms[upID], true)
	}
	if downRef != "" {
		downID, err := resolve.ResolveRoom(downRef, roomID, w.SortedRoomIDs())
		if err != nil {
			return service.Fail(err.Error())
		}
		if downID == roomID {
			return service.Fail("Stairs cannot lead back into the same room.")
		}
		attachStairs(room, w.Rooms[downID], false)
	}
	return service.OKText("Stairs set.")
}

// LockDoor installs a lock policy on a door. The policy string is
// pipe-free: "open" clears the lock, "none" denies everyone, "ids:a,b"
// allowlists user ids, "rel:friend,<user-id>" grants via relationship.
func LockDoor(w *world.World, roomID, doorName, policyStr string) service.Result {
	room, ok := w.Rooms[roomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	resolved, err := resolve.Resolve(doorName, room.DoorNames())
	if err != nil {
		return service.Fail(err.Error())
	}
	policy, clear, err := parseLockPolicy(w, policyStr)
	if err != nil {
		return service.Fail(err.Error())
	}
	if clear {
		delete(room.DoorLocks, resolved)
		return service.OKText(fmt.Sprintf("The %s is now unlocked.", resolved))
	}
	if room.DoorLocks == nil {
		room.DoorLocks = map[string]*world.LockPolicy{}
	}
	room.DoorLocks[resolved] = policy
	return service.OKText(fmt.Sprintf("The %s is now locked.", resolved))
}

func parseLockPolicy(w *world.World, s string) (*world.LockPolicy, bool, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, "open"):
		return nil, true, nil
	case strings.EqualFold(s, "none") || s == "":
		return &world.LockPolicy{}, false, nil
	case strings.HasPrefix(strings.ToLower(s), "ids:"):
		var ids []string
		for _, part := range strings.Split(s[len("ids:"):], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if u := w.GetUserByDisplayName(part); u != nil {
				part = u.UserID
			}
			ids = append(ids, part)
		}
		return &world.LockPolicy{AllowIDs: ids}, false, nil
	case strings.HasPrefix(strings.ToLower(s), "rel:"):
		parts := strings.SplitN(s[len("rel:"):], ",", 2)
		if len(parts) != 2 {
			return nil, false, fmt.Errorf("rel policy needs a type and a user, like rel:friend,Alice")
		}
		who := strings.TrimSpace(parts[1])
		if u := w.GetUserByDisplayName(who); u != nil {
			who = u.UserID
		}
		return &world.LockPolicy{AllowRel: []world.RelRule{{Type: strings.TrimSpace(parts[0]), UserID: who}}}, false, nil
	}
	return nil, false, fmt.Errorf("unknown lock policy '%s'", s)
}

// attachDoor adds one side of a door, keeping map, id map, and object in
// tri-agreement.
func attachDoor(room *world.Room, name, targetID string) {
	obj := world.NewObject(name, fmt.Sprintf("A doorway named '%s'.", name), world.TagImmovable, world.TagTravelPoint)
	obj.LinkTargetRoomID = targetID
	room.Doors[name] = targetID
	room.DoorIDs[name] = obj.UUID
	room.Objects[obj.UUID] = obj
}

// detachDoor removes one side of a door from all three views, plus any lock.
func detachDoor(room *world.Room, name string) {
	if id, ok := room.DoorIDs[name]; ok {
		delete(room.Objects, id)
	}
	delete(room.Doors, name)
	delete(room.DoorIDs, name)
	delete(room.DoorLocks, name)
}

// reciprocalDoorName picks the name for the far side of a new door. The
// source name is reused when free; a name already leading elsewhere gets
// the "(to <source>)" variant, then numeric suffixes. Returns "" when the
// far side already has a door back to the source.
func reciprocalDoorName(target *world.Room, name, sourceRoomID string) string {
	existing, taken := target.Doors[name]
	if !taken {
		return name
	}
	if existing == sourceRoomID {
		return ""
	}
	base := fmt.Sprintf("%s (to %s)", name, sourceRoomID)
	candidate := base
	for i := 2; ; i++ {
		t, taken := target.Doors[candidate]
		if !taken {
			return candidate
		}
		if t == sourceRoomID {
			return ""
		}
		candidate = fmt.Sprintf("%s %d", base, i)
	}
}

// attachStairs joins two rooms vertically, maintaining both rooms' stair
// fields and travel-point objects.
func attachStairs(lower, upper *world.Room, actorBelow bool) {
	if !actorBelow {
		lower, upper = upper, lower
	}
	if lower.StairsUpTo != upper.ID {
		lower.StairsUpTo = upper.ID
		up := world.NewObject("stairs up", "A staircase leading up.", world.TagImmovable, world.TagTravelPoint)
		up.LinkTargetRoomID = upper.ID
		if old := lower.FindObjectByName("stairs up"); old != nil {
			delete(lower.Objects, old.UUID)
		}
		lower.StairsUpID = up.UUID
		lower.Objects[up.UUID] = up
	}
	if upper.StairsDownTo != lower.ID {
		upper.StairsDownTo = lower.ID
		down := world.NewObject("stairs down", "A staircase leading down.", world.TagImmovable, world.TagTravelPoint)
		down.LinkTargetRoomID = lower.ID
		if old := upper.FindObjectByName("stairs down"); old != nil {
			delete(upper.Objects, old.UUID)
		}
		upper.StairsDownID = down.UUID
		upper.Objects[down.UUID] = down
	}
}
