// Package audit validates world integrity and repairs what it can. It runs
// on load, on demand from the admin surface, and after mode changes.
package audit

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/tinymud/internal/goap"
	"github.com/talgya/tinymud/internal/world"
)

// checkCount is the number of integrity categories the auditor scores.
const checkCount = 7

// Report is one audit pass: the textual issues found and a 0-100 health
// score derived from how many categories passed.
type Report struct {
	Issues []string
	Health int
}

// Run executes every integrity check against the world. It never mutates;
// Cleanup does the repairs.
func Run(w *world.World) Report {
	var failed int
	var issues []string

	checks := []func(*world.World) []string{
		checkUUIDs,
		checkReferential,
		checkDoorReciprocity,
		checkStairReciprocity,
		checkTravelPoints,
		checkInventories,
		checkBounds,
	}
	for _, check := range checks {
		found := check(w)
		if len(found) > 0 {
			failed++
			issues = append(issues, found...)
		}
	}
	return Report{Issues: issues, Health: (checkCount - failed) * 100 / checkCount}
}

// Cleanup repairs what Run flags where a safe repair exists: clamps sheet
// values, drops malformed plan entries, resets inconsistent sleep state,
// and removes references to users that no longer exist. Unrepairable
// findings are logged and left for the admin surface.
func Cleanup(w *world.World) {
	for name, s := range w.NPCSheets {
		goap.CleanPlannerState(w, name, s)
	}
	for _, u := range w.Users {
		if u.Sheet != nil {
			u.Sheet.ClampAll()
		}
	}

	// Relationships referencing deleted users are dropped from both ends.
	for from, m := range w.Relations {
		if _, ok := w.Users[from]; !ok {
			delete(w.Relations, from)
			slog.Info("dropped relationships of deleted user", "user_id", from)
			continue
		}
		for to := range m {
			if _, ok := w.Users[to]; !ok {
				delete(m, to)
			}
		}
	}

	// Door-lock allowlists shed deleted users; relationship rules stay,
	// since traversal already skips rules whose target is gone.
	for _, roomID := range w.SortedRoomIDs() {
		room := w.Rooms[roomID]
		for door, policy := range room.DoorLocks {
			if policy == nil {
				continue
			}
			kept := policy.AllowIDs[:0]
			for _, id := range policy.AllowIDs {
				if _, ok := w.Users[id]; ok {
					kept = append(kept, id)
				}
			}
			if len(kept) < len(policy.AllowIDs) {
				slog.Info("pruned deleted users from door lock", "room", roomID, "door", door)
			}
			policy.AllowIDs = kept
		}
		// NPC names with no sheet are stale markers.
		for name := range room.NPCs {
			if _, ok := w.NPCSheets[name]; !ok {
				delete(room.NPCs, name)
				slog.Warn("removed unknown NPC from room", "room", roomID, "npc", name)
			}
		}
	}
}

func checkUUIDs(w *world.World) []string {
	var issues []string
	seen := map[string]string{}
	note := func(id, where string) {
		if id == "" {
			issues = append(issues, fmt.Sprintf("%s: missing UUID", where))
			return
		}
		if _, err := uuid.Parse(id); err != nil {
			issues = append(issues, fmt.Sprintf("%s: malformed UUID %q", where, id))
			return
		}
		if prev, dup := seen[id]; dup {
			issues = append(issues, fmt.Sprintf("duplicate UUID %s: %s and %s", id, prev, where))
			return
		}
		seen[id] = where
	}

	for _, roomID := range w.SortedRoomIDs() {
		room := w.Rooms[roomID]
		note(room.UUID, "room "+roomID)
		for _, o := range room.SortedObjects() {
			note(o.UUID, fmt.Sprintf("object %s in room %s", o.DisplayName, roomID))
		}
	}
	for _, name := range sortedKeys(w.NPCSheets) {
		note(w.NPCIDs[name], "NPC "+name)
		for _, o := range w.NPCSheets[name].Inventory.Objects() {
			note(o.UUID, fmt.Sprintf("object %s carried by NPC %s", o.DisplayName, name))
		}
	}
	for _, uid := range sortedKeys(w.Users) {
		u := w.Users[uid]
		note(u.UserID, "user "+u.DisplayName)
		if u.Sheet != nil {
			for _, o := range u.Sheet.Inventory.Objects() {
				note(o.UUID, fmt.Sprintf("object %s carried by %s", o.DisplayName, u.DisplayName))
			}
		}
	}
	return issues
}

func checkReferential(w *world.World) []string {
	var issues []string
	for sid, p := range w.Players {
		if _, ok := w.Rooms[p.RoomID]; !ok {
			issues = append(issues, fmt.Sprintf("player session %s references missing room %q", sid, p.RoomID))
		}
	}
	for _, name := range sortedKeys(w.NPCSheets) {
		if w.NPCIDs[name] == "" {
			issues = append(issues, fmt.Sprintf("NPC %s has a sheet but no id mapping", name))
		}
	}
	for _, roomID := range w.SortedRoomIDs() {
		for _, name := range w.Rooms[roomID].SortedNPCs() {
			if _, ok := w.NPCSheets[name]; !ok {
				issues = append(issues, fmt.Sprintf("room %s lists unknown NPC %s", roomID, name))
			}
		}
	}
	return issues
}

func checkDoorReciprocity(w *world.World) []string {
	var issues []string
	for _, roomID := range w.SortedRoomIDs() {
		room := w.Rooms[roomID]
		for _, name := range room.DoorNames() {
			target := room.Doors[name]
			back, ok := w.Rooms[target]
			if !ok {
				issues = append(issues, fmt.Sprintf("room %s door %q targets missing room %q", roomID, name, target))
				continue
			}
			reciprocal := false
			for _, t := range back.Doors {
				if t == roomID {
					reciprocal = true
					break
				}
			}
			if !reciprocal {
				issues = append(issues, fmt.Sprintf("room %s door %q has no return door in %s", roomID, name, target))
			}
			issues = append(issues, checkTravelObject(room, name, target)...)
		}
	}
	return issues
}

func checkStairReciprocity(w *world.World) []string {
	var issues []string
	for _, roomID := range w.SortedRoomIDs() {
		room := w.Rooms[roomID]
		if up := room.StairsUpTo; up != "" {
			above, ok := w.Rooms[up]
			switch {
			case !ok:
				issues = append(issues, fmt.Sprintf("room %s stairs up target missing room %q", roomID, up))
			case above.StairsDownTo != roomID:
				issues = append(issues, fmt.Sprintf("room %s stairs up to %s lack stairs back down", roomID, up))
			}
			issues = append(issues, checkTravelObject(room, "stairs up", up)...)
		}
		if down := room.StairsDownTo; down != "" {
			below, ok := w.Rooms[down]
			switch {
			case !ok:
				issues = append(issues, fmt.Sprintf("room %s stairs down target missing room %q", roomID, down))
			case below.StairsUpTo != roomID:
				issues = append(issues, fmt.Sprintf("room %s stairs down to %s lack stairs back up", roomID, down))
			}
			issues = append(issues, checkTravelObject(room, "stairs down", down)...)
		}
	}
	return issues
}

// checkTravelObject verifies the object view of an exit agrees with the
// map view: present, tagged, and linked to the same target.
func checkTravelObject(room *world.Room, name, target string) []string {
	obj := room.FindObjectByName(name)
	if obj == nil || !obj.HasTag(world.TagTravelPoint) {
		return []string{fmt.Sprintf("room %s exit %q has no travel-point object", room.ID, name)}
	}
	var issues []string
	if !obj.HasTag(world.TagImmovable) {
		issues = append(issues, fmt.Sprintf("room %s exit object %q is not immovable", room.ID, name))
	}
	if obj.LinkTargetRoomID != target {
		issues = append(issues, fmt.Sprintf("room %s exit object %q links to %q, map says %q",
			room.ID, name, obj.LinkTargetRoomID, target))
	}
	return issues
}

func checkTravelPoints(w *world.World) []string {
	var issues []string
	for _, roomID := range w.SortedRoomIDs() {
		for _, o := range w.Rooms[roomID].TravelPoints() {
			if !o.HasTag(world.TagImmovable) {
				issues = append(issues, fmt.Sprintf("travel point %s in room %s is not immovable", o.DisplayName, roomID))
			}
			if _, ok := w.Rooms[o.LinkTargetRoomID]; !ok {
				issues = append(issues, fmt.Sprintf("travel point %s in room %s links to missing room %q",
					o.DisplayName, roomID, o.LinkTargetRoomID))
			}
		}
	}
	return issues
}

func checkInventories(w *world.World) []string {
	var issues []string
	for _, name := range sortedKeys(w.NPCSheets) {
		issues = append(issues, w.NPCSheets[name].Inventory.Validate("NPC "+name)...)
	}
	for _, uid := range sortedKeys(w.Users) {
		u := w.Users[uid]
		if u.Sheet != nil {
			issues = append(issues, u.Sheet.Inventory.Validate(u.DisplayName)...)
		}
	}
	return issues
}

func checkBounds(w *world.World) []string {
	var issues []string
	for _, name := range sortedKeys(w.NPCSheets) {
		issues = append(issues, goap.ValidatePlannerState(w, name, w.NPCSheets[name])...)
	}
	return issues
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
