package world

import (
	"fmt"
	"sort"
	"strings"
)

// RelRule grants traversal when the acting user holds the given
// relationship type toward the named user.
type RelRule struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// LockPolicy controls door traversal. An absent policy means unlocked;
// a present policy with neither allowances grants nothing (deny-all).
type LockPolicy struct {
	AllowIDs []string  `json:"allow_ids,omitempty"`
	AllowRel []RelRule `json:"allow_rel,omitempty"`
}

// Room is one location. Doors and stairs are dual-represented: the
// name-to-target maps are the fast traversal lookup, while matching
// Travel Point objects in Objects carry the interactive affordances.
// The two views must agree; the auditor checks this.
type Room struct {
	ID          string `json:"id"`
	UUID        string `json:"uuid"`
	Description string `json:"description"`

	Players map[string]bool `json:"players"` // session ids present
	NPCs    map[string]bool `json:"npcs"`    // NPC display names present

	Doors   map[string]string `json:"doors"`    // door name -> target room id
	DoorIDs map[string]string `json:"door_ids"` // door name -> UUID

	StairsUpTo   string `json:"stairs_up_to,omitempty"`
	StairsDownTo string `json:"stairs_down_to,omitempty"`
	StairsUpID   string `json:"stairs_up_id,omitempty"`
	StairsDownID string `json:"stairs_down_id,omitempty"`

	Objects map[string]*Object `json:"objects"` // UUID -> object

	Tags      []string               `json:"tags,omitempty"`
	DoorLocks map[string]*LockPolicy `json:"door_locks,omitempty"`
}

// NewRoom creates an empty room with a fresh UUID.
func NewRoom(id, description string) *Room {
	return &Room{
		ID:          id,
		UUID:        newUUID(),
		Description: description,
		Players:     map[string]bool{},
		NPCs:        map[string]bool{},
		Doors:       map[string]string{},
		DoorIDs:     map[string]string{},
		Objects:     map[string]*Object{},
	}
}

// DoorNames returns the door names sorted for deterministic display.
func (r *Room) DoorNames() []string {
	names := make([]string, 0, len(r.Doors))
	for n := range r.Doors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SortedNPCs returns present NPC names in deterministic order.
func (r *Room) SortedNPCs() []string {
	names := make([]string, 0, len(r.NPCs))
	for n := range r.NPCs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SortedObjects returns the room's objects ordered by display name then UUID.
func (r *Room) SortedObjects() []*Object {
	objs := make([]*Object, 0, len(r.Objects))
	for _, o := range r.Objects {
		objs = append(objs, o)
	}
	sort.Slice(objs, func(i, j int) bool {
		if objs[i].DisplayName != objs[j].DisplayName {
			return objs[i].DisplayName < objs[j].DisplayName
		}
		return objs[i].UUID < objs[j].UUID
	})
	return objs
}

// FindObjectByName returns the first room object matching the display name
// case-insensitively.
func (r *Room) FindObjectByName(name string) *Object {
	for _, o := range r.SortedObjects() {
		if strings.EqualFold(o.DisplayName, name) {
			return o
		}
	}
	return nil
}

// TravelPoints returns the room's traversal objects sorted by name.
func (r *Room) TravelPoints() []*Object {
	var out []*Object
	for _, o := range r.SortedObjects() {
		if o.HasTag(TagTravelPoint) {
			out = append(out, o)
		}
	}
	return out
}

// Describe renders the room for a viewer, listing occupants, exits, and
// visible objects with light markup.
func (r *Room) Describe(w *World, viewerSID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[b]%s[/b]\n%s\n", r.ID, r.Description)

	var people []string
	for sid := range r.Players {
		if sid == viewerSID {
			continue
		}
		if p, ok := w.Players[sid]; ok && p.Sheet != nil {
			people = append(people, p.Sheet.DisplayName)
		}
	}
	people = append(people, r.SortedNPCs()...)
	sort.Strings(people)
	if len(people) > 0 {
		fmt.Fprintf(&b, "Also here: %s.\n", strings.Join(people, ", "))
	}

	if names := r.DoorNames(); len(names) > 0 {
		fmt.Fprintf(&b, "Doors: %s.\n", strings.Join(names, ", "))
	}
	switch {
	case r.StairsUpTo != "" && r.StairsDownTo != "":
		b.WriteString("Stairs lead up and down.\n")
	case r.StairsUpTo != "":
		b.WriteString("Stairs lead up.\n")
	case r.StairsDownTo != "":
		b.WriteString("Stairs lead down.\n")
	}

	var items []string
	for _, o := range r.SortedObjects() {
		if o.HasTag(TagTravelPoint) {
			continue
		}
		items = append(items, o.DisplayName)
	}
	if len(items) > 0 {
		fmt.Fprintf(&b, "You see: %s.\n", strings.Join(items, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
