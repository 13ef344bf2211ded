package world

import (
	"strconv"
	"strings"
)

// Inventory slot layout: a fixed sequence of exactly 8 slots.
const (
	SlotLeftHand   = 0
	SlotRightHand  = 1
	SlotSmallFirst = 2
	SlotSmallLast  = 5
	SlotLargeFirst = 6
	SlotLargeLast  = 7
	SlotCount      = 8
)

// Inventory is a character's 8 fixed slots. Hands (0, 1) accept any size;
// slots 2-5 accept only small objects; slots 6-7 only large.
type Inventory [SlotCount]*Object

// CanPlace reports whether obj may occupy slot idx.
func (inv *Inventory) CanPlace(idx int, obj *Object) bool {
	if idx < 0 || idx >= SlotCount || obj == nil {
		return false
	}
	if inv[idx] != nil {
		return false
	}
	switch {
	case idx <= SlotRightHand:
		return true
	case idx <= SlotSmallLast:
		return !obj.IsLarge()
	default:
		return obj.IsLarge()
	}
}

// Place puts obj into slot idx, maintaining the stowed marker: stow slots
// set it, hands clear it.
func (inv *Inventory) Place(idx int, obj *Object) bool {
	if !inv.CanPlace(idx, obj) {
		return false
	}
	if idx <= SlotRightHand {
		obj.RemoveTag(TagStowed)
	} else {
		obj.AddTag(TagStowed)
	}
	inv[idx] = obj
	return true
}

// PlaceAuto places obj in the first fitting slot using the pickup order:
// small objects try stow slots 2-5 then right hand then left; large objects
// try 6-7 then right hand then left. Returns the slot index or -1.
func (inv *Inventory) PlaceAuto(obj *Object) int {
	var order []int
	if obj.IsLarge() {
		order = []int{SlotLargeFirst, SlotLargeLast, SlotRightHand, SlotLeftHand}
	} else {
		order = []int{2, 3, 4, 5, SlotRightHand, SlotLeftHand}
	}
	for _, idx := range order {
		if inv.Place(idx, obj) {
			return idx
		}
	}
	return -1
}

// Remove clears slot idx and returns what it held.
func (inv *Inventory) Remove(idx int) *Object {
	if idx < 0 || idx >= SlotCount {
		return nil
	}
	obj := inv[idx]
	inv[idx] = nil
	return obj
}

// FindByUUID returns the slot index holding the object, or -1.
func (inv *Inventory) FindByUUID(id string) int {
	for i, o := range inv {
		if o != nil && o.UUID == id {
			return i
		}
	}
	return -1
}

// FindByName returns the first slot whose object has the display name
// (case-insensitive), or -1.
func (inv *Inventory) FindByName(name string) int {
	for i, o := range inv {
		if o != nil && strings.EqualFold(o.DisplayName, name) {
			return i
		}
	}
	return -1
}

// Objects returns the non-empty slots in order.
func (inv *Inventory) Objects() []*Object {
	var out []*Object
	for _, o := range inv {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// CountByName tallies held objects by lowercase display name. Used by
// crafting to check component availability.
func (inv *Inventory) CountByName() map[string]int {
	counts := make(map[string]int)
	for _, o := range inv {
		if o != nil {
			counts[strings.ToLower(o.DisplayName)]++
		}
	}
	return counts
}

// Validate reports inventory constraint violations as issue strings:
// duplicate UUIDs across slots and size-class violations.
func (inv *Inventory) Validate(owner string) []string {
	var issues []string
	seen := make(map[string]int)
	for i, o := range inv {
		if o == nil {
			continue
		}
		if prev, dup := seen[o.UUID]; dup {
			issues = append(issues, "inventory of "+owner+": duplicate object UUID "+o.UUID+" in slots "+strconv.Itoa(prev)+" and "+strconv.Itoa(i))
		}
		seen[o.UUID] = i
		if i >= SlotSmallFirst && i <= SlotSmallLast && o.IsLarge() {
			issues = append(issues, "inventory of "+owner+": large object "+o.DisplayName+" in small slot "+strconv.Itoa(i))
		}
		if i >= SlotLargeFirst && !o.IsLarge() {
			issues = append(issues, "inventory of "+owner+": small object "+o.DisplayName+" in large slot "+strconv.Itoa(i))
		}
	}
	return issues
}
