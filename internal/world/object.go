// Package world provides the TinyMUD domain model: rooms, objects,
// character sheets, users, players, and the world container, plus the
// schema migrations that evolve saved state across versions.
package world

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Semantic object tags. Tag matching is case-sensitive except where noted.
const (
	TagSmall       = "small"
	TagLarge       = "large"
	TagTravelPoint = "Travel Point"
	TagImmovable   = "Immovable"
	TagContainer   = "Container"
	TagWeapon      = "weapon"
	TagStowed      = "stowed"
	TagBed         = "bed"
)

// Valued tag keys, matched case-insensitively when parsing the number.
const (
	TagKeyEdible    = "Edible"
	TagKeyDrinkable = "Drinkable"
	TagKeyCraftSpot = "craft spot"
)

// ContainerSlotCount is the internal capacity of a Container object:
// slots 0-1 hold small objects, slots 2-3 hold large ones.
const ContainerSlotCount = 4

// Object is any item in the world. It lives either in a room's objects
// map or in exactly one inventory slot, never both.
type Object struct {
	UUID             string    `json:"uuid"`
	DisplayName      string    `json:"display_name"`
	Description      string    `json:"description"`
	OwnerUserID      string    `json:"owner_user_id,omitempty"`
	LinkTargetRoomID string    `json:"link_target_room_id,omitempty"`
	Tags             []string  `json:"object_tags"`
	MaterialTag      string    `json:"material_tag,omitempty"`
	Value            int       `json:"value,omitempty"`
	SatiationValue   int       `json:"satiation_value,omitempty"`
	HydrationValue   int       `json:"hydration_value,omitempty"`
	Durability       int       `json:"durability,omitempty"`
	Quality          string    `json:"quality,omitempty"`
	WeaponDamage     int       `json:"weapon_damage,omitempty"`
	ArmorDefense     int       `json:"armor_defense,omitempty"`
	CraftingRecipe   []string  `json:"crafting_recipe,omitempty"`
	DeconstructRecipe []*Object `json:"deconstruct_recipe,omitempty"`
	LootLocationHint *Object   `json:"loot_location_hint,omitempty"`

	// Container state.
	Searched       bool      `json:"container_searched,omitempty"`
	ContainerSlots []*Object `json:"container_slots,omitempty"`
}

// NewObject creates an object with a fresh UUID.
func NewObject(name, description string, tags ...string) *Object {
	return &Object{
		UUID:        uuid.NewString(),
		DisplayName: name,
		Description: description,
		Tags:        tags,
	}
}

// HasTag reports whether the object carries the exact tag.
func (o *Object) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends the tag if not already present.
func (o *Object) AddTag(tag string) {
	if !o.HasTag(tag) {
		o.Tags = append(o.Tags, tag)
	}
}

// RemoveTag removes every occurrence of the tag.
func (o *Object) RemoveTag(tag string) {
	out := o.Tags[:0]
	for _, t := range o.Tags {
		if t != tag {
			out = append(out, t)
		}
	}
	o.Tags = out
}

// TagValue parses a valued tag of the form "<key>: <int>". The key is
// matched case-insensitively; a leading sign on the number is accepted.
// Returns (value, true) on the first match.
func (o *Object) TagValue(key string) (int, bool) {
	lk := strings.ToLower(key)
	for _, t := range o.Tags {
		k, v, ok := strings.Cut(t, ":")
		if !ok {
			continue
		}
		if strings.ToLower(strings.TrimSpace(k)) != lk {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// CraftSpotTemplate returns the template key of a "craft spot:<key>" tag.
func (o *Object) CraftSpotTemplate() (string, bool) {
	for _, t := range o.Tags {
		k, v, ok := strings.Cut(t, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), TagKeyCraftSpot) {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Satiation returns the edible amount, preferring the valued tag over the
// structured field.
func (o *Object) Satiation() int {
	if n, ok := o.TagValue(TagKeyEdible); ok {
		return n
	}
	return o.SatiationValue
}

// Hydration returns the drinkable amount, preferring the valued tag.
func (o *Object) Hydration() int {
	if n, ok := o.TagValue(TagKeyDrinkable); ok {
		return n
	}
	return o.HydrationValue
}

// IsEdible reports whether the object has a positive satiation affordance.
func (o *Object) IsEdible() bool {
	_, ok := o.TagValue(TagKeyEdible)
	return ok || o.SatiationValue > 0
}

// IsDrinkable reports whether the object has a positive hydration affordance.
func (o *Object) IsDrinkable() bool {
	_, ok := o.TagValue(TagKeyDrinkable)
	return ok || o.HydrationValue > 0
}

// IsLarge reports the size class; anything not tagged large is treated as
// small for slot placement.
func (o *Object) IsLarge() bool { return o.HasTag(TagLarge) }

// Clone deep-copies the object. When fresh is true the copy receives a new
// UUID (template instantiation); otherwise the UUID is preserved.
func (o *Object) Clone(fresh bool) *Object {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Tags = append([]string(nil), o.Tags...)
	cp.CraftingRecipe = append([]string(nil), o.CraftingRecipe...)
	cp.DeconstructRecipe = nil
	for _, d := range o.DeconstructRecipe {
		cp.DeconstructRecipe = append(cp.DeconstructRecipe, d.Clone(false))
	}
	cp.LootLocationHint = o.LootLocationHint.Clone(false)
	cp.ContainerSlots = nil
	for _, c := range o.ContainerSlots {
		cp.ContainerSlots = append(cp.ContainerSlots, c.Clone(false))
	}
	if fresh {
		cp.UUID = uuid.NewString()
	}
	return &cp
}
