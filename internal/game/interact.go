package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// interactVerbs maps input verb phrases onto canonical actions. Longer
// phrases are matched first.
var interactVerbs = []struct {
	phrase string
	action string
}{
	{"pick up", "Pick Up"},
	{"take", "Pick Up"},
	{"get", "Pick Up"},
	{"drop", "Drop"},
	{"open", "Open"},
	{"search", "Search"},
	{"wield", "Wield"},
	{"eat", "Eat"},
	{"drink", "Drink"},
	{"cut", "Cut"},
	{"claim", "Claim"},
	{"unclaim", "Unclaim"},
	{"craft", "Craft"},
}

// HandleInteraction routes free-text object verbs. Returns not-handled
// when the text starts with no known verb, so the dispatcher can try the
// next router.
func HandleInteraction(w *world.World, p *world.Player, text string) service.Result {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, v := range interactVerbs {
		if lower == v.phrase {
			return service.Fail(fmt.Sprintf("%s what?", v.action))
		}
		if strings.HasPrefix(lower, v.phrase+" ") {
			arg := strings.TrimSpace(text[len(v.phrase)+1:])
			return ExecuteAction(w, p, v.action, resolve.StripArticle(resolve.StripQuotes(arg)))
		}
	}
	return service.NotHandled()
}

// ActionsFor derives the available actions for an object from its tags
// and location.
func ActionsFor(w *world.World, obj *world.Object, held bool) []string {
	var actions []string
	if held {
		actions = append(actions, "Drop")
	} else if !obj.HasTag(world.TagImmovable) {
		actions = append(actions, "Pick Up")
	}
	if obj.HasTag(world.TagContainer) {
		actions = append(actions, "Open", "Search")
	}
	if obj.HasTag(world.TagWeapon) {
		actions = append(actions, "Wield")
	}
	if obj.IsEdible() {
		actions = append(actions, "Eat")
	}
	if obj.IsDrinkable() {
		actions = append(actions, "Drink")
	}
	if len(obj.DeconstructRecipe) > 0 {
		actions = append(actions, "Cut")
	}
	if obj.HasTag(world.TagTravelPoint) {
		actions = append(actions, "Move Through")
	}
	if key, ok := obj.CraftSpotTemplate(); ok {
		if _, exists := w.Templates[key]; exists {
			actions = append(actions, "Craft "+key)
		}
	}
	if !held && !obj.HasTag(world.TagTravelPoint) {
		if obj.OwnerUserID == "" {
			actions = append(actions, "Claim")
		} else {
			actions = append(actions, "Unclaim")
		}
	}
	return actions
}

// ExecuteAction performs one interaction verb against a named object.
func ExecuteAction(w *world.World, p *world.Player, action, nameRef string) service.Result {
	room, ok := w.Rooms[p.RoomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	switch action {
	case "Pick Up":
		return pickUp(w, p, room, nameRef)
	case "Drop":
		return drop(p, room, nameRef)
	case "Search":
		return search(w, p, room, nameRef)
	case "Open":
		return open(p, room, nameRef)
	case "Wield":
		return wield(p, room, nameRef)
	case "Eat":
		return consume(p, room, nameRef, true)
	case "Drink":
		return consume(p, room, nameRef, false)
	case "Cut":
		return cut(p, room, nameRef)
	case "Claim":
		return claim(p, room, nameRef)
	case "Unclaim":
		return unclaim(p, room, nameRef)
	case "Craft":
		return Craft(w, p, nameRef)
	}
	return service.Fail(fmt.Sprintf("You can't %s that.", strings.ToLower(action)))
}

// roomPortables lists pickup candidates: loose room objects plus the
// contents of searched containers.
func roomPortables(room *world.Room) map[string]*world.Object {
	out := map[string]*world.Object{}
	for _, o := range room.SortedObjects() {
		if o.HasTag(world.TagTravelPoint) {
			continue
		}
		if _, taken := out[strings.ToLower(o.DisplayName)]; !taken {
			out[strings.ToLower(o.DisplayName)] = o
		}
		if o.HasTag(world.TagContainer) && o.Searched {
			for _, inner := range o.ContainerSlots {
				if inner == nil {
					continue
				}
				if _, taken := out[strings.ToLower(inner.DisplayName)]; !taken {
					out[strings.ToLower(inner.DisplayName)] = inner
				}
			}
		}
	}
	return out
}

func namesOf(m map[string]*world.Object) []string {
	names := make([]string, 0, len(m))
	for _, o := range m {
		names = append(names, o.DisplayName)
	}
	sort.Strings(names)
	return names
}

func pickUp(w *world.World, p *world.Player, room *world.Room, nameRef string) service.Result {
	candidates := roomPortables(room)
	name, err := resolve.Resolve(nameRef, namesOf(candidates))
	if err != nil {
		return service.Fail(err.Error())
	}
	obj := candidates[strings.ToLower(name)]
	if obj.HasTag(world.TagImmovable) {
		return service.Fail(fmt.Sprintf("The %s won't budge.", obj.DisplayName))
	}
	if p.Sheet.Inventory.PlaceAuto(obj) < 0 {
		return service.Fail("You have no free slot that fits it.")
	}
	// The object may have been inside a searched container.
	if _, inRoom := room.Objects[obj.UUID]; inRoom {
		delete(room.Objects, obj.UUID)
	} else {
		removeFromContainers(room, obj.UUID)
	}
	obj.OwnerUserID = p.UserID
	r := service.OKText(fmt.Sprintf("You pick up the %s.", obj.DisplayName))
	return r.WithBroadcast(room.ID, service.System(
		fmt.Sprintf("[i]%s picks up the %s.[/i]", p.Sheet.DisplayName, obj.DisplayName)))
}

func removeFromContainers(room *world.Room, uuid string) {
	for _, o := range room.Objects {
		for i, inner := range o.ContainerSlots {
			if inner != nil && inner.UUID == uuid {
				o.ContainerSlots[i] = nil
				return
			}
		}
	}
}

func drop(p *world.Player, room *world.Room, nameRef string) service.Result {
	idx, obj, err := findHeld(p.Sheet, nameRef)
	if err != nil {
		return service.Fail(err.Error())
	}
	p.Sheet.Inventory.Remove(idx)
	obj.RemoveTag(world.TagStowed)
	if p.Sheet.EquippedWeapon == obj.UUID {
		p.Sheet.EquippedWeapon = ""
	}
	room.Objects[obj.UUID] = obj
	r := service.OKText(fmt.Sprintf("You drop the %s.", obj.DisplayName))
	return r.WithBroadcast(room.ID, service.System(
		fmt.Sprintf("[i]%s drops the %s.[/i]", p.Sheet.DisplayName, obj.DisplayName)))
}

func findHeld(s *world.CharacterSheet, nameRef string) (int, *world.Object, error) {
	var names []string
	for _, o := range s.Inventory.Objects() {
		names = append(names, o.DisplayName)
	}
	name, err := resolve.Resolve(nameRef, names)
	if err != nil {
		return -1, nil, err
	}
	idx := s.Inventory.FindByName(name)
	return idx, s.Inventory[idx], nil
}

func findRoomObject(room *world.Room, nameRef string) (*world.Object, error) {
	var names []string
	for _, o := range room.SortedObjects() {
		names = append(names, o.DisplayName)
	}
	name, err := resolve.Resolve(nameRef, names)
	if err != nil {
		return nil, err
	}
	return room.FindObjectByName(name), nil
}

// search opens a container's first look: loot templates whose location
// hint names this container spawn into its internal slots, once ever.
func search(w *world.World, p *world.Player, room *world.Room, nameRef string) service.Result {
	obj, err := findRoomObject(room, nameRef)
	if err != nil {
		return service.Fail(err.Error())
	}
	if !obj.HasTag(world.TagContainer) {
		return service.Fail(fmt.Sprintf("The %s holds nothing to search.", obj.DisplayName))
	}
	if obj.Searched {
		return service.Fail(fmt.Sprintf("The %s has already been searched.", obj.DisplayName))
	}
	obj.Searched = true
	if obj.ContainerSlots == nil {
		obj.ContainerSlots = make([]*world.Object, world.ContainerSlotCount)
	}

	var found []string
	for _, key := range templateKeys(w) {
		tmpl := w.Templates[key]
		if tmpl.LootLocationHint == nil ||
			!strings.EqualFold(tmpl.LootLocationHint.DisplayName, obj.DisplayName) {
			continue
		}
		loot := tmpl.Clone(true)
		if placeInContainer(obj, loot) {
			found = append(found, loot.DisplayName)
		}
	}

	r := service.Result{Handled: true}
	if len(found) == 0 {
		r.Emits = append(r.Emits, service.System(fmt.Sprintf("You search the %s and find nothing of note.", obj.DisplayName)))
	} else {
		r.Emits = append(r.Emits, service.System(fmt.Sprintf("You search the %s and find: %s.", obj.DisplayName, strings.Join(found, ", "))))
	}
	return r.WithBroadcast(room.ID, service.System(
		fmt.Sprintf("[i]%s rummages through the %s.[/i]", p.Sheet.DisplayName, obj.DisplayName)))
}

// placeInContainer honors the internal layout: slots 0-1 small, 2-3 large.
func placeInContainer(c *world.Object, obj *world.Object) bool {
	lo, hi := 0, 1
	if obj.IsLarge() {
		lo, hi = 2, 3
	}
	for i := lo; i <= hi && i < len(c.ContainerSlots); i++ {
		if c.ContainerSlots[i] == nil {
			c.ContainerSlots[i] = obj
			return true
		}
	}
	return false
}

func open(p *world.Player, room *world.Room, nameRef string) service.Result {
	obj, err := findRoomObject(room, nameRef)
	if err != nil {
		return service.Fail(err.Error())
	}
	if !obj.HasTag(world.TagContainer) {
		return service.Fail(fmt.Sprintf("The %s doesn't open.", obj.DisplayName))
	}
	if !obj.Searched {
		return service.Fail(fmt.Sprintf("You should search the %s first.", obj.DisplayName))
	}
	var small, large []string
	for i, inner := range obj.ContainerSlots {
		if inner == nil {
			continue
		}
		if i < 2 {
			small = append(small, inner.DisplayName)
		} else {
			large = append(large, inner.DisplayName)
		}
	}
	if len(small) == 0 && len(large) == 0 {
		return service.OKText(fmt.Sprintf("The %s is empty.", obj.DisplayName))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Inside the %s:", obj.DisplayName)
	if len(small) > 0 {
		fmt.Fprintf(&b, "\n  small: %s", strings.Join(small, ", "))
	}
	if len(large) > 0 {
		fmt.Fprintf(&b, "\n  large: %s", strings.Join(large, ", "))
	}
	return service.OKText(b.String())
}

// wield moves a weapon into a hand slot, preferring the right hand.
func wield(p *world.Player, room *world.Room, nameRef string) service.Result {
	idx, obj, err := findHeld(p.Sheet, nameRef)
	if err != nil {
		// Not held: a weapon lying in the room can be wielded directly.
		roomObj, rerr := findRoomObject(room, nameRef)
		if rerr != nil {
			return service.Fail(err.Error())
		}
		idx, obj = -1, roomObj
	}
	if !obj.HasTag(world.TagWeapon) {
		return service.Fail(fmt.Sprintf("The %s is not a weapon.", obj.DisplayName))
	}

	inv := &p.Sheet.Inventory
	hand := -1
	switch {
	case inv[world.SlotRightHand] == nil:
		hand = world.SlotRightHand
	case inv[world.SlotLeftHand] == nil:
		hand = world.SlotLeftHand
	default:
		return service.Fail("Both hands are full.")
	}
	if idx >= 0 {
		inv.Remove(idx)
	} else {
		delete(room.Objects, obj.UUID)
		obj.OwnerUserID = p.UserID
	}
	inv.Place(hand, obj)
	p.Sheet.EquippedWeapon = obj.UUID
	r := service.OKText(fmt.Sprintf("You wield the %s.", obj.DisplayName))
	return r.WithBroadcast(room.ID, service.System(
		fmt.Sprintf("[i]%s wields the %s.[/i]", p.Sheet.DisplayName, obj.DisplayName)))
}

// consume eats or drinks a held object, crediting the matching need and
// leaving any deconstruction outputs behind in the room.
func consume(p *world.Player, room *world.Room, nameRef string, eating bool) service.Result {
	idx, obj, err := findHeld(p.Sheet, nameRef)
	if err != nil {
		return service.Fail(err.Error())
	}
	verb := "eat"
	if !eating {
		verb = "drink"
	}
	if eating && !obj.IsEdible() {
		return service.Fail(fmt.Sprintf("The %s is not edible.", obj.DisplayName))
	}
	if !eating && !obj.IsDrinkable() {
		return service.Fail(fmt.Sprintf("The %s is not drinkable.", obj.DisplayName))
	}
	if eating {
		p.Sheet.Needs.Hunger = world.ClampNeed(p.Sheet.Needs.Hunger + float64(obj.Satiation()))
	} else {
		p.Sheet.Needs.Thirst = world.ClampNeed(p.Sheet.Needs.Thirst + float64(obj.Hydration()))
	}
	p.Sheet.Inventory.Remove(idx)
	if p.Sheet.EquippedWeapon == obj.UUID {
		p.Sheet.EquippedWeapon = ""
	}
	for _, part := range obj.DeconstructRecipe {
		spawned := part.Clone(true)
		room.Objects[spawned.UUID] = spawned
	}
	r := service.OKText(fmt.Sprintf("You %s the %s.", verb, obj.DisplayName))
	return r.WithBroadcast(room.ID, service.System(
		fmt.Sprintf("[i]%s %ss the %s.[/i]", p.Sheet.DisplayName, verb, obj.DisplayName)))
}

// cut deconstructs an object into its outputs; requires a wielded weapon.
func cut(p *world.Player, room *world.Room, nameRef string) service.Result {
	if p.Sheet.EquippedWeapon == "" {
		return service.Fail("You need to wield something with an edge first.")
	}
	obj, err := findRoomObject(room, nameRef)
	heldIdx := -1
	if err != nil {
		idx, held, herr := findHeld(p.Sheet, nameRef)
		if herr != nil {
			return service.Fail(err.Error())
		}
		obj, heldIdx = held, idx
	}
	if len(obj.DeconstructRecipe) == 0 {
		return service.Fail(fmt.Sprintf("Cutting the %s would accomplish nothing.", obj.DisplayName))
	}
	if heldIdx >= 0 {
		p.Sheet.Inventory.Remove(heldIdx)
	} else {
		delete(room.Objects, obj.UUID)
	}
	var parts []string
	for _, part := range obj.DeconstructRecipe {
		spawned := part.Clone(true)
		room.Objects[spawned.UUID] = spawned
		parts = append(parts, spawned.DisplayName)
	}
	r := service.OKText(fmt.Sprintf("You cut the %s apart into: %s.", obj.DisplayName, strings.Join(parts, ", ")))
	return r.WithBroadcast(room.ID, service.System(
		fmt.Sprintf("[i]%s cuts the %s apart.[/i]", p.Sheet.DisplayName, obj.DisplayName)))
}

func claim(p *world.Player, room *world.Room, nameRef string) service.Result {
	obj, err := findRoomObject(room, nameRef)
	if err != nil {
		return service.Fail(err.Error())
	}
	if obj.OwnerUserID != "" && obj.OwnerUserID != p.UserID {
		return service.Fail(fmt.Sprintf("The %s already belongs to someone.", obj.DisplayName))
	}
	obj.OwnerUserID = p.UserID
	return service.OKText(fmt.Sprintf("The %s is yours now.", obj.DisplayName))
}

func unclaim(p *world.Player, room *world.Room, nameRef string) service.Result {
	obj, err := findRoomObject(room, nameRef)
	if err != nil {
		return service.Fail(err.Error())
	}
	if obj.OwnerUserID != p.UserID {
		return service.Fail(fmt.Sprintf("The %s is not yours to give up.", obj.DisplayName))
	}
	obj.OwnerUserID = ""
	return service.OKText(fmt.Sprintf("You relinquish the %s.", obj.DisplayName))
}

// Craft builds a template instance at a craft spot in the actor's room,
// consuming the recipe components from the actor's inventory.
func Craft(w *world.World, p *world.Player, templateRef string) service.Result {
	room, ok := w.Rooms[p.RoomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	key, err := resolve.Resolve(strings.ToLower(templateRef), templateKeys(w))
	if err != nil {
		return service.Fail(err.Error())
	}
	spotPresent := false
	for _, o := range room.SortedObjects() {
		if k, has := o.CraftSpotTemplate(); has && k == key {
			spotPresent = true
			break
		}
	}
	if !spotPresent {
		return service.Fail(fmt.Sprintf("There is nowhere here to craft a %s.", key))
	}
	tmpl := w.Templates[key]

	needed := map[string]int{}
	for _, comp := range tmpl.CraftingRecipe {
		needed[strings.ToLower(comp)]++
	}
	have := p.Sheet.Inventory.CountByName()
	var missing []string
	for comp, n := range needed {
		if have[comp] < n {
			missing = append(missing, fmt.Sprintf("%s (need %d, have %d)", comp, n, have[comp]))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return service.Fail(fmt.Sprintf("You are missing components: %s.", strings.Join(missing, ", ")))
	}

	for comp, n := range needed {
		for i := 0; i < n; i++ {
			idx := p.Sheet.Inventory.FindByName(comp)
			p.Sheet.Inventory.Remove(idx)
		}
	}
	crafted := tmpl.Clone(true)
	room.Objects[crafted.UUID] = crafted
	r := service.OKText(fmt.Sprintf("You craft a [b]%s[/b].", crafted.DisplayName))
	return r.WithBroadcast(room.ID, service.System(
		fmt.Sprintf("[i]%s crafts a %s.[/i]", p.Sheet.DisplayName, crafted.DisplayName)))
}
