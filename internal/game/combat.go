package game

import (
	"fmt"

	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// Roller produces a uniform integer in [1, n]. Combat takes one as a
// parameter so tests can fix the dice.
type Roller func(n int) int

// Damage applies the standard formula: half strength plus weapon, less
// armor, never below 1.
func Damage(strength, weaponDamage, armorDefense int) int {
	dmg := strength/2 + weaponDamage - armorDefense
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// Attack strikes a named NPC in the actor's room. A surviving, unyielded
// target strikes back in the same exchange.
func Attack(w *world.World, p *world.Player, targetRef string, roll Roller) service.Result {
	room, ok := w.Rooms[p.RoomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	name, err := resolve.Resolve(resolve.StripArticle(targetRef), room.SortedNPCs())
	if err != nil {
		return service.Fail(err.Error())
	}
	target := w.NPCSheets[name]
	if target == nil || target.IsDead {
		return service.Fail(fmt.Sprintf("%s is beyond fighting.", name))
	}

	dmg := Damage(p.Sheet.Strength, weaponDamageOf(p.Sheet), armorDefenseOf(target))
	target.HP -= dmg
	target.AdjustRelationship(p.UserID, -20)

	r := service.OK(service.System(fmt.Sprintf("You strike %s for %d damage.", name, dmg)))
	r = r.WithBroadcast(room.ID, service.System(
		fmt.Sprintf("[i]%s attacks %s![/i]", p.Sheet.DisplayName, name)))

	if target.HP <= 0 {
		target.HP = 0
		target.IsDead = true
		delete(room.NPCs, name)
		r = r.WithEmit(service.System(fmt.Sprintf("[b]%s falls.[/b]", name)))
		return r.WithBroadcast(room.ID, service.System(fmt.Sprintf("[i]%s falls.[/i]", name)))
	}

	if !target.Yielded && shouldYield(target, roll) {
		target.Yielded = true
		r = r.WithEmit(service.System(fmt.Sprintf("%s yields!", name)))
		return r.WithBroadcast(room.ID, service.Speech(service.TypeNPC, name,
			fmt.Sprintf("[i]%s throws up their hands and yields.[/i]", name)))
	}
	if target.Yielded {
		return r
	}

	// Retaliation.
	counter := Damage(target.Strength, weaponDamageOf(target), armorDefenseOf(p.Sheet))
	p.Sheet.HP -= counter
	r = r.WithEmit(service.System(fmt.Sprintf("%s strikes back for %d damage.", name, counter)))
	if p.Sheet.HP <= 0 {
		p.Sheet.HP = 0
		p.Sheet.IsDead = true
		r = r.WithEmit(service.System("[b]Everything goes dark.[/b]"))
		r = r.WithBroadcast(room.ID, service.System(
			fmt.Sprintf("[i]%s collapses.[/i]", p.Sheet.DisplayName)))
	}
	return r
}

// shouldYield checks the morale break: low health, or a bad nerve roll.
func shouldYield(s *world.CharacterSheet, roll Roller) bool {
	if s.MaxHP > 0 && s.HP*10 <= s.MaxHP*3 {
		return true
	}
	return roll(100)+s.Morale+int(s.Personality.Confidence)-int(s.Personality.Aggression) < 50
}

// Flee moves the actor to a random adjacent room, considering only exits
// the actor is permitted to use.
func Flee(w *world.World, p *world.Player, roll Roller) service.Result {
	if p.Sheet.IsDead {
		return service.Fail("The dead do not run.")
	}
	room, ok := w.Rooms[p.RoomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}

	type exit struct {
		name   string
		target string
	}
	var exits []exit
	for _, name := range room.DoorNames() {
		if w.CanTraverse(room, name, p.UserID) {
			exits = append(exits, exit{name, room.Doors[name]})
		}
	}
	if room.StairsUpTo != "" {
		exits = append(exits, exit{"stairs up", room.StairsUpTo})
	}
	if room.StairsDownTo != "" {
		exits = append(exits, exit{"stairs down", room.StairsDownTo})
	}
	if len(exits) == 0 {
		return service.Fail("There is nowhere to run.")
	}

	chosen := exits[roll(len(exits))-1]
	if _, ok := w.Rooms[chosen.target]; !ok {
		return service.Fail("There is nowhere to run.")
	}
	fromID := room.ID
	if err := w.MovePlayer(p.SID, chosen.target); err != nil {
		return service.Fail("Something blocks the way.")
	}
	r := service.OKText(fmt.Sprintf("You flee through the %s!\n%s",
		chosen.name, w.Rooms[chosen.target].Describe(w, p.SID)))
	r = r.WithBroadcast(fromID, service.System(
		fmt.Sprintf("[i]%s flees through the %s![/i]", p.Sheet.DisplayName, chosen.name)))
	return r.WithBroadcast(chosen.target, service.System(
		fmt.Sprintf("[i]%s rushes in, breathless.[/i]", p.Sheet.DisplayName)))
}

func weaponDamageOf(s *world.CharacterSheet) int {
	if s.EquippedWeapon == "" {
		return 0
	}
	if idx := s.Inventory.FindByUUID(s.EquippedWeapon); idx >= 0 {
		return s.Inventory[idx].WeaponDamage
	}
	return 0
}

func armorDefenseOf(s *world.CharacterSheet) int {
	if s.EquippedArmor == "" {
		return 0
	}
	if idx := s.Inventory.FindByUUID(s.EquippedArmor); idx >= 0 {
		return s.Inventory[idx].ArmorDefense
	}
	return 0
}

// NPCFlee picks a flight destination for an NPC with the same filter-then-
// random policy the player path uses. Returns the exit name and target, or
// false when trapped.
func NPCFlee(w *world.World, room *world.Room, npcName string, roll Roller) (string, string, bool) {
	npcID := w.NPCID(npcName)
	type exit struct{ name, target string }
	var exits []exit
	for _, name := range room.DoorNames() {
		if w.CanTraverse(room, name, npcID) {
			exits = append(exits, exit{name, room.Doors[name]})
		}
	}
	if room.StairsUpTo != "" {
		exits = append(exits, exit{"stairs up", room.StairsUpTo})
	}
	if room.StairsDownTo != "" {
		exits = append(exits, exit{"stairs down", room.StairsDownTo})
	}
	if len(exits) == 0 {
		return "", "", false
	}
	chosen := exits[roll(len(exits))-1]
	if _, ok := w.Rooms[chosen.target]; !ok {
		return "", "", false
	}
	return chosen.name, chosen.target, true
}
