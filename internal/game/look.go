package game

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// Look renders the actor's current room.
func Look(w *world.World, p *world.Player) service.Result {
	room, ok := w.Rooms[p.RoomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	return service.OKText(room.Describe(w, p.SID))
}

// Examine shows an object's description and its available actions.
func Examine(w *world.World, p *world.Player, nameRef string) service.Result {
	room, ok := w.Rooms[p.RoomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	nameRef = resolve.StripArticle(resolve.StripQuotes(nameRef))

	held := false
	var obj *world.Object
	if idx := p.Sheet.Inventory.FindByName(nameRef); idx >= 0 {
		obj, held = p.Sheet.Inventory[idx], true
	} else {
		var err error
		obj, err = findRoomObject(room, nameRef)
		if err != nil {
			// An NPC can be examined too.
			if name, nerr := resolve.Resolve(nameRef, room.SortedNPCs()); nerr == nil {
				s := w.NPCSheets[name]
				return service.OKText(fmt.Sprintf("[b]%s[/b]\n%s", name, s.Description))
			}
			return service.Fail(err.Error())
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[b]%s[/b]\n%s", obj.DisplayName, obj.Description)
	if actions := ActionsFor(w, obj, held); len(actions) > 0 {
		fmt.Fprintf(&b, "\nYou could: %s.", strings.Join(actions, ", "))
	}
	return service.OKText(b.String())
}

// Who lists everyone connected and how long the world has been up.
func Who(w *world.World, startedAt time.Time) service.Result {
	var names []string
	for _, p := range w.Players {
		if p.Sheet != nil {
			names = append(names, p.Sheet.DisplayName)
		}
	}
	sort.Strings(names)
	var b strings.Builder
	fmt.Fprintf(&b, "[b]%s[/b] has been awake since %s.\n", worldTitle(w), humanize.Time(startedAt))
	if len(names) == 0 {
		b.WriteString("No one is here.")
	} else {
		fmt.Fprintf(&b, "Present (%d): %s.", len(names), strings.Join(names, ", "))
	}
	return service.OKText(b.String())
}

// ShowSheet renders the actor's own character sheet.
func ShowSheet(p *world.Player) service.Result {
	return service.OKText(renderSheet(p.Sheet.DisplayName, p.Sheet))
}

// Inventory lists the actor's slots by role.
func InventoryView(p *world.Player) service.Result {
	slotNames := []string{
		"left hand", "right hand", "stow 1", "stow 2", "stow 3", "stow 4",
		"large stow 1", "large stow 2",
	}
	var b strings.Builder
	b.WriteString("[b]You are carrying[/b]\n")
	empty := true
	for i, o := range p.Sheet.Inventory {
		if o == nil {
			continue
		}
		empty = false
		fmt.Fprintf(&b, "- %s: %s\n", slotNames[i], o.DisplayName)
	}
	if empty {
		return service.OKText("You are carrying nothing.")
	}
	return service.OKText(strings.TrimRight(b.String(), "\n"))
}

func renderSheet(name string, s *world.CharacterSheet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[b]%s[/b]\n%s\n", name, s.Description)
	fmt.Fprintf(&b, "ST %d  DX %d  IQ %d  HT %d\n", s.Strength, s.Dexterity, s.Intelligence, s.Health)
	fmt.Fprintf(&b, "HP %d/%d  FP %d/%d  Will %d  Per %d  Morale %d\n",
		s.HP, s.MaxHP, s.FP, s.MaxFP, s.Will, s.Perception, s.Morale)
	fmt.Fprintf(&b, "Needs: hunger %.0f, thirst %.0f, socialization %.0f, sleep %.0f\n",
		s.Needs.Hunger, s.Needs.Thirst, s.Needs.Socialization, s.Needs.Sleep)
	if s.HighConcept != "" {
		fmt.Fprintf(&b, "High concept: %s\n", s.HighConcept)
	}
	if s.Trouble != "" {
		fmt.Fprintf(&b, "Trouble: %s\n", s.Trouble)
	}
	if len(s.Matrix) > 0 {
		axes := make([]string, 0, len(s.Matrix))
		for k := range s.Matrix {
			axes = append(axes, k)
		}
		sort.Strings(axes)
		b.WriteString("Matrix:")
		for _, k := range axes {
			fmt.Fprintf(&b, " %s=%+d", k, s.Matrix[k])
		}
		b.WriteString("\n")
	}
	if s.IsDead {
		b.WriteString("[b]DEAD[/b]\n")
	} else if s.Yielded {
		b.WriteString("[i]yielded[/i]\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func worldTitle(w *world.World) string {
	if w.Name != "" {
		return w.Name
	}
	return "This world"
}
