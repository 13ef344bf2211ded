package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// RollDice casts the sacred geometric stones: "NdM(+K)" notation, at most
// 20 dice of up to 1000 sides. A bare "roll" throws a single d20. Appending
// "| private" keeps the result from the room.
func RollDice(w *world.World, p *world.Player, spec string, roll Roller) service.Result {
	private := false
	if expr, tail, ok := strings.Cut(spec, "|"); ok {
		if strings.EqualFold(strings.TrimSpace(tail), "private") {
			private = true
		}
		spec = expr
	}

	count, sides, mod := 1, 20, 0
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec != "" {
		n, s, m, err := parseDice(spec)
		if err != nil {
			return service.Fail(err.Error())
		}
		count, sides, mod = n, s, m
	}

	total := mod
	results := make([]string, count)
	for i := 0; i < count; i++ {
		v := roll(sides)
		total += v
		results[i] = strconv.Itoa(v)
	}

	var detail string
	if count == 1 && mod == 0 {
		detail = fmt.Sprintf("a [b]%d[/b]", total)
	} else {
		detail = fmt.Sprintf("%s%s for a total of [b]%d[/b]",
			strings.Join(results, ", "), modSuffix(mod), total)
	}
	expr := fmt.Sprintf("%dd%d%s", count, sides, modSuffix(mod))
	if private {
		r := service.OKText(fmt.Sprintf(
			"You cast the sacred geometric stones in secret: %s.", detail))
		return r.WithBroadcast(p.RoomID, service.System(fmt.Sprintf(
			"[i]%s casts the sacred geometric stones, shielding the result.[/i]",
			p.Sheet.DisplayName)))
	}
	r := service.OKText(fmt.Sprintf("You cast the sacred geometric stones: %s.", detail))
	return r.WithBroadcast(p.RoomID, service.System(fmt.Sprintf(
		"[i]%s casts the sacred geometric stones (%s): %d.[/i]",
		p.Sheet.DisplayName, expr, total)))
}

func modSuffix(mod int) string {
	switch {
	case mod > 0:
		return fmt.Sprintf("+%d", mod)
	case mod < 0:
		return strconv.Itoa(mod)
	}
	return ""
}

func parseDice(spec string) (int, int, int, error) {
	countStr, rest, ok := strings.Cut(spec, "d")
	if !ok {
		return 0, 0, 0, fmt.Errorf("roll what? Try 'roll 2d6'.")
	}

	mod := 0
	sidesStr := rest
	if i := strings.IndexAny(rest, "+-"); i > 0 {
		m, err := strconv.Atoi(rest[i:])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("'%s' is not a modifier.", rest[i:])
		}
		mod = m
		sidesStr = rest[:i]
	}

	count := 1
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("'%s' is not a number of stones.", countStr)
		}
		count = n
	}
	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("'%s' is not a number of faces.", sidesStr)
	}
	if count < 1 || count > 20 {
		return 0, 0, 0, fmt.Errorf("Between 1 and 20 stones, please.")
	}
	if sides < 2 || sides > 1000 {
		return 0, 0, 0, fmt.Errorf("Stones have between 2 and 1000 faces.")
	}
	return count, sides, mod, nil
}

// HandleRoll routes the free-text "roll" verb.
func HandleRoll(w *world.World, p *world.Player, text string, roll Roller) service.Result {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "roll" {
		return RollDice(w, p, "", roll)
	}
	if strings.HasPrefix(lower, "roll ") {
		return RollDice(w, p, strings.TrimSpace(text[5:]), roll)
	}
	return service.NotHandled()
}
