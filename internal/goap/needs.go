// Package goap implements the NPC autonomy core: per-tick needs decay,
// action-point regeneration, plan generation (AI-assisted or deterministic
// offline), and plan execution with fixed per-action semantics.
package goap

import (
	"github.com/talgya/tinymud/internal/world"
)

// Config carries the autonomy tunables.
type Config struct {
	APMax             int
	NeedDrop          float64
	SocialDrop        float64
	SocialRefill      float64
	SocialRefillEmote float64
	SocialSimTick     float64
	SleepDrop         float64
	SleepRefill       float64
	SleepTicks        int
	NeedThreshold     float64
}

// DefaultConfig mirrors the recognized option defaults.
func DefaultConfig() Config {
	return Config{
		APMax:             3,
		NeedDrop:          1.0,
		SocialDrop:        0.5,
		SocialRefill:      10,
		SocialRefillEmote: 15,
		SocialSimTick:     5,
		SleepDrop:         0.75,
		SleepRefill:       10,
		SleepTicks:        3,
		NeedThreshold:     50,
	}
}

// DecayNeeds applies one tick of drift to the sheet's needs. Hunger and
// thirst drain steadily; socialization ticks up when the NPC is alone and
// drains in company; sleep refills while sleeping and drains otherwise.
func DecayNeeds(s *world.CharacterSheet, cfg Config, alone, sleeping bool) {
	s.Needs.Hunger = world.ClampNeed(s.Needs.Hunger - cfg.NeedDrop)
	s.Needs.Thirst = world.ClampNeed(s.Needs.Thirst - cfg.NeedDrop)

	if alone {
		s.Needs.Socialization = world.ClampNeed(s.Needs.Socialization + cfg.SocialSimTick)
	} else {
		s.Needs.Socialization = world.ClampNeed(s.Needs.Socialization - cfg.SocialDrop)
	}

	if sleeping {
		s.Needs.Sleep = world.ClampNeed(s.Needs.Sleep + cfg.SleepRefill)
	} else {
		s.Needs.Sleep = world.ClampNeed(s.Needs.Sleep - cfg.SleepDrop)
	}
}

// RegenAP restores one action point toward the cap.
func RegenAP(s *world.CharacterSheet, cfg Config) {
	if s.Planner.ActionPoints < cfg.APMax {
		s.Planner.ActionPoints++
	}
	if s.Planner.ActionPoints > cfg.APMax {
		s.Planner.ActionPoints = cfg.APMax
	}
}

// LowestNeed returns the name and value of the most unsatisfied core need.
func LowestNeed(s *world.CharacterSheet) (string, float64) {
	name, val := "hunger", s.Needs.Hunger
	if s.Needs.Thirst < val {
		name, val = "thirst", s.Needs.Thirst
	}
	if s.Needs.Socialization < val {
		name, val = "socialization", s.Needs.Socialization
	}
	if s.Needs.Sleep < val {
		name, val = "sleep", s.Needs.Sleep
	}
	return name, val
}
