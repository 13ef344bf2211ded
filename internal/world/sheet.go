package world

// Attribute bounds for the GURPS-style core stats.
const (
	AttrMin     = 3
	AttrMax     = 18
	AttrDefault = 10
)

// MatrixAxes are the 11 psychosocial axes; each value is clamped to [-10, 10].
var MatrixAxes = []string{
	"authoritarian_egalitarian",
	"traditional_progressive",
	"collectivist_individualist",
	"spiritual_materialist",
	"pacifist_militant",
	"hedonist_ascetic",
	"trusting_suspicious",
	"generous_greedy",
	"honest_deceptive",
	"brave_cautious",
	"serious_playful",
}

// Needs are floating-point reserves in [0, 100]; 100 means fully satisfied.
type Needs struct {
	Hunger        float64 `json:"hunger"`
	Thirst        float64 `json:"thirst"`
	Socialization float64 `json:"socialization"`
	Sleep         float64 `json:"sleep"`

	// Extended needs driving the autonomy evaluator.
	Safety       float64 `json:"safety"`
	WealthDesire float64 `json:"wealth_desire"`
	SocialStatus float64 `json:"social_status"`
}

// DefaultNeeds returns a fully satisfied needs block.
func DefaultNeeds() Needs {
	return Needs{
		Hunger: 100, Thirst: 100, Socialization: 100, Sleep: 100,
		Safety: 100, WealthDesire: 50, SocialStatus: 50,
	}
}

// Personality traits in [0, 100], default 50.
type Personality struct {
	Responsibility float64 `json:"responsibility"`
	Aggression     float64 `json:"aggression"`
	Confidence     float64 `json:"confidence"`
	Curiosity      float64 `json:"curiosity"`
}

// PlanStep is one queued action record: a tool name plus its arguments.
type PlanStep struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// PlannerState is the per-character GOAP bookkeeping.
type PlannerState struct {
	ActionPoints           int        `json:"action_points"`
	PlanQueue              []PlanStep `json:"plan_queue"`
	SleepingTicksRemaining int        `json:"sleeping_ticks_remaining"`
	SleepingBedUUID        string     `json:"sleeping_bed_uuid,omitempty"`
}

// CharacterSheet holds everything persistent about a character, player or NPC.
type CharacterSheet struct {
	DisplayName string `json:"display_name"`
	Description string `json:"description"`

	// Core attributes, 3-18.
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Intelligence int `json:"intelligence"`
	Health       int `json:"health"`

	// Derived stats.
	HP         int `json:"hp"`
	MaxHP      int `json:"max_hp"`
	Will       int `json:"will"`
	Perception int `json:"perception"`
	FP         int `json:"fp"`
	MaxFP      int `json:"max_fp"`

	// Fate aspects.
	HighConcept string `json:"high_concept,omitempty"`
	Trouble     string `json:"trouble,omitempty"`
	Background  string `json:"background,omitempty"`
	Focus       string `json:"focus,omitempty"`

	Matrix        map[string]int `json:"psychosocial_matrix,omitempty"`
	Advantages    []string       `json:"advantages,omitempty"`
	Disadvantages []string       `json:"disadvantages,omitempty"`
	Quirks        []string       `json:"quirks,omitempty"`

	// Combat.
	Morale         int    `json:"morale"`
	Yielded        bool   `json:"yielded"`
	IsDead         bool   `json:"is_dead"`
	EquippedWeapon string `json:"equipped_weapon,omitempty"`
	EquippedArmor  string `json:"equipped_armor,omitempty"`
	Currency       int    `json:"currency"`

	Needs       Needs       `json:"needs"`
	Personality Personality `json:"personality"`

	Memory        []string       `json:"memory,omitempty"`
	Relationships map[string]int `json:"relationships,omitempty"`

	Planner   PlannerState `json:"planner_state"`
	Inventory Inventory    `json:"inventory"`
}

// MaxMemory caps the memory list; oldest entries fall off first.
const MaxMemory = 50

// NewCharacterSheet builds a sheet with default attributes and full needs.
func NewCharacterSheet(name, description string) *CharacterSheet {
	return &CharacterSheet{
		DisplayName:  name,
		Description:  description,
		Strength:     AttrDefault,
		Dexterity:    AttrDefault,
		Intelligence: AttrDefault,
		Health:       AttrDefault,
		HP:           AttrDefault,
		MaxHP:        AttrDefault,
		Will:         AttrDefault,
		Perception:   AttrDefault,
		FP:           AttrDefault,
		MaxFP:        AttrDefault,
		Morale:       50,
		Needs:        DefaultNeeds(),
		Personality:  Personality{Responsibility: 50, Aggression: 50, Confidence: 50, Curiosity: 50},
		Matrix:       map[string]int{},
	}
}

// ClampNeed bounds a need value to [0, 100].
func ClampNeed(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampMatrix bounds a psychosocial axis to [-10, 10].
func ClampMatrix(v int) int {
	if v < -10 {
		return -10
	}
	if v > 10 {
		return 10
	}
	return v
}

// ClampAll normalizes every bounded field on the sheet in place.
func (s *CharacterSheet) ClampAll() {
	s.Needs.Hunger = ClampNeed(s.Needs.Hunger)
	s.Needs.Thirst = ClampNeed(s.Needs.Thirst)
	s.Needs.Socialization = ClampNeed(s.Needs.Socialization)
	s.Needs.Sleep = ClampNeed(s.Needs.Sleep)
	s.Needs.Safety = ClampNeed(s.Needs.Safety)
	s.Needs.WealthDesire = ClampNeed(s.Needs.WealthDesire)
	s.Needs.SocialStatus = ClampNeed(s.Needs.SocialStatus)
	for k, v := range s.Matrix {
		s.Matrix[k] = ClampMatrix(v)
	}
	if s.Planner.ActionPoints < 0 {
		s.Planner.ActionPoints = 0
	}
}

// Remember appends a memory line, trimming the oldest beyond MaxMemory.
func (s *CharacterSheet) Remember(line string) {
	s.Memory = append(s.Memory, line)
	if len(s.Memory) > MaxMemory {
		s.Memory = s.Memory[len(s.Memory)-MaxMemory:]
	}
}

// AdjustRelationship shifts the sentiment toward another entity, clamped
// to [-100, 100].
func (s *CharacterSheet) AdjustRelationship(id string, delta int) {
	if s.Relationships == nil {
		s.Relationships = map[string]int{}
	}
	v := s.Relationships[id] + delta
	if v < -100 {
		v = -100
	}
	if v > 100 {
		v = 100
	}
	s.Relationships[id] = v
}

// PersonalityModifier maps a 0-100 trait onto [-1, 1] around the neutral 50.
func PersonalityModifier(trait float64) float64 {
	return (trait - 50) / 50
}
