package world

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Migration upgrades a raw world document by exactly one schema version.
// Apply receives a private deep copy from the registry and may mutate it
// freely; the caller's document is never touched. Every Apply must be
// idempotent and must set world_version to its Version on completion.
type Migration struct {
	Version     int
	Description string
	Apply       func(doc map[string]any) error
}

// Registry returns all migrations in ascending version order.
func Registry() []Migration {
	return []Migration{
		{1, "add world_version field", migrateAddVersion},
		{2, "consolidate needs and personality defaults", migrateNeedsDefaults},
		{3, "ensure UUIDs for rooms, doors, stairs, NPCs, objects, templates", migrateUUIDs},
		{4, "ensure travel-point objects for doors and stairs", migrateTravelObjects},
		{5, "backfill combat fields", migrateCombatFields},
	}
}

// DocVersion reads world_version from a raw document; missing means 0.
func DocVersion(doc map[string]any) int {
	switch v := doc["world_version"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// MigrateDocument applies every pending migration in ascending order and
// returns the upgraded document. The input document is not modified.
// Downgrades are refused.
func MigrateDocument(doc map[string]any) (map[string]any, error) {
	current := DocVersion(doc)
	if current > SchemaVersion {
		return nil, fmt.Errorf("world_version %d is newer than supported version %d", current, SchemaVersion)
	}
	out, err := deepCopyDoc(doc)
	if err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	for _, m := range Registry() {
		if m.Version <= current {
			continue
		}
		step, err := deepCopyDoc(out)
		if err != nil {
			return nil, fmt.Errorf("copy document before migration %d: %w", m.Version, err)
		}
		if err := m.Apply(step); err != nil {
			return nil, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if got := DocVersion(step); got != m.Version {
			return nil, fmt.Errorf("migration %d did not set world_version (got %d)", m.Version, got)
		}
		slog.Info("applied world migration", "version", m.Version, "description", m.Description)
		out = step
	}
	return out, nil
}

func deepCopyDoc(doc map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var cp map[string]any
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, err
	}
	if cp == nil {
		cp = map[string]any{}
	}
	return cp, nil
}

func migrateAddVersion(doc map[string]any) error {
	doc["world_version"] = 1
	return nil
}

func migrateNeedsDefaults(doc map[string]any) error {
	forEachSheet(doc, func(sheet map[string]any) {
		needs := asMap(sheet["needs"])
		def := DefaultNeeds()
		needs["hunger"] = clampedFloat(needs["hunger"], def.Hunger)
		needs["thirst"] = clampedFloat(needs["thirst"], def.Thirst)
		needs["socialization"] = clampedFloat(needs["socialization"], def.Socialization)
		needs["sleep"] = clampedFloat(needs["sleep"], def.Sleep)
		needs["safety"] = clampedFloat(needs["safety"], def.Safety)
		needs["wealth_desire"] = clampedFloat(needs["wealth_desire"], def.WealthDesire)
		needs["social_status"] = clampedFloat(needs["social_status"], def.SocialStatus)
		sheet["needs"] = needs

		pers := asMap(sheet["personality"])
		for _, key := range []string{"responsibility", "aggression", "confidence", "curiosity"} {
			pers[key] = clampedFloat(pers[key], 50)
		}
		sheet["personality"] = pers

		planner := asMap(sheet["planner_state"])
		if _, ok := planner["action_points"]; !ok {
			planner["action_points"] = 0
		}
		if _, ok := planner["plan_queue"]; !ok {
			planner["plan_queue"] = []any{}
		}
		sheet["planner_state"] = planner
	})
	doc["world_version"] = 2
	return nil
}

func migrateUUIDs(doc map[string]any) error {
	for _, rv := range asMap(doc["rooms"]) {
		room := asMap(rv)
		if str(room["uuid"]) == "" {
			room["uuid"] = uuid.NewString()
		}
		doorIDs := asMap(room["door_ids"])
		for name := range asMap(room["doors"]) {
			if str(doorIDs[name]) == "" {
				doorIDs[name] = uuid.NewString()
			}
		}
		room["door_ids"] = doorIDs
		if str(room["stairs_up_to"]) != "" && str(room["stairs_up_id"]) == "" {
			room["stairs_up_id"] = uuid.NewString()
		}
		if str(room["stairs_down_to"]) != "" && str(room["stairs_down_id"]) == "" {
			room["stairs_down_id"] = uuid.NewString()
		}
		for _, ov := range asMap(room["objects"]) {
			obj := asMap(ov)
			if str(obj["uuid"]) == "" {
				obj["uuid"] = uuid.NewString()
			}
		}
	}

	npcIDs := asMap(doc["npc_ids"])
	for name := range asMap(doc["npc_sheets"]) {
		if str(npcIDs[name]) == "" {
			npcIDs[name] = uuid.NewString()
		}
	}
	doc["npc_ids"] = npcIDs

	for _, tv := range asMap(doc["object_templates"]) {
		tmpl := asMap(tv)
		if str(tmpl["uuid"]) == "" {
			tmpl["uuid"] = uuid.NewString()
		}
	}

	doc["world_version"] = 3
	return nil
}

func migrateTravelObjects(doc map[string]any) error {
	for _, rv := range asMap(doc["rooms"]) {
		room := asMap(rv)
		objects := asMap(room["objects"])
		doorIDs := asMap(room["door_ids"])

		hasTravelObject := func(name string) bool {
			for _, ov := range objects {
				obj := asMap(ov)
				if str(obj["display_name"]) != name {
					continue
				}
				for _, t := range asList(obj["object_tags"]) {
					if str(t) == TagTravelPoint {
						return true
					}
				}
			}
			return false
		}
		addTravelObject := func(id, name, desc, target string) {
			if id == "" {
				id = uuid.NewString()
			}
			objects[id] = map[string]any{
				"uuid":                id,
				"display_name":        name,
				"description":         desc,
				"object_tags":         []any{TagImmovable, TagTravelPoint},
				"link_target_room_id": target,
			}
		}

		for name, target := range asMap(room["doors"]) {
			if !hasTravelObject(name) {
				addTravelObject(str(doorIDs[name]), name, fmt.Sprintf("A doorway named '%s'.", name), str(target))
			}
		}
		if up := str(room["stairs_up_to"]); up != "" && !hasTravelObject("stairs up") {
			addTravelObject(str(room["stairs_up_id"]), "stairs up", "A staircase leading up.", up)
		}
		if down := str(room["stairs_down_to"]); down != "" && !hasTravelObject("stairs down") {
			addTravelObject(str(room["stairs_down_id"]), "stairs down", "A staircase leading down.", down)
		}
		room["objects"] = objects
	}
	doc["world_version"] = 4
	return nil
}

func migrateCombatFields(doc map[string]any) error {
	forEachSheet(doc, func(sheet map[string]any) {
		if _, ok := sheet["morale"]; !ok {
			sheet["morale"] = 50
		}
		if _, ok := sheet["yielded"]; !ok {
			sheet["yielded"] = false
		}
		if _, ok := sheet["is_dead"]; !ok {
			sheet["is_dead"] = false
		}
		maxHP := clampedInt(sheet["max_hp"], AttrDefault, 1, 1000)
		sheet["max_hp"] = maxHP
		sheet["hp"] = clampedInt(sheet["hp"], maxHP, 0, maxHP)
		if _, ok := sheet["currency"]; !ok {
			sheet["currency"] = 0
		}
	})
	doc["world_version"] = 5
	return nil
}

// forEachSheet visits every character sheet in the document: each user's
// nested sheet and every NPC sheet.
func forEachSheet(doc map[string]any, fn func(sheet map[string]any)) {
	for _, uv := range asMap(doc["users"]) {
		user := asMap(uv)
		sheet := asMap(user["sheet"])
		fn(sheet)
		user["sheet"] = sheet
	}
	npcs := asMap(doc["npc_sheets"])
	for name, sv := range npcs {
		sheet := asMap(sv)
		fn(sheet)
		npcs[name] = sheet
	}
	if len(npcs) > 0 {
		doc["npc_sheets"] = npcs
	}
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// clampedFloat coerces to float64 with a default for missing or malformed
// values, then clamps to [0, 100].
func clampedFloat(v any, def float64) float64 {
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return ClampNeed(f)
}

func clampedInt(v any, def, lo, hi int) int {
	f, ok := v.(float64)
	if !ok {
		return def
	}
	n := int(f)
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
