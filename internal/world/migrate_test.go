package world

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyDoc() map[string]any {
	// A pre-versioning document: no world_version, sparse sheets, doors
	// without ids or travel objects.
	raw := `{
		"rooms": {
			"start": {
				"id": "start",
				"description": "The beginning.",
				"doors": {"oak door": "tavern"}
			},
			"tavern": {
				"id": "tavern",
				"description": "A warm tavern.",
				"doors": {"oak door": "start"},
				"stairs_up_to": "loft"
			},
			"loft": {"id": "loft", "description": "A dusty loft."}
		},
		"users": {
			"u1": {"user_id": "u1", "display_name": "Alice", "sheet": {"display_name": "Alice", "needs": {"hunger": 250}}}
		},
		"npc_sheets": {
			"Gareth": {"display_name": "Gareth"}
		}
	}`
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(err)
	}
	return doc
}

func TestMigrateBringsDocumentToCurrentVersion(t *testing.T) {
	doc, err := MigrateDocument(legacyDoc())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, DocVersion(doc))
}

func TestMigrateDoesNotMutateInput(t *testing.T) {
	in := legacyDoc()
	_, err := MigrateDocument(in)
	require.NoError(t, err)
	_, hasVersion := in["world_version"]
	assert.False(t, hasVersion, "input document must stay untouched")
}

func TestMigrateIdempotent(t *testing.T) {
	once, err := MigrateDocument(legacyDoc())
	require.NoError(t, err)
	twice, err := MigrateDocument(once)
	require.NoError(t, err)

	a, _ := json.Marshal(once)
	b, _ := json.Marshal(twice)
	assert.JSONEq(t, string(a), string(b))
}

func TestMigrateNeedsDefaultsAndClamp(t *testing.T) {
	doc, err := MigrateDocument(legacyDoc())
	require.NoError(t, err)

	users := asMap(doc["users"])
	sheet := asMap(asMap(users["u1"])["sheet"])
	needs := asMap(sheet["needs"])
	assert.Equal(t, 100.0, needs["hunger"], "out-of-range hunger clamps to 100")
	assert.Equal(t, 100.0, needs["thirst"], "missing thirst defaults to 100")

	npc := asMap(asMap(doc["npc_sheets"])["Gareth"])
	pers := asMap(npc["personality"])
	assert.Equal(t, 50.0, pers["curiosity"])
	assert.Equal(t, false, npc["is_dead"])
	assert.Equal(t, float64(50), toFloat(npc["morale"]))
}

func TestMigrateCreatesTravelObjects(t *testing.T) {
	doc, err := MigrateDocument(legacyDoc())
	require.NoError(t, err)

	rooms := asMap(doc["rooms"])
	start := asMap(rooms["start"])
	objects := asMap(start["objects"])

	var found map[string]any
	for _, ov := range objects {
		obj := asMap(ov)
		if str(obj["display_name"]) == "oak door" {
			found = obj
		}
	}
	require.NotNil(t, found, "door object must be created")
	assert.Equal(t, "tavern", str(found["link_target_room_id"]))
	tags := asList(found["object_tags"])
	assert.Contains(t, tags, TagImmovable)
	assert.Contains(t, tags, TagTravelPoint)

	// Door id map agrees with the object UUID.
	doorIDs := asMap(start["door_ids"])
	assert.Equal(t, str(doorIDs["oak door"]), str(found["uuid"]))

	// Stairs object in the tavern.
	tavern := asMap(rooms["tavern"])
	var stairs map[string]any
	for _, ov := range asMap(tavern["objects"]) {
		obj := asMap(ov)
		if str(obj["display_name"]) == "stairs up" {
			stairs = obj
		}
	}
	require.NotNil(t, stairs)
	assert.Equal(t, "loft", str(stairs["link_target_room_id"]))
}

func TestMigrateRefusesDowngrade(t *testing.T) {
	doc := map[string]any{"world_version": float64(SchemaVersion + 1)}
	_, err := MigrateDocument(doc)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world_state.json")

	w := New()
	u, err := w.CreateUser("Alice", "hunter2", "a curious explorer")
	require.NoError(t, err)
	require.True(t, u.IsAdmin, "first user becomes admin")

	room := NewRoom("tavern", "A warm tavern.")
	apple := NewObject("apple", "a crisp apple", TagSmall, "Edible: 10")
	room.Objects[apple.UUID] = apple
	w.Rooms["tavern"] = room
	w.NPCSheets["Gareth"] = NewCharacterSheet("Gareth", "a tired guard")
	w.NPCID("Gareth")
	room.NPCs["Gareth"] = true

	require.NoError(t, Save(w, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, loaded.WorldVersion)
	assert.Equal(t, "Alice", loaded.GetUserByDisplayName("alice").DisplayName)
	require.Contains(t, loaded.Rooms, "tavern")
	assert.Len(t, loaded.Rooms["tavern"].Objects, 1)
	assert.Contains(t, loaded.NPCSheets, "Gareth")
	assert.NotEmpty(t, loaded.NPCIDs["Gareth"])
}

func TestLoadMissingFileYieldsFreshWorld(t *testing.T) {
	w, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Contains(t, w.Rooms, StartRoomID)
	assert.Equal(t, DefaultSafetyLevel, w.SafetyLevel)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
