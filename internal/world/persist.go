package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads the world document at path, applies pending migrations, and
// decodes it into a World. A missing file yields a fresh world. A document
// that cannot be parsed or migrated fails the load; nothing partial is
// persisted.
func Load(path string) (*World, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read world state: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse world state: %w", err)
	}

	doc, err = MigrateDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("migrate world state: %w", err)
	}

	migrated, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode migrated state: %w", err)
	}
	w := &World{}
	if err := json.Unmarshal(migrated, w); err != nil {
		return nil, fmt.Errorf("decode world state: %w", err)
	}
	w.normalize()
	return w, nil
}

// Encode serializes the world document. Callers holding the world lock
// encode under it and perform the file write outside.
func Encode(w *World) ([]byte, error) {
	raw, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode world state: %w", err)
	}
	return raw, nil
}

// Save writes the world document atomically: temp file in the same
// directory, then rename.
func Save(w *World, path string) error {
	raw, err := Encode(w)
	if err != nil {
		return err
	}
	return WriteAtomic(path, raw)
}

// WriteAtomic replaces the file at path with raw via temp-file + rename.
func WriteAtomic(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".world-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// normalize initializes nil containers after decode and rebuilds runtime
// state that is not persisted (session bindings, shared sheet pointers).
func (w *World) normalize() {
	if w.Rooms == nil {
		w.Rooms = map[string]*Room{}
	}
	if w.Players == nil {
		w.Players = map[string]*Player{}
	}
	if w.Users == nil {
		w.Users = map[string]*User{}
	}
	if w.NPCSheets == nil {
		w.NPCSheets = map[string]*CharacterSheet{}
	}
	if w.NPCIDs == nil {
		w.NPCIDs = map[string]string{}
	}
	if w.Templates == nil {
		w.Templates = map[string]*Object{}
	}
	if w.Relations == nil {
		w.Relations = map[string]map[string]string{}
	}
	if w.SafetyLevel == "" {
		w.SafetyLevel = DefaultSafetyLevel
	}
	if w.StartRoomID == "" {
		w.StartRoomID = StartRoomID
	}
	for _, r := range w.Rooms {
		if r.Players == nil {
			r.Players = map[string]bool{}
		} else {
			// Sessions never survive a restart.
			for sid := range r.Players {
				delete(r.Players, sid)
			}
		}
		if r.NPCs == nil {
			r.NPCs = map[string]bool{}
		}
		if r.Doors == nil {
			r.Doors = map[string]string{}
		}
		if r.DoorIDs == nil {
			r.DoorIDs = map[string]string{}
		}
		if r.Objects == nil {
			r.Objects = map[string]*Object{}
		}
	}
	for _, u := range w.Users {
		if u.Sheet == nil {
			u.Sheet = NewCharacterSheet(u.DisplayName, u.Description)
		}
	}
}
