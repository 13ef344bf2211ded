package world

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// SchemaVersion is the current world document version; migrations bring
// older documents up to this.
const SchemaVersion = 5

// Safety levels for AI content generation.
var SafetyLevels = []string{"G", "PG-13", "R", "OFF"}

// DefaultSafetyLevel applies when a world has none set.
const DefaultSafetyLevel = "PG-13"

// StartRoomID is the room new players and fresh worlds begin in.
const StartRoomID = "start"

// User is a persistent account. The first user created becomes admin.
type User struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Password    string          `json:"password"` // verifier, opaque to the core
	Description string          `json:"description"`
	IsAdmin     bool            `json:"is_admin"`
	Sheet       *CharacterSheet `json:"sheet"`
}

// Player is the ephemeral session binding created at login.
type Player struct {
	SID    string          `json:"sid"`
	UserID string          `json:"user_id"`
	RoomID string          `json:"room_id"`
	Sheet  *CharacterSheet `json:"-"` // shared with the owning User
}

// World is the root container for all shared mutable state.
type World struct {
	WorldVersion int `json:"world_version"`

	Rooms     map[string]*Room            `json:"rooms"`
	Players   map[string]*Player          `json:"-"` // sessions are not persisted
	Users     map[string]*User            `json:"users"`
	NPCSheets map[string]*CharacterSheet  `json:"npc_sheets"`
	NPCIDs    map[string]string           `json:"npc_ids"`
	Templates map[string]*Object          `json:"object_templates"`
	Relations map[string]map[string]string `json:"relationships"`
	Factions  map[string][]string         `json:"factions,omitempty"`

	Name        string `json:"world_name"`
	Description string `json:"world_description"`
	Conflict    string `json:"world_conflict"`

	StartRoomID   string `json:"start_room_id"`
	SetupComplete bool   `json:"setup_complete"`
	SafetyLevel   string `json:"safety_level"`
	AdvancedGOAP  bool   `json:"advanced_goap_enabled"`
}

// New creates a fresh world with the starting room.
func New() *World {
	w := &World{
		WorldVersion: SchemaVersion,
		Rooms:        map[string]*Room{},
		Players:      map[string]*Player{},
		Users:        map[string]*User{},
		NPCSheets:    map[string]*CharacterSheet{},
		NPCIDs:       map[string]string{},
		Templates:    map[string]*Object{},
		Relations:    map[string]map[string]string{},
		StartRoomID:  StartRoomID,
		SafetyLevel:  DefaultSafetyLevel,
	}
	w.Rooms[StartRoomID] = NewRoom(StartRoomID, "A quiet crossroads where every journey begins.")
	return w
}

// GetUserByDisplayName finds an account by name, case-insensitively.
func (w *World) GetUserByDisplayName(name string) *User {
	for _, u := range w.Users {
		if strings.EqualFold(u.DisplayName, name) {
			return u
		}
	}
	return nil
}

// CreateUser registers a new account. Name must be 2-32 characters and
// unique case-insensitively. The first account is made admin.
func (w *World) CreateUser(name, password, description string) (*User, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 32 {
		return nil, fmt.Errorf("name must be between 2 and 32 characters")
	}
	if w.GetUserByDisplayName(name) != nil {
		return nil, fmt.Errorf("that display name is already taken")
	}
	u := &User{
		UserID:      uuid.NewString(),
		DisplayName: name,
		Password:    password,
		Description: description,
		IsAdmin:     len(w.Users) == 0,
		Sheet:       NewCharacterSheet(name, description),
	}
	w.Users[u.UserID] = u
	return u, nil
}

// BindPlayer attaches a session to a user and places the player in the
// start room.
func (w *World) BindPlayer(sid string, u *User) *Player {
	roomID := w.StartRoomID
	if _, ok := w.Rooms[roomID]; !ok {
		roomID = firstRoomID(w)
	}
	p := &Player{SID: sid, UserID: u.UserID, RoomID: roomID, Sheet: u.Sheet}
	w.Players[sid] = p
	if r := w.Rooms[roomID]; r != nil {
		r.Players[sid] = true
	}
	return p
}

// UnbindPlayer tears down a session binding; the User and sheet persist.
func (w *World) UnbindPlayer(sid string) {
	p, ok := w.Players[sid]
	if !ok {
		return
	}
	if r := w.Rooms[p.RoomID]; r != nil {
		delete(r.Players, sid)
	}
	delete(w.Players, sid)
}

// MovePlayer transfers a player between rooms, keeping both Players sets
// consistent.
func (w *World) MovePlayer(sid, toRoomID string) error {
	p, ok := w.Players[sid]
	if !ok {
		return fmt.Errorf("player not found")
	}
	dst, ok := w.Rooms[toRoomID]
	if !ok {
		return fmt.Errorf("room %q not found", toRoomID)
	}
	if src := w.Rooms[p.RoomID]; src != nil {
		delete(src.Players, sid)
	}
	dst.Players[sid] = true
	p.RoomID = toRoomID
	return nil
}

// NPCID returns the stable UUID for an NPC name, creating one if missing.
func (w *World) NPCID(name string) string {
	if id, ok := w.NPCIDs[name]; ok {
		return id
	}
	id := uuid.NewString()
	w.NPCIDs[name] = id
	return id
}

// RoomOfNPC finds the room currently containing the named NPC.
func (w *World) RoomOfNPC(name string) *Room {
	for _, id := range w.SortedRoomIDs() {
		if w.Rooms[id].NPCs[name] {
			return w.Rooms[id]
		}
	}
	return nil
}

// SortedRoomIDs returns room ids in deterministic order.
func (w *World) SortedRoomIDs() []string {
	ids := make([]string, 0, len(w.Rooms))
	for id := range w.Rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LivePlayersInRoom counts bound sessions present in the room.
func (w *World) LivePlayersInRoom(r *Room) int {
	n := 0
	for sid := range r.Players {
		if _, ok := w.Players[sid]; ok {
			n++
		}
	}
	return n
}

// Relationship returns the recorded relationship type from one user to
// another, or "".
func (w *World) Relationship(fromUID, toUID string) string {
	if m, ok := w.Relations[fromUID]; ok {
		return m[toUID]
	}
	return ""
}

// SetRelationship records a directed relationship type between users.
func (w *World) SetRelationship(fromUID, toUID, rtype string) {
	if w.Relations == nil {
		w.Relations = map[string]map[string]string{}
	}
	if w.Relations[fromUID] == nil {
		w.Relations[fromUID] = map[string]string{}
	}
	w.Relations[fromUID][toUID] = rtype
}

// AdjacentRooms lists target room ids reachable from r via doors, stairs,
// or travel-point objects, deduplicated and sorted.
func (w *World) AdjacentRooms(r *Room) []string {
	seen := map[string]bool{}
	for _, target := range r.Doors {
		seen[target] = true
	}
	if r.StairsUpTo != "" {
		seen[r.StairsUpTo] = true
	}
	if r.StairsDownTo != "" {
		seen[r.StairsDownTo] = true
	}
	for _, o := range r.Objects {
		if o.HasTag(TagTravelPoint) && o.LinkTargetRoomID != "" {
			seen[o.LinkTargetRoomID] = true
		}
	}
	var out []string
	for id := range seen {
		if _, ok := w.Rooms[id]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func firstRoomID(w *World) string {
	ids := w.SortedRoomIDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func newUUID() string { return uuid.NewString() }
