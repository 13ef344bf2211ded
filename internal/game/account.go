package game

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

const (
	minPasswordLen = 2
	maxDescription = 300
)

// HashPassword derives the stored verifier.
func HashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}

func verifyPassword(stored, pw string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(HashPassword(pw))) == 1
}

// CreateAccount registers a new user and binds the session to it. The
// first account in a world becomes admin.
func CreateAccount(w *world.World, sid, name, password, desc string) service.Result {
	if len(password) < minPasswordLen {
		return service.Fail(fmt.Sprintf("A password needs at least %d characters.", minPasswordLen))
	}
	if len(desc) > maxDescription {
		return service.Fail(fmt.Sprintf("Keep your description under %d characters.", maxDescription))
	}
	u, err := w.CreateUser(name, HashPassword(password), desc)
	if err != nil {
		return service.Fail(err.Error())
	}
	p := w.BindPlayer(sid, u)

	r := service.OK(
		service.System(fmt.Sprintf("Welcome to %s, [b]%s[/b]!", worldTitle(w), u.DisplayName)),
		service.System("Your account has been created."),
	)
	if u.IsAdmin {
		r = r.WithEmit(service.System("You are the first soul here, so you hold the keys. Try /help."))
	}
	if room, ok := w.Rooms[p.RoomID]; ok {
		r = r.WithEmit(service.System(room.Describe(w, sid)))
		r = r.WithBroadcast(room.ID, service.System(
			fmt.Sprintf("[i]%s appears.[/i]", u.DisplayName)))
	}
	return r
}

// Login authenticates an existing account and binds the session.
func Login(w *world.World, sid, name, password string) service.Result {
	u := w.GetUserByDisplayName(strings.TrimSpace(name))
	if u == nil || !verifyPassword(u.Password, password) {
		return service.Fail("Unknown name or wrong password.")
	}
	for osid, other := range w.Players {
		if other.UserID == u.UserID && osid != sid {
			return service.Fail("That character is already awake elsewhere.")
		}
	}
	p := w.BindPlayer(sid, u)
	r := service.OK(service.System(fmt.Sprintf("Welcome back, [b]%s[/b].", u.DisplayName)))
	if room, ok := w.Rooms[p.RoomID]; ok {
		r = r.WithEmit(service.System(room.Describe(w, sid)))
		r = r.WithBroadcast(room.ID, service.System(
			fmt.Sprintf("[i]%s appears.[/i]", u.DisplayName)))
	}
	return r
}

// Promote grants admin to a named user.
func Promote(w *world.World, nameRef string) service.Result {
	u, res := resolveUser(w, nameRef)
	if res != nil {
		return *res
	}
	if u.IsAdmin {
		return service.Fail(fmt.Sprintf("%s is already an admin.", u.DisplayName))
	}
	u.IsAdmin = true
	return service.OKText(fmt.Sprintf("[b]%s[/b] is now an admin.", u.DisplayName))
}

// Demote revokes admin. The last admin cannot be demoted.
func Demote(w *world.World, nameRef string) service.Result {
	u, res := resolveUser(w, nameRef)
	if res != nil {
		return *res
	}
	if !u.IsAdmin {
		return service.Fail(fmt.Sprintf("%s is not an admin.", u.DisplayName))
	}
	admins := 0
	for _, other := range w.Users {
		if other.IsAdmin {
			admins++
		}
	}
	if admins <= 1 {
		return service.Fail("The world needs at least one admin.")
	}
	u.IsAdmin = false
	return service.OKText(fmt.Sprintf("[b]%s[/b] is no longer an admin.", u.DisplayName))
}

// ListAdmins names every admin account.
func ListAdmins(w *world.World) service.Result {
	var names []string
	for _, u := range w.Users {
		if u.IsAdmin {
			names = append(names, u.DisplayName)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return service.OKText("No admins. The world runs itself.")
	}
	return service.OKText(fmt.Sprintf("Admins: %s.", strings.Join(names, ", ")))
}

// Rename changes the actor's display name, keeping uniqueness.
func Rename(w *world.World, p *world.Player, newName string) service.Result {
	newName = strings.TrimSpace(newName)
	if len(newName) < 2 || len(newName) > 32 {
		return service.Fail("A name must be between 2 and 32 characters.")
	}
	if existing := w.GetUserByDisplayName(newName); existing != nil && existing.UserID != p.UserID {
		return service.Fail("That display name is already taken.")
	}
	u := w.Users[p.UserID]
	old := u.DisplayName
	u.DisplayName = newName
	u.Sheet.DisplayName = newName
	r := service.OKText(fmt.Sprintf("You are now known as [b]%s[/b].", newName))
	return r.WithBroadcast(p.RoomID, service.System(
		fmt.Sprintf("[i]%s is now known as %s.[/i]", old, newName)))
}

// Describe sets the actor's character description.
func Describe(w *world.World, p *world.Player, desc string) service.Result {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return service.Fail("Describe yourself as what?")
	}
	if len(desc) > maxDescription {
		return service.Fail(fmt.Sprintf("Keep your description under %d characters.", maxDescription))
	}
	p.Sheet.Description = desc
	w.Users[p.UserID].Description = desc
	return service.OKText("Your description has been updated.")
}

// Kick disconnects a named player. The transport performs the actual close;
// this unbinds the session and reports which session to drop.
func Kick(w *world.World, nameRef string) (service.Result, string) {
	var names []string
	bySheet := map[string]string{}
	for sid, p := range w.Players {
		if p.Sheet != nil {
			names = append(names, p.Sheet.DisplayName)
			bySheet[p.Sheet.DisplayName] = sid
		}
	}
	name, err := resolve.Resolve(nameRef, names)
	if err != nil {
		return service.Fail(err.Error()), ""
	}
	sid := bySheet[name]
	roomID := w.Players[sid].RoomID
	w.UnbindPlayer(sid)
	r := service.OKText(fmt.Sprintf("[b]%s[/b] has been shown the door.", name))
	return r.WithBroadcast(roomID, service.System(
		fmt.Sprintf("[i]%s vanishes.[/i]", name))), sid
}

func resolveUser(w *world.World, nameRef string) (*world.User, *service.Result) {
	var names []string
	for _, u := range w.Users {
		names = append(names, u.DisplayName)
	}
	name, err := resolve.Resolve(nameRef, names)
	if err != nil {
		res := service.Fail(err.Error())
		return nil, &res
	}
	return w.GetUserByDisplayName(name), nil
}
