package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

// SpawnFromTemplate instantiates a template into the actor's room. The
// instance is a deep copy with a fresh UUID.
func SpawnFromTemplate(w *world.World, roomID, templateRef string) service.Result {
	room, ok := w.Rooms[roomID]
	if !ok {
		return service.Fail("You are nowhere.")
	}
	key, err := resolve.Resolve(templateRef, templateKeys(w))
	if err != nil {
		return service.Fail(err.Error())
	}
	obj := w.Templates[key].Clone(true)
	room.Objects[obj.UUID] = obj
	return service.OKText(fmt.Sprintf("A [b]%s[/b] appears.", obj.DisplayName))
}

// DefineTemplate registers or replaces an object template.
func DefineTemplate(w *world.World, key string, tmpl *world.Object) service.Result {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" || tmpl == nil {
		return service.Fail("A template needs a key and a body.")
	}
	w.Templates[key] = tmpl
	return service.OKText(fmt.Sprintf("Template [b]%s[/b] saved.", key))
}

// DeleteTemplate removes a template. Existing instances are unaffected.
func DeleteTemplate(w *world.World, templateRef string) service.Result {
	key, err := resolve.Resolve(templateRef, templateKeys(w))
	if err != nil {
		return service.Fail(err.Error())
	}
	delete(w.Templates, key)
	return service.OKText(fmt.Sprintf("Template [b]%s[/b] deleted.", key))
}

// ListTemplates renders the template registry.
func ListTemplates(w *world.World) service.Result {
	keys := templateKeys(w)
	if len(keys) == 0 {
		return service.OKText("No object templates defined.")
	}
	var b strings.Builder
	b.WriteString("[b]Object templates[/b]\n")
	for _, k := range keys {
		t := w.Templates[k]
		fmt.Fprintf(&b, "- %s: %s\n", k, t.DisplayName)
	}
	return service.OKText(strings.TrimRight(b.String(), "\n"))
}

func templateKeys(w *world.World) []string {
	keys := make([]string, 0, len(w.Templates))
	for k := range w.Templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
