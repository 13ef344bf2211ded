package game

import (
	"strings"

	"github.com/talgya/tinymud/internal/service"
)

var helpPlayer = strings.TrimSpace(`
[b]Getting around[/b]
  look (l)                 describe where you are
  go <exit>                travel through a door or stairs
  examine <thing>          inspect an object or someone
  pick up / drop / eat / drink / wield / search / open / cut / claim
  roll [NdM+K] [| private] cast the sacred geometric stones
  say anything             talk to whoever is near

[b]Yourself[/b]
  /sheet                   your character sheet
  /inventory (/inv)        what you carry
  /rename <name>           change your name
  /describe <text>         change your description
  /who                     who is awake
  /attack <target>         pick a fight
  /flee                    run from one
  /quit                    leave the world
`)

var helpAdmin = strings.TrimSpace(`
[b]Admin[/b]
  /room create <id> | <desc>
  /room setdesc <id> | <desc>
  /room adddoor <name> | <target>
  /room removedoor <name>
  /room linkdoor <a> | <door a> | <b> | <door b>
  /room setstairs <up> | <down>
  /room lockdoor <door> | open|none|ids:...|rel:<type>,<user>
  /npc add <room> | <name> | <desc>
  /npc remove <room> | <name>
  /npc setdesc <name> | <desc>
  /npc setattr|setaspect|setmatrix <name> | <key> | <value>
  /npc sheet <name>
  /npc generate [<room> | <name> | <desc>]
  /object spawn <template>   /object templates
  /auth promote|demote <name>   /auth list_admins
  /kick <name>   /purge   /safety G|PG-13|R|OFF
  /goap on|off   /audit
`)

// Help renders the command reference; admins get the extra page.
func Help(isAdmin bool) service.Result {
	if isAdmin {
		return service.OKText(helpPlayer + "\n\n" + helpAdmin)
	}
	return service.OKText(helpPlayer)
}
