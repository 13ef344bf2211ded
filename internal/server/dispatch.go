// Package server hosts the connection-facing layer: the websocket
// transport, per-session state machines, rate limiting and the command
// dispatcher that routes player input to game services.
package server

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/talgya/tinymud/internal/ai"
	"github.com/talgya/tinymud/internal/audit"
	"github.com/talgya/tinymud/internal/config"
	"github.com/talgya/tinymud/internal/game"
	"github.com/talgya/tinymud/internal/goap"
	"github.com/talgya/tinymud/internal/persistence"
	"github.com/talgya/tinymud/internal/resolve"
	"github.com/talgya/tinymud/internal/service"
	"github.com/talgya/tinymud/internal/world"
)

const authGreeting = "Say [b]create[/b] to make a character or [b]login[/b] to return to one.\n" +
	"One-liners work too: /auth create <name> | <password> | <description>  or  /auth login <name> | <password>"

// Dispatcher owns the world lock and routes every inbound line to the
// right service. All world mutation happens under d.mu.
type Dispatcher struct {
	mu sync.Mutex

	W       *world.World
	Cfg     config.Config
	Saver   *persistence.Saver
	Journal *persistence.Journal // optional
	Adapter *ai.Adapter
	Limiter *RateLimiter
	Engine  *goap.Engine
	Roll    game.Roller

	StartedAt time.Time

	// Closer drops a transport connection; the websocket layer sets it.
	Closer func(sid string)

	lastTick uint64
	sessions map[string]*Session
}

// NewDispatcher wires a dispatcher over a loaded world.
func NewDispatcher(w *world.World, cfg config.Config, saver *persistence.Saver, adapter *ai.Adapter) *Dispatcher {
	gcfg := goap.Config{
		APMax:             cfg.APMax,
		NeedDrop:          cfg.NeedDrop,
		SocialDrop:        cfg.SocialDrop,
		SocialRefill:      cfg.SocialRefill,
		SocialRefillEmote: cfg.SocialRefillEmote,
		SocialSimTick:     cfg.SocialSimTick,
		SleepDrop:         cfg.SleepDrop,
		SleepRefill:       cfg.SleepRefill,
		SleepTicks:        cfg.SleepTicks,
		NeedThreshold:     cfg.NeedThreshold,
	}
	return &Dispatcher{
		W:         w,
		Cfg:       cfg,
		Saver:     saver,
		Adapter:   adapter,
		Limiter:   NewRateLimiter(cfg.RateEnable, 20, 10*time.Second),
		Engine:    &goap.Engine{Cfg: gcfg, Adapter: adapter},
		Roll:      func(n int) int { return rand.Intn(n) + 1 },
		StartedAt: time.Now(),
		sessions:  map[string]*Session{},
	}
}

// Connect registers a new session and greets it.
func (d *Dispatcher) Connect(sid string, sink service.Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[sid] = newSession(sid)
	sink.Emit(sid, service.System(fmt.Sprintf("Welcome to %s.", worldTitle(d.W))))
	sink.Emit(sid, service.System(authGreeting))
}

// Disconnect tears a session down: cancels its trade, unbinds the
// player and saves.
func (d *Dispatcher) Disconnect(sid string, sink service.Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropSession(sid, sink)
}

func (d *Dispatcher) dropSession(sid string, sink service.Sink) {
	sess := d.sessions[sid]
	if sess != nil && sess.Trade != nil {
		d.breakTrade(sess, sink, "The other trader left. Trade cancelled.")
	}
	if p, ok := d.W.Players[sid]; ok {
		if sink != nil && p.Sheet != nil {
			sink.BroadcastRoom(p.RoomID, service.System(
				fmt.Sprintf("[i]%s fades away.[/i]", p.Sheet.DisplayName)), sid)
		}
		d.W.UnbindPlayer(sid)
		d.save(false)
	}
	d.Limiter.Forget(sid)
	delete(d.sessions, sid)
}

// Handle routes one inbound line from a session.
func (d *Dispatcher) Handle(sid, content string, sink service.Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sess := d.sessions[sid]
	if sess == nil {
		sess = newSession(sid)
		d.sessions[sid] = sess
	}

	if len(content) > d.Cfg.MaxMessageLen {
		sink.Emit(sid, service.ErrorMsg(fmt.Sprintf(
			"Your message is too long (max %d characters).", d.Cfg.MaxMessageLen)))
		return
	}
	text := strings.TrimSpace(content)
	if text == "" {
		return
	}

	op := "chat"
	if strings.HasPrefix(text, "/") {
		op = "command"
	}
	if sess.Mode != modePlaying {
		op = "auth"
	}
	if !d.Limiter.Allow(sid, op) {
		wait := d.Limiter.RetryAfter(sid, op).Round(time.Second)
		sink.Emit(sid, service.ErrorMsg(fmt.Sprintf("Slow down. Try again in %s.", wait)))
		return
	}

	if sess.pendingConfirm != nil {
		d.answerConfirm(sess, text, sink)
		return
	}

	switch {
	case sess.Mode == modePlaying:
		d.handlePlaying(sess, text, sink)
	case sess.Mode >= modeSetupName && sess.Mode <= modeSetupConflict:
		d.handleSetup(sess, text, sink)
	default:
		d.handleAuth(sess, text, sink)
	}
}

// --- auth -----------------------------------------------------------------

func (d *Dispatcher) handleAuth(sess *Session, text string, sink service.Sink) {
	sid := sess.SID
	lower := strings.ToLower(text)

	// Mid-wizard escape hatch.
	if sess.Mode != modeAuthMenu && (lower == "cancel" || lower == "back") {
		sess.Mode = modeAuthMenu
		sess.resetWizard()
		sink.Emit(sid, service.System(authGreeting))
		return
	}

	switch sess.Mode {
	case modeAuthMenu:
		switch {
		case lower == "create":
			sess.Mode = modeCreateName
			sink.Emit(sid, service.System("What shall we call you? (2-32 characters)"))
		case lower == "login":
			sess.Mode = modeLoginName
			sink.Emit(sid, service.System("Who returns?"))
		case strings.HasPrefix(lower, "/auth create "):
			parts := splitPipes(text[len("/auth create "):])
			if len(parts) < 2 {
				sink.Emit(sid, service.ErrorMsg("Usage: /auth create <name> | <password> | <description>"))
				return
			}
			desc := ""
			if len(parts) > 2 {
				desc = parts[2]
			}
			d.finishCreate(sess, parts[0], parts[1], desc, sink)
		case strings.HasPrefix(lower, "/auth login "):
			parts := splitPipes(text[len("/auth login "):])
			if len(parts) < 2 {
				sink.Emit(sid, service.ErrorMsg("Usage: /auth login <name> | <password>"))
				return
			}
			d.finishLogin(sess, parts[0], parts[1], sink)
		default:
			sink.Emit(sid, service.System(authGreeting))
		}

	case modeCreateName:
		sess.wizName = text
		sess.Mode = modeCreatePassword
		sink.Emit(sid, service.System("Choose a password."))
	case modeCreatePassword:
		sess.wizPassword = text
		sess.Mode = modeCreateDesc
		sink.Emit(sid, service.System("Describe yourself in a sentence or two. (enter - for none)"))
	case modeCreateDesc:
		desc := text
		if desc == "-" {
			desc = ""
		}
		d.finishCreate(sess, sess.wizName, sess.wizPassword, desc, sink)

	case modeLoginName:
		sess.wizName = text
		sess.Mode = modeLoginPassword
		sink.Emit(sid, service.System("Password?"))
	case modeLoginPassword:
		d.finishLogin(sess, sess.wizName, text, sink)
	}
}

func (d *Dispatcher) finishCreate(sess *Session, name, password, desc string, sink service.Sink) {
	r := game.CreateAccount(d.W, sess.SID, name, password, desc)
	sess.resetWizard()
	if r.Err != "" {
		sess.Mode = modeAuthMenu
		service.Deliver(sink, sess.SID, r)
		return
	}
	sess.Mode = modePlaying
	service.Deliver(sink, sess.SID, r)
	d.record(persistence.CategoryAccount, fmt.Sprintf("account created: %s", name))
	d.save(false)
	d.maybeStartSetup(sess, sink)
}

func (d *Dispatcher) finishLogin(sess *Session, name, password string, sink service.Sink) {
	r := game.Login(d.W, sess.SID, name, password)
	sess.resetWizard()
	if r.Err != "" {
		sess.Mode = modeAuthMenu
		service.Deliver(sink, sess.SID, r)
		return
	}
	sess.Mode = modePlaying
	service.Deliver(sink, sess.SID, r)
	d.maybeStartSetup(sess, sink)
}

// --- first-admin world setup ----------------------------------------------

func (d *Dispatcher) maybeStartSetup(sess *Session, sink service.Sink) {
	p := d.W.Players[sess.SID]
	if p == nil || d.W.SetupComplete {
		return
	}
	u := d.W.Users[p.UserID]
	if u == nil || !u.IsAdmin {
		return
	}
	sess.Mode = modeSetupName
	sink.Emit(sess.SID, service.System("This world is unnamed. What is it called? (2-64 characters)"))
}

func (d *Dispatcher) handleSetup(sess *Session, text string, sink service.Sink) {
	sid := sess.SID
	switch sess.Mode {
	case modeSetupName:
		if len(text) < 2 || len(text) > 64 {
			sink.Emit(sid, service.ErrorMsg("A world name runs 2 to 64 characters."))
			return
		}
		d.W.Name = text
		sess.Mode = modeSetupDesc
		sink.Emit(sid, service.System("Describe this world. (at least 10 characters)"))
	case modeSetupDesc:
		if len(text) < 10 {
			sink.Emit(sid, service.ErrorMsg("Give the world at least 10 characters of description."))
			return
		}
		d.W.Description = text
		sess.Mode = modeSetupConflict
		sink.Emit(sid, service.System("Every world needs a central conflict. What is this one's? (at least 5 characters)"))
	case modeSetupConflict:
		if len(text) < 5 {
			sink.Emit(sid, service.ErrorMsg("The conflict needs at least 5 characters."))
			return
		}
		d.W.Conflict = text
		d.W.SetupComplete = true
		sess.Mode = modePlaying
		sink.Emit(sid, service.System(fmt.Sprintf(
			"[b]%s[/b] takes shape. Build it with /room, people it with /npc. See /help.", d.W.Name)))
		d.record(persistence.CategoryAdmin, fmt.Sprintf("world setup complete: %s", d.W.Name))
		d.save(false)
	}
}

// --- playing --------------------------------------------------------------

func (d *Dispatcher) handlePlaying(sess *Session, text string, sink service.Sink) {
	sid := sess.SID
	p := d.W.Players[sid]
	if p == nil {
		sess.Mode = modeAuthMenu
		sink.Emit(sid, service.System(authGreeting))
		return
	}

	if p.Sheet != nil && p.Sheet.IsDead && !deadAllowed(text) {
		sink.Emit(sid, service.ErrorMsg("You are dead. Death narrows your options to /help, /who and /look."))
		return
	}

	if strings.HasPrefix(text, "/") {
		d.handleCommand(sess, p, text, sink)
		return
	}

	lower := strings.ToLower(text)
	if lower == "look" || lower == "l" {
		service.Deliver(sink, sid, game.Look(d.W, p))
		return
	}

	if r := game.HandleInteraction(d.W, p, text); service.Deliver(sink, sid, r) {
		d.saveIfOK(r)
		return
	}
	if r := game.HandleMovement(d.W, p, text); service.Deliver(sink, sid, r) {
		d.saveIfOK(r)
		return
	}
	if r := game.HandleRoll(d.W, p, text, d.Roll); service.Deliver(sink, sid, r) {
		return
	}
	if strings.HasPrefix(lower, "emote ") {
		r := game.EmotePlayer(d.W, p, text[len("emote "):], d.Cfg.SocialRefillEmote)
		service.Deliver(sink, sid, r)
		d.saveIfOK(r)
		return
	}

	// Anything else is speech.
	d.speak(sid, p, text, sink)
}

// speak delivers player speech, then resolves the addressed NPC's reply
// with the dispatcher lock released so slow model calls never stall
// other sessions. The caller holds d.mu; it is held again on return.
func (d *Dispatcher) speak(sid string, p *world.Player, text string, sink service.Sink) {
	r, addr := game.Say(d.W, p, text, d.Cfg.SocialRefill)
	service.Deliver(sink, sid, r)
	d.saveIfOK(r)
	if addr == nil || !r.Handled || r.Err != "" {
		return
	}

	d.mu.Unlock()
	reply := d.Adapter.ChatOrFallback(addr.WorldName, game.NPCReplySystem, addr.Prompt, game.NPCReplyMaxTokens)
	d.mu.Lock()

	if rr, ok := game.NPCReply(d.W, addr, reply); ok {
		service.Deliver(sink, sid, rr)
	}
}

func deadAllowed(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch lower {
	case "/help", "/who", "/look", "look", "l", "/quit":
		return true
	}
	return false
}

func (d *Dispatcher) handleCommand(sess *Session, p *world.Player, text string, sink service.Sink) {
	sid := sess.SID
	cmd, arg := splitCommand(text)
	u := d.W.Users[p.UserID]
	isAdmin := u != nil && u.IsAdmin

	switch cmd {
	case "/help":
		service.Deliver(sink, sid, game.Help(isAdmin))
	case "/look":
		service.Deliver(sink, sid, game.Look(d.W, p))
	case "/who":
		service.Deliver(sink, sid, game.Who(d.W, d.StartedAt))
	case "/sheet":
		service.Deliver(sink, sid, game.ShowSheet(p))
	case "/inventory", "/inv":
		service.Deliver(sink, sid, game.InventoryView(p))
	case "/examine":
		service.Deliver(sink, sid, game.Examine(d.W, p, arg))
	case "/rename":
		r := game.Rename(d.W, p, arg)
		service.Deliver(sink, sid, r)
		d.saveIfOK(r)
	case "/describe":
		r := game.Describe(d.W, p, arg)
		service.Deliver(sink, sid, r)
		d.saveIfOK(r)
	case "/say":
		d.speak(sid, p, arg, sink)
	case "/emote":
		r := game.EmotePlayer(d.W, p, arg, d.Cfg.SocialRefillEmote)
		service.Deliver(sink, sid, r)
		d.saveIfOK(r)
	case "/roll":
		service.Deliver(sink, sid, game.RollDice(d.W, p, arg, d.Roll))
	case "/attack":
		r := game.Attack(d.W, p, arg, d.Roll)
		service.Deliver(sink, sid, r)
		if r.Handled && r.Err == "" {
			d.record(persistence.CategoryCombat, fmt.Sprintf("%s attacked %s", p.Sheet.DisplayName, arg))
			d.save(true)
		}
	case "/flee":
		r := game.Flee(d.W, p, d.Roll)
		service.Deliver(sink, sid, r)
		d.saveIfOK(r)
	case "/trade":
		d.handleTrade(sess, p, arg, sink)
	case "/quit":
		sink.Emit(sid, service.System("You fade from the world."))
		d.dropSession(sid, sink)
		if d.Closer != nil {
			d.Closer(sid)
		}

	case "/room":
		d.adminOnly(isAdmin, sid, sink, func() { d.roomCommand(p, arg, sink, sid) })
	case "/npc":
		d.adminOnly(isAdmin, sid, sink, func() { d.npcCommand(p, arg, sink, sid) })
	case "/object":
		d.adminOnly(isAdmin, sid, sink, func() { d.objectCommand(p, arg, sink, sid) })
	case "/auth":
		d.authCommand(isAdmin, arg, sink, sid)
	case "/kick":
		d.adminOnly(isAdmin, sid, sink, func() {
			r, kicked := game.Kick(d.W, arg)
			service.Deliver(sink, sid, r)
			if kicked != "" {
				if ks := d.sessions[kicked]; ks != nil && ks.Trade != nil {
					d.breakTrade(ks, sink, "The other trader was removed. Trade cancelled.")
				}
				delete(d.sessions, kicked)
				d.Limiter.Forget(kicked)
				if d.Closer != nil {
					d.Closer(kicked)
				}
				d.record(persistence.CategoryAdmin, fmt.Sprintf("kicked session of %s", arg))
				d.save(false)
			}
		})
	case "/safety":
		d.adminOnly(isAdmin, sid, sink, func() {
			r := d.setSafety(arg)
			service.Deliver(sink, sid, r)
			d.saveIfOK(r)
		})
	case "/goap":
		d.adminOnly(isAdmin, sid, sink, func() {
			r := d.setGOAP(arg)
			service.Deliver(sink, sid, r)
			d.saveIfOK(r)
		})
	case "/audit":
		d.adminOnly(isAdmin, sid, sink, func() {
			sink.Emit(sid, service.System(renderAudit(audit.Run(d.W))))
		})
	case "/purge":
		d.adminOnly(isAdmin, sid, sink, func() {
			sess.confirmPrompt = "This erases every room, NPC and object. The ground you stand on will be gone. [b]Y[/b] to confirm, [b]N[/b] to cancel."
			sess.pendingConfirm = func(yes bool) service.Result {
				if !yes {
					return service.OKText("The world survives another day.")
				}
				return d.purge(sink)
			}
			sink.Emit(sid, service.System(sess.confirmPrompt))
		})

	default:
		sink.Emit(sid, service.ErrorMsg(fmt.Sprintf("Unknown command %s. Try /help.", cmd)))
	}
}

func (d *Dispatcher) adminOnly(isAdmin bool, sid string, sink service.Sink, fn func()) {
	if !isAdmin {
		sink.Emit(sid, service.ErrorMsg("Only admins can do that."))
		return
	}
	fn()
}

func (d *Dispatcher) answerConfirm(sess *Session, text string, sink service.Sink) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "y", "yes":
		fn := sess.pendingConfirm
		sess.pendingConfirm = nil
		service.Deliver(sink, sess.SID, fn(true))
	case "n", "no":
		fn := sess.pendingConfirm
		sess.pendingConfirm = nil
		service.Deliver(sink, sess.SID, fn(false))
	default:
		sink.Emit(sess.SID, service.System(sess.confirmPrompt))
	}
}

// --- admin command groups -------------------------------------------------

func (d *Dispatcher) roomCommand(p *world.Player, arg string, sink service.Sink, sid string) {
	sub, rest := splitCommand(arg)
	parts := splitPipes(rest)
	var r service.Result
	switch sub {
	case "create":
		r = usageOr(parts, 2, "Usage: /room create <id> | <description>", func() service.Result {
			return game.CreateRoom(d.W, parts[0], parts[1])
		})
	case "setdesc":
		r = usageOr(parts, 2, "Usage: /room setdesc <room> | <description>", func() service.Result {
			return game.SetRoomDesc(d.W, p.RoomID, parts[0], parts[1])
		})
	case "adddoor":
		r = usageOr(parts, 2, "Usage: /room adddoor <name> | <target room>", func() service.Result {
			return game.AddDoor(d.W, p.RoomID, parts[0], parts[1])
		})
	case "removedoor":
		r = usageOr(parts, 1, "Usage: /room removedoor <name>", func() service.Result {
			return game.RemoveDoor(d.W, p.RoomID, parts[0])
		})
	case "linkdoor":
		r = usageOr(parts, 4, "Usage: /room linkdoor <room a> | <door a> | <room b> | <door b>", func() service.Result {
			return game.LinkDoor(d.W, parts[0], parts[1], parts[2], parts[3])
		})
	case "setstairs":
		r = usageOr(parts, 2, "Usage: /room setstairs <room above> | <room below> (use - for none)", func() service.Result {
			return game.SetStairs(d.W, p.RoomID, dashEmpty(parts[0]), dashEmpty(parts[1]))
		})
	case "lockdoor":
		r = usageOr(parts, 2, "Usage: /room lockdoor <door> | open|none|ids:<names>|rel:<type>,<user>", func() service.Result {
			return game.LockDoor(d.W, p.RoomID, parts[0], parts[1])
		})
	default:
		r = service.Fail("Room commands: create, setdesc, adddoor, removedoor, linkdoor, setstairs, lockdoor.")
	}
	service.Deliver(sink, sid, r)
	d.saveIfOK(r)
}

func (d *Dispatcher) npcCommand(p *world.Player, arg string, sink service.Sink, sid string) {
	sub, rest := splitCommand(arg)
	parts := splitPipes(rest)
	var r service.Result
	switch sub {
	case "add":
		r = usageOr(parts, 3, "Usage: /npc add <room> | <name> | <description>", func() service.Result {
			return game.AddNPC(d.W, p.RoomID, parts[0], parts[1], parts[2])
		})
	case "remove":
		r = usageOr(parts, 2, "Usage: /npc remove <room> | <name>", func() service.Result {
			return game.RemoveNPC(d.W, p.RoomID, parts[0], parts[1])
		})
	case "setdesc":
		r = usageOr(parts, 2, "Usage: /npc setdesc <name> | <description>", func() service.Result {
			return game.SetNPCDesc(d.W, parts[0], parts[1])
		})
	case "setattr":
		r = usageOr(parts, 3, "Usage: /npc setattr <name> | <attribute> | <value>", func() service.Result {
			return game.SetNPCAttr(d.W, parts[0], parts[1], parts[2])
		})
	case "setaspect":
		r = usageOr(parts, 3, "Usage: /npc setaspect <name> | <aspect> | <value>", func() service.Result {
			return game.SetNPCAspect(d.W, parts[0], parts[1], parts[2])
		})
	case "setmatrix":
		r = usageOr(parts, 3, "Usage: /npc setmatrix <name> | <axis> | <value>", func() service.Result {
			return game.SetNPCMatrix(d.W, parts[0], parts[1], parts[2])
		})
	case "sheet":
		r = usageOr(parts, 1, "Usage: /npc sheet <name>", func() service.Result {
			return game.NPCSheet(d.W, parts[0])
		})
	case "generate":
		roomRef, nameHint, descHint := "", "", ""
		if len(parts) > 0 {
			roomRef = parts[0]
		}
		if len(parts) > 1 {
			nameHint = parts[1]
		}
		if len(parts) > 2 {
			descHint = parts[2]
		}
		r = game.GenerateNPC(d.W, d.Adapter, p.RoomID, roomRef, nameHint, descHint)
		if r.Handled && r.Err == "" {
			d.record(persistence.CategoryNPC, "npc generated")
		}
	default:
		r = service.Fail("NPC commands: add, remove, setdesc, setattr, setaspect, setmatrix, sheet, generate.")
	}
	service.Deliver(sink, sid, r)
	d.saveIfOK(r)
}

func (d *Dispatcher) objectCommand(p *world.Player, arg string, sink service.Sink, sid string) {
	sub, rest := splitCommand(arg)
	parts := splitPipes(rest)
	var r service.Result
	switch sub {
	case "spawn":
		r = usageOr(parts, 1, "Usage: /object spawn <template>", func() service.Result {
			return game.SpawnFromTemplate(d.W, p.RoomID, parts[0])
		})
	case "templates":
		r = game.ListTemplates(d.W)
	case "define":
		r = usageOr(parts, 2, "Usage: /object define <name> | <description> [| <tags>]", func() service.Result {
			tmpl := world.NewObject(parts[0], parts[1])
			if len(parts) > 2 {
				for _, tag := range strings.Split(parts[2], ",") {
					if tag = strings.TrimSpace(tag); tag != "" {
						tmpl.AddTag(tag)
					}
				}
			}
			return game.DefineTemplate(d.W, parts[0], tmpl)
		})
	case "delete":
		r = usageOr(parts, 1, "Usage: /object delete <template>", func() service.Result {
			return game.DeleteTemplate(d.W, parts[0])
		})
	default:
		r = service.Fail("Object commands: spawn, templates, define, delete.")
	}
	service.Deliver(sink, sid, r)
	d.saveIfOK(r)
}

func (d *Dispatcher) authCommand(isAdmin bool, arg string, sink service.Sink, sid string) {
	sub, rest := splitCommand(arg)
	switch sub {
	case "promote":
		d.adminOnly(isAdmin, sid, sink, func() {
			r := game.Promote(d.W, rest)
			service.Deliver(sink, sid, r)
			d.saveIfOK(r)
		})
	case "demote":
		d.adminOnly(isAdmin, sid, sink, func() {
			r := game.Demote(d.W, rest)
			service.Deliver(sink, sid, r)
			d.saveIfOK(r)
		})
	case "list_admins":
		service.Deliver(sink, sid, game.ListAdmins(d.W))
	default:
		sink.Emit(sid, service.ErrorMsg("Auth commands: promote, demote, list_admins."))
	}
}

// --- trade ----------------------------------------------------------------

func (d *Dispatcher) handleTrade(sess *Session, p *world.Player, arg string, sink service.Sink) {
	sid := sess.SID
	sub, rest := splitCommand(arg)

	switch sub {
	case "offer":
		if sess.Trade == nil {
			sink.Emit(sid, service.ErrorMsg("You are not trading with anyone. /trade <player> starts one."))
			return
		}
		objs := p.Sheet.Inventory.Objects()
		var names []string
		byName := map[string]string{}
		for _, o := range objs {
			names = append(names, o.DisplayName)
			byName[o.DisplayName] = o.UUID
		}
		name, err := resolve.Resolve(rest, names)
		if err != nil {
			sink.Emit(sid, service.ErrorMsg(err.Error()))
			return
		}
		if err := sess.Trade.Offer(sid, byName[name]); err != nil {
			sink.Emit(sid, service.ErrorMsg(err.Error()))
			return
		}
		line := fmt.Sprintf("%s offers the %s. Confirmations reset.", p.Sheet.DisplayName, name)
		sink.Emit(sid, service.System(line))
		sink.Emit(d.tradePartner(sess), service.System(line))

	case "confirm":
		if sess.Trade == nil {
			sink.Emit(sid, service.ErrorMsg("Nothing to confirm."))
			return
		}
		sess.Trade.Confirm(sid)
		sink.Emit(sid, service.System("You confirm the trade."))
		sink.Emit(d.tradePartner(sess), service.System(
			fmt.Sprintf("%s confirms the trade.", p.Sheet.DisplayName)))
		if sess.Trade.Ready() {
			r := game.ExecuteTrade(d.W, sess.Trade)
			partner := d.tradePartner(sess)
			service.Deliver(sink, sid, r)
			if r.Err == "" {
				sink.Emit(partner, service.System("The trade is done. Check your belongings."))
			} else {
				sink.Emit(partner, service.ErrorMsg(r.Err))
			}
			d.clearTrade(sess)
			d.saveIfOK(r)
		}

	case "reject":
		if sess.Trade == nil {
			sink.Emit(sid, service.ErrorMsg("Nothing to reject."))
			return
		}
		sess.Trade.Reject()
		sink.Emit(d.tradePartner(sess), service.System(
			fmt.Sprintf("%s rejects the trade.", p.Sheet.DisplayName)))
		sink.Emit(sid, service.System("You reject the trade."))
		d.clearTrade(sess)

	case "cancel":
		if sess.Trade == nil {
			sink.Emit(sid, service.ErrorMsg("Nothing to cancel."))
			return
		}
		d.breakTrade(sess, sink, fmt.Sprintf("%s cancels the trade.", p.Sheet.DisplayName))
		sink.Emit(sid, service.System("You cancel the trade."))

	default:
		// "/trade <player>" opens a trade with someone in the room.
		target := strings.TrimSpace(arg)
		if target == "" {
			sink.Emit(sid, service.ErrorMsg("Usage: /trade <player>, then /trade offer <item>, /trade confirm."))
			return
		}
		if sess.Trade != nil {
			sink.Emit(sid, service.ErrorMsg("Finish or cancel your current trade first."))
			return
		}
		partnerSID, err := d.coLocatedPlayer(p, target)
		if err != nil {
			sink.Emit(sid, service.ErrorMsg(err.Error()))
			return
		}
		partnerSess := d.sessions[partnerSID]
		if partnerSess == nil || partnerSess.Trade != nil {
			sink.Emit(sid, service.ErrorMsg("They are busy trading with someone else."))
			return
		}
		t := game.NewTrade(sid, partnerSID)
		sess.Trade = t
		partnerSess.Trade = t
		partnerName := d.W.Players[partnerSID].Sheet.DisplayName
		sink.Emit(sid, service.System(fmt.Sprintf(
			"You propose a trade with [b]%s[/b]. Offer things with /trade offer <item>.", partnerName)))
		sink.Emit(partnerSID, service.System(fmt.Sprintf(
			"[b]%s[/b] wants to trade. /trade offer <item>, /trade confirm, or /trade reject.", p.Sheet.DisplayName)))
	}
}

// coLocatedPlayer finds another live session in the actor's room by name.
func (d *Dispatcher) coLocatedPlayer(p *world.Player, nameRef string) (string, error) {
	var names []string
	bySheet := map[string]string{}
	for sid, other := range d.W.Players {
		if sid == p.SID || other.RoomID != p.RoomID || other.Sheet == nil {
			continue
		}
		names = append(names, other.Sheet.DisplayName)
		bySheet[other.Sheet.DisplayName] = sid
	}
	name, err := resolve.Resolve(nameRef, names)
	if err != nil {
		return "", err
	}
	return bySheet[name], nil
}

func (d *Dispatcher) tradePartner(sess *Session) string {
	if sess.Trade == nil {
		return ""
	}
	if sess.Trade.A == sess.SID {
		return sess.Trade.B
	}
	return sess.Trade.A
}

// breakTrade cancels a session's open trade and tells the counterparty.
func (d *Dispatcher) breakTrade(sess *Session, sink service.Sink, notice string) {
	partner := d.tradePartner(sess)
	sess.Trade.Cancel()
	d.clearTrade(sess)
	if partner != "" && sink != nil {
		sink.Emit(partner, service.System(notice))
	}
}

func (d *Dispatcher) clearTrade(sess *Session) {
	partner := d.tradePartner(sess)
	if ps := d.sessions[partner]; ps != nil {
		ps.Trade = nil
	}
	sess.Trade = nil
}

// --- admin toggles --------------------------------------------------------

func (d *Dispatcher) setSafety(level string) service.Result {
	level = strings.ToUpper(strings.TrimSpace(level))
	for _, l := range world.SafetyLevels {
		if l == level {
			d.W.SafetyLevel = level
			return service.OKText(fmt.Sprintf("Safety level is now [b]%s[/b].", level))
		}
	}
	return service.Fail(fmt.Sprintf("Safety levels: %s.", strings.Join(world.SafetyLevels, ", ")))
}

func (d *Dispatcher) setGOAP(arg string) service.Result {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on":
		if d.W.AdvancedGOAP {
			return service.OKText("Advanced planning is already on.")
		}
		d.W.AdvancedGOAP = true
		goap.ResetAllPlans(d.W)
		return service.OKText("Advanced planning is [b]on[/b]. Existing plans were cleared.")
	case "off":
		if !d.W.AdvancedGOAP {
			return service.OKText("Advanced planning is already off.")
		}
		d.W.AdvancedGOAP = false
		goap.ResetAllPlans(d.W)
		return service.OKText("Advanced planning is [b]off[/b]. Existing plans were cleared.")
	}
	return service.Fail("Usage: /goap on|off")
}

func (d *Dispatcher) purge(sink service.Sink) service.Result {
	fresh := world.New()
	// Accounts and world identity survive; geometry, NPCs and templates go.
	fresh.Users = d.W.Users
	fresh.Name = d.W.Name
	fresh.Description = d.W.Description
	fresh.Conflict = d.W.Conflict
	fresh.SetupComplete = d.W.SetupComplete
	fresh.SafetyLevel = d.W.SafetyLevel

	for sid, p := range d.W.Players {
		p.RoomID = fresh.StartRoomID
		fresh.Players[sid] = p
		fresh.Rooms[fresh.StartRoomID].Players[sid] = true
	}
	d.W = fresh
	d.Engine = &goap.Engine{Cfg: d.Engine.Cfg, Adapter: d.Adapter}

	for sid := range d.sessions {
		sink.Emit(sid, service.System("[i]The world dissolves and re-forms around you.[/i]"))
	}
	d.record(persistence.CategoryAdmin, "world purged")
	d.save(false)
	slog.Warn("world purged", "users", len(fresh.Users))
	return service.OKText("It is done. A bare crossroads is all that remains.")
}

// renderAudit formats an integrity report for an admin.
func renderAudit(rep audit.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[b]World health: %d/100[/b]\n", rep.Health)
	if len(rep.Issues) == 0 {
		b.WriteString("No integrity issues found.")
		return b.String()
	}
	issues := append([]string(nil), rep.Issues...)
	sort.Strings(issues)
	for _, issue := range issues {
		fmt.Fprintf(&b, "  - %s\n", issue)
	}
	fmt.Fprintf(&b, "%d issue(s).", len(issues))
	return strings.TrimRight(b.String(), "\n")
}

// --- tick and persistence -------------------------------------------------

// RunTick executes one world tick and delivers NPC activity to every
// occupied room. AI planning prompts are staged under the dispatcher
// lock, the model calls run with the lock released so player commands
// keep flowing, and the results are re-validated before installation.
func (d *Dispatcher) RunTick(tick uint64, sink service.Sink) {
	d.mu.Lock()
	d.lastTick = tick
	reqs := d.Engine.StagePlanRequests(d.W)
	d.mu.Unlock()

	plans := d.Engine.GeneratePlans(reqs)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.Engine.InstallPlans(d.W, plans)
	msgs := d.Engine.TickWorld(d.W)
	for _, m := range msgs {
		sink.BroadcastRoom(m.RoomID, m.Payload, "")
	}
	d.record(persistence.CategoryTick, fmt.Sprintf("tick %d: %d npc events", tick, len(msgs)))
	if len(msgs) > 0 {
		d.save(true)
	}
}

// Shutdown flushes every pending save and leaves a bookmark in the
// journal's metadata table.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	d.save(false)
	tick := d.lastTick
	d.mu.Unlock()
	d.Saver.FlushAll()

	if d.Journal != nil {
		stats := d.Saver.Stats()
		d.Journal.SaveMeta("last_tick", fmt.Sprintf("%d", tick))
		d.Journal.SaveMeta("saves_immediate", fmt.Sprintf("%d", stats.Immediate))
		d.Journal.SaveMeta("saves_debounced", fmt.Sprintf("%d", stats.Debounced))
	}
}

func (d *Dispatcher) save(debounced bool) {
	if d.Saver == nil {
		return
	}
	d.Saver.SaveWorld(d.W, d.Cfg.StatePath, debounced)
}

func (d *Dispatcher) saveIfOK(r service.Result) {
	if r.Handled && r.Err == "" {
		d.save(true)
	}
}

func (d *Dispatcher) record(category, description string) {
	if d.Journal == nil {
		return
	}
	if err := d.Journal.Record(d.lastTick, category, description); err != nil {
		slog.Warn("journal write failed", "category", category, "error", err)
	}
}

// --- small helpers --------------------------------------------------------

func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		return text[:i], strings.TrimSpace(text[i+1:])
	}
	return text, ""
}

func splitPipes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	raw := strings.Split(s, "|")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

func dashEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func usageOr(parts []string, n int, usage string, fn func() service.Result) service.Result {
	if len(parts) < n {
		return service.Fail(usage)
	}
	return fn()
}

func worldTitle(w *world.World) string {
	if w.Name != "" {
		return w.Name
	}
	return "an unnamed world"
}
