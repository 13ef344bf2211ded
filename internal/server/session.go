package server

import (
	"github.com/talgya/tinymud/internal/game"
	"github.com/talgya/tinymud/internal/service"
)

// sessionMode tracks where a connection is in its conversation with the
// server. Connections start in the auth menu and reach modePlaying only
// after a successful create or login.
type sessionMode int

const (
	modeAuthMenu sessionMode = iota
	modeCreateName
	modeCreatePassword
	modeCreateDesc
	modeLoginName
	modeLoginPassword
	modeSetupName
	modeSetupDesc
	modeSetupConflict
	modePlaying
)

// Session is per-connection dispatcher state. World state never lives
// here; a session only remembers which wizard step it is on and any
// pending confirmation or trade.
type Session struct {
	SID  string
	Mode sessionMode

	// Wizard scratch space, valid only during create/login/setup.
	wizName     string
	wizPassword string
	wizDesc     string

	// pendingConfirm runs on the next Y/N answer, for commands that are
	// destructive enough to warrant a second look.
	pendingConfirm func(yes bool) service.Result
	confirmPrompt  string

	// Trade is the open exchange this session participates in, shared
	// with the counterparty's session.
	Trade *game.Trade
}

func newSession(sid string) *Session {
	return &Session{SID: sid, Mode: modeAuthMenu}
}

// inWizard reports whether the session is mid-conversation in a
// multi-step flow and plain input should feed that flow.
func (s *Session) inWizard() bool {
	return s.Mode != modeAuthMenu && s.Mode != modePlaying
}

func (s *Session) resetWizard() {
	s.wizName, s.wizPassword, s.wizDesc = "", "", ""
}
