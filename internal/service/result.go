// Package service defines the uniform result contract every game service
// returns and the delivery helper routers use to emit it.
package service

// Message types understood by clients.
const (
	TypeSystem = "system"
	TypePlayer = "player"
	TypeNPC    = "npc"
	TypeError  = "error"
)

// Payload is one message for a client: a type, the content (which may carry
// [b]/[i]/[color=]/[code] markup), and an optional speaker name.
type Payload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// System builds a system payload.
func System(content string) Payload { return Payload{Type: TypeSystem, Content: content} }

// ErrorMsg builds an error payload.
func ErrorMsg(content string) Payload { return Payload{Type: TypeError, Content: content} }

// Speech builds a player or NPC speech payload with a speaker name.
func Speech(msgType, name, content string) Payload {
	return Payload{Type: msgType, Content: content, Name: name}
}

// RoomMessage is a payload addressed to everyone in a room.
type RoomMessage struct {
	RoomID  string
	Payload Payload
}

// Result is the uniform return of every service function.
//
//   - Handled: the service recognized the request (true even for failures).
//   - Err: empty on success, a user-facing message otherwise.
//   - Emits: messages for the acting player.
//   - Broadcasts: messages for room occupants other than the actor.
type Result struct {
	Handled    bool
	Err        string
	Emits      []Payload
	Broadcasts []RoomMessage
}

// OK returns a successful handled result with the given emits.
func OK(emits ...Payload) Result {
	return Result{Handled: true, Emits: emits}
}

// OKText is shorthand for a single system-message success.
func OKText(content string) Result {
	return OK(System(content))
}

// Fail returns a handled-but-failed result.
func Fail(message string) Result {
	return Result{Handled: true, Err: message}
}

// NotHandled lets the router try the next service in the chain.
func NotHandled() Result {
	return Result{}
}

// WithBroadcast appends a room broadcast to the result.
func (r Result) WithBroadcast(roomID string, p Payload) Result {
	r.Broadcasts = append(r.Broadcasts, RoomMessage{RoomID: roomID, Payload: p})
	return r
}

// WithEmit appends a message for the acting player.
func (r Result) WithEmit(p Payload) Result {
	r.Emits = append(r.Emits, p)
	return r
}

// Sink delivers payloads to sessions. The transport layer implements it.
type Sink interface {
	// Emit sends a payload to one session.
	Emit(sid string, p Payload)
	// BroadcastRoom sends a payload to every session in a room except one.
	BroadcastRoom(roomID string, p Payload, excludeSID string)
}

// Deliver emits a service result following the standard pattern: an error
// takes precedence and goes to the actor as type=error; otherwise emits go
// to the actor and broadcasts go to room occupants excluding the actor.
// Returns Handled so routers can chain on the result directly.
func Deliver(sink Sink, actorSID string, r Result) bool {
	if !r.Handled {
		return false
	}
	if r.Err != "" {
		sink.Emit(actorSID, ErrorMsg(r.Err))
		return true
	}
	for _, p := range r.Emits {
		sink.Emit(actorSID, p)
	}
	for _, b := range r.Broadcasts {
		sink.BroadcastRoom(b.RoomID, b.Payload, actorSID)
	}
	return true
}
