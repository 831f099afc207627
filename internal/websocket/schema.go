package websocket

// Frame types pushed to admin watch connections.

type Event string

const (
	EventError   Event = "error"
	EventAttempt Event = "attempt"
	EventProctor Event = "proctor"
	EventPong    Event = "pong"
)

// Client → server. Watchers only ever ping; everything else flows
// server → client.
type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ProctorFrame carries one ledger event to a live watcher. Payload is
// the event JSON exactly as it was accepted for persistence.
type ProctorFrame struct {
	Event   Event       `json:"event"`
	Payload interface{} `json:"payload"`
}

// AttemptFrame is the initial snapshot sent on connect.
type AttemptFrame struct {
	Event   Event       `json:"event"`
	Attempt interface{} `json:"attempt"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
