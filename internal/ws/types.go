package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady = "ready"
	MsgPong  = "pong"
)

// Message is a control frame. Task events are sent as domain.TaskEvent.
type Message struct {
	Type string `json:"type"`
}
