package model

// WSMessageType is the type of a control message on the progress socket
type WSMessageType string

const (
	WSMessageTypePing WSMessageType = "ping"
	WSMessageTypePong WSMessageType = "pong"
)

// WSMessage is a client ping or its reply. State pushes are plain JobState
// documents, the same as GET /progress returns.
type WSMessage struct {
	Type WSMessageType `json:"type"`
}
