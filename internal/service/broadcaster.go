package service

// Broadcaster delivers events to sockets (avoids import cycle with the ws hub)
type Broadcaster interface {
	EmitToConnection(connID, event string, payload interface{})
	EmitToRoom(code, event string, payload interface{})
	JoinRoomChannel(connID, code string)
	CloseRoomChannel(code string)
}

type nopBroadcaster struct{}

func (nopBroadcaster) EmitToConnection(string, string, interface{}) {}
func (nopBroadcaster) EmitToRoom(string, string, interface{})       {}
func (nopBroadcaster) JoinRoomChannel(string, string)               {}
func (nopBroadcaster) CloseRoomChannel(string)                      {}
