// Package match runs the authoritative per-match workers. Every match gets
// one goroutine that consumes commands from a mailbox, so all lobby and
// battle mutations for a match are serialized without locks on game state.
package match

// Join roles accepted on PLAYER_JOIN.
const (
	RolePlayer    = "player"
	RoleSpectator = "spectator"
)

// Conn is one authenticated connection as the match layer sees it. Send is
// the outbound frame queue owned by the transport; Close tears the transport
// down and is only invoked when a user is kicked. The match layer never
// reads from the socket.
type Conn struct {
	ID       string
	UserID   string
	Nickname string
	Color    string
	Send     chan []byte
	Close    func()
}
