package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"naval-battle-server/events"
	"naval-battle-server/game"
	"naval-battle-server/match"
	"naval-battle-server/storage"
	"naval-battle-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// heartbeatFrame rides along with protocol pings so clients without pong
// access (browsers) can still observe liveness.
var heartbeatFrame = []byte(`{"type":"HEARTBEAT"}`)

// Client is a middleman between the websocket connection and the match
// layer. Identity fields are only written by ReadPump during AUTH and only
// read afterwards by handlers on the same goroutine.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
	ID   string

	authed bool
	mconn  *match.Conn
}

// ReadPump pumps messages from the websocket connection into the handlers.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "connId", c.ID, "err", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket
// connection. It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, heartbeatFrame); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("INVALID_MESSAGE", "mensaje inválido")
		return
	}

	if !c.authed {
		if envelope.Type != MsgAuth {
			c.sendError("AUTH_REQUIRED", "autentícate primero")
			c.Conn.Close()
			return
		}
		c.handleAuth(envelope.Raw)
		return
	}

	switch envelope.Type {
	case MsgAuth:
		c.sendError("ALREADY_AUTHENTICATED", "la sesión ya está autenticada")
	case MsgPlayerJoin:
		c.handleJoin(envelope.Raw)
	case MsgPlayerReady:
		var msg ReadyMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil || msg.MatchID == "" {
			c.sendError("INVALID_MESSAGE", "mensaje PLAYER_READY inválido")
			return
		}
		c.Hub.Manager.Ready(c.mconn, msg.MatchID)
	case MsgChooseTeam:
		var msg ChooseTeamMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil || msg.MatchID == "" {
			c.sendError("INVALID_MESSAGE", "mensaje PLAYER_CHOOSE_TEAM inválido")
			return
		}
		c.Hub.Manager.ChooseTeam(c.mconn, msg.MatchID, msg.Team)
	case MsgPlayerLeave:
		var msg LeaveMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil || msg.MatchID == "" {
			c.sendError("INVALID_MESSAGE", "mensaje PLAYER_LEAVE inválido")
			return
		}
		c.Hub.Manager.Leave(c.mconn, msg.MatchID)
	case MsgCreatorTransfer:
		var msg CreatorTransferMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil || msg.MatchID == "" || msg.TargetUserID == "" {
			c.sendError("INVALID_MESSAGE", "mensaje CREATOR_TRANSFER inválido")
			return
		}
		c.Hub.Manager.TransferCreator(c.mconn, msg.MatchID, msg.TargetUserID)
	case MsgGameStart:
		var msg StartMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil || msg.MatchID == "" {
			c.sendError("INVALID_MESSAGE", "mensaje GAME_START inválido")
			return
		}
		c.Hub.Manager.Start(c.mconn, msg.MatchID)
	case MsgPlayerFire:
		c.handleFire(envelope.Raw)
	default:
		c.sendError("UNKNOWN_MESSAGE", "tipo de mensaje desconocido: "+envelope.Type)
	}
}

// handleAuth validates the first frame's token, mirrors the user row and
// runs the auto-resume check. A bad token closes the connection.
func (c *Client) handleAuth(raw json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Token == "" {
		c.sendError("INVALID_MESSAGE", "mensaje AUTH inválido")
		c.Conn.Close()
		return
	}
	if c.Hub.Auth == nil {
		c.sendError("AUTH_NOT_CONFIGURED", "autenticación no configurada")
		c.Conn.Close()
		return
	}

	ctx := context.Background()
	identity, err := c.Hub.Auth.Authenticate(ctx, msg.Token)
	if err != nil {
		slog.Warn("auth failed", "tag", "ws", "connId", c.ID, "err", err)
		c.sendError("AUTH_FAILED", "token inválido")
		c.Conn.Close()
		return
	}

	c.authed = true
	c.mconn = &match.Conn{
		ID:       c.ID,
		UserID:   identity.UserID,
		Nickname: identity.Nickname,
		Color:    identity.Color,
		Send:     c.Send,
		Close:    func() { c.Conn.Close() },
	}
	slog.Info("client authenticated", "tag", "ws", "connId", c.ID, "userId", identity.UserID)

	user := storage.User{ID: identity.UserID, Nickname: identity.Nickname, Color: identity.Color}
	if err := c.Hub.Repo.UpsertUser(ctx, user); err != nil {
		slog.Warn("user mirror failed", "tag", "ws", "userId", identity.UserID, "err", err)
	}

	wsutil.SendJSON(c.Send, events.Heartbeat{Type: events.TypeHeartbeat})
	c.Hub.Manager.Resume(ctx, c.mconn)
}

func (c *Client) handleJoin(raw json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.MatchID == "" {
		c.sendError("INVALID_MESSAGE", "mensaje PLAYER_JOIN inválido")
		return
	}
	role := msg.Role
	if role == "" {
		role = match.RolePlayer
	}
	if role != match.RolePlayer && role != match.RoleSpectator {
		c.sendError("INVALID_MESSAGE", "rol desconocido: "+msg.Role)
		return
	}
	c.Hub.Manager.Join(c.mconn, msg.MatchID, role)
}

func (c *Client) handleFire(raw json.RawMessage) {
	var msg FireMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.MatchID == "" {
		c.sendError("INVALID_MESSAGE", "mensaje PLAYER_FIRE inválido")
		return
	}
	shot := game.ShotType(msg.ShotType)
	if msg.ShotType == "" {
		shot = game.ShotSimple
	}
	// Wire x is the column, y the row.
	c.Hub.Manager.Fire(c.mconn, msg.MatchID, msg.Y, msg.X, shot)
}

func (c *Client) sendError(code, message string) {
	wsutil.SendJSON(c.Send, events.Error{Type: events.TypeError, Code: code, Message: message})
}
