// Package events defines the server-to-client event vocabulary. Every struct
// carries its wire name in Type so emitters can marshal literals directly.
// Room events fan out to every connection in a match room; the rest go to a
// single connection. The match and ws packages both emit these, so they live
// in their own package to keep the import graph acyclic.
package events

import "naval-battle-server/game"

// Room-scoped event names.
const (
	TypePlayerJoined       = "PLAYER_JOINED"
	TypePlayerLeft         = "PLAYER_LEFT"
	TypeCreatorChanged     = "CREATOR_CHANGED"
	TypePlayerReadyNotify  = "PLAYER_READY_NOTIFY"
	TypeAllReady           = "ALL_READY"
	TypePlayerTeamAssigned = "PLAYER_TEAM_ASSIGNED"
	TypeGameStarted        = "GAME_STARTED"
	TypeTurnChanged        = "TURN_CHANGED"
	TypeTurnTimeout        = "TURN_TIMEOUT"
	TypePlayerFired        = "PLAYER_FIRED"
	TypePlayerEliminated   = "PLAYER_ELIMINATED"
	TypeGameEnded          = "GAME_ENDED"
	TypeGameAbandoned      = "GAME_ABANDONED"
	TypePlayerReconnected  = "PLAYER_RECONNECTED"
)

// Connection-scoped event names.
const (
	TypePlayerJoinedAck    = "PLAYER_JOINED_ACK"
	TypeSpectatorJoinedAck = "SPECTATOR_JOINED_ACK"
	TypeJoinDenied         = "JOIN_DENIED"
	TypePlayerReadyAck     = "PLAYER_READY_ACK"
	TypeGameStartAck       = "GAME_START_ACK"
	TypePlayerFireAck      = "PLAYER_FIRE_ACK"
	TypeCreatorTransferAck = "CREATOR_TRANSFER_ACK"
	TypeNuclearStatus      = "NUCLEAR_STATUS"
	TypeBoardUpdate        = "BOARD_UPDATE"
	TypeReconnectAck       = "RECONNECT_ACK"
	TypeReconnectFailed    = "RECONNECT_FAILED"
	TypePlayerKicked       = "PLAYER_KICKED"
	TypeError              = "ERROR"
	TypeHeartbeat          = "HEARTBEAT"
)

type PlayerJoined struct {
	Type     string `json:"type"`
	MatchID  string `json:"matchId"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Color    string `json:"color"`
}

type PlayerLeft struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

type CreatorChanged struct {
	Type         string `json:"type"`
	MatchID      string `json:"matchId"`
	NewCreatorID string `json:"newCreatorId"`
}

type PlayerReadyNotify struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

type AllReady struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

type PlayerTeamAssigned struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
	Team    int    `json:"team"`
}

type GameStarted struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

type TurnChanged struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

type TurnTimeout struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
	Missed  int    `json:"missed"`
}

type PlayerFired struct {
	Type       string `json:"type"`
	MatchID    string `json:"matchId"`
	ShooterID  string `json:"shooterId"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	ShotType   string `json:"shotType"`
	Hit        bool   `json:"hit"`
	Sunk       bool   `json:"sunk"`
	SunkShipID string `json:"sunkShipId,omitempty"`
}

type PlayerEliminated struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

// GameEnded reports the final outcome. WinnerUserID is set in individual
// mode, WinningTeam in teams mode.
type GameEnded struct {
	Type         string `json:"type"`
	MatchID      string `json:"matchId"`
	Mode         string `json:"mode"`
	WinnerUserID string `json:"winnerUserId,omitempty"`
	WinningTeam  *int   `json:"winningTeam,omitempty"`
}

type GameAbandoned struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

type PlayerReconnected struct {
	Type     string `json:"type"`
	MatchID  string `json:"matchId"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

type PlayerJoinedAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	MatchID string `json:"matchId"`
}

type SpectatorJoinedAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	MatchID string `json:"matchId"`
}

type JoinDenied struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	Reason  string `json:"reason"`
}

type PlayerReadyAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type GameStartAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type PlayerFireAck struct {
	Type       string `json:"type"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Hit        bool   `json:"hit"`
	Sunk       bool   `json:"sunk"`
	SunkShipID string `json:"sunkShipId,omitempty"`
}

type CreatorTransferAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NuclearStatus is sent to the shooter after every resolved shot.
type NuclearStatus struct {
	Type       string `json:"type"`
	Progress   int    `json:"progress"`
	HasNuclear bool   `json:"hasNuclear"`
	Used       bool   `json:"used"`
}

// BoardUpdate carries the viewer-specific projection of the board. Each
// connection gets its own copy; ships of other players are never included.
type BoardUpdate struct {
	Type    string          `json:"type"`
	MatchID string          `json:"matchId"`
	Board   *game.BoardView `json:"board"`
}

type ReconnectAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	MatchID string `json:"matchId"`
}

type ReconnectFailed struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type PlayerKicked struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	Reason  string `json:"reason"`
}

type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Heartbeat struct {
	Type string `json:"type"`
}
