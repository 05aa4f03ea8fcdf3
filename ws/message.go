package ws

import "encoding/json"

// Inbound message names. AUTH must be the first frame on every connection;
// the rest are rejected until the session is authenticated.
const (
	MsgAuth            = "AUTH"
	MsgPlayerJoin      = "PLAYER_JOIN"
	MsgPlayerReady     = "PLAYER_READY"
	MsgChooseTeam      = "PLAYER_CHOOSE_TEAM"
	MsgPlayerLeave     = "PLAYER_LEAVE"
	MsgCreatorTransfer = "CREATOR_TRANSFER"
	MsgGameStart       = "GAME_START"
	MsgPlayerFire      = "PLAYER_FIRE"
)

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// AuthMsg carries the identity service JWT. First frame of every session.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// JoinMsg enters a match room as player or spectator.
type JoinMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	Role    string `json:"role"`
}

// ReadyMsg flags this connection as ready in the lobby.
type ReadyMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

// ChooseTeamMsg picks a team slot before a teams-mode start.
type ChooseTeamMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	Team    int    `json:"team"`
}

// LeaveMsg exits the match voluntarily.
type LeaveMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

// CreatorTransferMsg hands match ownership to another connected user.
type CreatorTransferMsg struct {
	Type         string `json:"type"`
	MatchID      string `json:"matchId"`
	TargetUserID string `json:"targetUserId"`
}

// StartMsg begins the match. Creator only.
type StartMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

// FireMsg shoots at a cell. X is the column, Y the row.
type FireMsg struct {
	Type     string `json:"type"`
	MatchID  string `json:"matchId"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	ShotType string `json:"shotType"`
}
