package game

// PlayerInfo carries the display data used to enrich board views.
type PlayerInfo struct {
	Nickname string
	Color    string
	Team     *int
}

// ShipView is a ship as shown to a viewer allowed to see it.
type ShipView struct {
	ShipID    string     `json:"shipId"`
	OwnerID   string     `json:"ownerId"`
	TeamID    *int       `json:"teamId,omitempty"`
	Positions []Position `json:"positions"`
	IsSunk    bool       `json:"isSunk"`
	Nickname  string     `json:"nickname,omitempty"`
	Color     string     `json:"color,omitempty"`
}

// ShotView is one history entry as shown to every viewer.
type ShotView struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Result string `json:"result"`
}

// MyShipView summarizes damage on one of the viewer's own ships.
type MyShipView struct {
	ShipID            string `json:"shipId"`
	IsSunk            bool   `json:"isSunk"`
	ImpactedPositions int    `json:"impactedPositions"`
	TotalPositions    int    `json:"totalPositions"`
}

// BoardView is the per-viewer projection of the board. Ships belonging to
// opponents are hidden; shot history and board size are shared.
type BoardView struct {
	Size    int          `json:"size"`
	Ships   []ShipView   `json:"ships"`
	Shots   []ShotView   `json:"shots"`
	MyShips []MyShipView `json:"myShips"`
}

// BuildViewFor projects the board for one viewer. A ship is visible when the
// viewer owns it or, in teams mode, when its team matches the viewer's team.
// Spectators (no entry in infos, no ships) see only the shot history.
func BuildViewFor(b *Board, viewerID string, mode Mode, infos map[string]PlayerInfo) *BoardView {
	view := &BoardView{
		Size:    b.Size,
		Ships:   []ShipView{},
		Shots:   make([]ShotView, 0, len(b.Shots)),
		MyShips: []MyShipView{},
	}

	var viewerTeam *int
	if info, ok := infos[viewerID]; ok {
		viewerTeam = info.Team
	}

	for i := range b.Ships {
		ship := &b.Ships[i]
		visible := ship.OwnerID == viewerID
		if !visible && mode == ModeTeams && ship.TeamID != nil && viewerTeam != nil {
			visible = *ship.TeamID == *viewerTeam
		}
		if !visible {
			continue
		}
		sv := ShipView{
			ShipID:    ship.ShipID,
			OwnerID:   ship.OwnerID,
			TeamID:    ship.TeamID,
			Positions: ship.Positions,
			IsSunk:    ship.IsSunk,
		}
		if info, ok := infos[ship.OwnerID]; ok {
			sv.Nickname = info.Nickname
			sv.Color = info.Color
		}
		view.Ships = append(view.Ships, sv)

		if ship.OwnerID == viewerID {
			impacted := 0
			for _, p := range ship.Positions {
				if p.IsHit {
					impacted++
				}
			}
			view.MyShips = append(view.MyShips, MyShipView{
				ShipID:            ship.ShipID,
				IsSunk:            ship.IsSunk,
				ImpactedPositions: impacted,
				TotalPositions:    len(ship.Positions),
			})
		}
	}

	for _, s := range b.Shots {
		result := "miss"
		if s.Hit {
			result = "hit"
		}
		view.Shots = append(view.Shots, ShotView{Row: s.Target.Row, Col: s.Target.Col, Result: result})
	}
	return view
}
