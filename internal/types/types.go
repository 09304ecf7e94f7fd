package types

import (
	"github.com/hexroom/hexroom/internal/game"
	"github.com/hexroom/hexroom/internal/room"
)

// ClientMessage is the tagged intent envelope the UI sends verbatim.
type ClientMessage struct {
	Type   string  `json:"type"` // "move" | "status" | "chat" | "hexSelect"
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Status string  `json:"status,omitempty"`
	Text   string  `json:"text,omitempty"`
	Q      int     `json:"q"`
	R      int     `json:"r"`
}

// ToIntent maps the wire envelope onto a game intent. Unknown tags are
// the transport's problem, not the processor's.
func (m ClientMessage) ToIntent() (game.Intent, bool) {
	switch m.Type {
	case "move":
		return game.Intent{Type: game.IntentMove, X: m.X, Y: m.Y}, true
	case "status":
		return game.Intent{Type: game.IntentStatus, Status: game.PlayerStatus(m.Status)}, true
	case "chat":
		return game.Intent{Type: game.IntentChat, Text: m.Text}, true
	case "hexSelect":
		return game.Intent{Type: game.IntentHexSelect, Q: m.Q, R: m.R}, true
	default:
		return game.Intent{}, false
	}
}

type PlayerView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Status   string  `json:"status"`
	Color    string  `json:"color"`
	JoinedAt int64   `json:"joined_at"` // unix millis
}

type HexUpdate struct {
	Q            int    `json:"q"`
	R            int    `json:"r"`
	Occupant     string `json:"occupant"`
	Color        string `json:"color"`
	OccupantName string `json:"occupant_name"`
}

type ServerMessage struct {
	Type       string                `json:"type"` // "welcome" | "room_status" | "roster" | "chat" | "hex_update" | "error"
	PlayerID   string                `json:"player_id,omitempty"`
	RoomCode   string                `json:"room_code,omitempty"`
	Count      int                   `json:"count,omitempty"`
	GameStatus string                `json:"game_status,omitempty"`
	Players    map[string]PlayerView `json:"players,omitempty"`
	Text       string                `json:"text,omitempty"`
	SentAt     int64                 `json:"sent_at,omitempty"`
	Hex        *HexUpdate            `json:"hex,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// FromRoomEvent converts a room broadcast into its wire shape.
func FromRoomEvent(ev room.Event) (ServerMessage, bool) {
	switch e := ev.(type) {
	case room.Welcome:
		return ServerMessage{Type: "welcome", PlayerID: e.PlayerID, RoomCode: e.RoomCode}, true

	case room.RoomStatus:
		return ServerMessage{Type: "room_status", Count: e.Count, GameStatus: string(e.GameStatus)}, true

	case room.Roster:
		players := make(map[string]PlayerView, len(e.Players))
		for id, p := range e.Players {
			players[id] = PlayerView{
				ID:       p.ID,
				Name:     p.Name,
				X:        p.X,
				Y:        p.Y,
				Status:   string(p.Status),
				Color:    p.Color,
				JoinedAt: p.JoinedAt.UnixMilli(),
			}
		}
		return ServerMessage{Type: "roster", Players: players}, true

	case room.Chat:
		return ServerMessage{Type: "chat", PlayerID: e.PlayerID, Text: e.Text, SentAt: e.SentAt.UnixMilli()}, true

	case room.HexUpdate:
		return ServerMessage{Type: "hex_update", Hex: &HexUpdate{
			Q:            e.Q,
			R:            e.R,
			Occupant:     e.Occupant,
			Color:        e.Color,
			OccupantName: e.OccupantName,
		}}, true

	default:
		return ServerMessage{}, false
	}
}
