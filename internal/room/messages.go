package room

import (
	"time"

	"github.com/hexroom/hexroom/internal/game"
)

type Msg interface{ isRoomMsg() }

// Join registers a participant connection. The room replies with the
// assigned identity, then sends the welcome on the outbox.
type Join struct {
	Name   string
	Outbox chan Event
	Reply  chan JoinResult
}

func (Join) isRoomMsg() {}

type JoinResult struct {
	PlayerID string
}

type Leave struct{ PlayerID string }

func (Leave) isRoomMsg() {}

type FromClient struct {
	PlayerID string
	Intent   game.Intent
}

func (FromClient) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// GetView reflects internal state without data races. Test-only.
type GetView struct {
	Reply chan View
}

func (GetView) isRoomMsg() {}

type View struct {
	Count      int
	GameStatus game.GameStatus
	NumClients int
	Players    map[string]game.Participant
	Cells      map[game.CellKey]game.Cell
}

// Event is anything a room pushes to a client outbox.
type Event interface{ isRoomEvent() }

// Welcome goes to the joining participant only.
type Welcome struct {
	PlayerID string
	RoomCode string
}

func (Welcome) isRoomEvent() {}

type RoomStatus struct {
	Count      int
	GameStatus game.GameStatus
}

func (RoomStatus) isRoomEvent() {}

type Roster struct {
	Players map[string]game.Participant
}

func (Roster) isRoomEvent() {}

type Chat struct {
	PlayerID string
	Text     string
	SentAt   time.Time
}

func (Chat) isRoomEvent() {}

type HexUpdate struct {
	Q            int
	R            int
	Occupant     string
	Color        string
	OccupantName string
}

func (HexUpdate) isRoomEvent() {}
