package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/hexroom/hexroom/internal/room"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code  string
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type EnsureRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ListRooms struct {
	Reply chan []RoomInfo
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ListRooms) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

// RoomInfo is returned by the API for the room list.
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
}

type Config struct {
	GridRadius int
	Logger     *zap.Logger
	Sink       room.Sink
}

// Hub owns all rooms, keyed by code. Rooms share nothing with each
// other; the hub is the only cross-room structure.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.ensure(msg.Code)

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case EnsureRoom:
				msg.Reply <- h.ensure(msg.Code)

			case RemoveRoom:
				if r := h.rooms[msg.Code]; r != nil {
					r.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.Code)
				}

			case ListRooms:
				out := make([]RoomInfo, 0, len(h.rooms))
				for code, r := range h.rooms {
					out = append(out, RoomInfo{Code: code, Players: r.NumClients()})
				}
				msg.Reply <- out

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) ensure(code string) *room.Room {
	if r := h.rooms[code]; r != nil {
		return r
	}
	r := room.New(h.ctx, room.Config{
		Code:       code,
		GridRadius: h.cfg.GridRadius,
		Logger:     h.cfg.Logger,
		Sink:       h.cfg.Sink,
		OnEmpty: func(c string) {
			// Called from the room goroutine; non-blocking so an empty
			// room can never deadlock against its own registry.
			select {
			case h.inbox <- RemoveRoom{Code: c}:
			default:
			}
		},
	})
	h.rooms[code] = r
	h.cfg.Logger.Info("room created", zap.String("room", code))
	return r
}

func (h *Hub) shutdown() {
	for code, r := range h.rooms {
		r.Inbox() <- room.Shutdown{}
		delete(h.rooms, code)
	}
	h.cancel()
}
