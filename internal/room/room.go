package room

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hexroom/hexroom/internal/game"
)

// Sink receives events worth archiving. Implementations must not block;
// the room loop calls them inline.
type Sink interface {
	RecordChat(roomCode, playerID, text string, at time.Time)
	RecordCell(roomCode string, q, r int, occupant, color string, at time.Time)
}

// Intent rate limit per participant. Over-limit intents are dropped, the
// participant stays connected.
const (
	intentRate  rate.Limit = 20
	intentBurst            = 40
)

type Config struct {
	Code       string
	GridRadius int
	Logger     *zap.Logger
	Sink       Sink              // optional
	OnEmpty    func(code string) // optional, called from the room goroutine
}

// Room owns one session's aggregate state. All mutation happens on the
// loop goroutine; intents are processed one at a time in arrival order.
type Room struct {
	inbox    chan Msg
	code     string
	state    *game.State
	clients  map[string]chan Event
	limiters map[string]*rate.Limiter
	nclients atomic.Int64
	sink     Sink
	onEmpty  func(code string)
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := &Room{
		inbox:    make(chan Msg, 64),
		code:     cfg.Code,
		state:    game.NewState(cfg.GridRadius),
		clients:  make(map[string]chan Event),
		limiters: make(map[string]*rate.Limiter),
		sink:     cfg.Sink,
		onEmpty:  cfg.OnEmpty,
		log:      log.With(zap.String("room", cfg.Code)),
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) Code() string { return r.code }

// NumClients is safe to call from any goroutine.
func (r *Room) NumClients() int { return int(r.nclients.Load()) }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)

			case Leave:
				r.handleLeave(msg.PlayerID)

			case FromClient:
				r.handleIntent(msg)

			case GetView:
				msg.Reply <- View{
					Count:      r.state.Count(),
					GameStatus: r.state.GameStatus(),
					NumClients: len(r.clients),
					Players:    r.state.Roster(),
					Cells:      r.cellsCopy(),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	id := uuid.NewString()
	p := r.state.AddPlayer(id, msg.Name, time.Now())
	r.clients[id] = msg.Outbox
	r.limiters[id] = rate.NewLimiter(intentRate, intentBurst)
	r.nclients.Store(int64(len(r.clients)))

	msg.Reply <- JoinResult{PlayerID: id}

	r.sendTo(id, Welcome{PlayerID: id, RoomCode: r.code})
	r.broadcast(RoomStatus{Count: r.state.Count(), GameStatus: r.state.GameStatus()})
	r.broadcast(Roster{Players: r.state.Roster()})

	r.log.Info("participant joined",
		zap.String("player", id),
		zap.String("name", p.Name),
		zap.Int("count", r.state.Count()))
}

// handleLeave covers graceful leaves and abrupt disconnects alike. Cells
// the participant occupied keep their occupancy.
func (r *Room) handleLeave(playerID string) {
	if ch, ok := r.clients[playerID]; ok {
		close(ch)
		delete(r.clients, playerID)
	}
	delete(r.limiters, playerID)
	r.state.RemovePlayer(playerID)
	r.nclients.Store(int64(len(r.clients)))

	r.broadcast(RoomStatus{Count: r.state.Count(), GameStatus: r.state.GameStatus()})
	r.broadcast(Roster{Players: r.state.Roster()})

	r.log.Info("participant left",
		zap.String("player", playerID),
		zap.Int("count", r.state.Count()))

	if len(r.clients) == 0 && r.onEmpty != nil {
		r.onEmpty(r.code)
	}
}

func (r *Room) handleIntent(msg FromClient) {
	lim, ok := r.limiters[msg.PlayerID]
	if !ok {
		return
	}
	if !lim.Allow() {
		r.log.Debug("intent dropped by rate limit",
			zap.String("player", msg.PlayerID),
			zap.String("intent", string(msg.Intent.Type)))
		return
	}

	events, err := game.Apply(r.state, msg.PlayerID, msg.Intent, time.Now())
	if err != nil {
		r.log.Warn("intent rejected",
			zap.String("player", msg.PlayerID),
			zap.Error(err))
		return
	}

	for _, ev := range events {
		switch ev.Type {
		case game.EvtRoster:
			r.broadcast(Roster{Players: r.state.Roster()})

		case game.EvtChat:
			r.broadcast(Chat{PlayerID: ev.PlayerID, Text: ev.Text, SentAt: ev.SentAt})
			if r.sink != nil {
				r.sink.RecordChat(r.code, ev.PlayerID, ev.Text, ev.SentAt)
			}

		case game.EvtHexUpdate:
			r.broadcast(HexUpdate{
				Q:            ev.Q,
				R:            ev.R,
				Occupant:     ev.Occupant,
				Color:        ev.Color,
				OccupantName: ev.OccupantName,
			})
			if r.sink != nil {
				r.sink.RecordCell(r.code, ev.Q, ev.R, ev.Occupant, ev.Color, time.Now())
			}
		}
	}
}

// broadcast is best-effort: a client whose outbox is full gets dropped
// so a dead connection can never stall the loop. Participant removal
// still arrives later as a Leave from the transport.
func (r *Room) broadcast(ev Event) {
	for id, ch := range r.clients {
		select {
		case ch <- ev:
		default:
			close(ch)
			delete(r.clients, id)
			delete(r.limiters, id)
			r.log.Warn("dropping slow client", zap.String("player", id))
		}
	}
	r.nclients.Store(int64(len(r.clients)))
}

func (r *Room) sendTo(playerID string, ev Event) {
	ch, ok := r.clients[playerID]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		close(ch)
		delete(r.clients, playerID)
		delete(r.limiters, playerID)
		r.nclients.Store(int64(len(r.clients)))
	}
}

func (r *Room) cellsCopy() map[game.CellKey]game.Cell {
	out := make(map[game.CellKey]game.Cell, len(r.state.Grid))
	for k, c := range r.state.Grid {
		out[k] = *c
	}
	return out
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.nclients.Store(0)
	r.cancel()
}
