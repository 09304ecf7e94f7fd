package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexroom/hexroom/internal/game"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, Config{Code: "TEST01", GridRadius: 2})
}

// helper: receive one event with a timeout so tests never hang
func recvEvent(t *testing.T, ch <-chan Event, within time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return ev
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return nil // unreachable
	}
}

func recvNoEvent(t *testing.T, ch <-chan Event, within time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no event within %v, got %+v", within, ev)
	case <-time.After(within):
	}
}

func join(t *testing.T, r *Room, name string) (string, chan Event) {
	t.Helper()
	out := make(chan Event, 32)
	reply := make(chan JoinResult, 1)
	r.Inbox() <- Join{Name: name, Outbox: out, Reply: reply}
	select {
	case res := <-reply:
		return res.PlayerID, out
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for join result")
		return "", nil // unreachable
	}
}

func view(t *testing.T, r *Room) View {
	t.Helper()
	reply := make(chan View, 1)
	r.Inbox() <- GetView{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func TestRoom_JoinSendsWelcomeStatusRoster(t *testing.T) {
	r := newTestRoom(t)

	id, out := join(t, r, "")

	w, ok := recvEvent(t, out, time.Second).(Welcome)
	require.True(t, ok, "first event must be the welcome")
	assert.Equal(t, id, w.PlayerID)
	assert.Equal(t, "TEST01", w.RoomCode)

	st, ok := recvEvent(t, out, time.Second).(RoomStatus)
	require.True(t, ok)
	assert.Equal(t, 1, st.Count)
	assert.Equal(t, game.GameWaiting, st.GameStatus)

	ro, ok := recvEvent(t, out, time.Second).(Roster)
	require.True(t, ok)
	require.Contains(t, ro.Players, id)
	assert.Equal(t, game.Palette[0], ro.Players[id].Color)
	assert.Contains(t, ro.Players[id].Name, "guest-")
}

func TestRoom_CountAndStatusAcrossJoinsAndLeaves(t *testing.T) {
	r := newTestRoom(t)

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		id, _ := join(t, r, "")
		ids = append(ids, id)
	}
	v := view(t, r)
	assert.Equal(t, 4, v.Count)
	assert.Equal(t, game.GameActive, v.GameStatus)

	r.Inbox() <- Leave{PlayerID: ids[0]}
	r.Inbox() <- Leave{PlayerID: ids[1]}
	r.Inbox() <- Leave{PlayerID: ids[2]}

	v = view(t, r)
	assert.Equal(t, 1, v.Count)
	assert.Equal(t, game.GameWaiting, v.GameStatus)
}

func TestRoom_MoveBroadcastsRoster(t *testing.T) {
	r := newTestRoom(t)
	id, out := join(t, r, "Ada")

	// drain welcome, status, roster
	for i := 0; i < 3; i++ {
		recvEvent(t, out, time.Second)
	}

	r.Inbox() <- FromClient{PlayerID: id, Intent: game.Intent{Type: game.IntentMove, X: 5, Y: 7}}

	ro, ok := recvEvent(t, out, time.Second).(Roster)
	require.True(t, ok, "move must re-broadcast the roster")
	assert.Equal(t, 5.0, ro.Players[id].X)
	assert.Equal(t, 7.0, ro.Players[id].Y)
	assert.Equal(t, game.StatusMoving, ro.Players[id].Status)
}

func TestRoom_ChatReachesSenderToo(t *testing.T) {
	r := newTestRoom(t)
	id1, out1 := join(t, r, "")
	for i := 0; i < 3; i++ {
		recvEvent(t, out1, time.Second)
	}
	_, out2 := join(t, r, "")
	// p1 sees the second join's status + roster
	recvEvent(t, out1, time.Second)
	recvEvent(t, out1, time.Second)
	for i := 0; i < 3; i++ {
		recvEvent(t, out2, time.Second)
	}

	r.Inbox() <- FromClient{PlayerID: id1, Intent: game.Intent{Type: game.IntentChat, Text: "hello"}}

	for _, out := range []chan Event{out1, out2} {
		c, ok := recvEvent(t, out, time.Second).(Chat)
		require.True(t, ok)
		assert.Equal(t, id1, c.PlayerID)
		assert.Equal(t, "hello", c.Text)
		assert.False(t, c.SentAt.IsZero())
	}
}

func TestRoom_UnknownIdentityIntentIsSilent(t *testing.T) {
	r := newTestRoom(t)
	_, out := join(t, r, "")
	for i := 0; i < 3; i++ {
		recvEvent(t, out, time.Second)
	}

	r.Inbox() <- FromClient{PlayerID: "ghost", Intent: game.Intent{Type: game.IntentMove, X: 1, Y: 1}}
	r.Inbox() <- FromClient{PlayerID: "ghost", Intent: game.Intent{Type: game.IntentHexSelect}}

	recvNoEvent(t, out, 150*time.Millisecond)
}

func TestRoom_SlowClientIsDropped(t *testing.T) {
	r := newTestRoom(t)

	out := make(chan Event) // unbuffered: every broadcast overflows
	reply := make(chan JoinResult, 1)
	r.Inbox() <- Join{Name: "", Outbox: out, Reply: reply}
	<-reply

	v := view(t, r)
	assert.Equal(t, 0, v.NumClients, "expected slow client to be dropped")
}

func TestRoom_EndToEndScenario(t *testing.T) {
	r := newTestRoom(t)

	p1, out1 := join(t, r, "P1")
	for i := 0; i < 3; i++ {
		recvEvent(t, out1, time.Second)
	}

	// P1 selects (0,0)
	r.Inbox() <- FromClient{PlayerID: p1, Intent: game.Intent{Type: game.IntentHexSelect, Q: 0, R: 0}}
	hex, ok := recvEvent(t, out1, time.Second).(HexUpdate)
	require.True(t, ok)
	assert.Equal(t, p1, hex.Occupant)
	assert.Equal(t, game.Palette[0], hex.Color)

	p2, out2 := join(t, r, "P2")
	recvEvent(t, out1, time.Second) // status
	recvEvent(t, out1, time.Second) // roster
	for i := 0; i < 3; i++ {
		recvEvent(t, out2, time.Second)
	}

	// P2 steals (0,0)
	r.Inbox() <- FromClient{PlayerID: p2, Intent: game.Intent{Type: game.IntentHexSelect, Q: 0, R: 0}}
	hex, ok = recvEvent(t, out2, time.Second).(HexUpdate)
	require.True(t, ok)
	assert.Equal(t, p2, hex.Occupant)
	assert.Equal(t, game.Palette[1], hex.Color)
	assert.Equal(t, "P2", hex.OccupantName)

	// P1 leaves: count drops to 1, game back to waiting, and the cell
	// still belongs to P2 (a leave never touches cells).
	r.Inbox() <- Leave{PlayerID: p1}
	st, ok := recvEvent(t, out2, time.Second).(RoomStatus)
	require.True(t, ok)
	assert.Equal(t, 1, st.Count)
	assert.Equal(t, game.GameWaiting, st.GameStatus)

	v := view(t, r)
	cell := v.Cells[game.CellKey{Q: 0, R: 0}]
	assert.Equal(t, p2, cell.Occupant)
	assert.Equal(t, game.Palette[1], cell.Color)
}

func TestRoom_LeaveKeepsOwnedCells(t *testing.T) {
	r := newTestRoom(t)
	p1, out := join(t, r, "")
	for i := 0; i < 3; i++ {
		recvEvent(t, out, time.Second)
	}

	r.Inbox() <- FromClient{PlayerID: p1, Intent: game.Intent{Type: game.IntentHexSelect, Q: 1, R: -1}}
	recvEvent(t, out, time.Second)

	r.Inbox() <- Leave{PlayerID: p1}

	v := view(t, r)
	assert.Equal(t, 0, v.Count)
	cell := v.Cells[game.CellKey{Q: 1, R: -1}]
	assert.Equal(t, p1, cell.Occupant, "ghost occupancy survives the leave")
}

func TestRoom_RateLimitDropsExcessIntents(t *testing.T) {
	r := newTestRoom(t)

	out := make(chan Event, 256) // roomy enough to never trip the slow-client drop
	reply := make(chan JoinResult, 1)
	r.Inbox() <- Join{Outbox: out, Reply: reply}
	id := (<-reply).PlayerID
	for i := 0; i < 3; i++ {
		recvEvent(t, out, time.Second)
	}

	// Well past the burst allowance in one go.
	for i := 0; i < intentBurst+20; i++ {
		r.Inbox() <- FromClient{PlayerID: id, Intent: game.Intent{Type: game.IntentMove, X: float64(i)}}
	}

	v := view(t, r)
	// The participant is still present and connected, and the final
	// applied position is from an allowed intent before the cutoff.
	assert.Equal(t, 1, v.Count)
	assert.Equal(t, 1, v.NumClients)
	assert.Less(t, v.Players[id].X, float64(intentBurst+20-1))
}

func TestRoom_OnEmptyFiresAfterLastLeave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emptied := make(chan string, 1)
	r := New(ctx, Config{Code: "GONE99", GridRadius: 1, OnEmpty: func(code string) { emptied <- code }})

	id, _ := join(t, r, "")
	r.Inbox() <- Leave{PlayerID: id}

	select {
	case code := <-emptied:
		assert.Equal(t, "GONE99", code)
	case <-time.After(time.Second):
		t.Fatalf("OnEmpty never fired")
	}
}
