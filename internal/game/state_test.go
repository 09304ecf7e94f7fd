package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestNewState_GridExtent(t *testing.T) {
	s := NewState(2)

	// radius 2 hexagon: 1 + 6 + 12 = 19 cells
	require.Len(t, s.Grid, 19)

	_, ok := s.Cell(0, 0)
	assert.True(t, ok)
	_, ok = s.Cell(2, -2)
	assert.True(t, ok)
	_, ok = s.Cell(2, 1)
	assert.False(t, ok, "q+r beyond radius must not exist")
}

func TestAddPlayer_DefaultNameFromIDPrefix(t *testing.T) {
	s := NewState(1)
	p := s.AddPlayer("abcdef1234567890", "", t0)
	assert.Equal(t, "guest-abcdef12", p.Name)
	assert.Equal(t, StatusIdle, p.Status)

	named := s.AddPlayer("xyz", "Ada", t0)
	assert.Equal(t, "Ada", named.Name)
}

func TestColorAssignment_PureJoinOrder(t *testing.T) {
	s := NewState(1)

	// Colors track join order even across leaves and rejoins.
	for k := 0; k < 12; k++ {
		id := fmt.Sprintf("p%d", k)
		p := s.AddPlayer(id, "", t0)
		assert.Equal(t, Palette[k%len(Palette)], p.Color, "join %d", k)
		if k%3 == 0 {
			s.RemovePlayer(id)
		}
	}
}

func TestCountAndGameStatus(t *testing.T) {
	s := NewState(1)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, GameWaiting, s.GameStatus())

	s.AddPlayer("a", "", t0)
	assert.Equal(t, GameWaiting, s.GameStatus())

	s.AddPlayer("b", "", t0)
	assert.Equal(t, GameActive, s.GameStatus())

	s.AddPlayer("c", "", t0)
	s.RemovePlayer("a")
	s.RemovePlayer("b")
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, GameWaiting, s.GameStatus())
}

func TestRoster_IsACopy(t *testing.T) {
	s := NewState(1)
	s.AddPlayer("a", "Ada", t0)

	r := s.Roster()
	got := r["a"]
	got.Name = "mutated"
	assert.Equal(t, "Ada", s.Players["a"].Name)
}
