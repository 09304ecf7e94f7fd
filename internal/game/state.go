package game

import (
	"fmt"
	"time"
)

type PlayerStatus string

const (
	StatusIdle   PlayerStatus = "idle"
	StatusActive PlayerStatus = "active"
	StatusMoving PlayerStatus = "moving"
)

func ValidStatus(s PlayerStatus) bool {
	switch s {
	case StatusIdle, StatusActive, StatusMoving:
		return true
	}
	return false
}

type GameStatus string

const (
	GameWaiting GameStatus = "waiting"
	GameActive  GameStatus = "active"
)

// Palette is indexed by join order mod len(Palette).
var Palette = [8]string{
	"#e6194b",
	"#3cb44b",
	"#4363d8",
	"#f58231",
	"#911eb4",
	"#46f0f0",
	"#f032e6",
	"#ffe119",
}

type Participant struct {
	ID       string
	Name     string
	X        float64
	Y        float64
	Status   PlayerStatus
	Color    string
	JoinedAt time.Time
}

// CellKey is an axial hex coordinate.
type CellKey struct {
	Q int
	R int
}

type Cell struct {
	Occupant string
	Color    string
}

type State struct {
	Players map[string]*Participant
	Grid    map[CellKey]*Cell

	// joinSeq only ever increases, so colors depend on join order alone
	// and never shift when somebody leaves.
	joinSeq int
}

const DefaultGridRadius = 4

// NewState pre-creates every cell within the given hex radius. Cells are
// never added or removed afterwards, only their occupancy changes.
func NewState(radius int) *State {
	if radius <= 0 {
		radius = DefaultGridRadius
	}
	s := &State{
		Players: make(map[string]*Participant),
		Grid:    make(map[CellKey]*Cell),
	}
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			if q+r < -radius || q+r > radius {
				continue
			}
			s.Grid[CellKey{Q: q, R: r}] = &Cell{}
		}
	}
	return s
}

// AddPlayer inserts a new participant. An empty name gets a default
// derived from the id prefix.
func (s *State) AddPlayer(id, name string, now time.Time) *Participant {
	if name == "" {
		prefix := id
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		name = fmt.Sprintf("guest-%s", prefix)
	}
	p := &Participant{
		ID:       id,
		Name:     name,
		Status:   StatusIdle,
		Color:    Palette[s.joinSeq%len(Palette)],
		JoinedAt: now,
	}
	s.Players[id] = p
	s.joinSeq++
	return p
}

// RemovePlayer deletes the participant. Cells the participant occupied
// keep their occupancy; see the hexSelect steal rule.
func (s *State) RemovePlayer(id string) {
	delete(s.Players, id)
}

func (s *State) Count() int { return len(s.Players) }

// GameStatus is derived, never stored: waiting below two participants.
func (s *State) GameStatus() GameStatus {
	if len(s.Players) < 2 {
		return GameWaiting
	}
	return GameActive
}

func (s *State) Cell(q, r int) (*Cell, bool) {
	c, ok := s.Grid[CellKey{Q: q, R: r}]
	return c, ok
}

// Roster returns a by-value copy of the participant map, safe to hand to
// another goroutine.
func (s *State) Roster() map[string]Participant {
	out := make(map[string]Participant, len(s.Players))
	for id, p := range s.Players {
		out[id] = *p
	}
	return out
}
