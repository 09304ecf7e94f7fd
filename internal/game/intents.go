package game

import (
	"errors"
	"time"
)

var ErrUnsupportedIntent = errors.New("unsupported intent")

type IntentType string

const (
	IntentMove      IntentType = "move"
	IntentStatus    IntentType = "status"
	IntentChat      IntentType = "chat"
	IntentHexSelect IntentType = "hexSelect"
)

type Intent struct {
	Type   IntentType
	X      float64
	Y      float64
	Status PlayerStatus
	Text   string
	Q      int
	R      int
}

type EventType string

const (
	EvtRoster    EventType = "Roster"
	EvtChat      EventType = "Chat"
	EvtHexUpdate EventType = "HexUpdate"
)

type Event struct {
	Type EventType

	// Chat
	PlayerID string
	Text     string
	SentAt   time.Time

	// HexUpdate
	Q            int
	R            int
	Occupant     string
	Color        string
	OccupantName string
}

// Apply validates and applies one intent from senderID, mutating s and
// returning the events to broadcast. Stale references (unknown sender,
// unknown cell) are not errors: they return nil events and nil error.
// The error return is reserved for intents the processor does not know.
func Apply(s *State, senderID string, in Intent, now time.Time) ([]Event, error) {
	switch in.Type {
	case IntentMove:
		p, ok := s.Players[senderID]
		if !ok {
			return nil, nil
		}
		p.X, p.Y = in.X, in.Y
		p.Status = StatusMoving
		return []Event{{Type: EvtRoster}}, nil

	case IntentStatus:
		p, ok := s.Players[senderID]
		if !ok {
			return nil, nil
		}
		// Stricter than the permissive original: anything outside the
		// known statuses is dropped like a stale intent.
		if !ValidStatus(in.Status) {
			return nil, nil
		}
		p.Status = in.Status
		return []Event{{Type: EvtRoster}}, nil

	case IntentChat:
		// Chat deliberately skips the participant check.
		return []Event{{
			Type:     EvtChat,
			PlayerID: senderID,
			Text:     in.Text,
			SentAt:   now,
		}}, nil

	case IntentHexSelect:
		cell, ok := s.Cell(in.Q, in.R)
		if !ok {
			return nil, nil
		}
		p, ok := s.Players[senderID]
		if !ok {
			return nil, nil
		}
		if cell.Occupant == senderID {
			cell.Occupant = ""
			cell.Color = ""
		} else {
			// Steal: prior occupancy offers no protection.
			cell.Occupant = senderID
			cell.Color = p.Color
		}
		ev := Event{
			Type:     EvtHexUpdate,
			Q:        in.Q,
			R:        in.R,
			Occupant: cell.Occupant,
			Color:    cell.Color,
		}
		if cell.Occupant != "" {
			ev.OccupantName = p.Name
		}
		return []Event{ev}, nil

	default:
		return nil, ErrUnsupportedIntent
	}
}
