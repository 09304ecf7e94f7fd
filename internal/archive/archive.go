// Package archive persists chat and cell history to Postgres when a
// DATABASE_URL is configured. Rooms write through a buffered channel so
// a slow database can never stall a room loop; overflow is dropped.
package archive

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type ChatMessage struct {
	ID       uint   `gorm:"primaryKey"`
	RoomCode string `gorm:"index"`
	PlayerID string
	Text     string
	SentAt   time.Time
}

type CellEvent struct {
	ID       uint   `gorm:"primaryKey"`
	RoomCode string `gorm:"index"`
	Q        int
	R        int
	Occupant string
	Color    string
	At       time.Time
}

type Store struct {
	db   *gorm.DB
	ch   chan any
	done chan struct{}
	log  *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ChatMessage{}, &CellEvent{}); err != nil {
		return nil, err
	}
	s := &Store{
		db:   db,
		ch:   make(chan any, 256),
		done: make(chan struct{}),
		log:  log,
	}
	go s.writer()
	return s, nil
}

func (s *Store) writer() {
	defer close(s.done)
	for rec := range s.ch {
		if err := s.db.Create(rec).Error; err != nil {
			s.log.Warn("archive insert failed", zap.Error(err))
		}
	}
}

func (s *Store) RecordChat(roomCode, playerID, text string, at time.Time) {
	s.offer(&ChatMessage{RoomCode: roomCode, PlayerID: playerID, Text: text, SentAt: at})
}

func (s *Store) RecordCell(roomCode string, q, r int, occupant, color string, at time.Time) {
	s.offer(&CellEvent{RoomCode: roomCode, Q: q, R: r, Occupant: occupant, Color: color, At: at})
}

func (s *Store) offer(rec any) {
	select {
	case s.ch <- rec:
	default:
		s.log.Warn("archive buffer full, dropping record")
	}
}

// Close drains pending records and stops the writer.
func (s *Store) Close() {
	close(s.ch)
	<-s.done
}
