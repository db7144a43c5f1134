package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength - максимальная длина сообщения чата в символах
const MaxMessageLength = 2000

type Message struct {
	ID        int64     `json:"id" db:"id"`
	RoomID    string    `json:"room_id" db:"room_id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	UserName  string    `json:"userName" db:"user_name"`
	Body      string    `json:"message" db:"body"`
	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}
