package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
)

type MessageRepository interface {
	// AppendMessage заполняет ID и CreatedAt сохраненного сообщения
	AppendMessage(ctx context.Context, msg *models.Message) error
	// RecentMessages возвращает последние limit сообщений в хронологическом порядке
	RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context, roomID string) (int, error)
}

type messageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO messages (room_id, user_id, user_name, body, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.db.GetContext(ctx, &msg.ID, query,
		msg.RoomID,
		msg.UserID,
		msg.UserName,
		msg.Body,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	return nil
}

func (r *messageRepo) RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	msgs := make([]models.Message, 0, limit)

	query := r.db.Rebind(`
		SELECT id, room_id, user_id, user_name, body, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)

	if err := r.db.SelectContext(ctx, &msgs, query, roomID, limit); err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}

	slices.Reverse(msgs)

	return msgs, nil
}

func (r *messageRepo) CountMessages(ctx context.Context, roomID string) (int, error) {
	var count int

	query := r.db.Rebind("SELECT COUNT(*) FROM messages WHERE room_id = ?")

	if err := r.db.GetContext(ctx, &count, query, roomID); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}

	return count, nil
}
