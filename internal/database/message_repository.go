package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

// MessageRepository persists conversations and their messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a message repository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// CreateConversation inserts a new conversation.
func (r *MessageRepository) CreateConversation(ctx context.Context, c *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, patient_id, subject, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	_, err := r.pool.Exec(ctx, query, c.ID, c.PatientID, c.Subject, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversation fetches a conversation by id.
func (r *MessageRepository) GetConversation(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	query := `SELECT id, patient_id, subject, created_at, updated_at FROM conversations WHERE id = $1`
	var c domain.Conversation
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.PatientID, &c.Subject, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

// ListConversationsByPatient returns a patient's conversations, most
// recently active first.
func (r *MessageRepository) ListConversationsByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Conversation, error) {
	query := `SELECT id, patient_id, subject, created_at, updated_at
		FROM conversations WHERE patient_id = $1 ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]domain.Conversation, 0)
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.PatientID, &c.Subject, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// CreateMessage appends a message to a conversation and bumps the
// conversation's updated_at inside one transaction.
func (r *MessageRepository) CreateMessage(ctx context.Context, m *domain.Message, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO messages (id, conversation_id, sender_role, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, insert, m.ID, m.ConversationID, m.SenderRole, m.Body, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	bump := `UPDATE conversations SET updated_at = $2 WHERE id = $1`
	tag, err := tx.Exec(ctx, bump, m.ConversationID, now)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}

	return tx.Commit(ctx)
}

// ListMessages returns a conversation's messages in chronological order.
func (r *MessageRepository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	query := `SELECT id, conversation_id, sender_role, body, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderRole, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
