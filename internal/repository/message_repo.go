package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-llm/internal/domain"
)

// MessageRepository define las operaciones de persistencia de mensajes.
type MessageRepository interface {
	// CreateMessage persiste un mensaje nuevo con id y timestamp frescos.
	// Si la conversación dueña existe, su UpdatedAt se refresca en la misma
	// operación lógica; si no existe, el mensaje se guarda igual
	// (escritura huérfana, last-write-wins frente a un delete concurrente).
	CreateMessage(ctx context.Context, input domain.MessageInput) (domain.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	DeleteByConversation(ctx context.Context, conversationID string) error
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) CreateMessage(ctx context.Context, input domain.MessageInput) (domain.Message, error) {
	now := time.Now().UTC()
	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: input.ConversationID,
		Role:           input.Role,
		Content:        input.Content,
		Images:         append([]string(nil), input.Images...),
		Timestamp:      now,
	}
	if msg.Images == nil {
		msg.Images = []string{}
	}

	const query = `
		INSERT INTO messages (id, conversation_id, role, content, images, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.Images,
		msg.Timestamp,
	)
	if err != nil {
		return domain.Message{}, err
	}

	// Toca la conversación dueña; sin filas afectadas no es un error.
	_, err = r.pool.Exec(ctx,
		`UPDATE conversations SET updated_at = $2 WHERE id = $1`,
		msg.ConversationID, now,
	)
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (r *PgMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	const query = `
		SELECT id, conversation_id, role, content, images, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&msg.Images,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		if msg.Images == nil {
			msg.Images = []string{}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *PgMessageRepository) DeleteByConversation(ctx context.Context, conversationID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, conversationID)
	return err
}
