package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-llm/internal/domain"
)

// ErrConversationNotFound señala un id de conversación desconocido.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository define las operaciones de persistencia de
// conversaciones. El store genera id y timestamps en Create.
type ConversationRepository interface {
	Create(ctx context.Context, title string) (domain.Conversation, error)
	List(ctx context.Context) ([]domain.Conversation, error)
	GetByID(ctx context.Context, id string) (domain.Conversation, error)
	Update(ctx context.Context, id string, update domain.ConversationUpdate) (domain.Conversation, error)
	// Delete elimina la conversación y todos sus mensajes; devuelve si
	// existía una conversación con ese id.
	Delete(ctx context.Context, id string) (bool, error)
}

type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) Create(ctx context.Context, title string) (domain.Conversation, error) {
	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	const query = `
		INSERT INTO conversations (id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, conv.ID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (r *PgConversationRepository) List(ctx context.Context) ([]domain.Conversation, error) {
	const query = `
		SELECT id, title, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []domain.Conversation{}
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (r *PgConversationRepository) GetByID(ctx context.Context, id string) (domain.Conversation, error) {
	const query = `
		SELECT id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, id).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

func (r *PgConversationRepository) Update(ctx context.Context, id string, update domain.ConversationUpdate) (domain.Conversation, error) {
	const query = `
		UPDATE conversations
		SET title = COALESCE($2, title), updated_at = $3
		WHERE id = $1
		RETURNING id, title, created_at, updated_at
	`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, id, update.Title, time.Now().UTC()).
		Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

func (r *PgConversationRepository) Delete(ctx context.Context, id string) (bool, error) {
	// Los mensajes se borran primero; no hay FK porque el modelo admite
	// escrituras huérfanas (ver MessageRepository.Create).
	if _, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, id); err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
