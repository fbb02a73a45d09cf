package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-llm/internal/domain"
)

// MemoryStore implementa ConversationRepository y MessageRepository sobre
// mapas en memoria. Es el backend por defecto: los datos viven lo que viva
// el proceso. Un RWMutex preserva en runtime paralelo la atomicidad aparente
// que el diseño original tenía por correr en un solo hilo; en particular la
// secuencia crear-mensaje → tocar-conversación ocurre bajo un solo lock.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
	messages      map[string]memMessage
	seq           uint64
}

// memMessage conserva el orden de inserción para desempatar timestamps
// iguales al listar.
type memMessage struct {
	msg domain.Message
	seq uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string]memMessage),
	}
}

func (s *MemoryStore) Create(ctx context.Context, title string) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conv.ID] = conv
	return conv, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversations := make([]domain.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		conversations = append(conversations, conv)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, update domain.ConversationUpdate) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, update)
}

func (s *MemoryStore) updateLocked(id string, update domain.ConversationUpdate) (domain.Conversation, error) {
	conv, ok := s.conversations[id]
	if !ok {
		return domain.Conversation{}, ErrConversationNotFound
	}
	if update.Title != nil {
		conv.Title = *update.Title
	}
	conv.UpdatedAt = time.Now().UTC()
	s.conversations[id] = conv
	return conv, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false, nil
	}
	delete(s.conversations, id)
	s.deleteMessagesLocked(id)
	return true, nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, input domain.MessageInput) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copia defensiva: mutaciones posteriores del slice del llamador no
	// deben afectar el estado guardado.
	images := append([]string(nil), input.Images...)
	if images == nil {
		images = []string{}
	}

	s.seq++
	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: input.ConversationID,
		Role:           input.Role,
		Content:        input.Content,
		Images:         images,
		Timestamp:      time.Now().UTC(),
	}
	s.messages[msg.ID] = memMessage{msg: msg, seq: s.seq}

	// Único efecto cruzado entre entidades: la recencia de una conversación
	// refleja la actividad de sus mensajes.
	if _, ok := s.conversations[input.ConversationID]; ok {
		_, _ = s.updateLocked(input.ConversationID, domain.ConversationUpdate{})
	}
	return msg, nil
}

func (s *MemoryStore) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := []memMessage{}
	for _, entry := range s.messages {
		if entry.msg.ConversationID == conversationID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].msg.Timestamp.Equal(entries[j].msg.Timestamp) {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].msg.Timestamp.Before(entries[j].msg.Timestamp)
	})

	messages := make([]domain.Message, 0, len(entries))
	for _, entry := range entries {
		messages = append(messages, entry.msg)
	}
	return messages, nil
}

func (s *MemoryStore) DeleteByConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteMessagesLocked(conversationID)
	return nil
}

func (s *MemoryStore) deleteMessagesLocked(conversationID string) {
	for id, entry := range s.messages {
		if entry.msg.ConversationID == conversationID {
			delete(s.messages, id)
		}
	}
}
