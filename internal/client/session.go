package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-llm/internal/domain"
)

// Política de adjuntos, aplicada antes de tocar la red.
const (
	maxAttachmentSize = 10 << 20
	maxAttachments    = 5
)

var (
	// ErrNoConversation indica que no hay conversación activa seleccionada.
	ErrNoConversation = errors.New("no conversation selected")
	// ErrNothingToSend bloquea el envío con texto vacío y cero adjuntos.
	ErrNothingToSend = errors.New("nothing to send")
)

// Notice es un aviso transitorio para el usuario (rechazos de archivos,
// fallos de envío). Nunca hay fallos silenciosos.
type Notice struct {
	Title  string
	Detail string
}

// Session es el controlador de sesión del cliente: compone envíos, aplica la
// política de adjuntos, mantiene cachés de vistas y las invalida tras cada
// envío. Pensado para un solo goroutine de UI.
type Session struct {
	api            *Client
	conversationID string

	draft  string
	staged []domain.Attachment

	notify   func(Notice)
	onTyping func(bool)

	cachedConversations []domain.Conversation
	conversationsValid  bool
	cachedMessages      map[string][]domain.Message
}

func NewSession(api *Client, notify func(Notice), onTyping func(bool)) *Session {
	if notify == nil {
		notify = func(Notice) {}
	}
	if onTyping == nil {
		onTyping = func(bool) {}
	}
	return &Session{
		api:            api,
		notify:         notify,
		onTyping:       onTyping,
		cachedMessages: make(map[string][]domain.Message),
	}
}

// SetConversation cambia la conversación activa.
func (s *Session) SetConversation(id string) {
	s.conversationID = id
}

func (s *Session) ConversationID() string {
	return s.conversationID
}

// SetDraft reemplaza el texto en composición.
func (s *Session) SetDraft(text string) {
	s.draft = text
}

func (s *Session) Draft() string {
	return s.draft
}

// Staged devuelve una copia de los adjuntos en espera; mutar el resultado
// no afecta al borrador.
func (s *Session) Staged() []domain.Attachment {
	return append([]domain.Attachment(nil), s.staged...)
}

// StageFiles agrega adjuntos al borrador aplicando la política: solo
// imagen/video/audio/PDF/documento/texto plano, máximo 10 MiB por archivo.
// Los rechazos emiten un aviso con el nombre del archivo. Más allá de 5
// adjuntos en total, el excedente se descarta sin aviso.
func (s *Session) StageFiles(files ...domain.Attachment) {
	for _, f := range files {
		if !isSupportedType(f.MimeType) {
			s.notify(Notice{
				Title:  "Unsupported file type",
				Detail: fmt.Sprintf("%s is not a supported file type.", f.Filename),
			})
			continue
		}
		if len(f.Data) > maxAttachmentSize {
			s.notify(Notice{
				Title:  "File too large",
				Detail: fmt.Sprintf("%s is larger than 10 MB.", f.Filename),
			})
			continue
		}
		s.staged = append(s.staged, f)
	}
	if len(s.staged) > maxAttachments {
		s.staged = s.staged[:maxAttachments]
	}
}

// RemoveStaged quita un adjunto por índice.
func (s *Session) RemoveStaged(index int) {
	if index < 0 || index >= len(s.staged) {
		return
	}
	s.staged = append(s.staged[:index], s.staged[index+1:]...)
}

func isSupportedType(mimeType string) bool {
	// mime.TypeByExtension puede traer parámetros ("text/plain; charset=utf-8").
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"),
		strings.HasPrefix(mimeType, "video/"),
		strings.HasPrefix(mimeType, "audio/"):
		return true
	case mimeType == "application/pdf", mimeType == "text/plain":
		return true
	case strings.Contains(mimeType, "document"):
		return true
	}
	return false
}

// Submit envía el borrador por el pipeline. El área de composición se limpia
// de inmediato (optimista) y no se restaura si el envío falla; el fallo se
// avisa con una Notice. Con texto vacío y cero adjuntos no hay llamada de red.
func (s *Session) Submit(ctx context.Context) (SendResult, error) {
	if s.conversationID == "" {
		s.notify(Notice{
			Title:  "No conversation selected",
			Detail: "Please create a new chat or select an existing one.",
		})
		return SendResult{}, ErrNoConversation
	}

	trimmed := strings.TrimSpace(s.draft)
	if trimmed == "" && len(s.staged) == 0 {
		return SendResult{}, ErrNothingToSend
	}

	conversationID := s.conversationID
	attachments := s.staged
	s.draft = ""
	s.staged = nil

	s.onTyping(true)
	defer s.onTyping(false)

	result, err := s.api.SendMessage(ctx, conversationID, trimmed, attachments)
	if err != nil {
		s.notify(Notice{Title: "Failed to send message", Detail: err.Error()})
		return SendResult{}, err
	}

	s.invalidateViews(conversationID)
	return result, nil
}

// Conversations devuelve la lista cacheada, o la refetchea si fue invalidada.
func (s *Session) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	if s.conversationsValid {
		return s.cachedConversations, nil
	}
	conversations, err := s.api.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	s.cachedConversations = conversations
	s.conversationsValid = true
	return conversations, nil
}

// Messages devuelve los mensajes cacheados de una conversación, o los
// refetchea si fueron invalidados.
func (s *Session) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if cached, ok := s.cachedMessages[conversationID]; ok {
		return cached, nil
	}
	messages, err := s.api.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	s.cachedMessages[conversationID] = messages
	return messages, nil
}

// NewConversation crea una conversación, la vuelve activa e invalida la
// lista cacheada.
func (s *Session) NewConversation(ctx context.Context, title string) (domain.Conversation, error) {
	conv, err := s.api.CreateConversation(ctx, title)
	if err != nil {
		return domain.Conversation{}, err
	}
	s.conversationID = conv.ID
	s.conversationsValid = false
	return conv, nil
}

// DeleteConversation borra una conversación e invalida sus vistas.
func (s *Session) DeleteConversation(ctx context.Context, id string) error {
	if err := s.api.DeleteConversation(ctx, id); err != nil {
		return err
	}
	if s.conversationID == id {
		s.conversationID = ""
	}
	s.invalidateViews(id)
	return nil
}

func (s *Session) invalidateViews(conversationID string) {
	s.conversationsValid = false
	delete(s.cachedMessages, conversationID)
}
