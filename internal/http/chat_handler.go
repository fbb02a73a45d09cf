package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-llm/internal/domain"
	"chat-llm/internal/repository"
	"chat-llm/internal/service"
)

// Límites del intake multipart; el cliente aplica los mismos antes de enviar.
const (
	maxUploadFiles = 5
	maxUploadSize  = 10 << 20
)

// ChatHandler expone el pipeline de mensajes sobre HTTP.
type ChatHandler struct {
	logger        *zap.Logger
	conversations repository.ConversationRepository
	chatService   *service.ChatService
	limiter       service.SubmitRateLimiter
}

func NewChatHandler(
	logger *zap.Logger,
	conversations repository.ConversationRepository,
	chatService *service.ChatService,
	limiter service.SubmitRateLimiter,
) *ChatHandler {
	return &ChatHandler{
		logger:        logger,
		conversations: conversations,
		chatService:   chatService,
		limiter:       limiter,
	}
}

// PostMessage maneja POST /conversations/:id/messages: form multipart con un
// campo `content` y hasta 5 partes `images`. Dispara el pipeline completo y
// devuelve ambos mensajes persistidos.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	conversationID := c.Param("id")

	// El pipeline exige una conversación destino existente; se rechaza aquí.
	if _, err := h.conversations.GetByID(c.Request.Context(), conversationID); err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.logger.Error("get conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch conversation"})
		return
	}

	if h.limiter != nil && !h.limiter.Allow(conversationID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.logger.Warn("invalid multipart form", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	content := c.PostForm("content")
	files := form.File["images"]
	if len(files) > maxUploadFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many files"})
		return
	}

	attachments := make([]domain.Attachment, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
			return
		}
		att, err := readAttachment(fh)
		if err != nil {
			h.logger.Warn("read upload failed", zap.String("filename", fh.Filename), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
			return
		}
		attachments = append(attachments, att)
	}

	userMsg, aiMsg, err := h.chatService.SubmitMessage(c.Request.Context(), conversationID, content, attachments)
	if errors.Is(err, service.ErrEmptySubmission) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text or a file is required"})
		return
	}
	if err != nil {
		h.logger.Error("process message failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"userMessage": userMsg,
		"aiMessage":   aiMsg,
	})
}

func readAttachment(fh *multipart.FileHeader) (domain.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.Attachment{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.Attachment{}, err
	}
	return domain.Attachment{
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
