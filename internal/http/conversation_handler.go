package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-llm/internal/repository"
)

// ConversationHandler mantiene dependencias para los endpoints CRUD de
// conversaciones.
type ConversationHandler struct {
	logger        *zap.Logger
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
}

func NewConversationHandler(
	logger *zap.Logger,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
) *ConversationHandler {
	return &ConversationHandler{
		logger:        logger,
		conversations: conversations,
		messages:      messages,
	}
}

// List maneja GET /conversations: todas las conversaciones, la más activa
// primero.
func (h *ConversationHandler) List(c *gin.Context) {
	conversations, err := h.conversations.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list conversations"})
		return
	}
	c.JSON(http.StatusOK, conversations)
}

// Create maneja POST /conversations.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create conversation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation data"})
		return
	}

	conv, err := h.conversations.Create(c.Request.Context(), req.Title)
	if err != nil {
		h.logger.Error("create conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// Get maneja GET /conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.conversations.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	if err != nil {
		h.logger.Error("get conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch conversation"})
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Delete maneja DELETE /conversations/:id; borra también todos los mensajes
// de la conversación.
func (h *ConversationHandler) Delete(c *gin.Context) {
	removed, err := h.conversations.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("delete conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete conversation"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListMessages maneja GET /conversations/:id/messages en orden cronológico.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	messages, err := h.messages.ListByConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("list messages failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}
