package domain

import "time"

// Conversation agrupa una secuencia ordenada de mensajes bajo un título.
// UpdatedAt se refresca con cada mensaje nuevo, nunca es menor a CreatedAt.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConversationUpdate describe los campos modificables de una conversación.
// Un puntero nil deja el campo existente intacto.
type ConversationUpdate struct {
	Title *string
}
