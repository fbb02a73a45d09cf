package domain

import (
	"encoding/base64"
	"time"
)

// Roles permitidos para un mensaje persistido. Las instrucciones de sistema
// se construyen al vuelo y nunca se guardan como mensaje.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message es un turno inmutable dentro de una conversación. Images contiene
// los adjuntos ya codificados como data URIs, en el orden en que se enviaron.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Images         []string  `json:"images"`
	Timestamp      time.Time `json:"timestamp"`
}

// MessageInput son los campos que aporta el llamador al crear un mensaje;
// el store genera el id y el timestamp.
type MessageInput struct {
	ConversationID string
	Role           string
	Content        string
	Images         []string
}

// Attachment es un archivo adjunto crudo, antes de codificarse inline.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// DataURI codifica el adjunto como data URI autodescriptivo.
func (a Attachment) DataURI() string {
	return "data:" + a.MimeType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}
