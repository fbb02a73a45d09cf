package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"chat-llm/internal/domain"
)

// Client habla con la superficie HTTP del servicio de chat.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		// Sin timeout: la llamada al LLM del lado servidor puede tardar.
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// APIError es una respuesta de error del servidor ya decodificada.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.Status, e.Message)
}

// SendResult es la respuesta del pipeline: el par de mensajes persistidos.
type SendResult struct {
	UserMessage domain.Message `json:"userMessage"`
	AIMessage   domain.Message `json:"aiMessage"`
}

func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (c *Client) CreateConversation(ctx context.Context, title string) (domain.Conversation, error) {
	body := map[string]string{"title": title}
	var conv domain.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/conversations", body, &conv); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/conversations/"+id, nil, &conv); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/conversations/"+id, nil, nil)
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	if err := c.doJSON(ctx, http.MethodGet, "/conversations/"+conversationID+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage envía un form multipart con el texto y los adjuntos y devuelve
// el par usuario/asistente que persistió el servidor.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string, attachments []domain.Attachment) (SendResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("content", content); err != nil {
		return SendResult{}, fmt.Errorf("write content field: %w", err)
	}
	for _, att := range attachments {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="images"; filename=%q`, att.Filename))
		header.Set("Content-Type", att.MimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return SendResult{}, fmt.Errorf("create form part: %w", err)
		}
		if _, err := part.Write(att.Data); err != nil {
			return SendResult{}, fmt.Errorf("write form part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return SendResult{}, fmt.Errorf("close form: %w", err)
	}

	url := c.baseURL + "/conversations/" + conversationID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return SendResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result SendResult
	if err := c.do(req, &result); err != nil {
		return SendResult{}, err
	}
	return result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: "request failed"}
		var decoded struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &decoded) == nil && decoded.Error != "" {
			apiErr.Message = decoded.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
