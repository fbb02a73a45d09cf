package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-llm/internal/domain"
)

func pngAttachment(name string, size int) domain.Attachment {
	return domain.Attachment{
		Filename: name,
		MimeType: "image/png",
		Data:     bytes.Repeat([]byte{0x1}, size),
	}
}

type noticeRecorder struct {
	notices []Notice
}

func (r *noticeRecorder) record(n Notice) {
	r.notices = append(r.notices, n)
}

func TestStageFilesRejectsUnsupportedType(t *testing.T) {
	rec := &noticeRecorder{}
	session := NewSession(New("http://unused", nil), rec.record, nil)

	session.StageFiles(domain.Attachment{Filename: "run.exe", MimeType: "application/x-msdownload", Data: []byte{1}})
	if len(session.Staged()) != 0 {
		t.Fatalf("expected rejection, got %d staged", len(session.Staged()))
	}
	if len(rec.notices) != 1 || rec.notices[0].Title != "Unsupported file type" {
		t.Fatalf("expected unsupported-type notice, got %+v", rec.notices)
	}
}

func TestStageFilesRejectsOversized(t *testing.T) {
	rec := &noticeRecorder{}
	session := NewSession(New("http://unused", nil), rec.record, nil)

	session.StageFiles(pngAttachment("big.png", (10<<20)+1))
	if len(session.Staged()) != 0 {
		t.Fatalf("expected rejection, got %d staged", len(session.Staged()))
	}
	if len(rec.notices) != 1 || rec.notices[0].Title != "File too large" {
		t.Fatalf("expected too-large notice, got %+v", rec.notices)
	}
}

func TestStageFilesCapsAtFiveSilently(t *testing.T) {
	rec := &noticeRecorder{}
	session := NewSession(New("http://unused", nil), rec.record, nil)

	files := make([]domain.Attachment, 7)
	for i := range files {
		files[i] = pngAttachment("f.png", 4)
	}
	session.StageFiles(files...)

	if len(session.Staged()) != 5 {
		t.Fatalf("expected 5 staged, got %d", len(session.Staged()))
	}
	if len(rec.notices) != 0 {
		t.Fatalf("expected silent drop of excess, got %+v", rec.notices)
	}
}

func TestStageFilesAcceptsDocumentTypes(t *testing.T) {
	session := NewSession(New("http://unused", nil), nil, nil)
	session.StageFiles(
		domain.Attachment{Filename: "a.pdf", MimeType: "application/pdf", Data: []byte{1}},
		domain.Attachment{Filename: "b.txt", MimeType: "text/plain; charset=utf-8", Data: []byte{1}},
		domain.Attachment{Filename: "c.docx", MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Data: []byte{1}},
		domain.Attachment{Filename: "d.mp4", MimeType: "video/mp4", Data: []byte{1}},
	)
	if len(session.Staged()) != 4 {
		t.Fatalf("expected all 4 accepted, got %d", len(session.Staged()))
	}
}

func TestStagedReturnsCopy(t *testing.T) {
	session := NewSession(New("http://unused", nil), nil, nil)
	session.StageFiles(pngAttachment("a.png", 4), pngAttachment("b.png", 4))

	staged := session.Staged()
	staged[0] = domain.Attachment{Filename: "swapped.exe", MimeType: "application/x-msdownload"}

	got := session.Staged()
	if len(got) != 2 || got[0].Filename != "a.png" {
		t.Fatalf("expected caller mutation not to affect staged files, got %+v", got)
	}
}

func TestSubmitBlockedWithoutContent(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	session := NewSession(New(server.URL, nil), nil, nil)
	session.SetConversation("conv-1")
	session.SetDraft("   ")

	if _, err := session.Submit(context.Background()); !errors.Is(err, ErrNothingToSend) {
		t.Fatalf("expected ErrNothingToSend, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("expected no network call, got %d", requests)
	}
}

func TestSubmitOversizedNeverReachesNetwork(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	rec := &noticeRecorder{}
	session := NewSession(New(server.URL, nil), rec.record, nil)
	session.SetConversation("conv-1")
	session.StageFiles(pngAttachment("huge.png", 12<<20))

	if _, err := session.Submit(context.Background()); !errors.Is(err, ErrNothingToSend) {
		t.Fatalf("expected ErrNothingToSend, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("expected no network call for rejected file, got %d", requests)
	}
}

func TestSubmitWithoutConversation(t *testing.T) {
	rec := &noticeRecorder{}
	session := NewSession(New("http://unused", nil), rec.record, nil)
	session.SetDraft("hola")

	if _, err := session.Submit(context.Background()); !errors.Is(err, ErrNoConversation) {
		t.Fatalf("expected ErrNoConversation, got %v", err)
	}
	if len(rec.notices) != 1 || rec.notices[0].Title != "No conversation selected" {
		t.Fatalf("expected notice, got %+v", rec.notices)
	}
}

func TestSubmitSendsMultipartAndInvalidatesCaches(t *testing.T) {
	listCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/conversations":
			listCalls++
			json.NewEncoder(w).Encode([]domain.Conversation{})
		case r.Method == http.MethodGet && r.URL.Path == "/conversations/conv-1/messages":
			json.NewEncoder(w).Encode([]domain.Message{})
		case r.Method == http.MethodPost && r.URL.Path == "/conversations/conv-1/messages":
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if got := r.FormValue("content"); got != "hola" {
				t.Errorf("expected content field, got %q", got)
			}
			files := r.MultipartForm.File["images"]
			if len(files) != 2 {
				t.Errorf("expected 2 image parts, got %d", len(files))
			}
			if len(files) > 0 && files[0].Header.Get("Content-Type") != "image/png" {
				t.Errorf("expected image/png part, got %q", files[0].Header.Get("Content-Type"))
			}
			json.NewEncoder(w).Encode(SendResult{
				UserMessage: domain.Message{ID: "u1", Role: domain.RoleUser},
				AIMessage:   domain.Message{ID: "a1", Role: domain.RoleAssistant, Content: "respuesta"},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	var typingStates []bool
	session := NewSession(New(server.URL, nil), nil, func(typing bool) {
		typingStates = append(typingStates, typing)
	})
	session.SetConversation("conv-1")

	// Calienta ambas cachés.
	if _, err := session.Conversations(context.Background()); err != nil {
		t.Fatalf("prime conversations: %v", err)
	}
	if _, err := session.Messages(context.Background(), "conv-1"); err != nil {
		t.Fatalf("prime messages: %v", err)
	}

	session.SetDraft("  hola  ")
	session.StageFiles(pngAttachment("a.png", 8), pngAttachment("b.png", 8))

	result, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.AIMessage.Content != "respuesta" {
		t.Fatalf("unexpected result %+v", result)
	}
	if session.Draft() != "" || len(session.Staged()) != 0 {
		t.Fatalf("expected optimistic clear of draft and staged files")
	}
	if len(typingStates) != 2 || !typingStates[0] || typingStates[1] {
		t.Fatalf("expected typing true then false, got %v", typingStates)
	}

	// Las vistas invalidadas se refetchean.
	if _, err := session.Conversations(context.Background()); err != nil {
		t.Fatalf("refetch conversations: %v", err)
	}
	if listCalls != 2 {
		t.Fatalf("expected conversations cache invalidated, got %d list calls", listCalls)
	}
}

func TestNewConversationActivatesAndInvalidatesList(t *testing.T) {
	listCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/conversations":
			listCalls++
			json.NewEncoder(w).Encode([]domain.Conversation{})
		case r.Method == http.MethodPost && r.URL.Path == "/conversations":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(domain.Conversation{ID: "conv-9", Title: "New conversation"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	session := NewSession(New(server.URL, nil), nil, nil)
	if _, err := session.Conversations(context.Background()); err != nil {
		t.Fatalf("prime conversations: %v", err)
	}

	conv, err := session.NewConversation(context.Background(), "New conversation")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if conv.Title != "New conversation" {
		t.Fatalf("unexpected conversation %+v", conv)
	}
	if session.ConversationID() != "conv-9" {
		t.Fatalf("expected new conversation active, got %q", session.ConversationID())
	}

	if _, err := session.Conversations(context.Background()); err != nil {
		t.Fatalf("refetch conversations: %v", err)
	}
	if listCalls != 2 {
		t.Fatalf("expected list cache invalidated, got %d calls", listCalls)
	}
}

func TestSubmitFailureKeepsDraftCleared(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to process message"})
	}))
	defer server.Close()

	rec := &noticeRecorder{}
	session := NewSession(New(server.URL, nil), rec.record, nil)
	session.SetConversation("conv-1")
	session.SetDraft("hola")

	if _, err := session.Submit(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(rec.notices) != 1 || rec.notices[0].Title != "Failed to send message" {
		t.Fatalf("expected failure notice, got %+v", rec.notices)
	}
	// Limpieza optimista: el borrador no se restaura tras el fallo.
	if session.Draft() != "" {
		t.Fatalf("expected draft not restored, got %q", session.Draft())
	}
}

func TestClientDecodesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "conversation not found"})
	}))
	defer server.Close()

	api := New(server.URL, nil)
	_, err := api.GetConversation(context.Background(), "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "conversation not found" {
		t.Fatalf("unexpected APIError %+v", apiErr)
	}
}
