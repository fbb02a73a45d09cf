package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"chat-llm/internal/client"
	"chat-llm/internal/domain"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	baseURL := os.Getenv("CHAT_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	api := client.New(baseURL, nil)
	session := client.NewSession(api,
		func(n client.Notice) { fmt.Printf("[!] %s: %s\n", n.Title, n.Detail) },
		func(typing bool) {
			if typing {
				fmt.Println("... thinking ...")
			}
		},
	)

	for {
		fmt.Println("===== Chat =====")
		conversations, err := session.Conversations(ctx)
		if err != nil {
			fmt.Printf("error listing conversations: %v\n", err)
			os.Exit(1)
		}

		if len(conversations) == 0 {
			fmt.Println("No conversations yet.")
		} else {
			fmt.Println("Conversations (most recent first):")
			for i, conv := range conversations {
				fmt.Printf("[%d] %s\n", i+1, conv.Title)
			}
		}
		fmt.Println("[N] New conversation")
		fmt.Println("[Q] Quit")
		fmt.Print("Select: ")

		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		switch {
		case strings.EqualFold(choice, "Q"):
			os.Exit(0)
		case strings.EqualFold(choice, "N"):
			conv, err := session.NewConversation(ctx, "New conversation")
			if err != nil {
				fmt.Printf("error creating conversation: %v\n", err)
				continue
			}
			fmt.Printf("Started %q.\n", conv.Title)
			chatLoop(ctx, reader, session)
		default:
			idx, err := strconv.Atoi(choice)
			if err != nil || idx < 1 || idx > len(conversations) {
				fmt.Println("Invalid selection.")
				continue
			}
			session.SetConversation(conversations[idx-1].ID)
			printHistory(ctx, session, conversations[idx-1].ID)
			chatLoop(ctx, reader, session)
		}
	}
}

func printHistory(ctx context.Context, session *client.Session, conversationID string) {
	messages, err := session.Messages(ctx, conversationID)
	if err != nil {
		fmt.Printf("error loading history: %v\n", err)
		return
	}
	for _, msg := range messages {
		printMessage(msg)
	}
}

func printMessage(msg domain.Message) {
	who := "You"
	if msg.Role == domain.RoleAssistant {
		who = "AI"
	}
	fmt.Printf("%s > %s\n", who, msg.Content)
}

func chatLoop(ctx context.Context, reader *bufio.Reader, session *client.Session) {
	fmt.Println("---- Chat mode ('/attach <path>' stages a file, 'exit' leaves) ----")
	for {
		fmt.Print("You > ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
			return
		case strings.HasPrefix(line, "/attach "):
			attachFile(session, strings.TrimSpace(strings.TrimPrefix(line, "/attach ")))
			continue
		}

		session.SetDraft(line)
		result, err := session.Submit(ctx)
		if err != nil {
			// La Notice ya avisó; el borrador no se restaura.
			continue
		}
		printMessage(result.AIMessage)
	}
}

func attachFile(session *client.Session, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("error reading %s: %v\n", path, err)
		return
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	session.StageFiles(domain.Attachment{
		Filename: filepath.Base(path),
		MimeType: mimeType,
		Data:     data,
	})
	fmt.Printf("staged %d file(s)\n", len(session.Staged()))
}
