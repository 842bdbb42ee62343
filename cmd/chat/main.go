package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"ontology-chat/internal/config"
	"ontology-chat/pkg/client"
)

// Terminal chat client. Bootstraps a session, opens the push channel, and
// loops over stdin commands:
//
//	/upload <file.pdf>   build an ontology from a document
//	/mode <default|new>  switch grounding between the shared and own ontology
//	/reset               start a fresh session
//	/history             print the transcript
//	/quit                exit
//
// Anything else is sent as a chat message.
func main() {
	cfg := config.Load()

	rest, err := client.NewRestClient(cfg.Client.ServerURL)
	if err != nil {
		log.Fatalf("failed to build rest client: %v", err)
	}
	channel := client.NewChannel(client.WebsocketURL(cfg.Client.ServerURL), rest.HTTPClient().Jar)
	orch := client.NewOrchestrator(rest, channel, client.NewStore())
	defer orch.Teardown()

	assistant := color.New(color.FgCyan)
	system := color.New(color.FgYellow)
	errc := color.New(color.FgRed)

	orch.On(client.EventNewMessage, func(payload json.RawMessage) {
		var msg struct {
			Role string `json:"role"`
			Text string `json:"text"`
		}
		if json.Unmarshal(payload, &msg) != nil || msg.Role != "assistant" {
			return
		}
		assistant.Printf("assistant> %s\n", msg.Text)
	})
	orch.On(client.EventOntologyProgress, func(payload json.RawMessage) {
		var p client.OntologyProgress
		if json.Unmarshal(payload, &p) == nil {
			system.Printf("building ontology: %s (%d%%)\n", p.Stage, p.Percent)
		}
	})
	orch.On(client.EventOntologyComplete, func(json.RawMessage) {
		system.Println("ontology ready, switch with /mode new")
	})
	orch.On(client.EventOntologyError, func(payload json.RawMessage) {
		errc.Printf("ontology build failed: %s\n", errorText(payload))
	})
	orch.On(client.EventChatError, func(payload json.RawMessage) {
		errc.Printf("chat error: %s\n", errorText(payload))
	})

	ctx := context.Background()
	session, err := orch.Initialize(ctx)
	if err != nil {
		log.Fatalf("failed to initialize session: %v", err)
	}
	system.Printf("session %s\n", session.ID)

	mode := client.ModeDefaultOntology
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case line == "/reset":
			session, err = orch.ResetAndRebind(ctx)
			if err != nil {
				errc.Printf("reset failed: %v\n", err)
				continue
			}
			mode = client.ModeDefaultOntology
			system.Printf("new session %s\n", session.ID)
		case line == "/history":
			printHistory(ctx, orch, assistant)
		case strings.HasPrefix(line, "/mode "):
			switch strings.TrimPrefix(line, "/mode ") {
			case "new":
				mode = client.ModeNewOntology
			case "default":
				mode = client.ModeDefaultOntology
			default:
				errc.Println("unknown mode, use default or new")
				continue
			}
			system.Printf("mode: %s\n", mode)
		case strings.HasPrefix(line, "/upload "):
			upload(ctx, orch, strings.TrimPrefix(line, "/upload "), system, errc)
		default:
			if err := orch.SendChatMessage(line, mode); err != nil {
				errc.Printf("send failed: %v\n", err)
			}
		}
	}
}

func upload(ctx context.Context, orch *client.Orchestrator, path string, system, errc *color.Color) {
	f, err := os.Open(path)
	if err != nil {
		errc.Printf("cannot open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	result, err := orch.UploadDocument(uploadCtx, filepath.Base(path), f)
	if err != nil {
		errc.Printf("upload failed: %v\n", err)
		return
	}
	system.Printf("upload accepted, job %s\n", result.JobID)
}

func printHistory(ctx context.Context, orch *client.Orchestrator, assistant *color.Color) {
	history, err := orch.ChatHistory(ctx)
	if err != nil {
		color.Red("history failed: %v", err)
		return
	}
	for _, msg := range history {
		if msg.Role == "assistant" {
			assistant.Printf("assistant> %s\n", msg.Text)
		} else {
			fmt.Printf("you> %s\n", msg.Text)
		}
	}
}

func errorText(payload json.RawMessage) string {
	var p struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(payload, &p) == nil && p.Error != "" {
		return p.Error
	}
	return string(payload)
}
