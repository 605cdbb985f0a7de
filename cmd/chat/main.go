package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"rag-chat-be/pkg/chatclient"

	"github.com/fatih/color"
)

func main() {
	endpoint := flag.String("url", "http://localhost:3000/api/chat", "chat endpoint")
	token := flag.String("token", os.Getenv("CHAT_TOKEN"), "bearer token when the server has JWT_SECRET set")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	assistant := color.New(color.FgCyan)
	var (
		printedId string
		printed   int
	)

	opts := []chatclient.Option{
		chatclient.WithOnUpdate(func(s chatclient.Snapshot) {
			if len(s.Messages) == 0 {
				return
			}
			last := s.Messages[len(s.Messages)-1]
			if last.Role != chatclient.RoleAssistant {
				return
			}
			if last.Id != printedId {
				if printed > 0 {
					fmt.Println()
				}
				printedId, printed = last.Id, 0
			}
			if len(last.Content) <= printed {
				return
			}
			assistant.Print(last.Content[printed:])
			printed = len(last.Content)
		}),
	}
	if *token != "" {
		opts = append(opts, chatclient.WithHeader("Authorization", "Bearer "+*token))
	}
	session := chatclient.NewSession(*endpoint, opts...)

	color.Cyan("Connected to %s. Type a message, or /quit.", *endpoint)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		color.New(color.FgGreen, color.Bold).Print("> ")
		if !scanner.Scan() {
			return
		}
		input := scanner.Text()
		if strings.TrimSpace(input) == "/quit" {
			return
		}

		printedId, printed = "", 0
		err := session.Submit(ctx, input)
		fmt.Println()
		switch {
		case errors.Is(err, chatclient.ErrEmptyInput):
			continue
		case err != nil:
			color.New(color.FgRed, color.Faint).Printf("(%v)\n", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
