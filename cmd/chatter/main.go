package main

import (
	"bufio"
	"chat-room/client"
	"chat-room/domain"
	"chat-room/domain/event"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the terminal client.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerURL    string `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:8080/ws"`
	IdentityFile string `envconfig:"CHAT_IDENTITY_FILE" default:".chatter/identity"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the room, prints every envelope and posts each stdin line as a text message.
func run() (int, error) {
	// 1. Configuration
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connector
	var connector *client.Connector
	connector = client.NewConnector(log, config.ServerURL, client.NewFileIdentityStore(config.IdentityFile),
		client.OnState(func(s client.State) { color.Gray.Printf("-- %s\n", s) }),
		client.OnEnvelope(func(in client.Inbound) { render(in, connector.Participant()) }),
	)

	done := make(chan error, 1)
	go func() { done <- connector.Run(ctx) }()

	// 4. Stdin loop
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := connector.Send(sendCtx, domain.KindText, line, nil); err != nil {
				color.Red.Printf("!! not sent: %v\n", err)
			}
			cancel()
		}
		stop()
	}()

	if err := <-done; err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

func render(in client.Inbound, me domain.Participant) {
	switch in.Type {
	case event.TypeInit:
		color.Green.Printf("Connected as %s\n", in.Participant.DisplayName)
	case event.TypeHistoryMessages:
		for _, m := range in.Messages {
			printMessage(m.Message, m.Sender, me)
		}
	case event.TypeMessage:
		printMessage(in.Message, in.Sender, me)
	case event.TypeUserJoin:
		color.Cyan.Printf("+ %s joined\n", in.Participant.DisplayName)
	case event.TypeUserLeave:
		color.Cyan.Printf("- %s left\n", in.Participant.DisplayName)
	case event.TypeOnlineCount:
		color.Gray.Printf("(%d online)\n", in.Count)
	}
}

func printMessage(m domain.Message, sender domain.Sender, me domain.Participant) {
	name := color.Yellow.Sprint(sender.Name)
	if sender.ID == me.ID {
		name = color.Magenta.Sprint("you")
	}
	content := m.Content
	if m.Kind.IsMedia() {
		content = fmt.Sprintf("[%s] %s", strings.ToLower(string(m.Kind)), m.Content)
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.TimeOnly), name, content)
}
