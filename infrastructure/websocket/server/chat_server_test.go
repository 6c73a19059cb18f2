package server

import (
	"chat-room/domain"
	"chat-room/domain/event"
	"chat-room/repositories"
	"chat-room/runtime"
	"chat-room/runtime/workers"
	"chat-room/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Type        event.Type          `json:"type"`
	Participant domain.Participant  `json:"participant"`
	Messages    []event.ChatMessage `json:"messages"`
	Message     domain.Message      `json:"message"`
	Sender      domain.Sender       `json:"sender"`
	Count       int                 `json:"count"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	store, err := repositories.OpenMessageRepository(ctx, filepath.Join(t.TempDir(), "chat.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 0), store, nil,
		runtime.Config{HistoryLimit: 50, BufferSize: 16, SinkTimeout: time.Second})
	require.NoError(t, orchestrator.Start(ctx))
	t.Cleanup(orchestrator.Stop)

	chatServer := NewChatServer(log, services.NewChatService(log, orchestrator.Room(), nil), nil, Config{
		ConnectionBufferSize: 32,
		PingInterval:         time.Minute,
		MaxMessageBytes:      16 << 10,
	})
	srv := httptest.NewServer(chatServer)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, participantID string) *websocket.Conn {
	t.Helper()
	target := "ws" + strings.TrimPrefix(srv.URL, "http")
	if participantID != "" {
		target += "?" + event.IdentityQueryParam + "=" + url.QueryEscape(participantID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, target, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var e envelope
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func send(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(payload)))
}

func TestChatServer_Two_Clients_Scenario(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	// Given client A connects fresh
	a := dial(t, srv, "")
	init := read(t, a)
	req.Equal(event.TypeInit, init.Type)
	alice := init.Participant
	req.NotEmpty(alice.ID)
	history := read(t, a)
	req.Equal(event.TypeHistoryMessages, history.Type)
	req.Empty(history.Messages)
	req.Equal(event.TypeUserJoin, read(t, a).Type)
	count := read(t, a)
	req.Equal(event.TypeOnlineCount, count.Type)
	req.Equal(1, count.Count)

	// When client B connects fresh
	b := dial(t, srv, "")
	bob := read(t, b).Participant
	req.Empty(read(t, b).Messages)

	// Then both see B join and two people online
	for _, conn := range []*websocket.Conn{a, b} {
		join := read(t, conn)
		req.Equal(event.TypeUserJoin, join.Type)
		req.Equal(bob.ID, join.Participant.ID)
		online := read(t, conn)
		req.Equal(event.TypeOnlineCount, online.Type)
		req.Equal(2, online.Count)
	}

	// When A says hi
	send(t, a, `{"type":"message","content":"hi","messageType":"TEXT"}`)

	// Then both receive it from A
	for _, conn := range []*websocket.Conn{a, b} {
		message := read(t, conn)
		req.Equal(event.TypeMessage, message.Type)
		req.Equal(alice.ID, message.Sender.ID)
		req.Equal(alice.DisplayName, message.Sender.Name)
		req.Equal("hi", message.Message.Content)
		req.Equal(domain.KindText, message.Message.Kind)
	}

	// When B closes its socket
	req.NoError(b.Close(websocket.StatusNormalClosure, "bye"))

	// Then A sees B leave
	leave := read(t, a)
	req.Equal(event.TypeUserLeave, leave.Type)
	req.Equal(bob.ID, leave.Participant.ID)
	req.Equal(1, read(t, a).Count)
}

func TestChatServer_Malformed_Payload_Keeps_Connection_Open(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)
	a := dial(t, srv, "")
	for i := 0; i < 4; i++ {
		read(t, a)
	}

	// When garbage and then a valid message are sent
	send(t, a, `not json at all`)
	send(t, a, `{"type":"message","content":"","messageType":"TEXT"}`)
	send(t, a, `{"type":"message","content":"still here","messageType":"TEXT"}`)

	// Then only the valid one is broadcast
	message := read(t, a)
	req.Equal(event.TypeMessage, message.Type)
	req.Equal("still here", message.Message.Content)
}

func TestChatServer_Reconnect_Keeps_Identity(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	first := dial(t, srv, "")
	alice := read(t, first).Participant
	req.NoError(first.Close(websocket.StatusNormalClosure, ""))

	// When reconnecting with the issued token
	again := dial(t, srv, alice.ID)

	// Then the same participant comes back
	participant := read(t, again).Participant
	req.Equal(alice.ID, participant.ID)
	req.Equal(alice.DisplayName, participant.DisplayName)
}

func TestChatServer_Unknown_Identity_Closes_With_Rejection_Code(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	// When a fabricated token is presented
	conn := dial(t, srv, "00000000-0000-0000-0000-000000000000")

	// Then the socket is closed with the identity rejection code and no envelope
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	req.Error(err)
	req.Equal(websocket.StatusCode(event.CloseIdentityRejected), websocket.CloseStatus(err))
}
