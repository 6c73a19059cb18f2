package e2e

import (
	"chat-room/domain"
	"chat-room/domain/event"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

const frameTimeout = 5 * time.Second

// Frame is any server envelope; only the fields of its Type are set.
type Frame struct {
	Type        event.Type          `json:"type"`
	Participant domain.Participant  `json:"participant"`
	Messages    []event.ChatMessage `json:"messages"`
	Message     domain.Message      `json:"message"`
	Sender      domain.Sender       `json:"sender"`
	Count       int                 `json:"count"`
}

type BaseSocketSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSocketSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ChatAddr == "" {
		s.T().Skip("CHAT_E2E_ADDR not set")
	}
}

// Dial opens a socket on the room, presenting participantID when not empty.
func (s *BaseSocketSuite) Dial(name, participantID string) *websocket.Conn {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	target := url.URL{Scheme: "ws", Host: s.Config.ChatAddr, Path: "/ws"}
	if participantID != "" {
		target.RawQuery = url.Values{event.IdentityQueryParam: {participantID}}.Encode()
	}
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, target.String(), nil)
	s.Require().NoError(err, "Failed to connect to "+target.String())
	return conn
}

// Next reads one frame, failing the test after frameTimeout.
func (s *BaseSocketSuite) Next(conn *websocket.Conn) Frame {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	_, data, err := conn.Read(ctx)
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		s.T().Logf("FRAME: %s", data)
	}
	var frame Frame
	s.Require().NoError(json.Unmarshal(data, &frame))
	return frame
}

// NextOf skips frames until one of type t arrives.
// Other clients of a shared server may cause unrelated presence traffic.
func (s *BaseSocketSuite) NextOf(conn *websocket.Conn, t event.Type) Frame {
	for {
		if frame := s.Next(conn); frame.Type == t {
			return frame
		}
	}
}

func (s *BaseSocketSuite) Send(conn *websocket.Conn, payload string) {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	s.Require().NoError(conn.Write(ctx, websocket.MessageText, []byte(payload)))
}
