package e2e

import (
	"chat-room/domain/event"
	"context"
	"testing"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testRoomSuite struct {
	BaseSocketSuite
}

func TestRoomSuite(t *testing.T) {
	suite.Run(t, &testRoomSuite{})
}

func (s *testRoomSuite) TestTwoClientsConversation() {
	var a, b *websocket.Conn
	var aliceID, bobID string

	s.Run("Step 1: A connects fresh", func() {
		a = s.Dial("Client A", "")
		init := s.Next(a)
		s.Require().Equal(event.TypeInit, init.Type)
		aliceID = init.Participant.ID
		s.Require().NotEmpty(aliceID)
		s.Require().Equal(event.TypeHistoryMessages, s.Next(a).Type)
		s.Require().NotZero(s.NextOf(a, event.TypeOnlineCount).Count)
	})
	defer closeIfOpen(a)

	s.Run("Step 2: B connects fresh and both see it", func() {
		b = s.Dial("Client B", "")
		init := s.Next(b)
		s.Require().Equal(event.TypeInit, init.Type)
		bobID = init.Participant.ID
		s.Require().Equal(event.TypeHistoryMessages, s.Next(b).Type)

		for {
			join := s.NextOf(a, event.TypeUserJoin)
			if join.Participant.ID == bobID {
				break
			}
		}
	})
	defer closeIfOpen(b)

	s.Run("Step 3: A says hi and both receive it", func() {
		content := "hi " + uuid.NewString()
		s.Send(a, `{"type":"message","content":"`+content+`","messageType":"TEXT"}`)

		for _, conn := range []*websocket.Conn{a, b} {
			for {
				message := s.NextOf(conn, event.TypeMessage)
				if message.Message.Content != content {
					continue
				}
				s.Require().Equal(aliceID, message.Sender.ID)
				break
			}
		}
	})
}

func (s *testRoomSuite) TestForgedIdentityIsRejected() {
	conn := s.Dial("Forged identity", uuid.NewString())
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	_, _, err := conn.Read(ctx)
	s.Require().Error(err)
	s.Require().Equal(websocket.StatusCode(event.CloseIdentityRejected), websocket.CloseStatus(err))
}

func (s *testRoomSuite) TestReconnectKeepsIdentity() {
	first := s.Dial("First visit", "")
	participant := s.Next(first).Participant
	_ = first.Close(websocket.StatusNormalClosure, "")

	again := s.Dial("Second visit", participant.ID)
	defer again.CloseNow()
	back := s.Next(again).Participant
	s.Require().Equal(participant.ID, back.ID)
	s.Require().Equal(participant.DisplayName, back.DisplayName)
}

func closeIfOpen(conn *websocket.Conn) {
	if conn != nil {
		_ = conn.CloseNow()
	}
}
