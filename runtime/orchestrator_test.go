package runtime

import (
	"chat-room/errors"
	"chat-room/mocks"
	"chat-room/observability"
	"chat-room/runtime/workers"
	"chat-room/sink"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestOrchestrator_Relays_Broadcasts_And_Samples_Queues(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := prometheus.NewRegistry()

	published := make(chan string, 8)
	publisher.EXPECT().
		Publish("chat.room.events", gomock.Any()).
		DoAndReturn(func(_ string, data []byte) error {
			var frame struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(data, &frame); err != nil {
				return err
			}
			published <- frame.Type
			return nil
		}).
		AnyTimes()

	// Given an orchestrator with a relay and queue sampling enabled
	config := testConfig()
	config.MetricInterval = 5 * time.Millisecond
	orchestrator := NewOrchestrator(log, workers.NewSupervisor(log, 10*time.Millisecond), openStore(t),
		observability.NewMetrics(registry), config, WithRelay(publisher, "chat.room.events"))
	req.NoError(orchestrator.Start(context.Background()))
	t.Cleanup(orchestrator.Stop)

	// When a participant joins
	conn := sink.NewConnectionSink("conn-1", log, 16)
	_, err := orchestrator.Room().Connect(context.Background(), conn, "")
	req.NoError(err)

	// Then the join and the online count reach the publisher in order
	var types []string
	for len(types) < 2 {
		select {
		case typ := <-published:
			types = append(types, typ)
		case <-time.After(waitForEnvelope):
			req.Failf("relay stalled", "received %v", types)
		}
	}
	req.Equal([]string{"user_join", "online_count"}, types)

	// And both queues expose their capacity
	expected := `
# HELP chat_queue_capacity Capacity of an internal queue.
# TYPE chat_queue_capacity gauge
chat_queue_capacity{queue="relay_events"} 64
chat_queue_capacity{queue="room_commands"} 64
`
	req.Eventually(func() bool {
		return testutil.GatherAndCompare(registry, strings.NewReader(expected), "chat_queue_capacity") == nil
	}, time.Second, 5*time.Millisecond)
}

func TestOrchestrator_Stop_Without_Start(t *testing.T) {
	log := slog.Default()
	orchestrator := NewOrchestrator(log, workers.NewSupervisor(log, 0), openStore(t), nil, testConfig())

	require.NotPanics(t, orchestrator.Stop)
}

func TestOrchestrator_Stopped_Room_Refuses_Commands(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	orchestrator := NewOrchestrator(log, workers.NewSupervisor(log, 0), openStore(t), nil, testConfig())
	req.NoError(orchestrator.Start(context.Background()))
	orchestrator.Stop()

	// A late disconnect returns at once instead of waiting for a room that is gone
	conn := sink.NewConnectionSink("late", log, 1)
	req.ErrorIs(orchestrator.Room().Disconnect(context.Background(), conn), errors.ErrRoomClosed)
	_, err := orchestrator.Room().Connect(context.Background(), conn, "")
	req.ErrorIs(err, errors.ErrRoomClosed)
}
