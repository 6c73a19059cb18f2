package main

import (
	"chat-room/infrastructure/rest"
	"chat-room/infrastructure/websocket/server"
	"chat-room/media"
	"chat-room/moderation"
	"chat-room/observability"
	"chat-room/repositories"
	"chat-room/runtime"
	"chat-room/runtime/workers"
	"chat-room/services"
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run keeps every resource behind a defer so that a failed start still closes what was opened.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Message store (SQLite), migrated before anything is accepted
	store, err := repositories.OpenMessageRepository(ctx, config.SqliteFilepath, log)
	if err != nil {
		return fmt.Errorf("message store opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing SQLite...")
		_ = store.Close()
	}()

	// 4. Media store (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("media store opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 5. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// 6. Optional moderation and relay
	var options []runtime.Option
	if config.ModerationEnabled {
		moderator, err := moderation.NewDefaultModerator(config.ReplacementRune(), log)
		if err != nil {
			return fmt.Errorf("moderation setup failed: %w", err)
		}
		options = append(options, runtime.WithCensor(moderator))
	}
	if config.NatsURL != "" {
		nc, err := connectNats(config.NatsURL)
		if err != nil {
			return fmt.Errorf("NATS connection failed: %w", err)
		}
		defer func() {
			log.Info("Draining NATS...")
			_ = nc.Drain()
		}()
		options = append(options, runtime.WithRelay(nc, config.NatsSubject))
	}

	// 7. Room
	supervisor := workers.NewSupervisor(log, config.RestartInterval).WithMetrics(metrics)
	orchestrator := runtime.NewOrchestrator(log, supervisor, store, metrics, runtime.Config{
		HistoryLimit:   config.HistoryLimit,
		BufferSize:     config.BufferSize,
		SinkTimeout:    config.SinkTimeout,
		MetricInterval: config.MetricInterval,
	}, options...)
	if err := orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}
	defer orchestrator.Stop()

	// 8. HTTP surface
	chatService := services.NewChatService(log, orchestrator.Room(), metrics)
	chatServer := server.NewChatServer(log, chatService, metrics, server.Config{
		ConnectionBufferSize: config.ConnectionBufferSize,
		WriteTimeout:         config.WriteTimeout,
		PingInterval:         config.PingInterval,
		LeaveTimeout:         config.LeaveTimeout,
		MaxMessageBytes:      config.MaxMessageBytes,
		MessageRate:          config.MessageRate,
		MessageBurst:         config.MessageBurst,
		OriginPatterns:       config.OriginPatterns(),
	})
	mediaService := media.NewService(log, repositories.NewMediaRepository(db, log), config.PublicBaseURL, config.MaxUploadBytes)
	router := rest.NewRouter(log, chatServer, rest.NewMediaHandler(log, mediaService, config.MaxUploadBytes), chatService, registry)

	address := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	httpServer := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup, the deferred closes run in reverse order
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

func connectNats(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.Name("chat-room"),
	)
}
