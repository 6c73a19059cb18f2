package main

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	SqliteFilepath       string        `env:"SQLITE_FILEPATH,default=data/chat.db"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,default=data/media"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=50"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=20s"`
	LeaveTimeout         time.Duration `env:"LEAVE_TIMEOUT,default=5s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	MaxMessageBytes      int64         `env:"MAX_MESSAGE_BYTES,default=32768"`
	MessageRate          float64       `env:"MESSAGE_RATE,default=5"`
	MessageBurst         int           `env:"MESSAGE_BURST,default=10"`
	ModerationEnabled    bool          `env:"MODERATION_ENABLED,default=false"`
	CharacterReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	NatsURL              string        `env:"NATS_URL"`
	NatsSubject          string        `env:"NATS_SUBJECT,default=chat.room.events"`
	PublicBaseURL        string        `env:"PUBLIC_BASE_URL,default=http://localhost:8080"`
	MaxUploadBytes       int64         `env:"MAX_UPLOAD_BYTES,default=10485760"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`
}

// ReplacementRune is the first rune of CHARACTER_REPLACEMENT, '*' when empty.
func (c Config) ReplacementRune() rune {
	r, _ := utf8.DecodeRuneInString(c.CharacterReplacement)
	if r == utf8.RuneError {
		return '*'
	}
	return r
}

// OriginPatterns splits ALLOWED_ORIGINS; empty means same origin only.
func (c Config) OriginPatterns() []string {
	var patterns []string
	for _, pattern := range strings.Split(c.AllowedOrigins, ",") {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}
	return patterns
}
