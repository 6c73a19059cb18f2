package repositories

import (
	"chat-room/domain"
	"chat-room/errors"
	"chat-room/repositories/migrations"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit is the page size used when a caller asks for a non-positive limit.
const DefaultHistoryLimit = 50

// MessageRepository is the append-only message log and participant table, backed by SQLite.
// Appends are serialized so that created_at never goes backwards.
type MessageRepository struct {
	db            *sql.DB
	log           *slog.Logger
	mu            sync.Mutex
	lastCreatedAt time.Time
	now           func() time.Time
}

// OpenMessageRepository opens the SQLite file at path and applies the embedded migrations.
// It blocks until the schema is ready.
func OpenMessageRepository(ctx context.Context, path string, log *slog.Logger) (*MessageRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err = applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repository := &MessageRepository{db: db, log: log, now: time.Now}
	var last sql.NullInt64
	if err = db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM messages`).Scan(&last); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read last message timestamp: %w", err)
	}
	if last.Valid {
		repository.lastCreatedAt = fromMillis(last.Int64)
	}
	return repository, nil
}

func (m *MessageRepository) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Append stores a message and returns it with its server-assigned id and timestamp.
// Errors are wrapped in errors.ErrStorageFailure and are never retried here.
func (m *MessageRepository) Append(ctx context.Context, draft domain.Draft) (domain.Message, error) {
	if !draft.Kind.IsValid() {
		return domain.Message{}, fmt.Errorf("%w: unknown message type %q", errors.ErrMalformedMessage, draft.Kind)
	}
	metadata := draft.Metadata.ForKind(draft.Kind)
	var metadataJSON sql.NullString
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			return domain.Message{}, storageFailure("encode metadata", err)
		}
		metadataJSON = sql.NullString{String: string(bytes), Valid: true}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	message := domain.Message{
		ID:        uuid.NewString(),
		SenderID:  draft.SenderID,
		Kind:      draft.Kind,
		Content:   draft.Content,
		Metadata:  metadata,
		CreatedAt: m.nextTimestamp(),
	}
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, message_type, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		message.ID,
		message.SenderID,
		string(message.Kind),
		message.Content,
		metadataJSON,
		toMillis(message.CreatedAt),
	)
	if err != nil {
		return domain.Message{}, storageFailure("append message", err)
	}
	m.lastCreatedAt = message.CreatedAt
	return message, nil
}

// nextTimestamp never returns a time before the previous accepted append, even if the clock steps back.
func (m *MessageRepository) nextTimestamp() time.Time {
	now := m.now().UTC().Truncate(time.Millisecond)
	if now.Before(m.lastCreatedAt) {
		return m.lastCreatedAt
	}
	return now
}

// RecentMessages returns the last limit messages, oldest first.
// Ties on created_at are broken by insertion order.
func (m *MessageRepository) RecentMessages(ctx context.Context, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, user_id, message_type, content, metadata, created_at
		 FROM messages
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, storageFailure("query recent messages", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0, limit)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, storageFailure("scan message", err)
		}
		messages = append(messages, message)
	}
	if err = rows.Err(); err != nil {
		return nil, storageFailure("iterate messages", err)
	}
	slices.Reverse(messages)
	return messages, nil
}

func scanMessage(rows *sql.Rows) (domain.Message, error) {
	var (
		message   domain.Message
		kind      string
		metadata  sql.NullString
		createdAt int64
	)
	if err := rows.Scan(&message.ID, &message.SenderID, &kind, &message.Content, &metadata, &createdAt); err != nil {
		return domain.Message{}, err
	}
	message.Kind = domain.Kind(kind)
	message.CreatedAt = fromMillis(createdAt)
	if metadata.Valid && metadata.String != "" {
		var decoded domain.Metadata
		if err := json.Unmarshal([]byte(metadata.String), &decoded); err != nil {
			return domain.Message{}, fmt.Errorf("decode metadata of %s: %w", message.ID, err)
		}
		message.Metadata = &decoded
	}
	return message, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ids []string) []any {
	return lo.Map(ids, func(id string, _ int) any { return id })
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", errors.ErrStorageFailure, op, err)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
