package repositories

import (
	"chat-room/domain"
	"chat-room/errors"
	"context"
	"database/sql"
	goerrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// CreateParticipant inserts a new participant with a freshly generated id.
func (m *MessageRepository) CreateParticipant(ctx context.Context, displayName string) (domain.Participant, error) {
	participant := domain.Participant{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`,
		participant.ID, participant.DisplayName, toMillis(participant.CreatedAt),
	)
	if err != nil {
		return domain.Participant{}, storageFailure("create participant", err)
	}
	return participant, nil
}

// FindParticipant returns errors.ErrParticipantNotFound when id is unknown.
func (m *MessageRepository) FindParticipant(ctx context.Context, id string) (domain.Participant, error) {
	var (
		participant domain.Participant
		createdAt   int64
	)
	err := m.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE id = ?`, id,
	).Scan(&participant.ID, &participant.DisplayName, &createdAt)
	if goerrors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, errors.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, storageFailure("find participant", err)
	}
	participant.CreatedAt = fromMillis(createdAt)
	return participant, nil
}

// FindParticipants resolves a batch of ids in a single query.
// Unknown ids are simply absent from the result.
func (m *MessageRepository) FindParticipants(ctx context.Context, ids []string) (map[string]domain.Participant, error) {
	ids = lo.Uniq(lo.Compact(ids))
	result := make(map[string]domain.Participant, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM users WHERE id IN (`+placeholders(len(ids))+`)`,
		toArgs(ids)...,
	)
	if err != nil {
		return nil, storageFailure("find participants", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			participant domain.Participant
			createdAt   int64
		)
		if err = rows.Scan(&participant.ID, &participant.DisplayName, &createdAt); err != nil {
			return nil, storageFailure("scan participant", err)
		}
		participant.CreatedAt = fromMillis(createdAt)
		result[participant.ID] = participant
	}
	if err = rows.Err(); err != nil {
		return nil, storageFailure("iterate participants", err)
	}
	return result, nil
}
