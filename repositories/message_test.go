package repositories

import (
	"chat-room/domain"
	"chat-room/errors"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openTestRepository(t *testing.T, path string) *MessageRepository {
	t.Helper()
	repository, err := OpenMessageRepository(context.Background(), path,
		logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func newTestRepository(t *testing.T) *MessageRepository {
	return openTestRepository(t, filepath.Join(t.TempDir(), "chat.db"))
}

func Test_Append_Then_Recent_Round_Trip(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := newTestRepository(t)
	alice, err := repository.CreateParticipant(ctx, "Brave Otter")
	req.NoError(err)

	// Given an image message with metadata
	draft := domain.Draft{
		SenderID: alice.ID,
		Kind:     domain.KindImage,
		Content:  "http://localhost:8080/media/abc.png",
		Metadata: &domain.Metadata{Width: 640, Height: 480, MimeType: "image/png", FileSize: 2048},
	}

	// When it is appended
	stored, err := repository.Append(ctx, draft)
	req.NoError(err)

	// Then the server assigned an id and a timestamp
	req.NotEmpty(stored.ID)
	req.False(stored.CreatedAt.IsZero())

	// And reading the last message gives back the same fields
	recent, err := repository.RecentMessages(ctx, 1)
	req.NoError(err)
	req.Len(recent, 1)
	req.Equal(stored, recent[0])
	req.Equal(draft.SenderID, recent[0].SenderID)
	req.Equal(draft.Kind, recent[0].Kind)
	req.Equal(draft.Content, recent[0].Content)
	req.Equal(draft.Metadata, recent[0].Metadata)
}

func Test_Recent_Messages_Chronological_And_Limited(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := newTestRepository(t)
	alice, err := repository.CreateParticipant(ctx, "Calm Fox")
	req.NoError(err)

	for i := 0; i < 60; i++ {
		_, err = repository.Append(ctx, domain.Draft{SenderID: alice.ID, Kind: domain.KindText, Content: fmt.Sprintf("message %d", i)})
		req.NoError(err)
	}

	// When the default page is requested
	recent, err := repository.RecentMessages(ctx, 0)
	req.NoError(err)

	// Then exactly the last 50 are returned, oldest first
	req.Len(recent, DefaultHistoryLimit)
	req.Equal("message 10", recent[0].Content)
	req.Equal("message 59", recent[49].Content)
	for i := 1; i < len(recent); i++ {
		req.False(recent[i].CreatedAt.Before(recent[i-1].CreatedAt))
	}
}

func Test_Append_Timestamps_Never_Go_Backwards(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := newTestRepository(t)
	alice, err := repository.CreateParticipant(ctx, "Quick Owl")
	req.NoError(err)

	// Given a clock that steps back between two appends
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{at, at.Add(-time.Hour)}
	repository.now = func() time.Time {
		next := clock[0]
		clock = clock[1:]
		return next
	}

	first, err := repository.Append(ctx, domain.Draft{SenderID: alice.ID, Kind: domain.KindText, Content: "first"})
	req.NoError(err)
	second, err := repository.Append(ctx, domain.Draft{SenderID: alice.ID, Kind: domain.KindText, Content: "second"})
	req.NoError(err)

	// Then the second timestamp is not before the first
	req.Equal(first.CreatedAt, second.CreatedAt)

	// And insertion order breaks the tie
	recent, err := repository.RecentMessages(ctx, 2)
	req.NoError(err)
	req.Equal("first", recent[0].Content)
	req.Equal("second", recent[1].Content)
}

func Test_Append_Text_Drops_Metadata(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := newTestRepository(t)
	alice, err := repository.CreateParticipant(ctx, "Silly Yak")
	req.NoError(err)

	stored, err := repository.Append(ctx, domain.Draft{
		SenderID: alice.ID, Kind: domain.KindText, Content: "hi",
		Metadata: &domain.Metadata{Width: 3},
	})
	req.NoError(err)
	req.Nil(stored.Metadata)

	recent, err := repository.RecentMessages(ctx, 1)
	req.NoError(err)
	req.Nil(recent[0].Metadata)
}

func Test_Append_Unknown_Kind_Is_Rejected(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)

	_, err := repository.Append(context.Background(), domain.Draft{SenderID: "x", Kind: "VIDEO", Content: "hi"})
	req.ErrorIs(err, errors.ErrMalformedMessage)
}

func Test_Append_After_Close_Is_A_Storage_Failure(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t)
	req.NoError(repository.Close())

	_, err := repository.Append(context.Background(), domain.Draft{SenderID: "x", Kind: domain.KindText, Content: "hi"})
	req.ErrorIs(err, errors.ErrStorageFailure)
}

func Test_Connection_Pragmas_Are_Applied(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := newTestRepository(t)

	var foreignKeys, busyTimeout int
	var journalMode string
	req.NoError(repository.db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&foreignKeys))
	req.NoError(repository.db.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&busyTimeout))
	req.NoError(repository.db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&journalMode))

	req.Equal(1, foreignKeys)
	req.Equal(5000, busyTimeout)
	req.Equal("wal", journalMode)
}

func Test_Append_With_Unknown_Sender_Is_A_Storage_Failure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := newTestRepository(t)

	// Given nobody was ever created under this id
	_, err := repository.Append(ctx, domain.Draft{SenderID: "ghost", Kind: domain.KindText, Content: "hi"})

	// Then the users reference is enforced and nothing is stored
	req.ErrorIs(err, errors.ErrStorageFailure)
	recent, err := repository.RecentMessages(ctx, 10)
	req.NoError(err)
	req.Empty(recent)
}

func Test_Participants_Find_And_Batch(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := newTestRepository(t)

	alice, err := repository.CreateParticipant(ctx, "Brave Otter")
	req.NoError(err)
	bob, err := repository.CreateParticipant(ctx, "Calm Fox")
	req.NoError(err)

	// Single lookup
	found, err := repository.FindParticipant(ctx, alice.ID)
	req.NoError(err)
	req.Equal(alice, found)

	// Unknown id
	_, err = repository.FindParticipant(ctx, "ghost")
	req.ErrorIs(err, errors.ErrParticipantNotFound)

	// Batch lookup ignores duplicates and unknown ids
	batch, err := repository.FindParticipants(ctx, []string{alice.ID, bob.ID, alice.ID, "ghost"})
	req.NoError(err)
	req.Len(batch, 2)
	req.Equal(alice, batch[alice.ID])
	req.Equal(bob, batch[bob.ID])

	empty, err := repository.FindParticipants(ctx, nil)
	req.NoError(err)
	req.Empty(empty)
}

func Test_Reopen_Keeps_Data_And_Ordering(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")

	// Given a store with one message
	first, err := OpenMessageRepository(ctx, path, slog.Default())
	req.NoError(err)
	alice, err := first.CreateParticipant(ctx, "Gentle Seal")
	req.NoError(err)
	stored, err := first.Append(ctx, domain.Draft{SenderID: alice.ID, Kind: domain.KindText, Content: "before restart"})
	req.NoError(err)
	req.NoError(first.Close())

	// When it is reopened, migrations run again without harm
	second := openTestRepository(t, path)

	// Then the participant and the message are still there
	found, err := second.FindParticipant(ctx, alice.ID)
	req.NoError(err)
	req.Equal(alice, found)
	recent, err := second.RecentMessages(ctx, 10)
	req.NoError(err)
	req.Equal([]domain.Message{stored}, recent)

	// And the next timestamp is not before the persisted one
	req.False(second.nextTimestamp().Before(stored.CreatedAt))
}
