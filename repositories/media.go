package repositories

import (
	"chat-room/errors"
	goerrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

const (
	mediaTypePrefix = "media:type:"
	mediaBlobPrefix = "media:blob:"
)

type IMediaRepository interface {
	Save(media StoredMedia) error
	Load(key string) (StoredMedia, error)
}

// MediaRepository keeps uploaded blobs in BadgerDB.
// Each object uses two keys written in the same transaction:
// "media:type:{key}" for the content type and "media:blob:{key}" for the bytes.
type MediaRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMediaRepository(db *badger.DB, log *slog.Logger) MediaRepository {
	return MediaRepository{db: db, log: log}
}

type StoredMedia struct {
	Key         string
	ContentType string
	Data        []byte
}

func (m MediaRepository) Save(media StoredMedia) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(mediaTypePrefix+media.Key), []byte(media.ContentType)); err != nil {
			return err
		}
		return txn.Set([]byte(mediaBlobPrefix+media.Key), media.Data)
	})
	if err != nil {
		return storageFailure("save media", err)
	}
	m.log.Debug("Media stored", "key", media.Key, "size", len(media.Data))
	return nil
}

// Load returns errors.ErrMediaNotFound for unknown keys.
func (m MediaRepository) Load(key string) (StoredMedia, error) {
	media := StoredMedia{Key: key}
	err := m.db.View(func(txn *badger.Txn) error {
		typeItem, err := txn.Get([]byte(mediaTypePrefix + key))
		if err != nil {
			return err
		}
		contentType, err := typeItem.ValueCopy(nil)
		if err != nil {
			return err
		}
		blobItem, err := txn.Get([]byte(mediaBlobPrefix + key))
		if err != nil {
			return err
		}
		data, err := blobItem.ValueCopy(nil)
		if err != nil {
			return err
		}
		media.ContentType = string(contentType)
		media.Data = data
		return nil
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return StoredMedia{}, fmt.Errorf("%w: %s", errors.ErrMediaNotFound, key)
	}
	if err != nil {
		return StoredMedia{}, storageFailure("load media", err)
	}
	return media, nil
}
