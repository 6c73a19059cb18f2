// Package media stores the images and audio clips whose URLs are posted as IMAGE and AUDIO messages.
package media

import (
	"bytes"
	"chat-room/domain"
	"chat-room/domain/mimetypes"
	"chat-room/errors"
	"chat-room/repositories"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Stored describes an uploaded object; Metadata can be sent back as message metadata.
type Stored struct {
	Key      string          `json:"key"`
	URL      string          `json:"url"`
	Kind     domain.Kind     `json:"messageType"`
	Metadata domain.Metadata `json:"metadata"`
}

type IService interface {
	Store(ctx context.Context, data []byte, contentType string) (Stored, error)
	Retrieve(ctx context.Context, key string) ([]byte, string, error)
}

type Service struct {
	log        *slog.Logger
	repository repositories.IMediaRepository
	baseURL    string
	maxBytes   int64
}

func NewService(log *slog.Logger, repository repositories.IMediaRepository, baseURL string, maxBytes int64) *Service {
	return &Service{
		log:        log,
		repository: repository,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxBytes:   maxBytes,
	}
}

// Store trusts the sniffed type over the declared one, which is only used
// when sniffing gives nothing better than a generic binary type.
func (s *Service) Store(ctx context.Context, data []byte, contentType string) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	if len(data) == 0 {
		return Stored{}, fmt.Errorf("%w: empty upload", errors.ErrUnsupportedMedia)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return Stored{}, fmt.Errorf("%w: %d bytes", errors.ErrMediaTooLarge, len(data))
	}

	detected := mimetype.Detect(data)
	mt, kind, ok := mimetypes.KindOf(detected.String())
	extension := detected.Extension()
	if !ok && detected.Is("application/octet-stream") && contentType != "" {
		mt, kind, ok = mimetypes.KindOf(contentType)
		extension = ""
	}
	if !ok {
		return Stored{}, fmt.Errorf("%w: %s", errors.ErrUnsupportedMedia, detected.String())
	}

	metadata := domain.Metadata{MimeType: string(mt), FileSize: int64(len(data))}
	if kind == domain.KindImage {
		if config, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			metadata.Width, metadata.Height = config.Width, config.Height
		}
	}

	key := uuid.NewString() + extension
	if err := s.repository.Save(repositories.StoredMedia{Key: key, ContentType: string(mt), Data: data}); err != nil {
		return Stored{}, err
	}
	s.log.Info("Media stored", "key", key, "kind", kind, "size", len(data))

	return Stored{Key: key, URL: s.baseURL + "/media/" + key, Kind: kind, Metadata: metadata}, nil
}

func (s *Service) Retrieve(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	media, err := s.repository.Load(key)
	if err != nil {
		return nil, "", err
	}
	return media.Data, media.ContentType, nil
}
