package event

import (
	"chat-room/domain"
	"chat-room/errors"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ClientMessage is the only payload a client may send.
type ClientMessage struct {
	Type        string          `json:"type" validate:"required,eq=message"`
	Content     string          `json:"content" validate:"required,max=4000"`
	MessageType domain.Kind     `json:"messageType" validate:"required,oneof=TEXT IMAGE AUDIO"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

type clientMetadata struct {
	Width        int     `json:"width" validate:"gte=0"`
	Height       int     `json:"height" validate:"gte=0"`
	Duration     float64 `json:"duration" validate:"gte=0"`
	MimeType     string  `json:"mimeType" validate:"max=255"`
	FileSize     int64   `json:"fileSize" validate:"gte=0"`
	ThumbnailURL string  `json:"thumbnailUrl" validate:"omitempty,url"`
}

// ParseClientMessage decodes and checks a raw client payload.
// Every failure wraps errors.ErrMalformedMessage; the returned draft has no sender yet.
func ParseClientMessage(data []byte) (domain.Draft, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Draft{}, fmt.Errorf("%w: %w", errors.ErrMalformedMessage, err)
	}
	if err := validate.Struct(msg); err != nil {
		return domain.Draft{}, fmt.Errorf("%w: %w", errors.ErrMalformedMessage, err)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return domain.Draft{}, fmt.Errorf("%w: blank content", errors.ErrMalformedMessage)
	}
	if msg.MessageType.IsMedia() {
		if err := validate.Var(msg.Content, "url"); err != nil {
			return domain.Draft{}, fmt.Errorf("%w: media content must be a url", errors.ErrMalformedMessage)
		}
	}

	metadata, err := parseMetadata(msg.Metadata, msg.MessageType)
	if err != nil {
		return domain.Draft{}, err
	}
	return domain.Draft{
		Kind:     msg.MessageType,
		Content:  msg.Content,
		Metadata: metadata,
	}, nil
}

func parseMetadata(raw json.RawMessage, kind domain.Kind) (*domain.Metadata, error) {
	if len(raw) == 0 || string(raw) == "null" || !kind.IsMedia() {
		return nil, nil
	}
	var m clientMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", errors.ErrMalformedMessage, err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", errors.ErrMalformedMessage, err)
	}
	metadata := &domain.Metadata{
		Width:        m.Width,
		Height:       m.Height,
		Duration:     m.Duration,
		MimeType:     m.MimeType,
		FileSize:     m.FileSize,
		ThumbnailURL: m.ThumbnailURL,
	}
	return metadata.ForKind(kind), nil
}
