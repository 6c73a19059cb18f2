// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once stored.
package domain

import (
	"time"
)

type Kind string

const (
	KindText  Kind = "TEXT"
	KindImage Kind = "IMAGE"
	KindAudio Kind = "AUDIO"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindText, KindImage, KindAudio:
		return true
	}
	return false
}

// IsMedia reports whether the content of a message of this kind is a URL.
func (k Kind) IsMedia() bool {
	return k == KindImage || k == KindAudio
}

// Metadata carries the kind-specific attributes of a media message.
// Image: width, height, mimeType, fileSize, thumbnailUrl.
// Audio: duration (seconds), mimeType, fileSize.
type Metadata struct {
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	MimeType     string  `json:"mimeType,omitempty"`
	FileSize     int64   `json:"fileSize,omitempty"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
}

// ForKind keeps only the attributes that belong to kind.
// Text messages never carry metadata.
func (m *Metadata) ForKind(kind Kind) *Metadata {
	if m == nil || !kind.IsMedia() {
		return nil
	}
	out := *m
	switch kind {
	case KindImage:
		out.Duration = 0
	case KindAudio:
		out.Width, out.Height, out.ThumbnailURL = 0, 0, ""
	}
	if out == (Metadata{}) {
		return nil
	}
	return &out
}

// Message represents an immutable chat event.
// ID and CreatedAt are assigned by the store at insert time.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Kind      Kind      `json:"messageType"`
	Content   string    `json:"content"`
	Metadata  *Metadata `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Draft is what a caller hands to the store before id and timestamp exist.
type Draft struct {
	SenderID string
	Kind     Kind
	Content  string
	Metadata *Metadata
}
