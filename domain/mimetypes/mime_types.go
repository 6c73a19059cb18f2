// Package mimetypes maps detected content types to chat message kinds.
package mimetypes

import (
	"chat-room/domain"
	"mime"
	"strings"
)

type MIME string

const (
	Unknown MIME = "unknown"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWebP MIME = "image/webp"

	AudioMPEG MIME = "audio/mpeg"
	AudioOGG  MIME = "audio/ogg"
	AudioWAV  MIME = "audio/wav"
	AudioWebM MIME = "audio/webm"
	AudioMP4  MIME = "audio/mp4"
)

var accepted = map[MIME]domain.Kind{
	ImagePNG:  domain.KindImage,
	ImageJPEG: domain.KindImage,
	ImageGIF:  domain.KindImage,
	ImageWebP: domain.KindImage,
	AudioMPEG: domain.KindAudio,
	AudioOGG:  domain.KindAudio,
	AudioWAV:  domain.KindAudio,
	AudioWebM: domain.KindAudio,
	AudioMP4:  domain.KindAudio,
}

// Normalize strips parameters and aliases from a media type.
func Normalize(detected string) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	switch mt = strings.ToLower(mt); mt {
	case "audio/x-wav", "audio/wave":
		mt = string(AudioWAV)
	case "audio/mp3":
		mt = string(AudioMPEG)
	case "video/webm":
		mt = string(AudioWebM)
	}
	return MIME(mt), true
}

// KindOf tells whether a media type can be posted, and as which kind.
func KindOf(detected string) (MIME, domain.Kind, bool) {
	mt, ok := Normalize(detected)
	if !ok {
		return Unknown, "", false
	}
	kind, ok := accepted[mt]
	return mt, kind, ok
}
