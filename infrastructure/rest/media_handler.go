package rest

import (
	"chat-room/errors"
	"chat-room/media"
	goerrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

const (
	uploadField = "file"
	// Media keys are never reused, so downloads can be cached forever.
	cacheControl = "public, max-age=31536000, immutable"
	// Room for the multipart envelope around the file itself.
	multipartOverhead = 1 << 20
)

type MediaHandler struct {
	log      *slog.Logger
	service  media.IService
	maxBytes int64
}

func NewMediaHandler(log *slog.Logger, service media.IService, maxBytes int64) *MediaHandler {
	return &MediaHandler{log: log, service: service, maxBytes: maxBytes}
}

// Upload stores the multipart "file" field and answers with its url and metadata.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if goerrors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file")
		return
	}

	stored, err := h.service.Store(r.Context(), data, header.Header.Get("Content-Type"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, stored)
	case goerrors.Is(err, errors.ErrMediaTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	case goerrors.Is(err, errors.ErrUnsupportedMedia):
		writeError(w, http.StatusUnsupportedMediaType, "only images and audio are accepted")
	default:
		h.log.Error("Unable to store upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "upload failed")
	}
}

func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	etag := strconv.Quote(key)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, contentType, err := h.service.Retrieve(r.Context(), key)
	if goerrors.Is(err, errors.ErrMediaNotFound) {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if err != nil {
		h.log.Error("Unable to load media", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "download failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}
