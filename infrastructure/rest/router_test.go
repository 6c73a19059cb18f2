package rest

import (
	"bytes"
	"chat-room/media"
	"chat-room/repositories"
	"encoding/json"
	"image"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fixedCount int

func (c fixedCount) OnlineCount() int { return int(c) }

func newTestRouter(t *testing.T, maxBytes int64) http.Handler {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	service := media.NewService(log, repositories.NewMediaRepository(db, log), "http://chat.local", maxBytes)
	socket := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "chat_test_total", Help: "test"}))
	return NewRouter(log, socket, NewMediaHandler(log, service, maxBytes), fixedCount(3), registry)
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(uploadField, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestRouter_Upload_Then_Download(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t, 1<<20)

	var img bytes.Buffer
	req.NoError(png.Encode(&img, image.NewGray(image.Rect(0, 0, 4, 3))))
	body, contentType := multipartBody(t, "dot.png", img.Bytes())

	// When a png is uploaded
	upload := httptest.NewRequest(http.MethodPost, RouteUpload, body)
	upload.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, upload)

	// Then its url and metadata are returned
	req.Equal(http.StatusCreated, rec.Code)
	var stored media.Stored
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &stored))
	req.Equal("IMAGE", string(stored.Kind))
	req.Equal(4, stored.Metadata.Width)
	req.Equal(3, stored.Metadata.Height)
	req.True(strings.HasPrefix(stored.URL, "http://chat.local/media/"))

	// When it is downloaded
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/"+stored.Key, nil))

	// Then the bytes come back with cache friendly headers
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("image/png", rec.Header().Get("Content-Type"))
	req.Equal(cacheControl, rec.Header().Get("Cache-Control"))
	req.Equal(img.Bytes(), rec.Body.Bytes())

	// And a revalidation is answered without a body
	revalidate := httptest.NewRequest(http.MethodGet, "/media/"+stored.Key, nil)
	revalidate.Header.Set("If-None-Match", rec.Header().Get("ETag"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, revalidate)
	req.Equal(http.StatusNotModified, rec.Code)
	req.Empty(rec.Body.Bytes())
}

func TestRouter_Upload_Errors(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t, 1<<20)

	body, contentType := multipartBody(t, "notes.txt", []byte("hello there"))
	upload := httptest.NewRequest(http.MethodPost, RouteUpload, body)
	upload.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, upload)
	req.Equal(http.StatusUnsupportedMediaType, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, RouteUpload, strings.NewReader("x")))
	req.Equal(http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/unknown.png", nil))
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestRouter_Health_Metrics_And_Socket(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteHealth, nil))
	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"status":"ok","online":3}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteMetrics, nil))
	req.Equal(http.StatusOK, rec.Code)
	req.Contains(rec.Body.String(), "chat_test_total 0")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteSocket, nil))
	req.Equal(http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, RouteHealth, nil))
	req.Equal(http.StatusMethodNotAllowed, rec.Code)
}
