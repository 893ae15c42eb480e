package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streamer/internal/config"
	"streamer/internal/dispatch"
	"streamer/internal/httpapi"
	"streamer/internal/ingest"
	"streamer/internal/jobs"
	"streamer/internal/logging"
	"streamer/internal/status"
	"streamer/internal/testsupport"
	"streamer/internal/transcode"
)

type idleExecutor struct{}

func (idleExecutor) Execute(context.Context, transcode.Task) error { return nil }

type harness struct {
	cfg     *config.Config
	store   *jobs.Store
	queue   *dispatch.Dispatcher
	handler http.Handler
}

// newHarness wires the real store, ingest and status services to a
// dispatcher that is never started, so uploaded jobs stay queued.
func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	queue := dispatch.New(idleExecutor{}, dispatch.Options{Workers: cfg.Transcode.Workers})
	uploads := ingest.NewService(cfg, store, queue, logging.NewNop())
	api := httpapi.New(cfg, uploads, status.NewService(store), queue, logging.NewNop())
	return &harness{cfg: cfg, store: store, queue: queue, handler: api.Handler()}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (h *harness) upload(t *testing.T, filename string, content []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "file", filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func (h *harness) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

func TestUploadThenQueryLifecycle(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))

	w := h.upload(t, "Holiday Clip.mp4", []byte("fake video"), nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var accepted httpapi.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if len(accepted.ID) != 32 {
		t.Fatalf("unexpected id %q", accepted.ID)
	}
	if accepted.StatusURL != "/api/status/"+accepted.ID || accepted.PlayURL != "/watch/"+accepted.ID {
		t.Fatalf("unexpected urls %#v", accepted)
	}

	w = h.get(t, accepted.StatusURL)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var view status.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if view.Status != "queued" || view.Filename != "Holiday_Clip.mp4" || view.OutputRef != "/hls/"+accepted.ID+"/playlist.m3u8" {
		t.Fatalf("unexpected view %#v", view)
	}

	w = h.get(t, "/api/media")
	var list []status.View
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != accepted.ID {
		t.Fatalf("unexpected list %#v", list)
	}

	w = h.get(t, accepted.PlayURL)
	if w.Code != http.StatusFound || w.Header().Get("Location") != view.OutputRef {
		t.Fatalf("expected redirect to %s, got %d %q", view.OutputRef, w.Code, w.Header().Get("Location"))
	}

	saved := filepath.Join(h.cfg.Paths.OriginalDir, accepted.ID+".mp4")
	if data, err := os.ReadFile(saved); err != nil || string(data) != "fake video" {
		t.Fatalf("upload not stored at %s: %q %v", saved, data, err)
	}
}

func TestEmptyListIsJSONArray(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	w := h.get(t, "/api/media")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %d %q", w.Code, w.Body.String())
	}
}

func TestUploadValidationErrors(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))

	if w := h.upload(t, "", []byte("x"), nil); w.Code != http.StatusBadRequest || decodeError(t, w) != "no selected file" {
		t.Fatalf("expected no selected file, got %d %s", w.Code, w.Body.String())
	}
	if w := h.upload(t, "script.sh", []byte("x"), nil); w.Code != http.StatusBadRequest || decodeError(t, w) != "file type not allowed" {
		t.Fatalf("expected file type not allowed, got %d %s", w.Code, w.Body.String())
	}

	body, contentType := multipartBody(t, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest || decodeError(t, w) != "no file part" {
		t.Fatalf("expected no file part, got %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart body, got %d", w.Code)
	}

	if list, _ := h.store.List(context.Background()); len(list) != 0 {
		t.Fatalf("rejected uploads created %d jobs", len(list))
	}
}

func TestUploadTooLarge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Upload.MaxBytes = 16
	h := newHarness(t, cfg)

	w := h.upload(t, "big.mkv", bytes.Repeat([]byte("x"), 64), nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
	if list, _ := h.store.List(context.Background()); len(list) != 0 {
		t.Fatal("oversized upload created a job")
	}
}

func TestUploadBusy(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t, testsupport.WithMaxPending(1)))

	if w := h.upload(t, "a.mp4", []byte("x"), nil); w.Code != http.StatusAccepted {
		t.Fatalf("first upload: expected 202, got %d", w.Code)
	}
	w := h.upload(t, "b.mp4", []byte("x"), nil)
	if w.Code != http.StatusServiceUnavailable || w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 503 with Retry-After, got %d", w.Code)
	}
	if list, _ := h.store.List(context.Background()); len(list) != 1 {
		t.Fatalf("expected only the first job stored, got %d", len(list))
	}
}

func TestUploadAfterShutdown(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	if err := h.queue.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	w := h.upload(t, "a.mp4", []byte("x"), nil)
	if w.Code != http.StatusServiceUnavailable || decodeError(t, w) != "server shutting down" {
		t.Fatalf("expected 503 shutting down, got %d %s", w.Code, w.Body.String())
	}
}

func TestUnknownJob(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))

	w := h.get(t, "/api/status/nope")
	if w.Code != http.StatusNotFound || decodeError(t, w) != "not found" {
		t.Fatalf("expected 404 not found, got %d %s", w.Code, w.Body.String())
	}
	if w := h.get(t, "/watch/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for watch, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t, testsupport.WithWorkers(2)))
	if w := h.upload(t, "a.mp4", []byte("x"), nil); w.Code != http.StatusAccepted {
		t.Fatalf("upload failed: %d", w.Code)
	}

	w := h.get(t, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var health httpapi.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Workers != 2 || health.Pending != 1 || health.InFlight != 0 {
		t.Fatalf("unexpected health %#v", health)
	}
	if health.Jobs["queued"] != 1 || health.Jobs["ready"] != 0 {
		t.Fatalf("unexpected job counts %#v", health.Jobs)
	}
}

func TestServeHLS(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	playlist := filepath.Join(cfg.Paths.HLSDir, "abc", "playlist.m3u8")
	if err := os.MkdirAll(filepath.Dir(playlist), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(playlist, []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatalf("write playlist: %v", err)
	}
	segment := filepath.Join(cfg.Paths.HLSDir, "abc", "segment_000.ts")
	if err := os.WriteFile(segment, []byte("ts"), 0o644); err != nil {
		t.Fatalf("write segment: %v", err)
	}

	off := newHarness(t, cfg)
	if w := off.get(t, "/hls/abc/playlist.m3u8"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when serve_hls is off, got %d", w.Code)
	}

	cfg.Server.ServeHLS = true
	on := newHarness(t, cfg)
	w := on.get(t, "/hls/abc/playlist.m3u8")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/vnd.apple.mpegurl" {
		t.Fatalf("unexpected playlist response %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if w.Body.String() != "#EXTM3U\n" {
		t.Fatalf("unexpected playlist body %q", w.Body.String())
	}
	w = on.get(t, "/hls/abc/segment_000.ts")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "video/mp2t" {
		t.Fatalf("unexpected segment response %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))

	w := h.get(t, "/api/media")
	if w.Header().Get(httpapi.RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/media", nil)
	req.Header.Set(httpapi.RequestIDHeader, "abc-123")
	req.Header.Set("Origin", "http://player.example")
	w = httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	if got := w.Header().Get(httpapi.RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/media", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
