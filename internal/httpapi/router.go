package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"streamer/internal/config"
	"streamer/internal/ingest"
	"streamer/internal/jobs"
	"streamer/internal/logging"
	"streamer/internal/status"
)

// Uploader accepts new uploads.
type Uploader interface {
	Accept(ctx context.Context, up ingest.Upload) (*jobs.Job, error)
}

// StatusReader answers job queries.
type StatusReader interface {
	Get(ctx context.Context, id string) (status.View, error)
	List(ctx context.Context) ([]status.View, error)
	Summary(ctx context.Context) (map[string]int, error)
}

// QueueStats reports dispatcher load for the health endpoint.
type QueueStats interface {
	Workers() int
	Pending() int
	InFlight() int
}

// API holds the HTTP handlers and their collaborators.
type API struct {
	cfg      *config.Config
	uploads  Uploader
	statuses StatusReader
	queue    QueueStats
	logger   *slog.Logger
}

// New constructs the API.
func New(cfg *config.Config, uploads Uploader, statuses StatusReader, queue QueueStats, logger *slog.Logger) *API {
	return &API{
		cfg:      cfg,
		uploads:  uploads,
		statuses: statuses,
		queue:    queue,
		logger:   logging.NewComponentLogger(logger, "http"),
	}
}

// Handler returns the routed handler wrapped in middleware.
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/upload", a.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/api/media", a.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/status/{id}", a.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/health", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/watch/{id}", a.handleWatch).Methods(http.MethodGet)

	if a.cfg.Server.ServeHLS && strings.HasPrefix(a.cfg.Server.HLSURLPrefix, "/") {
		prefix := a.cfg.Server.HLSURLPrefix + "/"
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(a.cfg.Paths.HLSDir)))
		r.PathPrefix(prefix).Handler(hlsContentTypes(files)).Methods(http.MethodGet, http.MethodHead)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		a.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		a.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: a.allowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	})
	return a.requestID(a.accessLog(c.Handler(r)))
}

func (a *API) allowedOrigins() []string {
	if len(a.cfg.Server.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return a.cfg.Server.AllowedOrigins
}

var hlsTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
}

// hlsContentTypes pins the playlist and segment MIME types, which the system
// mime table often lacks.
func hlsContentTypes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct, ok := hlsTypes[strings.ToLower(path.Ext(r.URL.Path))]; ok {
			w.Header().Set("Content-Type", ct)
		}
		next.ServeHTTP(w, r)
	})
}
