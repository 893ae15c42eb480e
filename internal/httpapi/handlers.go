package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"streamer/internal/dispatch"
	"streamer/internal/ingest"
	"streamer/internal/jobs"
	"streamer/internal/logging"
	"streamer/internal/services"
)

// multipartOverhead allows for boundaries and part headers on top of the
// file size limit.
const multipartOverhead = 1 << 20

// UploadResponse is returned for an accepted upload.
type UploadResponse struct {
	ID        string `json:"id"`
	StatusURL string `json:"status_url"`
	PlayURL   string `json:"play_url"`
}

// HealthResponse reports dispatcher load and job counts.
type HealthResponse struct {
	Workers  int            `json:"workers"`
	Pending  int            `json:"pending"`
	InFlight int            `json:"in_flight"`
	Jobs     map[string]int `json:"jobs"`
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if limit := a.cfg.Upload.MaxBytes; limit > 0 {
		if r.ContentLength > limit+multipartOverhead {
			a.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "no file part")
		return
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			a.writeError(w, http.StatusBadRequest, "no file part")
			return
		}
		if err != nil {
			a.uploadFailed(w, r, err)
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		job, err := a.uploads.Accept(r.Context(), ingest.Upload{
			Filename: part.FileName(),
			Size:     -1,
			Body:     part,
		})
		_ = part.Close()
		if err != nil {
			a.uploadFailed(w, r, err)
			return
		}
		a.writeJSON(w, http.StatusAccepted, UploadResponse{
			ID:        job.ID,
			StatusURL: "/api/status/" + job.ID,
			PlayURL:   "/watch/" + job.ID,
		})
		return
	}
}

func (a *API) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, ingest.ErrValidation):
		a.writeError(w, http.StatusBadRequest, services.Detail(err))
	case errors.Is(err, ingest.ErrTooLarge), errors.As(err, &tooBig):
		a.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, ingest.ErrBusy):
		w.Header().Set("Retry-After", "30")
		a.writeError(w, http.StatusServiceUnavailable, "server busy, retry later")
	case errors.Is(err, dispatch.ErrStopped):
		a.writeError(w, http.StatusServiceUnavailable, "server shutting down")
	default:
		logging.ErrorWithContext(logging.WithContext(r.Context(), a.logger), "upload failed", "upload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check media_dir permissions and database health"),
		)
		a.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	views, err := a.statuses.List(r.Context())
	if err != nil {
		a.internalError(w, r, "list jobs", err)
		return
	}
	a.writeJSON(w, http.StatusOK, views)
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := a.statuses.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, jobs.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		a.internalError(w, r, "get job", err)
		return
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *API) handleWatch(w http.ResponseWriter, r *http.Request) {
	view, err := a.statuses.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, jobs.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.internalError(w, r, "get job", err)
		return
	}
	http.Redirect(w, r, view.OutputRef, http.StatusFound)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	summary, err := a.statuses.Summary(r.Context())
	if err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), a.logger), "health check failed", "health_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "server reported unhealthy"),
			logging.String(logging.FieldErrorHint, "check database connectivity"),
		)
		a.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	resp := HealthResponse{Jobs: summary}
	if a.queue != nil {
		resp.Workers = a.queue.Workers()
		resp.Pending = a.queue.Pending()
		resp.InFlight = a.queue.InFlight()
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logging.ErrorWithContext(logging.WithContext(r.Context(), a.logger), op+" failed", "request_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check database connectivity"),
	)
	a.writeError(w, http.StatusInternalServerError, "internal error")
}
