package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/eventstatus/internal/config"
	"github.com/gyaneshwarpardhi/eventstatus/internal/event"
	"github.com/gyaneshwarpardhi/eventstatus/internal/eventsapi"
	"github.com/gyaneshwarpardhi/eventstatus/internal/grid"
	"github.com/gyaneshwarpardhi/eventstatus/internal/metrics"
)

const maxFormMemory = 1 << 20

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// EventsAPI is the part of the events backend the handlers use.
type EventsAPI interface {
	BaseURL() string
	ListEvents(ctx context.Context, query string) (*event.Page, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	events EventsAPI
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(events EventsAPI, loader *config.Loader) http.Handler {
	h := &Handler{events: events, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /{$}", h.root)
	h.mux.HandleFunc("GET /status", h.statusPage)
	h.mux.HandleFunc("POST /status/getdata", h.getData)
	h.mux.HandleFunc("POST /status/deleteevent", h.deleteEvent)
	h.mux.HandleFunc("POST /admin/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/status", http.StatusFound)
}

// GET /status — the grid page.
func (h *Handler) statusPage(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"baseUrl": h.events.BaseURL(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "status.html", data); err != nil {
		slog.Error("render status page", "err", err)
	}
}

// POST /status/getdata — one page of grouped events for the grid.
// Every failure becomes a 500 with an error message.
func (h *Handler) getData(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.gridFailure(w, err)
		return
	}
	gc := h.loader.Config().Grid
	req, err := grid.ParseRequest(r.PostForm, grid.Defaults{
		PageSize:      gc.DefaultPageSize,
		SortColumn:    gc.DefaultSortColumn,
		SortDirection: gc.DefaultSortDirection,
	})
	if err != nil {
		h.gridFailure(w, err)
		return
	}

	page, err := h.events.ListEvents(r.Context(), req.Query())
	if err != nil {
		h.gridFailure(w, err)
		return
	}

	resp := grid.NewResponse(req.Draw, page)
	metrics.GridRowsReturned.Observe(float64(len(resp.Data)))
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) gridFailure(w http.ResponseWriter, err error) {
	slog.Warn("grid data request failed", "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// POST /status/deleteevent — forwards a delete for a well-formed event id.
func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.FormValue("eventId"))
	if err != nil {
		metrics.Deletes.WithLabelValues("invalid_id").Inc()
		writeJSON(w, http.StatusOK, deleteResponse{Message: "Invalid EventId."})
		return
	}

	if err := h.events.DeleteEvent(r.Context(), id); err != nil {
		var se *eventsapi.StatusError
		if errors.As(err, &se) {
			metrics.Deletes.WithLabelValues("rejected").Inc()
			slog.Warn("events api refused delete", "event_id", id, "status", se.StatusCode)
			writeJSON(w, http.StatusOK, deleteResponse{Message: se.Body})
			return
		}
		metrics.Deletes.WithLabelValues("error").Inc()
		slog.Error("delete event failed", "event_id", id, "err", err)
		writeJSON(w, http.StatusOK, deleteResponse{Message: err.Error()})
		return
	}

	metrics.Deletes.WithLabelValues("deleted").Inc()
	slog.Info("event deleted", "event_id", id)
	writeJSON(w, http.StatusOK, deleteResponse{Success: true})
}

// POST /admin/config/reload — re-read config from disk.
// OnChange subscribers pick up the new values.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		metrics.ConfigReloads.WithLabelValues("error").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	metrics.ConfigReloads.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"version":  cfg.Version,
		"base_url": cfg.Upstream.BaseURL,
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 until an events API base URL is configured.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.events.BaseURL() == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unconfigured",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"base_url": h.events.BaseURL(),
	})
}
