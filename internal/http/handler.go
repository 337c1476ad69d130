package httpapp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/cuesplit/internal/app"
	"github.com/cesargomez89/cuesplit/internal/http/dto"
	"github.com/cesargomez89/cuesplit/internal/logger"
)

const endpointsMessage = "endpoints: /process, /status, /status/<jobid>, /log/<jobid>"

type Handler struct {
	JobService *app.JobService
	Logger     *logger.Logger
}

func NewHandler(js *app.JobService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		JobService: js,
		Logger:     log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/process", h.Process)
	r.Get("/status", h.ListStatus)
	r.Get("/status/{id}", h.GetStatus)
	r.Get("/log/{id}", h.GetLog)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)
}

// NewRouter returns the service router with request logging and panic recovery.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, dto.ErrorResponse{Error: msg})
}
