package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"guarita-loadqueue/internal/engine"
	"guarita-loadqueue/internal/lifecycle"
	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/ranking"
	"guarita-loadqueue/internal/repository"
	"guarita-loadqueue/internal/snapshot"
	"guarita-loadqueue/internal/store"

	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// RefreshTrigger asks for a refresh ahead of the next tick
type RefreshTrigger interface {
	TriggerNow()
}

// PreferenceLists autocomplete lists side store
type PreferenceLists interface {
	List(ctx context.Context, list string) ([]string, error)
	Remember(ctx context.Context, list, value string) ([]string, error)
}

// LoadQueueHandler HTTP surface over the engine
type LoadQueueHandler struct {
	engine  *engine.Engine
	writer  repository.JobWriter
	trigger RefreshTrigger
	prefs   PreferenceLists
	logger  *zap.Logger
}

// NewLoadQueueHandler creates the handler; prefs may be nil when Redis is not configured
func NewLoadQueueHandler(e *engine.Engine, writer repository.JobWriter, trigger RefreshTrigger, prefs PreferenceLists, logger *zap.Logger) *LoadQueueHandler {
	return &LoadQueueHandler{
		engine:  e,
		writer:  writer,
		trigger: trigger,
		prefs:   prefs,
		logger:  logger,
	}
}

// transitionRequest target status plus the transition fields
type transitionRequest struct {
	Target string `json:"target"`
	lifecycle.Fields
}

type preferenceRequest struct {
	Value string `json:"value"`
}

func (h *LoadQueueHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
}

func (h *LoadQueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	var product *models.Product
	if name := strings.TrimSpace(r.URL.Query().Get("product")); name != "" {
		p := models.ParseProduct(name)
		product = &p
	}
	view, err := h.engine.GetQueueView(product)
	h.respond(w, view, err)
}

func (h *LoadQueueHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.GetActiveView()
	h.respond(w, view, err)
}

func (h *LoadQueueHandler) GetCompletedToday(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.GetCompletedToday()
	h.respond(w, view, err)
}

func (h *LoadQueueHandler) GetDwellAlerts(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.GetDwellAlerts()
	h.respond(w, view, err)
}

func (h *LoadQueueHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := ranking.ParseWindow(q.Get("window"), q.Get("date"), h.engine.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	strategy, err := ranking.ParseStrategy(q.Get("by"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	limit, err := queryLimit(r, "limit")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	entries, err := h.engine.GetRanking(window, strategy, limit)
	h.respond(w, entries, err)
}

func (h *LoadQueueHandler) GetTimeReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := ranking.ParseWindow(q.Get("window"), q.Get("date"), h.engine.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	report, err := h.engine.GetTimeReport(window)
	h.respond(w, report, err)
}

func (h *LoadQueueHandler) GetView(w http.ResponseWriter, r *http.Request) {
	vm, err := h.engine.BuildViewModel()
	h.respond(w, vm, err)
}

func (h *LoadQueueHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.engine.Status(), nil)
}

// RequestTransition validates the transition, persists the updated job and asks for a refresh
func (h *LoadQueueHandler) RequestTransition(w http.ResponseWriter, r *http.Request, jobID string) {
	var req transitionRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}
	target, err := models.ParseJobStatus(req.Target)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	updated, err := h.engine.RequestTransition(jobID, target, req.Fields)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.writer.SaveJob(r.Context(), updated); err != nil {
		h.logger.Error("Failed to persist transition",
			zap.String("job_id", jobID),
			zap.String("target", string(target)),
			zap.Error(err),
		)
		if errors.Is(err, repository.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("job not found"))
			return
		}
		writeJSON(w, http.StatusBadGateway, Fail("failed to persist transition"))
		return
	}

	h.trigger.TriggerNow()
	writeJSON(w, http.StatusOK, Ok(updated))
}

func (h *LoadQueueHandler) GetPreferences(w http.ResponseWriter, r *http.Request, list string) {
	if h.prefs == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("preferences unavailable"))
		return
	}
	values, err := h.prefs.List(r.Context(), list)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(values))
}

func (h *LoadQueueHandler) RememberPreference(w http.ResponseWriter, r *http.Request, list string) {
	if h.prefs == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("preferences unavailable"))
		return
	}
	var req preferenceRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}
	values, err := h.prefs.Remember(r.Context(), list, req.Value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(values))
}

// respond wraps v with the staleness of the snapshot it came from; a stale
// result carries the refresh failure as its message
func (h *LoadQueueHandler) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	res := Ok(v)
	if stale := h.engine.Stale(); stale != nil {
		res.Stale = true
		res.Message = stale.Error()
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *LoadQueueHandler) writeError(w http.ResponseWriter, err error) {
	var ve *lifecycle.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, Fail(ve.Detail()))
	case errors.Is(err, engine.ErrJobNotFound):
		writeJSON(w, http.StatusNotFound, Fail("job not found"))
	case errors.Is(err, store.ErrUnknownList):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	case errors.Is(err, snapshot.ErrSnapshotUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, Fail("snapshot not loaded yet"))
	default:
		h.logger.Error("Request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}
