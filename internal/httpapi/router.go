package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// Router stdlib http.ServeMux based router
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != m {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterLoadQueueRoutes query surface, transitions and preference lists
func (r *Router) RegisterLoadQueueRoutes(h *LoadQueueHandler) {
	r.Handle("/health", method(http.MethodGet, h.Health))

	r.Handle(apiPrefix+"/queue", method(http.MethodGet, h.GetQueue))
	r.Handle(apiPrefix+"/active", method(http.MethodGet, h.GetActive))
	r.Handle(apiPrefix+"/completed-today", method(http.MethodGet, h.GetCompletedToday))
	r.Handle(apiPrefix+"/dwell-alerts", method(http.MethodGet, h.GetDwellAlerts))
	r.Handle(apiPrefix+"/ranking", method(http.MethodGet, h.GetRanking))
	r.Handle(apiPrefix+"/time-report", method(http.MethodGet, h.GetTimeReport))
	r.Handle(apiPrefix+"/view", method(http.MethodGet, h.GetView))
	r.Handle(apiPrefix+"/status", method(http.MethodGet, h.GetStatus))

	// jobs/{id}/transition
	r.Handle(apiPrefix+"/jobs/", method(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, apiPrefix+"/jobs/")
		id, action, ok := strings.Cut(rest, "/")
		if !ok || id == "" || action != "transition" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.RequestTransition(w, req, id)
	}))

	// preferences/{list}
	r.Handle(apiPrefix+"/preferences/", func(w http.ResponseWriter, req *http.Request) {
		list := strings.TrimPrefix(req.URL.Path, apiPrefix+"/preferences/")
		if list == "" || strings.Contains(list, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			h.GetPreferences(w, req, list)
		case http.MethodPost:
			h.RememberPreference(w, req, list)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}
