package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// HealthCheck reports whether one backend is reachable.
type HealthCheck func(ctx context.Context) error

// SystemHandler serves health and version. Health runs every check and
// answers 503 naming the failing backends.
type SystemHandler struct {
	Checks map[string]HealthCheck
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Failing map[string]string `json:"failing,omitempty"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Service: "talentmatch"}
	for _, name := range names {
		if err := h.Checks[name](ctx); err != nil {
			if resp.Failing == nil {
				resp.Failing = map[string]string{}
			}
			resp.Failing[name] = err.Error()
			logger.Warn("health check failed", slog.String("backend", name), slog.Any("err", err))
		}
	}
	if resp.Failing != nil {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","buildTime":"%s"}`, version, buildTime)
	}
}
