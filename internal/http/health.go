package httpapi

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const probeTimeout = 2 * time.Second

// Probe is one readiness dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type ProbeResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HealthHandler struct {
	Probes []Probe
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and answers 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	results := make([]ProbeResult, len(h.Probes))
	var g errgroup.Group
	for i, p := range h.Probes {
		g.Go(func() error {
			res := ProbeResult{Name: p.Name, OK: true}
			if err := p.Check(ctx); err != nil {
				res.OK = false
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	status, state := http.StatusOK, "ok"
	for _, res := range results {
		if !res.OK {
			status, state = http.StatusServiceUnavailable, "degraded"
			break
		}
	}
	writeJSON(w, status, map[string]any{
		"status":  state,
		"service": "checkout-service",
		"checks":  results,
	})
}
