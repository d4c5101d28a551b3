package core

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// healthCheckTimeout bounds the total time spent probing dependencies.
const healthCheckTimeout = 2 * time.Second

// HealthProbe is a named dependency check executed by the health endpoint.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleHealth reports service liveness and dependency readiness. All
// registered probes run concurrently under a shared deadline; any failure
// yields a 503 with per-probe detail.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.HealthProbes))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, probe := range s.HealthProbes {
		probe := probe
		g.Go(func() error {
			err := probe.Check(gctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[probe.Name] = err.Error()
			} else {
				checks[probe.Name] = "ok"
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.Logger.Error("health check failed", "error", err)
		JSON(w, r, http.StatusServiceUnavailable, healthStatus{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}

	JSON(w, r, http.StatusOK, healthStatus{
		Status: "ok",
		Checks: checks,
	})
}
