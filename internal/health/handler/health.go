// Package handler reports liveness and readiness over HTTP and the standard gRPC health service.
package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"mentorhub/backend/internal/platform/httpx"
)

const defaultCheckTimeout = 2 * time.Second

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   CheckFunc
}

// Checker runs readiness probes.
type Checker struct {
	checks  []Check
	timeout time.Duration
}

// NewChecker returns a Checker over checks.
func NewChecker(checks ...Check) *Checker {
	return &Checker{checks: checks, timeout: defaultCheckTimeout}
}

// Result is the outcome of one probe.
type Result struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Run executes every probe concurrently, each bounded by the checker timeout.
// It reports overall health and the per-probe results in registration order.
func (c *Checker) Run(ctx context.Context) (bool, []Result) {
	results := make([]Result, len(c.checks))
	var wg sync.WaitGroup
	for i, chk := range c.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			results[i] = Result{Name: chk.Name, OK: true}
			if err := chk.Fn(cctx); err != nil {
				results[i].OK = false
				results[i].Error = err.Error()
			}
		}()
	}
	wg.Wait()
	healthy := true
	for _, r := range results {
		healthy = healthy && r.OK
	}
	return healthy, results
}

type statusResponse struct {
	Status string   `json:"status"`
	Checks []Result `json:"checks,omitempty"`
}

// Liveness reports that the process is serving.
// GET /healthz
func (c *Checker) Liveness(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Readiness reports whether every dependency answers.
// GET /readyz
func (c *Checker) Readiness(w http.ResponseWriter, r *http.Request) {
	healthy, results := c.Run(r.Context())
	if !healthy {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Checks: results})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Status: "ok", Checks: results})
}
