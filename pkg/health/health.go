package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Checker reports the health of one dependency.
type Checker func(ctx context.Context) error

// Status is the health of a component or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// DefaultTimeout bounds a full readiness probe.
const DefaultTimeout = 5 * time.Second

// Response is the JSON body returned by both probes.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of a single dependency check.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type entry struct {
	check    Checker
	critical bool
}

// Handler serves liveness and readiness probes. A failing critical check
// makes the service not ready (503); a failing non-critical check only
// marks it degraded.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]entry
	timeout  time.Duration
}

// NewHandler creates an empty health handler.
func NewHandler() *Handler {
	return &Handler{
		checkers: make(map[string]entry),
		timeout:  DefaultTimeout,
	}
}

// RegisterCritical adds a dependency the service cannot serve without.
func (h *Handler) RegisterCritical(name string, checker Checker) {
	h.register(name, checker, true)
}

// RegisterNonCritical adds a dependency whose failure degrades but does not stop the service.
func (h *Handler) RegisterNonCritical(name string, checker Checker) {
	h.register(name, checker, false)
}

func (h *Handler) register(name string, checker Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = entry{check: checker, critical: critical}
}

// Names lists registered checks in sorted order.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LivenessHandler always returns 200 while the process is running.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler runs every check concurrently and returns 200 or 503.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		resp := h.Check(ctx)
		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeResponse(w, status, resp)
	}
}

// Check runs all registered checks and aggregates their status.
func (h *Handler) Check(ctx context.Context) Response {
	h.mu.RLock()
	checkers := make(map[string]entry, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		checks  = make(map[string]CheckResult, len(checkers))
		overall = StatusUp
	)

	for name, e := range checkers {
		wg.Add(1)
		go func(name string, e entry) {
			defer wg.Done()
			result := CheckResult{Status: StatusUp, Critical: e.critical}
			if err := e.check(ctx); err != nil {
				result.Status = StatusDown
				result.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			checks[name] = result
			if result.Status == StatusDown {
				if e.critical {
					overall = StatusDown
				} else if overall == StatusUp {
					overall = StatusDegraded
				}
			}
		}(name, e)
	}
	wg.Wait()

	return Response{Status: overall, Timestamp: time.Now().UTC(), Checks: checks}
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
