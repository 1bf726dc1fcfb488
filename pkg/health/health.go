package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Checker is a function that checks the health of a dependency.
type Checker func(ctx context.Context) error

// Status represents the health status of a component.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Report is the outcome of one run over all registered checks.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Names returns the check names in sorted order.
func (r Report) Names() []string {
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type check struct {
	fn       Checker
	critical bool
}

// Registry holds named dependency checks.
type Registry struct {
	mu      sync.RWMutex
	checks  map[string]check
	timeout time.Duration
}

// NewRegistry creates a registry whose runs are bounded by timeout.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		checks:  make(map[string]check),
		timeout: timeout,
	}
}

// RegisterCritical adds a check whose failure makes the report down.
func (r *Registry) RegisterCritical(name string, fn Checker) {
	r.register(name, fn, true)
}

// RegisterNonCritical adds a check whose failure only degrades the report.
func (r *Registry) RegisterNonCritical(name string, fn Checker) {
	r.register(name, fn, false)
}

func (r *Registry) register(name string, fn Checker, critical bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check{fn: fn, critical: critical}
}

// Run executes all checks concurrently.
func (r *Registry) Run(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.mu.RLock()
	checks := make(map[string]check, len(r.checks))
	for k, v := range r.checks {
		checks[k] = v
	}
	r.mu.RUnlock()

	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(checks))
	)
	for name, c := range checks {
		g.Go(func() error {
			res := CheckResult{Status: StatusUp, Critical: c.critical}
			if err := c.fn(ctx); err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusUp
	for _, res := range results {
		if res.Status != StatusDown {
			continue
		}
		if res.Critical {
			overall = StatusDown
			break
		}
		overall = StatusDegraded
	}

	return Report{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}
