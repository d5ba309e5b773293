package server

import (
	"context"
	"sync"
	"time"
)

// SystemStatus represents the health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth is the result of one component check.
type ComponentHealth struct {
	Name   string       `json:"name"`
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Components   map[string]ComponentHealth `json:"components"`
}

// CheckFunc reports a component problem as an error.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	critical bool
	fn       CheckFunc
}

// Monitor aggregates health status from registered components.
type Monitor struct {
	checks   []check
	interval time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *HealthReport
	now        func() time.Time
}

// NewMonitor creates a monitor. Reports are reused for interval.
func NewMonitor(interval time.Duration) *Monitor {
	return &Monitor{interval: interval, now: time.Now}
}

// Register adds a check. A failing critical check makes the system critical,
// any other failure degrades it.
func (m *Monitor) Register(name string, critical bool, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, check{name: name, critical: critical, fn: fn})
	m.lastReport = nil
}

// CheckHealth runs all checks, or returns the last report if it is recent.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && m.now().Sub(m.lastCheck) < m.interval {
		return *m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(m.checks)),
	}

	for _, c := range m.checks {
		h := ComponentHealth{Name: c.name, Status: StatusHealthy}
		if err := c.fn(ctx); err != nil {
			h.Error = err.Error()
			h.Status = StatusDegraded
			if c.critical {
				h.Status = StatusCritical
			}
		}
		report.Components[c.name] = h

		// Worst case wins
		switch {
		case h.Status == StatusCritical:
			report.SystemStatus = StatusCritical
		case h.Status == StatusDegraded && report.SystemStatus == StatusHealthy:
			report.SystemStatus = StatusDegraded
		}
	}

	m.lastCheck = m.now()
	m.lastReport = &report
	return report
}
