package observability

import "github.com/kbukum/scribe/component"

// ServiceHealth is the aggregate health reported by the health endpoint.
type ServiceHealth struct {
	Service    string                 `json:"service"`
	Version    string                 `json:"version,omitempty"`
	Status     component.HealthStatus `json:"status"`
	Components []component.Health     `json:"components,omitempty"`
}

// NewServiceHealth starts as healthy.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Version: version, Status: component.StatusHealthy}
}

// Add records a component result; unhealthy dominates degraded, which dominates healthy.
func (sh *ServiceHealth) Add(h component.Health) {
	sh.Components = append(sh.Components, h)
	switch h.Status {
	case component.StatusUnhealthy:
		sh.Status = component.StatusUnhealthy
	case component.StatusDegraded:
		if sh.Status != component.StatusUnhealthy {
			sh.Status = component.StatusDegraded
		}
	}
}

// Healthy reports whether no component is unhealthy.
func (sh *ServiceHealth) Healthy() bool { return sh.Status != component.StatusUnhealthy }
