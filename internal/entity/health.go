package entity

import "time"

type HealthStatus string

const (
	HealthAvailable   HealthStatus = "available"
	HealthDegraded    HealthStatus = "degraded"
	HealthUnavailable HealthStatus = "unavailable"
)

type ProviderStatus string

const (
	ProviderReachable   ProviderStatus = "reachable"
	ProviderUnreachable ProviderStatus = "unreachable"
)

// HealthReport aggregates vector store state and provider reachability
type HealthReport struct {
	Status    HealthStatus
	Store     HealthStatus
	Embedding ProviderStatus
	Chat      ProviderStatus
	Message   string
	CheckedAt time.Time
}
