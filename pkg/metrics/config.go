package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every pipa metric.
const DefaultNamespace = "pipa"

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "pipa" namespace for metrics.
	Namespace string
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
	}
}

// Build returns the registry described by c, or nil when metrics are
// disabled. The default registerer with the default namespace reuses
// DefaultRegistry, since its collectors are already registered there.
func (c Config) Build() *Registry {
	if !c.Enabled {
		return nil
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Registry == nil || c.Registry == prometheus.DefaultRegisterer {
		if c.Namespace == DefaultNamespace {
			return DefaultRegistry
		}
		c.Registry = prometheus.DefaultRegisterer
	}
	return NewRegistryWithNamespace(c.Registry, c.Namespace)
}
