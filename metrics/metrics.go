// Package metrics holds the prometheus bucket definitions and registration
// helpers shared by every component that exports latency/outcome metrics
// (bdns, fileclient, mpic, va).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// InternetFacingBuckets are histogram buckets tuned for operations that
// cross the public internet (DNS resolution, HTTP fetches to third-party
// servers) rather than intra-datacenter RPCs, which tend to be much
// faster and need finer-grained low-end buckets.
var InternetFacingBuckets = []float64{
	0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 30,
}

// NoopRegisterer discards every collector registered against it. Components
// constructed outside of a full service (in unit tests, in the example CLI)
// pass this so that metrics calls are harmless no-ops instead of requiring a
// live registry.
var NoopRegisterer prometheus.Registerer = noopRegisterer{}

type noopRegisterer struct{}

func (noopRegisterer) Register(prometheus.Collector) error  { return nil }
func (noopRegisterer) MustRegister(...prometheus.Collector) {}
func (noopRegisterer) Unregister(prometheus.Collector) bool { return true }

// MustRegister registers every collector against reg, panicking on
// duplicate registration. It exists so call sites read the same whether reg
// is a real registry or NoopRegisterer.
func MustRegister(reg prometheus.Registerer, cs ...prometheus.Collector) {
	for _, c := range cs {
		reg.MustRegister(c)
	}
}
