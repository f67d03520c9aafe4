// Package metrics defines the agent's Prometheus instrumentation: counters
// and histograms for certificate renewals, install cycles, MQTT connection
// and message counts, and command-plane dispatch, plus a Timer helper and
// the process health/readiness/liveness HTTP handlers.
package metrics
