// Package metrics provides optional Prometheus instrumentation for a
// proction.Context: in-flight invocation count, settle latency, failures,
// and detected leaks.
package metrics
