/*
Package observability turns dialogue lifecycle events into Prometheus metrics and
structured log lines.

Both are exposed as domain.LifecycleHooks; Combine fans one event out to several sets.
*/
package observability
