package metrics

import "github.com/prometheus/client_golang/prometheus"

type options struct {
	subsystem string
	labels    prometheus.Labels
}

// Option configures the collectors created by [New].
type Option func(*options)

// WithSubsystem replaces the default "datastore" subsystem of every metric
// name.
func WithSubsystem(s string) Option {
	return func(o *options) {
		o.subsystem = s
	}
}

// WithConstLabels adds labels shared by every collector, such as a store
// name.
func WithConstLabels(l prometheus.Labels) Option {
	return func(o *options) {
		o.labels = l
	}
}
