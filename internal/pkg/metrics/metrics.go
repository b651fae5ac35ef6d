// Package metrics defines and registers the custom Prometheus metrics for the
// blog server. Metrics are registered with the default registry on package
// initialisation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blog"

// PostMutationsTotal counts post mutations.
// Labels:
//   - op: create, update, archive, unarchive, delete
//   - result: ok, not_found, conflict, invalid_state, error
var PostMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "post_mutations_total",
		Help:      "Total number of post mutations, by operation and result.",
	},
	[]string{"op", "result"},
)

// PostsRenderedTotal counts Markdown-to-HTML conversions served.
var PostsRenderedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_rendered_total",
		Help:      "Total number of posts converted from Markdown and served.",
	},
)

// LoginAttemptsTotal counts admin login attempts.
// Label:
//   - result: "success" or "failure"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of admin login attempts, by result.",
	},
	[]string{"result"},
)
