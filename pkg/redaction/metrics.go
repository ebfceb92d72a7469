package redaction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// redactionMetrics holds the package's Prometheus collectors. Registered
// once against the default registry at package init.
type redactionMetrics struct {
	ruleMatches     *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
}

var metrics = newRedactionMetrics()

func newRedactionMetrics() *redactionMetrics {
	return &redactionMetrics{
		ruleMatches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prism_redaction_rule_matches_total",
				Help: "Total number of matches replaced by each redaction rule",
			},
			[]string{"rule", "action"},
		),

		guardRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prism_redaction_guard_rejections_total",
				Help: "Total number of values rejected by the sensitive-data guard",
			},
			[]string{"rule"},
		),
	}
}
