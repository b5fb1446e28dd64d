package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/piske-alex/mongoexpr/internal/expression"
)

var (
	// expressionsAnalyzedTotal counts analyze requests.
	// Labels: recognized (true, false), kind (read, write, aggregate, admin, unknown, none)
	expressionsAnalyzedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mongoexpr",
		Subsystem: "api",
		Name:      "expressions_analyzed_total",
		Help:      "Total expressions analyzed by recognition outcome and method kind",
	}, []string{"recognized", "kind"})

	// historyEntriesRecordedTotal counts entries written to the history store
	historyEntriesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mongoexpr",
		Subsystem: "api",
		Name:      "history_entries_recorded_total",
		Help:      "Total analyzed expressions recorded in history",
	})
)

func recordAnalysis(recognized bool, kind expression.Kind) {
	label := string(kind)
	if !recognized {
		label = "none"
	}
	expressionsAnalyzedTotal.WithLabelValues(strconv.FormatBool(recognized), label).Inc()
}
