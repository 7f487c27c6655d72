package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanlog_scan_verdicts_total",
			Help: "Scans by resolver verdict.",
		},
		[]string{"verdict"},
	)

	scanRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanlog_scan_rejections_total",
			Help: "Scans rejected before a verdict, by error code.",
		},
		[]string{"code"},
	)

	mutationsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanlog_mutations_appended_total",
			Help: "Mutations appended to the log, by kind.",
		},
		[]string{"kind"},
	)
)
