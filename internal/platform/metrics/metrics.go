package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger core.
type Metrics struct {
	MintsTotal                prometheus.Counter
	TransfersTotal            prometheus.Counter
	RedemptionsTotal          prometheus.Counter
	InvestmentsTotal          prometheus.Counter
	ComplianceRejectionsTotal prometheus.Counter
	OperationDuration         *prometheus.HistogramVec
}

// New creates all metrics and registers them on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics against the given registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MintsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "metrina_mints_total",
			Help: "Total number of successful mint operations",
		}),
		TransfersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "metrina_transfers_total",
			Help: "Total number of successful balance transfers",
		}),
		RedemptionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "metrina_redemptions_total",
			Help: "Total number of successful redemption calls",
		}),
		InvestmentsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "metrina_investments_total",
			Help: "Total number of successful sale investments",
		}),
		ComplianceRejectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "metrina_compliance_rejections_total",
			Help: "Total number of operations rejected by the compliance gate",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metrina_operation_duration_seconds",
			Help:    "Duration of core ledger operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
