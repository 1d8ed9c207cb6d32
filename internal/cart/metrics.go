package cart

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Ops       *prometheus.CounterVec
	Checkouts prometheus.Counter
	Items     prometheus.Histogram
}

type sessionCounter interface {
	Sessions() int
}

// NewMetrics registers the cart collectors. Stores that can count their live
// carts also get a storefront_carts_active gauge.
func NewMetrics(reg prometheus.Registerer, store Store) *Metrics {
	m := &Metrics{
		Ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cart_operations_total",
				Help: "Cart mutations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		Checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Completed mock checkouts",
		}),
		Items: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_checkout_items",
			Help:    "Items per checked out cart",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
	reg.MustRegister(m.Ops, m.Checkouts, m.Items)

	if sc, ok := store.(sessionCounter); ok {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "storefront_carts_active",
			Help: "Sessions holding a non-empty cart",
		}, func() float64 { return float64(sc.Sessions()) }))
	}
	return m
}

func (m *Metrics) op(name, outcome string) {
	if m == nil {
		return
	}
	m.Ops.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) checkout(c Cart) {
	if m == nil {
		return
	}
	m.Checkouts.Inc()
	m.Items.Observe(float64(c.TotalItems()))
}
