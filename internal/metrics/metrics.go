package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 汇总捐赠流水线的业务指标
type Registry struct {
	registry           *prometheus.Registry
	donationsTotal     *prometheus.CounterVec
	verificationsTotal *prometheus.CounterVec
	mintAttemptsTotal  *prometheus.CounterVec
	stuckDepth         prometheus.Gauge
}

func NewRegistry() *Registry {
	donations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eduverse_donations_total",
		Help: "Total number of donation submissions",
	}, []string{"status"})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eduverse_verifications_total",
		Help: "Total number of on-chain verification results",
	}, []string{"status"})

	mints := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eduverse_mint_attempts_total",
		Help: "NFT mint attempts by result",
	}, []string{"result"})

	stuck := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eduverse_stuck_donations",
		Help: "Confirmed donations whose mint retries are exhausted",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(donations, verifications, mints, stuck)

	return &Registry{
		registry:           r,
		donationsTotal:     donations,
		verificationsTotal: verifications,
		mintAttemptsTotal:  mints,
		stuckDepth:         stuck,
	}
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Registry) IncDonation(status string) {
	m.donationsTotal.WithLabelValues(status).Inc()
}

func (m *Registry) IncVerification(status string) {
	m.verificationsTotal.WithLabelValues(status).Inc()
}

func (m *Registry) IncMintAttempt(result string) {
	m.mintAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Registry) SetStuckDepth(depth int) {
	m.stuckDepth.Set(float64(depth))
}
