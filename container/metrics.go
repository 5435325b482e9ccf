package container

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records what the container instantiates.
type Metrics struct {
	instantiations *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	modules        prometheus.Gauge
	providers      prometheus.Gauge
}

// NewMetrics creates the container collectors and registers them on reg.
// Collectors already registered by another container are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		instantiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nestd",
				Subsystem: "container",
				Name:      "instantiations_total",
				Help:      "Total number of provider instantiations",
			},
			[]string{"module", "kind", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nestd",
				Subsystem: "container",
				Name:      "instantiation_duration_seconds",
				Help:      "Provider instantiation duration in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"module"},
		),
		modules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nestd",
			Subsystem: "container",
			Name:      "modules",
			Help:      "Number of modules in the built graph",
		}),
		providers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nestd",
			Subsystem: "container",
			Name:      "providers",
			Help:      "Number of provider bindings in the built graph",
		}),
	}

	var err error
	if m.instantiations, err = register(reg, m.instantiations); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.modules, err = register(reg, m.modules); err != nil {
		return nil, err
	}
	if m.providers, err = register(reg, m.providers); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observeInstantiation(module string, kind ProviderKind, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.instantiations.WithLabelValues(module, kind.String(), result).Inc()
	m.duration.WithLabelValues(module).Observe(d.Seconds())
}

func (m *Metrics) setGraphSize(modules, providers int) {
	if m == nil {
		return
	}
	m.modules.Set(float64(modules))
	m.providers.Set(float64(providers))
}
