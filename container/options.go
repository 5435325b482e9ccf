package container

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nestd-go/nestd/logger"
	"github.com/nestd-go/nestd/metadata"
)

const instrumentationName = "github.com/nestd-go/nestd/container"

// Config controls how a registry builds its graph.
type Config struct {
	// Eager instantiates every provider during Build. When false providers are
	// created on first lookup.
	Eager bool `yaml:"eager"`
	// Metrics records instantiation metrics on the default prometheus registerer
	// unless WithMetrics supplies one.
	Metrics bool `yaml:"metrics"`
	// Tracing starts a span per instantiation on the global tracer provider
	// unless WithTracerProvider supplies one.
	Tracing bool `yaml:"tracing"`
}

// DefaultConfig returns the default container configuration.
func DefaultConfig() Config {
	return Config{Eager: true}
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	config     Config
	logger     logger.Logger
	scanner    *metadata.Scanner
	registerer prometheus.Registerer
	tracerProv trace.TracerProvider
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithEager toggles eager instantiation.
func WithEager(eager bool) Option {
	return func(o *options) {
		o.config.Eager = eager
	}
}

// WithLogger sets the logger the container reports through.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithScanner sets the metadata scanner used to discover lifecycle hooks.
func WithScanner(s *metadata.Scanner) Option {
	return func(o *options) {
		o.scanner = s
	}
}

// WithMetrics registers the container metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
		o.config.Metrics = true
	}
}

// WithTracerProvider starts instantiation spans on tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProv = tp
		o.config.Tracing = true
	}
}

func newOptions(opts []Option) *options {
	o := &options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logger.NewNoopLogger()
	}
	if o.scanner == nil {
		o.scanner = metadata.DefaultScanner()
	}
	if o.config.Metrics && o.registerer == nil {
		o.registerer = prometheus.DefaultRegisterer
	}
	if o.tracerProv == nil {
		if o.config.Tracing {
			o.tracerProv = otel.GetTracerProvider()
		} else {
			o.tracerProv = noop.NewTracerProvider()
		}
	}
	return o
}

func (o *options) tracer() trace.Tracer {
	return o.tracerProv.Tracer(instrumentationName)
}
