package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/nestd-go/nestd/errors"
	"github.com/nestd-go/nestd/logger"
	"github.com/nestd-go/nestd/metadata"
)

// Graph is the built, immutable form of a Registry. Lookups go through the
// embedded Scanner.
type Graph struct {
	*Scanner

	opts     *options
	log      logger.Logger
	loader   logger.Logger
	metrics  *Metrics
	modules  []*Module
	bindings []*binding // registration order
	order    []*binding // dependency order

	mu      sync.Mutex
	started bool
	running []hookTarget // targets whose init hooks ran, in order
}

func newGraph(opts *options, modules []*Module) (*Graph, error) {
	var metrics *Metrics
	if opts.config.Metrics {
		var err error
		if metrics, err = NewMetrics(opts.registerer); err != nil {
			return nil, fmt.Errorf("failed to register container metrics: %w", err)
		}
	}

	inj := &injector{
		log:     opts.logger.Named("Injector"),
		tracer:  opts.tracer(),
		metrics: metrics,
	}

	g := &Graph{
		Scanner: newScanner(modules, inj),
		opts:    opts,
		log:     opts.logger,
		loader:  opts.logger.Named("InstanceLoader"),
		metrics: metrics,
		modules: modules,
	}
	for _, m := range modules {
		for _, tok := range m.order {
			g.bindings = append(g.bindings, m.bindings[tok])
		}
	}
	return g, nil
}

// link resolves every binding's dependency tokens against its module's
// visibility index, then orders bindings by dependency.
func (g *Graph) link() error {
	var errs []error
	for _, b := range g.bindings {
		errs = append(errs, g.linkBinding(b)...)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	dg := NewDependencyGraph()
	byID := make(map[string]*binding, len(g.bindings))
	for _, b := range g.bindings {
		byID[b.id] = b
		deps := b.dependencies()
		ids := make([]string, len(deps))
		for i, d := range deps {
			ids[i] = d.id
		}
		dg.AddNode(b.id, b.label(), ids)
	}

	ids, err := dg.TopologicalSort()
	if err != nil {
		return err
	}
	g.order = make([]*binding, len(ids))
	for i, id := range ids {
		g.order[i] = byID[id]
	}

	g.metrics.setGraphSize(len(g.modules), len(g.bindings))
	return nil
}

func (g *Graph) linkBinding(b *binding) []error {
	if b.provider.Kind() == KindValue {
		return nil
	}

	var errs []error
	deps := b.provider.Dependencies()

	b.params = make([]*binding, len(deps.ParamTypes))
	for i := range deps.ParamTypes {
		tok := deps.EffectiveToken(i)
		target, err := g.lookupScoped(tok, b.module)
		switch {
		case err == nil:
			b.params[i] = target
		case deps.IsOptional(i):
		default:
			errs = append(errs, errors.ErrMissingDependency(b.label(), i, tok.String(), err).
				WithContext("module", b.module.name))
		}
	}

	b.props = make([]propertyLink, 0, len(deps.Properties))
	for _, p := range deps.Properties {
		target, err := g.lookupScoped(p.Token, b.module)
		switch {
		case err == nil:
			b.props = append(b.props, propertyLink{name: p.Name, target: target})
		case deps.IsOptionalProperty(p.Name):
		default:
			errs = append(errs, errors.ErrMissingProperty(b.label(), p.Name, p.Token.String(), err).
				WithContext("module", b.module.name))
		}
	}
	return errs
}

func (g *Graph) instantiateAll(ctx context.Context) error {
	for _, b := range g.order {
		if _, err := g.inj.resolve(ctx, b, nil); err != nil {
			return err
		}
	}
	for _, m := range g.modules {
		g.loader.Info(m.name+" dependencies initialized", logger.Module(m.name))
	}
	return nil
}

// Modules returns the graph's modules in registration order.
func (g *Graph) Modules() []*Module {
	out := make([]*Module, len(g.modules))
	copy(out, g.modules)
	return out
}

// Module returns the first module registered under name.
func (g *Graph) Module(name string) (*Module, bool) {
	for _, m := range g.modules {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

// Metrics returns the graph's metrics, nil when metrics are disabled.
func (g *Graph) Metrics() *Metrics {
	return g.metrics
}

// Get resolves the provider of T registered first in the graph.
func Get[T any](g *Graph) (T, error) {
	return GetToken[T](g, metadata.TypeOf[T]())
}

// GetToken resolves tok registry-wide and asserts the instance to T.
func GetToken[T any](g *Graph, tok metadata.Token) (T, error) {
	v, err := g.Find(tok)
	if err != nil {
		var zero T
		return zero, err
	}
	return assertInstance[T](tok, v)
}

// GetScoped resolves T as seen from module m.
func GetScoped[T any](g *Graph, m *Module) (T, error) {
	tok := metadata.TypeOf[T]()
	v, err := g.FindScoped(tok, m)
	if err != nil {
		var zero T
		return zero, err
	}
	return assertInstance[T](tok, v)
}

// MustGet is Get, panicking on error.
func MustGet[T any](g *Graph) T {
	v, err := Get[T](g)
	if err != nil {
		panic(err)
	}
	return v
}

func assertInstance[T any](tok metadata.Token, v any) (T, error) {
	if v == nil {
		var zero T
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, errors.ErrTypeMismatch(tok.String(), reflect.TypeFor[T]().String(), fmt.Sprintf("%T", v))
	}
	return t, nil
}
