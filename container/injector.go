package container

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/nestd-go/nestd/errors"
	"github.com/nestd-go/nestd/logger"
)

type bindingState int32

const (
	stateUnresolved bindingState = iota
	stateResolving
	stateResolved
	stateFailed
)

func (s bindingState) String() string {
	switch s {
	case stateResolving:
		return "resolving"
	case stateResolved:
		return "resolved"
	case stateFailed:
		return "failed"
	default:
		return "unresolved"
	}
}

// binding is a provider placed in a module. It owns the provider's singleton
// for that module.
type binding struct {
	id       string
	module   *Module
	provider *Provider

	// set by link; a nil entry is an absent optional dependency
	params []*binding
	props  []propertyLink

	state    atomic.Int32
	instance any
	err      error
}

type propertyLink struct {
	name   string
	target *binding
}

func newBinding(id string, m *Module, p *Provider) *binding {
	return &binding{id: id, module: m, provider: p}
}

func (b *binding) label() string {
	return b.provider.Token().String()
}

func (b *binding) currentState() bindingState {
	return bindingState(b.state.Load())
}

// dependencies lists the linked bindings b needs, parameters first.
func (b *binding) dependencies() []*binding {
	deps := make([]*binding, 0, len(b.params)+len(b.props))
	for _, p := range b.params {
		if p != nil {
			deps = append(deps, p)
		}
	}
	for _, p := range b.props {
		if p.target != nil {
			deps = append(deps, p.target)
		}
	}
	return deps
}

// injector turns linked bindings into instances, at most once per binding.
type injector struct {
	group   singleflight.Group
	log     logger.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// resolve returns b's instance, creating it and its dependencies on first use.
// chain holds the bindings being resolved by the caller, outermost first.
func (in *injector) resolve(ctx context.Context, b *binding, chain []*binding) (any, error) {
	if inst, done, err := b.settled(); done {
		return inst, err
	}
	if i := slices.Index(chain, b); i >= 0 {
		return nil, circularError(append(slices.Clone(chain[i:]), b))
	}

	inst, err, _ := in.group.Do(b.id, func() (any, error) {
		if inst, done, err := b.settled(); done {
			return inst, err
		}

		b.state.Store(int32(stateResolving))
		inst, err := in.instantiate(ctx, b, append(slices.Clip(chain), b))
		if err != nil {
			b.err = err
			b.state.Store(int32(stateFailed))
			return nil, err
		}
		b.instance = inst
		b.state.Store(int32(stateResolved))
		return inst, nil
	})
	return inst, err
}

func (b *binding) settled() (any, bool, error) {
	switch b.currentState() {
	case stateResolved:
		return b.instance, true, nil
	case stateFailed:
		return nil, true, b.err
	default:
		return nil, false, nil
	}
}

func circularError(chain []*binding) error {
	labels := make([]string, len(chain))
	for i, b := range chain {
		labels[i] = b.label()
	}
	return errors.ErrCircularDependency(labels)
}

func (in *injector) instantiate(ctx context.Context, b *binding, chain []*binding) (any, error) {
	ctx, span := in.tracer.Start(ctx, "container.instantiate", trace.WithAttributes(
		attribute.String("nestd.module", b.module.name),
		attribute.String("nestd.token", b.label()),
		attribute.String("nestd.provider.kind", b.provider.Kind().String()),
	))
	defer span.End()

	start := time.Now()
	inst, err := in.construct(ctx, b, chain)
	in.metrics.observeInstantiation(b.module.name, b.provider.Kind(), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	in.log.Debug("provider instantiated",
		logger.Module(b.module.name),
		logger.Token(b.label()),
		logger.Duration("duration", time.Since(start)),
	)
	return inst, nil
}

func (in *injector) construct(ctx context.Context, b *binding, chain []*binding) (any, error) {
	args := make([]any, len(b.params))
	for i, dep := range b.params {
		if dep == nil {
			continue
		}
		v, err := in.resolve(ctx, dep, chain)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	inst, err := b.provider.instantiate(args)
	if err != nil {
		return nil, errors.NewProviderError(b.module.name, b.label(), "instantiate", err)
	}

	if len(b.props) == 0 {
		return inst, nil
	}
	values := make(map[string]any, len(b.props))
	for _, p := range b.props {
		if p.target == nil {
			continue
		}
		v, err := in.resolve(ctx, p.target, chain)
		if err != nil {
			return nil, err
		}
		values[p.name] = v
	}
	if err := injectProperties(inst, values); err != nil {
		return nil, errors.NewProviderError(b.module.name, b.label(), "inject properties", err)
	}
	return inst, nil
}
