package container

import (
	"context"
	"fmt"
	"reflect"

	"github.com/nestd-go/nestd/errors"
	"github.com/nestd-go/nestd/logger"
	"github.com/nestd-go/nestd/metadata"
)

// OnModuleInit is called once the whole graph is instantiated, in dependency order.
type OnModuleInit interface {
	OnModuleInit(ctx context.Context) error
}

// OnApplicationBootstrap is called after every OnModuleInit hook succeeded.
type OnApplicationBootstrap interface {
	OnApplicationBootstrap(ctx context.Context) error
}

// BeforeApplicationShutdown is called first on Stop, in reverse dependency order.
type BeforeApplicationShutdown interface {
	BeforeApplicationShutdown(ctx context.Context) error
}

// OnModuleDestroy is called last on Stop, in reverse dependency order.
type OnModuleDestroy interface {
	OnModuleDestroy(ctx context.Context) error
}

type hookPhase int

const (
	phaseInit hookPhase = iota
	phaseBootstrap
	phaseShutdown
	phaseDestroy
)

var hookPhases = map[string]hookPhase{
	"OnModuleInit":              phaseInit,
	"OnApplicationBootstrap":    phaseBootstrap,
	"BeforeApplicationShutdown": phaseShutdown,
	"OnModuleDestroy":           phaseDestroy,
}

func (p hookPhase) String() string {
	switch p {
	case phaseInit:
		return "OnModuleInit"
	case phaseBootstrap:
		return "OnApplicationBootstrap"
	case phaseShutdown:
		return "BeforeApplicationShutdown"
	default:
		return "OnModuleDestroy"
	}
}

type hookFunc func(ctx context.Context) error

// hookTarget is an instance together with the hooks it implements.
type hookTarget struct {
	binding *binding
	hooks   map[hookPhase]hookFunc
}

func (t hookTarget) run(ctx context.Context, phase hookPhase) error {
	fn, ok := t.hooks[phase]
	if !ok {
		return nil
	}
	if err := fn(ctx); err != nil {
		return errors.NewProviderError(t.binding.module.name, t.binding.label(), phase.String(), err)
	}
	return nil
}

// Start resolves every provider, then calls OnModuleInit hooks followed by
// OnApplicationBootstrap hooks in dependency order. When a hook fails the
// instances already initialized get their OnModuleDestroy hook, in reverse
// order, and Start returns the failure.
func (g *Graph) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return errors.ErrContainerStarted()
	}

	for _, b := range g.order {
		if _, err := g.inj.resolve(ctx, b, nil); err != nil {
			return err
		}
	}

	log := g.log.Named("Lifecycle")
	targets := g.hookTargets(log)

	initialized := make([]hookTarget, 0, len(targets))
	for _, t := range targets {
		if err := t.run(ctx, phaseInit); err != nil {
			g.rollback(ctx, log, initialized)
			return errors.ErrLifecycleError(phaseInit.String(), err)
		}
		initialized = append(initialized, t)
	}

	for _, t := range targets {
		if err := t.run(ctx, phaseBootstrap); err != nil {
			g.rollback(ctx, log, initialized)
			return errors.ErrLifecycleError(phaseBootstrap.String(), err)
		}
	}

	g.running = targets
	g.started = true
	log.Info("application started", logger.Int("hooks", len(targets)))
	return nil
}

// Stop calls BeforeApplicationShutdown hooks, then OnModuleDestroy hooks, both
// in reverse dependency order. Every hook runs; failures are joined. Stopping
// a graph that is not started is a no-op.
func (g *Graph) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		return nil
	}

	var errs []error
	for _, phase := range []hookPhase{phaseShutdown, phaseDestroy} {
		for i := len(g.running) - 1; i >= 0; i-- {
			if err := g.running[i].run(ctx, phase); err != nil {
				errs = append(errs, errors.ErrLifecycleError(phase.String(), err))
			}
		}
	}

	g.running = nil
	g.started = false
	g.log.Named("Lifecycle").Info("application stopped")
	return errors.Join(errs...)
}

func (g *Graph) rollback(ctx context.Context, log logger.Logger, initialized []hookTarget) {
	for i := len(initialized) - 1; i >= 0; i-- {
		if err := initialized[i].run(ctx, phaseDestroy); err != nil {
			log.Warn("rollback hook failed", logger.Error(err))
		}
	}
}

// hookTargets lists resolved instances implementing at least one hook, in
// dependency order. A pointer bound in several places is listed once.
func (g *Graph) hookTargets(log logger.Logger) []hookTarget {
	seen := make(map[any]bool)
	var targets []hookTarget
	for _, b := range g.order {
		inst, _, _ := b.settled()
		if inst == nil {
			continue
		}
		if reflect.TypeOf(inst).Kind() == reflect.Pointer {
			if seen[inst] {
				continue
			}
			seen[inst] = true
		}

		hooks := discoverHooks(g.opts.scanner, log, inst)
		if len(hooks) > 0 {
			targets = append(targets, hookTarget{binding: b, hooks: hooks})
		}
	}
	return targets
}

// discoverHooks scans inst for hook methods. A method named like a hook but
// with another signature is reported and skipped.
func discoverHooks(s *metadata.Scanner, log logger.Logger, inst any) map[hookPhase]hookFunc {
	phases := metadata.ScanMethods(s, inst, func(name string) (hookPhase, bool) {
		p, ok := hookPhases[name]
		return p, ok
	})

	hooks := make(map[hookPhase]hookFunc, len(phases))
	for _, phase := range phases {
		fn := bindHook(inst, phase)
		if fn == nil {
			log.Warn("lifecycle hook has an unexpected signature and is skipped",
				logger.String("hook", phase.String()),
				logger.String("type", fmt.Sprintf("%T", inst)),
			)
			continue
		}
		hooks[phase] = fn
	}
	return hooks
}

func bindHook(inst any, phase hookPhase) hookFunc {
	switch phase {
	case phaseInit:
		if h, ok := inst.(OnModuleInit); ok {
			return h.OnModuleInit
		}
	case phaseBootstrap:
		if h, ok := inst.(OnApplicationBootstrap); ok {
			return h.OnApplicationBootstrap
		}
	case phaseShutdown:
		if h, ok := inst.(BeforeApplicationShutdown); ok {
			return h.BeforeApplicationShutdown
		}
	case phaseDestroy:
		if h, ok := inst.(OnModuleDestroy); ok {
			return h.OnModuleDestroy
		}
	}
	return nil
}
