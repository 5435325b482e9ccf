// Package nestd assembles an application from a root module: it loads the
// configuration, builds the dependency graph and drives the lifecycle hooks.
package nestd

import (
	"context"
	"fmt"

	"github.com/nestd-go/nestd/config"
	"github.com/nestd-go/nestd/container"
	"github.com/nestd-go/nestd/errors"
	"github.com/nestd-go/nestd/logger"
)

// App is a built application.
type App struct {
	config   *config.Config
	log      logger.Logger
	registry *container.Registry
	root     *container.Module
	graph    *container.Graph
}

// New registers root and everything it imports, then builds the graph. A nil
// cfg uses config.DefaultConfig. opts are applied after the options derived
// from cfg.
func New(ctx context.Context, root *ModuleDef, cfg *config.Config, opts ...container.Option) (*App, error) {
	if root == nil {
		return nil, errors.ErrValidationError("root", errors.ErrNilModule)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.Logging)
	registry := container.NewRegistry(append(cfg.ContainerOptions(log), opts...)...)
	rootModule, err := registry.Register(root)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", root.Name(), err)
	}

	graph, err := registry.Build(ctx)
	if err != nil {
		return nil, err
	}

	return &App{
		config:   cfg,
		log:      log,
		registry: registry,
		root:     rootModule,
		graph:    graph,
	}, nil
}

// Start runs the init and bootstrap hooks.
func (a *App) Start(ctx context.Context) error {
	return a.graph.Start(ctx)
}

// Stop runs the shutdown and destroy hooks and flushes the logger.
func (a *App) Stop(ctx context.Context) error {
	err := a.graph.Stop(ctx)
	// syncing a console sink fails with EINVAL or ENOTTY on some platforms
	_ = a.log.Sync()
	return err
}

// Get returns the instance of token, searching the whole graph.
func (a *App) Get(token Token) (any, error) {
	return a.graph.Find(token)
}

// Graph returns the built graph.
func (a *App) Graph() *Graph {
	return a.graph
}

// Root returns the root module.
func (a *App) Root() *Module {
	return a.root
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.log
}

// Config returns the configuration the application was built with.
func (a *App) Config() *config.Config {
	return a.config
}

// Get resolves T from app.
func Get[T any](app *App) (T, error) {
	return container.Get[T](app.graph)
}

// MustGet resolves T from app, panicking on error.
func MustGet[T any](app *App) T {
	return container.MustGet[T](app.graph)
}
