package container

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nestd-go/nestd/errors"
	"github.com/nestd-go/nestd/logger"
	"github.com/nestd-go/nestd/metadata"
)

// Registry assembles modules before they are built into a Graph. It is safe
// for concurrent use. After Build every mutation fails with a RegistrySealed
// error.
type Registry struct {
	mu      sync.Mutex
	opts    *options
	log     logger.Logger
	modules []*Module
	shared  map[*ModuleDef]*Module
	seq     uint64
	sealed  bool
	graph   *Graph
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	o := newOptions(opts)
	return &Registry{
		opts:   o,
		log:    o.logger.Named("Registry"),
		shared: make(map[*ModuleDef]*Module),
	}
}

// Register adds def and, recursively, everything it imports. Shared and global
// definitions are registered once and reused by every importer. A definition
// that imports one of its own ancestors reuses the ancestor.
func (r *Registry) Register(def *ModuleDef) (*Module, error) {
	if def == nil {
		return nil, errors.ErrValidationError("module", errors.ErrNilModule)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, errors.ErrRegistrySealed("register module " + def.name)
	}
	return r.register(def, make(map[*ModuleDef]*Module))
}

func (r *Registry) register(d *ModuleDef, path map[*ModuleDef]*Module) (*Module, error) {
	if m, ok := path[d]; ok {
		return m, nil
	}

	shared := flag(d, metadata.KeySharedModule)
	global := flag(d, metadata.KeyGlobalModule)
	if shared || global {
		if m, ok := r.shared[d]; ok {
			return m, nil
		}
	}

	m := r.addModule(d.name)
	if global {
		r.markGlobal(m)
	} else if shared {
		r.markShared(m)
	}
	if m.shared {
		r.shared[d] = m
	}

	path[d] = m
	defer delete(path, d)

	if v, ok := d.Lookup(metadata.KeyProviders); ok {
		for _, p := range v.([]*Provider) {
			if err := r.addProvider(m, p); err != nil {
				return nil, err
			}
		}
	}

	byDef := make(map[*ModuleDef]*Module)
	if v, ok := d.Lookup(metadata.KeyImports); ok {
		for _, imp := range v.([]*ModuleDef) {
			dep, err := r.register(imp, path)
			if err != nil {
				return nil, err
			}
			r.addImport(m, dep)
			byDef[imp] = dep
		}
	}

	if v, ok := d.Lookup(metadata.KeyExports); ok {
		for _, export := range v.([]any) {
			var err error
			switch e := export.(type) {
			case metadata.Token:
				err = r.addExport(m, e)
			case *ModuleDef:
				dep, imported := byDef[e]
				if !imported {
					err = errors.ErrInvalidExport(m.name, e.name)
					break
				}
				err = r.addModuleExport(m, dep)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	r.log.Debug("module registered",
		logger.Module(m.name),
		logger.String("id", m.ID()),
		logger.Bool("global", m.global),
		logger.Bool("shared", m.shared),
	)
	return m, nil
}

func flag(d metadata.Reader, key metadata.Key) bool {
	v, ok := d.Lookup(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// AddModule creates an empty module that can be assembled imperatively.
func (r *Registry) AddModule(name string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, errors.ErrRegistrySealed("add module " + name)
	}
	return r.addModule(name), nil
}

func (r *Registry) addModule(name string) *Module {
	m := newModule(r, name)
	r.modules = append(r.modules, m)
	return m
}

// AddProvider adds p to m. A provider with a declaration error or a token m
// already provides is rejected as an invalid provider.
func (r *Registry) AddProvider(m *Module, p *Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutable(m, "add provider"); err != nil {
		return err
	}
	return r.addProvider(m, p)
}

func (r *Registry) addProvider(m *Module, p *Provider) error {
	if p == nil {
		return errors.ErrInvalidProvider("<nil>", errors.ErrNilProvider)
	}
	if err := p.Err(); err != nil {
		return errors.ErrInvalidProvider(p.Token().String(), err)
	}
	if m.Provides(p.Token()) {
		return errors.ErrInvalidProvider(p.Token().String(),
			errors.ErrDuplicateProvider(m.name, p.Token().String()))
	}

	r.seq++
	m.bindings[p.Token()] = newBinding(fmt.Sprintf("%s#%d", m.ID(), r.seq), m, p)
	m.order = append(m.order, p.Token())
	return nil
}

// AddImport makes dep's exports visible to m.
func (r *Registry) AddImport(m, dep *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutable(m, "add import"); err != nil {
		return err
	}
	if dep == nil || dep.registry != r {
		return errors.ErrValidationError("import", errors.ErrForeignModule)
	}
	r.addImport(m, dep)
	return nil
}

func (r *Registry) addImport(m, dep *Module) {
	if !m.imported(dep) {
		m.imports = append(m.imports, dep)
	}
}

// AddExport exposes tok to m's importers. tok must be provided by m or
// exported by one of m's imports.
func (r *Registry) AddExport(m *Module, tok metadata.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutable(m, "add export"); err != nil {
		return err
	}
	return r.addExport(m, tok)
}

func (r *Registry) addExport(m *Module, tok metadata.Token) error {
	if slices.Contains(m.exports, tok) {
		return nil
	}
	if !m.Provides(tok) && !slices.ContainsFunc(m.imports, func(dep *Module) bool {
		return dep.exportsToken(tok, make(map[*Module]bool))
	}) {
		return errors.ErrInvalidExport(m.name, tok.String())
	}
	m.exports = append(m.exports, tok)
	return nil
}

// AddModuleExport re-exports everything dep exports. dep must be imported by m.
func (r *Registry) AddModuleExport(m, dep *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutable(m, "add module export"); err != nil {
		return err
	}
	if dep == nil {
		return errors.ErrInvalidExport(m.name, "<nil>")
	}
	return r.addModuleExport(m, dep)
}

func (r *Registry) addModuleExport(m, dep *Module) error {
	if !m.imported(dep) {
		return errors.ErrInvalidExport(m.name, dep.name)
	}
	if !slices.Contains(m.reexports, dep) {
		m.reexports = append(m.reexports, dep)
	}
	return nil
}

// MarkGlobal makes m's exports visible from every module.
func (r *Registry) MarkGlobal(m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutable(m, "mark global"); err != nil {
		return err
	}
	r.markGlobal(m)
	return nil
}

func (r *Registry) markGlobal(m *Module) {
	m.global = true
	m.shared = true
}

// MarkShared flags m as shared.
func (r *Registry) MarkShared(m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutable(m, "mark shared"); err != nil {
		return err
	}
	r.markShared(m)
	return nil
}

func (r *Registry) markShared(m *Module) {
	m.shared = true
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []*Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.modules)
}

func (r *Registry) mutable(m *Module, operation string) error {
	if r.sealed {
		return errors.ErrRegistrySealed(operation)
	}
	if m == nil || m.registry != r {
		return errors.ErrValidationError(operation, errors.ErrForeignModule)
	}
	return nil
}

// Build seals the registry and links every provider to its dependencies. It
// fails on unresolvable required dependencies and on dependency cycles. With
// eager instantiation (the default) every provider is created before Build
// returns. Building twice returns the same graph.
func (r *Registry) Build(ctx context.Context) (*Graph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.graph != nil {
		return r.graph, nil
	}
	r.sealed = true

	g, err := newGraph(r.opts, slices.Clone(r.modules))
	if err != nil {
		r.log.Error("failed to build graph", logger.Error(err))
		return nil, err
	}
	if err := g.link(); err != nil {
		return nil, err
	}
	if r.opts.config.Eager {
		if err := g.instantiateAll(ctx); err != nil {
			return nil, err
		}
	}

	r.graph = g
	return g, nil
}
