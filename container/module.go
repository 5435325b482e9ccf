package container

import (
	"slices"

	"github.com/google/uuid"

	"github.com/nestd-go/nestd/metadata"
)

// ModuleDef declares a module: the providers it owns, the modules it imports
// and what it exposes to its importers. The registry reads a definition only
// through the metadata keys it answers in Lookup.
//
//	cats := container.NewModule("CatsModule").
//	    Import(database).
//	    Provide(container.Class(NewCatsService)).
//	    Export(metadata.TypeOf[*CatsService]())
type ModuleDef struct {
	name      string
	imports   []*ModuleDef
	providers []*Provider
	exports   []any // metadata.Token or *ModuleDef, in declaration order
	global    bool
	shared    bool
}

// NewModule starts a module definition.
func NewModule(name string) *ModuleDef {
	return &ModuleDef{name: name}
}

// Import adds modules whose exports become visible to this module.
func (d *ModuleDef) Import(defs ...*ModuleDef) *ModuleDef {
	d.imports = append(d.imports, defs...)
	return d
}

// Provide adds providers owned by this module.
func (d *ModuleDef) Provide(providers ...*Provider) *ModuleDef {
	d.providers = append(d.providers, providers...)
	return d
}

// Export exposes tokens to importers. A token must be provided by the module
// or exported by one of its imports.
func (d *ModuleDef) Export(tokens ...metadata.Token) *ModuleDef {
	for _, tok := range tokens {
		d.exports = append(d.exports, tok)
	}
	return d
}

// ExportModule re-exports everything an imported module exports.
func (d *ModuleDef) ExportModule(defs ...*ModuleDef) *ModuleDef {
	for _, def := range defs {
		d.exports = append(d.exports, def)
	}
	return d
}

// Global makes the module's exports visible from every module. Global modules
// are shared.
func (d *ModuleDef) Global() *ModuleDef {
	d.global = true
	d.shared = true
	return d
}

// Shared gives the module a single instance whatever the number of importers.
func (d *ModuleDef) Shared() *ModuleDef {
	d.shared = true
	return d
}

// Name returns the module name.
func (d *ModuleDef) Name() string {
	return d.name
}

// Lookup implements metadata.Reader. KeyModules is the legacy alias of KeyImports.
func (d *ModuleDef) Lookup(key metadata.Key) (any, bool) {
	switch key {
	case metadata.KeyImports, metadata.KeyModules:
		return slices.Clone(d.imports), len(d.imports) > 0
	case metadata.KeyProviders:
		return slices.Clone(d.providers), len(d.providers) > 0
	case metadata.KeyExports:
		return slices.Clone(d.exports), len(d.exports) > 0
	case metadata.KeyGlobalModule:
		return d.global, d.global
	case metadata.KeySharedModule:
		return d.shared, d.shared
	default:
		return nil, false
	}
}

// Module is a registered module instance. Non-shared definitions produce one
// Module per importer; shared and global definitions produce exactly one.
type Module struct {
	id       uuid.UUID
	name     string
	registry *Registry
	global   bool
	shared   bool

	imports   []*Module
	bindings  map[metadata.Token]*binding
	order     []metadata.Token
	exports   []metadata.Token
	reexports []*Module
}

func newModule(r *Registry, name string) *Module {
	return &Module{
		id:       uuid.New(),
		name:     name,
		registry: r,
		bindings: make(map[metadata.Token]*binding),
	}
}

// ID returns the unique id of this module instance.
func (m *Module) ID() string {
	return m.id.String()
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// IsGlobal reports whether the module's exports are visible everywhere.
func (m *Module) IsGlobal() bool {
	return m.global
}

// IsShared reports whether the module has a single instance.
func (m *Module) IsShared() bool {
	return m.shared
}

// Imports returns the imported modules in declaration order.
func (m *Module) Imports() []*Module {
	return slices.Clone(m.imports)
}

// Tokens returns the tokens the module provides, in registration order.
func (m *Module) Tokens() []metadata.Token {
	return slices.Clone(m.order)
}

// Exports returns the tokens the module exports explicitly.
func (m *Module) Exports() []metadata.Token {
	return slices.Clone(m.exports)
}

// ExportedModules returns the imported modules the module re-exports.
func (m *Module) ExportedModules() []*Module {
	return slices.Clone(m.reexports)
}

// Provides reports whether the module owns a provider for tok.
func (m *Module) Provides(tok metadata.Token) bool {
	_, ok := m.bindings[tok]
	return ok
}

func (m *Module) imported(dep *Module) bool {
	return slices.Contains(m.imports, dep)
}

// exportsToken reports whether tok reaches importers of m, either as an own or
// re-exported token or through a re-exported module.
func (m *Module) exportsToken(tok metadata.Token, seen map[*Module]bool) bool {
	if seen[m] {
		return false
	}
	seen[m] = true

	if slices.Contains(m.exports, tok) {
		return true
	}
	for _, dep := range m.reexports {
		if dep.exportsToken(tok, seen) {
			return true
		}
	}
	return false
}

func (m *Module) String() string {
	return m.name
}
