package container

import (
	"context"
	"sync"

	"github.com/nestd-go/nestd/errors"
	"github.com/nestd-go/nestd/metadata"
)

// Scanner looks tokens up in the flattened view of a sealed registry and hands
// back their instances.
//
// The flattened view maps every token to the bindings providing it, in module
// registration order. Each module additionally gets its visibility index,
// filled in precedence order: the module's own providers, then the exports of
// its imports in import order, then the exports of every global module. The
// first binding seen for a token wins.
//
// Both are computed once, on first use, and never change afterwards.
type Scanner struct {
	modules []*Module
	inj     *injector

	once    sync.Once
	flat    map[metadata.Token][]*binding
	visible map[*Module]map[metadata.Token]*binding
}

func newScanner(modules []*Module, inj *injector) *Scanner {
	return &Scanner{modules: modules, inj: inj}
}

// Find returns the instance of the first registered provider of token,
// whichever module owns it.
func (s *Scanner) Find(token metadata.Token) (any, error) {
	b, err := s.lookup(token)
	if err != nil {
		return nil, err
	}
	return s.inj.resolve(context.Background(), b, nil)
}

// FindScoped returns the instance token resolves to as seen from module.
func (s *Scanner) FindScoped(token metadata.Token, module *Module) (any, error) {
	b, err := s.lookupScoped(token, module)
	if err != nil {
		return nil, err
	}
	return s.inj.resolve(context.Background(), b, nil)
}

func (s *Scanner) lookup(token metadata.Token) (*binding, error) {
	s.flatten()

	bindings := s.flat[token]
	if len(bindings) == 0 {
		return nil, errors.ErrTokenNotFound(token.String())
	}
	return bindings[0], nil
}

func (s *Scanner) lookupScoped(token metadata.Token, module *Module) (*binding, error) {
	s.flatten()

	if b, ok := s.visible[module][token]; ok {
		return b, nil
	}
	if len(s.flat[token]) == 0 {
		return nil, errors.ErrTokenNotFound(token.String())
	}

	name := "<nil>"
	if module != nil {
		name = module.name
	}
	return nil, errors.ErrTokenNotVisible(token.String(), name)
}

func (s *Scanner) flatten() {
	s.once.Do(func() {
		s.flat = make(map[metadata.Token][]*binding)
		var globals []*Module
		for _, m := range s.modules {
			for _, tok := range m.order {
				s.flat[tok] = append(s.flat[tok], m.bindings[tok])
			}
			if m.global {
				globals = append(globals, m)
			}
		}

		exported := make(map[*Module]map[metadata.Token]*binding)
		s.visible = make(map[*Module]map[metadata.Token]*binding, len(s.modules))
		for _, m := range s.modules {
			index := make(map[metadata.Token]*binding, len(m.order))
			for _, tok := range m.order {
				index[tok] = m.bindings[tok]
			}
			for _, dep := range m.imports {
				merge(index, exportsOf(dep, exported, make(map[*Module]bool)))
			}
			for _, g := range globals {
				merge(index, exportsOf(g, exported, make(map[*Module]bool)))
			}
			s.visible[m] = index
		}
	})
}

// exportsOf returns what m exposes to its importers: explicitly exported
// tokens, own or re-exported from an import, and everything exported by the
// modules m re-exports. Results are memoized; modules re-exporting each other
// contribute what was known when the cycle was entered.
func exportsOf(m *Module, memo map[*Module]map[metadata.Token]*binding, active map[*Module]bool) map[metadata.Token]*binding {
	if cached, ok := memo[m]; ok {
		return cached
	}
	if active[m] {
		return nil
	}
	active[m] = true
	defer delete(active, m)

	out := make(map[metadata.Token]*binding)
	for _, tok := range m.exports {
		if b, ok := m.bindings[tok]; ok {
			out[tok] = b
			continue
		}
		for _, dep := range m.imports {
			if b, ok := exportsOf(dep, memo, active)[tok]; ok {
				out[tok] = b
				break
			}
		}
	}
	for _, dep := range m.reexports {
		merge(out, exportsOf(dep, memo, active))
	}

	memo[m] = out
	return out
}

func merge(dst, src map[metadata.Token]*binding) {
	for tok, b := range src {
		if _, ok := dst[tok]; !ok {
			dst[tok] = b
		}
	}
}
