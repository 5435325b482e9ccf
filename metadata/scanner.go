package metadata

import (
	"reflect"
	"runtime"
	"sync"
)

// Scanner discovers the methods an instance exposes along its embedding chain.
//
// The chain starts at the instance's own type and continues through every
// anonymously embedded type, depth-first in field order. A type that embeds
// nothing ends the chain. Only methods are collected; struct fields, including
// func-typed ones, never are.
//
// A level contributes only the methods it declares itself; methods promoted
// from an embedded type are reported at the embedded level. Each method name
// is reported once, at the most-derived level that declares it. An embedding
// type that redeclares a method of an embedded type therefore contributes the
// name in its own position, and calling it reaches its own implementation.
//
// Member lists are computed once per type and cached.
type Scanner struct {
	members sync.Map // reflect.Type -> []string
}

// NewScanner creates a scanner with an empty cache.
func NewScanner() *Scanner {
	return &Scanner{}
}

var defaultScanner = NewScanner()

// DefaultScanner returns the process-wide scanner cache.
func DefaultScanner() *Scanner {
	return defaultScanner
}

// ScanMethods applies extractor to every method name of instance and returns
// the results extractor reports as present, in chain order.
func ScanMethods[R any](s *Scanner, instance any, extractor func(name string) (R, bool)) []R {
	if instance == nil {
		return nil
	}
	if s == nil {
		s = defaultScanner
	}

	names := s.MethodNames(reflect.TypeOf(instance))
	results := make([]R, 0, len(names))
	for _, name := range names {
		if r, ok := extractor(name); ok {
			results = append(results, r)
		}
	}
	return results
}

// MethodNames returns the method names along t's embedding chain.
func (s *Scanner) MethodNames(t reflect.Type) []string {
	if t == nil {
		return nil
	}
	if cached, ok := s.members.Load(t); ok {
		return cached.([]string)
	}

	seen := make(map[string]bool)
	var names []string
	for _, level := range chain(t) {
		for i := 0; i < level.NumMethod(); i++ {
			m := level.Method(i)
			if !m.IsExported() || seen[m.Name] || !declares(level, m) {
				continue
			}
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	// anything the chain could not attribute still belongs to t
	for i := 0; i < t.NumMethod(); i++ {
		if m := t.Method(i); m.IsExported() && !seen[m.Name] {
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}

	actual, _ := s.members.LoadOrStore(t, names)
	return actual.([]string)
}

// declares reports whether level declares m itself rather than promoting it
// from an embedded type. Promoted methods are compiler-generated wrappers, as
// are pointer-receiver wrappers of value methods, so a wrapper on a pointer
// level still counts when the element type declares the method.
func declares(level reflect.Type, m reflect.Method) bool {
	if !m.Func.IsValid() {
		return true
	}
	if !generated(m.Func) {
		return true
	}
	if level.Kind() == reflect.Pointer {
		if vm, ok := level.Elem().MethodByName(m.Name); ok && vm.Func.IsValid() {
			return !generated(vm.Func)
		}
	}
	return false
}

func generated(fn reflect.Value) bool {
	pc := fn.Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return false
	}
	file, _ := f.FileLine(pc)
	return file == "<autogenerated>"
}

// chain lists the levels of t's embedding chain, t first.
func chain(t reflect.Type) []reflect.Type {
	levels := []reflect.Type{t}

	addressable := t.Kind() == reflect.Pointer
	base := t
	if addressable {
		base = t.Elem()
	}
	if base.Kind() != reflect.Struct {
		return levels
	}

	visited := map[reflect.Type]bool{base: true}
	var walk func(st reflect.Type)
	walk = func(st reflect.Type) {
		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			if !f.Anonymous {
				continue
			}

			ft := f.Type
			embeddedPtr := ft.Kind() == reflect.Pointer
			if embeddedPtr {
				ft = ft.Elem()
			}
			if visited[ft] {
				continue
			}
			visited[ft] = true

			level := ft
			if ft.Kind() != reflect.Interface && (addressable || embeddedPtr) {
				level = reflect.PointerTo(ft)
			}
			levels = append(levels, level)

			if ft.Kind() == reflect.Struct {
				walk(ft)
			}
		}
	}
	walk(base)

	return levels
}
