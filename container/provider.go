package container

import (
	"fmt"
	"reflect"

	"github.com/nestd-go/nestd/errors"
	"github.com/nestd-go/nestd/metadata"
)

// ProviderKind tells how a provider produces its instance.
type ProviderKind int

const (
	// KindClass providers call a constructor whose parameter types are the dependencies.
	KindClass ProviderKind = iota
	// KindFactory providers call a function registered under an explicit token.
	KindFactory
	// KindValue providers hand out a prebuilt value.
	KindValue
)

func (k ProviderKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindFactory:
		return "factory"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

var errorType = reflect.TypeFor[error]()

// Provider is a registered recipe for producing the instance behind a token.
type Provider struct {
	token metadata.Token
	kind  ProviderKind
	deps  metadata.Dependencies
	fn    reflect.Value
	value any
	err   error
}

// ProviderOption adjusts the declared metadata of a provider.
type ProviderOption func(*Provider)

// Class registers a constructor. The provided token is the constructor's first
// result type, and its parameter types are the inferred dependency tokens.
// Property dependencies declared with `inject` struct tags on the result type
// are picked up as well.
//
// The constructor must return (T) or (T, error).
//
//	container.Class(NewCatsService, container.Inject(1, metadata.Name("CATS_TABLE")))
func Class(ctor any, opts ...ProviderOption) *Provider {
	p := &Provider{kind: KindClass}
	p.parseFunc(ctor)
	if p.err == nil {
		p.token = metadata.TypeToken(p.fn.Type().Out(0))
		p.readTags(p.fn.Type().Out(0))
	}
	return p.apply(opts)
}

// Factory registers fn under token. Parameters are inferred from fn the same
// way Class does; use InjectAll or Inject to name them explicitly.
func Factory(token metadata.Token, fn any, opts ...ProviderOption) *Provider {
	p := &Provider{kind: KindFactory, token: token}
	p.parseFunc(fn)
	return p.apply(opts)
}

// Value registers a prebuilt value under token.
func Value(token metadata.Token, value any) *Provider {
	return &Provider{kind: KindValue, token: token, value: value}
}

// As registers the provider under token instead of its inferred one.
func As(token metadata.Token) ProviderOption {
	return func(p *Provider) {
		p.token = token
	}
}

// Inject overrides the token resolved for the parameter at index.
func Inject(index int, token metadata.Token) ProviderOption {
	return func(p *Provider) {
		if index < 0 || index >= len(p.deps.ParamTypes) {
			p.fail(fmt.Errorf("inject index %d out of range (%d parameters)", index, len(p.deps.ParamTypes)))
			return
		}
		p.deps.DeclareParam(index, token)
	}
}

// InjectAll overrides the tokens of the leading parameters, in order.
func InjectAll(tokens ...metadata.Token) ProviderOption {
	return func(p *Provider) {
		for i, tok := range tokens {
			Inject(i, tok)(p)
		}
	}
}

// Optional marks the parameter at index as optional: when its token cannot be
// resolved the zero value of the parameter type is passed instead.
func Optional(index int) ProviderOption {
	return func(p *Provider) {
		if index < 0 || index >= len(p.deps.ParamTypes) {
			p.fail(fmt.Errorf("optional index %d out of range (%d parameters)", index, len(p.deps.ParamTypes)))
			return
		}
		p.deps.MarkOptional(index)
	}
}

// Property injects token into the exported field name after construction.
func Property(name string, token metadata.Token) ProviderOption {
	return func(p *Provider) {
		p.deps.DeclareProperty(name, token, false)
	}
}

// OptionalProperty is Property, leaving the field untouched when token cannot be resolved.
func OptionalProperty(name string, token metadata.Token) ProviderOption {
	return func(p *Provider) {
		p.deps.DeclareProperty(name, token, true)
	}
}

// Token returns the token the provider is registered under.
func (p *Provider) Token() metadata.Token {
	return p.token
}

// Kind returns how the provider produces its instance.
func (p *Provider) Kind() ProviderKind {
	return p.kind
}

// Dependencies returns the provider's declared dependency metadata.
func (p *Provider) Dependencies() *metadata.Dependencies {
	return &p.deps
}

// Err returns the error found while declaring the provider, if any.
func (p *Provider) Err() error {
	return p.err
}

func (p *Provider) apply(opts []ProviderOption) *Provider {
	for _, opt := range opts {
		if p.err != nil {
			break
		}
		opt(p)
	}
	if p.err == nil && p.token.IsZero() {
		p.fail(fmt.Errorf("provider has no token"))
	}
	return p
}

func (p *Provider) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *Provider) parseFunc(fn any) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		p.fail(errors.ErrInvalidFactory(fmt.Sprintf("%T", fn)))
		return
	}

	t := v.Type()
	if t.IsVariadic() {
		p.fail(fmt.Errorf("constructor %s must not be variadic", t))
		return
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		p.fail(fmt.Errorf("constructor %s must return (T) or (T, error)", t))
		return
	}

	p.fn = v
	p.deps.ParamTypes = make([]metadata.Token, t.NumIn())
	for i := range t.NumIn() {
		p.deps.ParamTypes[i] = metadata.TypeToken(t.In(i))
	}
}

func (p *Provider) readTags(t reflect.Type) {
	tagged, err := metadata.PropertiesFromTags(t)
	if err != nil {
		p.fail(err)
		return
	}
	p.deps.Merge(tagged)
}

// instantiate produces the instance from resolved arguments. A nil argument is
// the absence marker and becomes the zero value of the parameter type.
func (p *Provider) instantiate(args []any) (any, error) {
	if p.kind == KindValue {
		return p.value, nil
	}

	t := p.fn.Type()
	if t.NumIn() != len(args) {
		return nil, fmt.Errorf("constructor expects %d parameters, got %d arguments", t.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		want := t.In(i)
		if arg == nil {
			in[i] = reflect.Zero(want)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(want) {
			return nil, errors.ErrTypeMismatch(fmt.Sprintf("parameter [%d]", i), want.String(), v.Type().String())
		}
		in[i] = v
	}

	results := p.fn.Call(in)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// injectProperties assigns resolved property values onto instance. Absent
// values (nil) leave the field untouched.
func injectProperties(instance any, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}

	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("property injection requires a pointer to a struct, got %T", instance)
	}
	s := v.Elem()

	for name, value := range values {
		if value == nil {
			continue
		}
		f := s.FieldByName(name)
		if !f.IsValid() {
			return fmt.Errorf("%s has no field %s", s.Type(), name)
		}
		if !f.CanSet() {
			return fmt.Errorf("field %s.%s cannot be set", s.Type(), name)
		}
		rv := reflect.ValueOf(value)
		if !rv.Type().AssignableTo(f.Type()) {
			return errors.ErrTypeMismatch("property "+name, f.Type().String(), rv.Type().String())
		}
		f.Set(rv)
	}
	return nil
}
