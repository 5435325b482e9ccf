package metadata

import (
	"maps"
	"slices"
)

// PropertyDep declares a dependency injected into a named struct field.
type PropertyDep struct {
	Name  string
	Token Token
}

// Dependencies is the declared dependency metadata of one injectable. Each
// field corresponds to one dependency key.
type Dependencies struct {
	// ParamTypes holds the inferred token of every constructor parameter, by position.
	ParamTypes []Token
	// SelfDeclared overrides the inferred token at a position.
	SelfDeclared map[int]Token
	// Optional marks positions resolved as "if present".
	Optional map[int]bool
	// Properties lists field-injected dependencies in declaration order.
	Properties []PropertyDep
	// OptionalProperties marks fields resolved as "if present".
	OptionalProperties map[string]bool
}

// EffectiveToken returns the token used to resolve parameter i: the
// self-declared override when present, the inferred type otherwise.
func (d *Dependencies) EffectiveToken(i int) Token {
	if tok, ok := d.SelfDeclared[i]; ok {
		return tok
	}
	if i >= 0 && i < len(d.ParamTypes) {
		return d.ParamTypes[i]
	}
	return Token{}
}

// IsOptional reports whether parameter i may be absent.
func (d *Dependencies) IsOptional(i int) bool {
	return d.Optional[i]
}

// IsOptionalProperty reports whether the named property may be absent.
func (d *Dependencies) IsOptionalProperty(name string) bool {
	return d.OptionalProperties[name]
}

// DeclareParam sets the self-declared token at position i.
func (d *Dependencies) DeclareParam(i int, tok Token) {
	if d.SelfDeclared == nil {
		d.SelfDeclared = make(map[int]Token)
	}
	d.SelfDeclared[i] = tok
}

// MarkOptional marks position i as optional.
func (d *Dependencies) MarkOptional(i int) {
	if d.Optional == nil {
		d.Optional = make(map[int]bool)
	}
	d.Optional[i] = true
}

// DeclareProperty adds or replaces a property dependency.
func (d *Dependencies) DeclareProperty(name string, tok Token, optional bool) {
	idx := slices.IndexFunc(d.Properties, func(p PropertyDep) bool { return p.Name == name })
	if idx >= 0 {
		d.Properties[idx].Token = tok
	} else {
		d.Properties = append(d.Properties, PropertyDep{Name: name, Token: tok})
	}

	if optional {
		if d.OptionalProperties == nil {
			d.OptionalProperties = make(map[string]bool)
		}
		d.OptionalProperties[name] = true
	}
}

// Merge folds other into d. Entries declared in other win over entries in d;
// inferred parameter types are only taken from other when d has none.
func (d *Dependencies) Merge(other Dependencies) {
	if len(d.ParamTypes) == 0 {
		d.ParamTypes = slices.Clone(other.ParamTypes)
	}
	for i, tok := range other.SelfDeclared {
		d.DeclareParam(i, tok)
	}
	for i, opt := range other.Optional {
		if opt {
			d.MarkOptional(i)
		}
	}
	for _, p := range other.Properties {
		d.DeclareProperty(p.Name, p.Token, other.OptionalProperties[p.Name])
	}
}

// Tokens returns every effective token the injectable depends on: parameters
// first, then properties.
func (d *Dependencies) Tokens() []Token {
	tokens := make([]Token, 0, len(d.ParamTypes)+len(d.Properties))
	for i := range d.ParamTypes {
		tokens = append(tokens, d.EffectiveToken(i))
	}
	for _, p := range d.Properties {
		tokens = append(tokens, p.Token)
	}
	return tokens
}

// Lookup implements Reader.
func (d *Dependencies) Lookup(key Key) (any, bool) {
	switch key {
	case KeyParamTypes:
		return slices.Clone(d.ParamTypes), len(d.ParamTypes) > 0
	case KeySelfDeclaredDeps:
		return maps.Clone(d.SelfDeclared), len(d.SelfDeclared) > 0
	case KeyOptionalDeps:
		return maps.Clone(d.Optional), len(d.Optional) > 0
	case KeyPropertyDeps:
		return slices.Clone(d.Properties), len(d.Properties) > 0
	case KeyOptionalPropertyDeps:
		return maps.Clone(d.OptionalProperties), len(d.OptionalProperties) > 0
	default:
		return nil, false
	}
}
