package nestd

import (
	"github.com/nestd-go/nestd/container"
	"github.com/nestd-go/nestd/metadata"
)

// Token identifies a requestable dependency.
type Token = metadata.Token

// ModuleDef declares a module.
type ModuleDef = container.ModuleDef

// Module is a registered module instance.
type Module = container.Module

// Provider is a recipe for producing the instance behind a token.
type Provider = container.Provider

// ProviderOption adjusts the declared metadata of a provider.
type ProviderOption = container.ProviderOption

// Graph is a built container.
type Graph = container.Graph

// NewModule starts a module definition.
func NewModule(name string) *ModuleDef {
	return container.NewModule(name)
}

// Class registers a constructor under its result type.
func Class(ctor any, opts ...ProviderOption) *Provider {
	return container.Class(ctor, opts...)
}

// Factory registers fn under token.
func Factory(token Token, fn any, opts ...ProviderOption) *Provider {
	return container.Factory(token, fn, opts...)
}

// Value registers a prebuilt value under token.
func Value(token Token, value any) *Provider {
	return container.Value(token, value)
}

// TypeOf returns the token for type T.
func TypeOf[T any]() Token {
	return metadata.TypeOf[T]()
}

// Name returns a string token.
func Name(name string) Token {
	return metadata.Name(name)
}

// Symbol returns a token equal only to itself.
func Symbol(desc string) Token {
	return metadata.Symbol(desc)
}
