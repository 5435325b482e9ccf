package metadata

import (
	"reflect"
)

// TokenKind distinguishes the three ways a dependency can be requested.
type TokenKind int

const (
	KindInvalid TokenKind = iota
	KindType
	KindName
	KindSymbol
)

func (k TokenKind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindName:
		return "name"
	case KindSymbol:
		return "symbol"
	default:
		return "invalid"
	}
}

// Token identifies a requestable dependency. Tokens are comparable and can be
// used as map keys.
type Token struct {
	typ  reflect.Type
	name string
	sym  *symbol
}

type symbol struct {
	desc string
}

// TypeOf returns the token for type T.
func TypeOf[T any]() Token {
	return Token{typ: reflect.TypeFor[T]()}
}

// TypeToken returns the token for a reflected type.
func TypeToken(t reflect.Type) Token {
	return Token{typ: t}
}

// Name returns a string token.
func Name(name string) Token {
	return Token{name: name}
}

// Symbol returns a new token that is equal only to itself, whatever its description.
func Symbol(desc string) Token {
	return Token{sym: &symbol{desc: desc}}
}

// Kind reports what the token refers to.
func (t Token) Kind() TokenKind {
	switch {
	case t.typ != nil:
		return KindType
	case t.sym != nil:
		return KindSymbol
	case t.name != "":
		return KindName
	default:
		return KindInvalid
	}
}

// IsZero reports whether t is the zero token.
func (t Token) IsZero() bool {
	return t.Kind() == KindInvalid
}

// Type returns the referenced type for type tokens, nil otherwise.
func (t Token) Type() reflect.Type {
	return t.typ
}

func (t Token) String() string {
	switch t.Kind() {
	case KindType:
		return t.typ.String()
	case KindSymbol:
		return "Symbol(" + t.sym.desc + ")"
	case KindName:
		return t.name
	default:
		return "<invalid token>"
	}
}
