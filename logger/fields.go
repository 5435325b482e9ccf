package logger

import "go.uber.org/zap"

// Field constructors.
var (
	// String creates a string field.
	String = zap.String
	// Strings creates a string slice field.
	Strings = zap.Strings
	// Int creates an int field.
	Int = zap.Int
	// Bool creates a bool field.
	Bool = zap.Bool
	// Duration creates a duration field.
	Duration = zap.Duration
	// Any creates a field from an arbitrary value.
	Any = zap.Any
	// Stringer creates a field from a fmt.Stringer.
	Stringer = zap.Stringer
)

// Error creates an error field under the "error" key.
func Error(err error) Field {
	return zap.Error(err)
}

// Module tags an entry with the module it concerns.
func Module(name string) Field {
	return zap.String("module", name)
}

// Token tags an entry with the token it concerns.
func Token(token string) Field {
	return zap.String("token", token)
}
