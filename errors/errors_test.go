package errors

import (
	"errors"
	"testing"
)

// TestErrorIs tests the Is implementation for Error.
func TestErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error code matches",
			err:    ErrTokenNotFound("CatsService"),
			target: ErrTokenNotFoundSentinel,
			want:   true,
		},
		{
			name:   "different error code does not match",
			err:    ErrTokenNotFound("CatsService"),
			target: ErrTokenNotVisibleSentinel,
			want:   false,
		},
		{
			name:   "wrapped error matches",
			err:    ErrMissingDependency("CatsService", 0, "Repo", ErrTokenNotVisible("Repo", "CatsModule")),
			target: ErrTokenNotVisibleSentinel,
			want:   true,
		},
		{
			name:   "nil target does not match",
			err:    ErrTokenNotFound("test"),
			target: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.target); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestProviderErrorIs tests the Is implementation for ProviderError.
func TestProviderErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same provider and operation matches",
			err:    NewProviderError("AppModule", "db", "instantiate", errors.New("timeout")),
			target: NewProviderError("", "db", "instantiate", nil),
			want:   true,
		},
		{
			name:   "partial match with empty provider",
			err:    NewProviderError("AppModule", "db", "instantiate", errors.New("timeout")),
			target: NewProviderError("", "", "instantiate", nil),
			want:   true,
		},
		{
			name:   "different provider does not match",
			err:    NewProviderError("AppModule", "db", "instantiate", errors.New("timeout")),
			target: NewProviderError("", "cache", "instantiate", nil),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.target); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestHelperFunctions tests the convenience helper functions.
func TestHelperFunctions(t *testing.T) {
	t.Run("IsTokenNotFound", func(t *testing.T) {
		if !IsTokenNotFound(ErrTokenNotFound("x")) {
			t.Error("IsTokenNotFound() failed to identify token not found error")
		}
	})

	t.Run("IsTokenNotVisible", func(t *testing.T) {
		if !IsTokenNotVisible(ErrTokenNotVisible("x", "m")) {
			t.Error("IsTokenNotVisible() failed to identify token not visible error")
		}
	})

	t.Run("IsMissingDependency", func(t *testing.T) {
		if !IsMissingDependency(ErrMissingProperty("p", "Field", "x", nil)) {
			t.Error("IsMissingDependency() failed to identify missing property error")
		}
	})

	t.Run("IsInvalidExport", func(t *testing.T) {
		if !IsInvalidExport(ErrInvalidExport("m", "x")) {
			t.Error("IsInvalidExport() failed to identify invalid export error")
		}
	})
}

// TestChain tests extraction of the cycle chain through wrappers.
func TestChain(t *testing.T) {
	chain := []string{"P", "Q", "P"}

	t.Run("direct", func(t *testing.T) {
		got := Chain(ErrCircularDependency(chain))
		if len(got) != 3 || got[0] != "P" || got[1] != "Q" || got[2] != "P" {
			t.Errorf("Chain() = %v, want %v", got, chain)
		}
	})

	t.Run("wrapped in provider and missing dependency errors", func(t *testing.T) {
		err := NewProviderError("X", "P", "resolve",
			ErrMissingDependency("P", 0, "Q", ErrCircularDependency(chain)))
		if got := Chain(err); len(got) != 3 {
			t.Errorf("Chain() = %v, want %v", got, chain)
		}
	})

	t.Run("non-circular error", func(t *testing.T) {
		if got := Chain(ErrTokenNotFound("x")); got != nil {
			t.Errorf("Chain() = %v, want nil", got)
		}
	})
}

// TestWithContext tests the WithContext method.
func TestWithContext(t *testing.T) {
	err := ErrTokenNotFound("test").
		WithContext("module", "AppModule")

	if err.Context["module"] != "AppModule" {
		t.Error("context module not set correctly")
	}

	if err.Context["token"] != "test" {
		t.Error("context token not set by constructor")
	}
}

// TestUnwrap tests the Unwrap wrapper function.
func TestUnwrap(t *testing.T) {
	innerErr := errors.New("inner error")
	wrappedErr := ErrConfigError("config failed", innerErr)

	unwrapped := Unwrap(wrappedErr)
	if !errors.Is(unwrapped, innerErr) {
		t.Errorf("Unwrap() returned wrong error: got %v, want %v", unwrapped, innerErr)
	}
}

// Example usage demonstrating the Is functionality.
func ExampleIs() {
	err := ErrTokenNotVisible("UsersService", "CatsModule")

	if Is(err, ErrTokenNotVisibleSentinel) {
		// export UsersService from its module, then import that module
	}

	if IsTokenNotVisible(err) {
		// same check through the helper
	}
}
