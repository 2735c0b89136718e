package secure

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestToken_Use(t *testing.T) {
	t.Parallel()

	tok := NewToken("s.super-secret-token")
	defer tok.Destroy()

	if tok.Empty() {
		t.Fatal("Empty() = true, want false")
	}

	var got string
	if err := tok.Use(func(token string) error {
		got = token
		return nil
	}); err != nil {
		t.Fatalf("Use() error = %v", err)
	}
	if got != "s.super-secret-token" {
		t.Errorf("Use() passed %q, want %q", got, "s.super-secret-token")
	}
}

func TestToken_UseMultipleTimes(t *testing.T) {
	t.Parallel()

	tok := NewToken("repeatable")
	defer tok.Destroy()

	for i := 0; i < 3; i++ {
		err := tok.Use(func(token string) error {
			if token != "repeatable" {
				t.Errorf("iteration %d: got %q", i, token)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Use() iteration %d error = %v", i, err)
		}
	}
}

func TestToken_UsePropagatesCallbackError(t *testing.T) {
	t.Parallel()

	tok := NewToken("value")
	defer tok.Destroy()

	want := errors.New("connect failed")
	if err := tok.Use(func(string) error { return want }); !errors.Is(err, want) {
		t.Errorf("Use() error = %v, want %v", err, want)
	}
}

func TestToken_Empty(t *testing.T) {
	t.Parallel()

	tok := NewToken("")
	if !tok.Empty() {
		t.Error("Empty() = false for empty value")
	}

	called := false
	err := tok.Use(func(string) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrEmptyToken) {
		t.Errorf("Use() error = %v, want ErrEmptyToken", err)
	}
	if called {
		t.Error("callback ran for an empty token")
	}
}

func TestToken_Destroy(t *testing.T) {
	t.Parallel()

	tok := NewToken("secret-to-destroy")

	// Double destroy should not panic.
	tok.Destroy()
	tok.Destroy()

	if err := tok.Use(func(string) error { return nil }); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Use() after Destroy error = %v, want ErrDestroyed", err)
	}
	if !tok.Empty() {
		t.Error("Empty() = false after Destroy")
	}
}

func TestToken_LargeValue(t *testing.T) {
	t.Parallel()

	value := strings.Repeat("x", 4096)
	tok := NewToken(value)
	defer tok.Destroy()

	err := tok.Use(func(token string) error {
		if token != value {
			t.Error("data corrupted after sealing")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Use() error = %v", err)
	}
}

func TestToken_ConcurrentUse(t *testing.T) {
	t.Parallel()

	tok := NewToken("concurrent-secret")
	defer tok.Destroy()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tok.Use(func(token string) error {
				if token != "concurrent-secret" {
					t.Error("data mismatch in concurrent access")
				}
				return nil
			})
			if err != nil {
				t.Errorf("Use() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

// BenchmarkToken measures the overhead of sealing and opening a token
func BenchmarkToken(b *testing.B) {
	b.Run("NewToken", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			NewToken("benchmark-token").Destroy()
		}
	})

	b.Run("Use", func(b *testing.B) {
		tok := NewToken("benchmark-token")
		defer tok.Destroy()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = tok.Use(func(string) error { return nil })
		}
	})
}
