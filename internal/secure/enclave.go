package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrEmptyToken is returned by Use when the token holds no value.
var ErrEmptyToken = errors.New("token is empty")

// ErrDestroyed is returned by Use after Destroy.
var ErrDestroyed = errors.New("token has been destroyed")

// Token stores a credential encrypted at rest in memory.
type Token struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	destroyed bool
}

// NewToken seals value into an enclave. An empty value yields an empty
// Token; memguard does not create enclaves for zero-length data.
func NewToken(value string) *Token {
	if value == "" {
		return &Token{}
	}
	// NewEnclave wipes its argument, so hand it a private copy.
	return &Token{enclave: memguard.NewEnclave([]byte(value))}
}

// Empty reports whether the token holds no value.
func (t *Token) Empty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enclave == nil
}

// Use decrypts the token and passes it to fn. The decrypted buffer is
// wiped when fn returns.
func (t *Token) Use(fn func(token string) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.destroyed {
		return ErrDestroyed
	}
	if t.enclave == nil {
		return ErrEmptyToken
	}

	locked, err := t.enclave.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(string(locked.Bytes()))
}

// Destroy drops the enclave. It is idempotent.
func (t *Token) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enclave = nil
	t.destroyed = true
}
