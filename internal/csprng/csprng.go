// Package csprng wraps a cryptographically secure random source with
// the uniform-selection helpers the renderer and token codec need:
// unbiased integers, rune picks from a character set, and raw key
// bytes. It never falls back to a weaker source on error — callers
// that cannot tolerate the error should not call it during a hot
// render loop.
package csprng

import (
	"encoding/binary"
	"fmt"

	"github.com/sixafter/prng-chacha"
)

// Source draws uniformly random bytes. prng.Reader satisfies it
// directly, and tests can substitute a deterministic fake.
type Source interface {
	Read(p []byte) (n int, err error)
}

// Default is the package-wide CSPRNG source, backed by ChaCha20.
var Default Source = prng.Reader

// Bytes fills and returns a buffer of n random bytes drawn from src.
func Bytes(src Source, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := src.Read(b); err != nil {
		return nil, fmt.Errorf("csprng: read %d bytes: %w", n, err)
	}
	return b, nil
}

// Intn returns a uniform random integer in [0, n) without modulo bias,
// using rejection sampling over 32-bit draws: any draw at or above the
// largest multiple of n that fits in a uint32 is discarded and redrawn.
func Intn(src Source, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("csprng: Intn called with n=%d", n)
	}
	if n == 1 {
		return 0, nil
	}

	// Largest multiple of n that fits in a uint32, used to reject the
	// high tail so every outcome in [0,n) is equally likely.
	limit := uint32(n)
	max := (^uint32(0) / limit) * limit

	var buf [4]byte
	for {
		if _, err := src.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("csprng: Intn: %w", err)
		}
		v := binary.BigEndian.Uint32(buf[:])
		if v < max {
			return int(v % limit), nil
		}
	}
}

// Uniform adapts a Source to the single-method shape
// (IntN(n int) (int, error)) that render.SecureRand expects, without
// this package importing render or vice versa.
type Uniform struct {
	Source Source
}

// IntN returns a uniform random integer in [0, n).
func (u Uniform) IntN(n int) (int, error) {
	return Intn(u.Source, n)
}

// PickRune returns one rune chosen uniformly from set.
func PickRune(src Source, set []rune) (rune, error) {
	if len(set) == 0 {
		return 0, fmt.Errorf("csprng: PickRune called with empty set")
	}
	i, err := Intn(src, len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}
