// Package tokencodec seals and unseals CAPTCHA solutions into opaque,
// authenticated, timestamped byte strings using ChaCha20-Poly1305 AEAD.
package tokencodec

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"captchaforge/internal/csprng"
)

// ErrExpired is returned by Open when the token's embedded timestamp is
// older than the caller-supplied TTL.
var ErrExpired = errors.New("tokencodec: token expired")

// ErrInvalid is returned by Open when the token fails authentication or
// is structurally malformed.
var ErrInvalid = errors.New("tokencodec: token invalid")

const timestampLen = 8 // unix seconds, big-endian

// Codec seals and opens tokens under a single AEAD key. A Codec is safe
// for concurrent use: chacha20poly1305.AEAD has no mutable state beyond
// the key, Seal draws a fresh nonce per call, and Open reads the nonce
// back from the token.
type Codec struct {
	aead cipher.AEAD
}

// GenerateKey draws a fresh ChaCha20-Poly1305 key from the CSPRNG. Keys
// are never persisted: restarting the engine invalidates every token it
// sealed, by design.
func GenerateKey() ([]byte, error) {
	key, err := csprng.Bytes(csprng.Default, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("tokencodec: generate key: %w", err)
	}
	return key, nil
}

// New constructs a Codec from a key previously produced by GenerateKey.
func New(key []byte) (*Codec, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("tokencodec: construct AEAD: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Seal authenticates and encrypts plaintext, embedding now as a creation
// timestamp inside the ciphertext. The returned token is an opaque byte
// string: no field is independently parseable without the key.
func (c *Codec) Seal(plaintext []byte, now time.Time) ([]byte, error) {
	nonce, err := csprng.Bytes(csprng.Default, c.aead.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("tokencodec: seal: %w", err)
	}

	framed := make([]byte, timestampLen+len(plaintext))
	binary.BigEndian.PutUint64(framed[:timestampLen], uint64(now.Unix()))
	copy(framed[timestampLen:], plaintext)

	sealed := c.aead.Seal(nil, nonce, framed, nil)
	token := make([]byte, 0, len(nonce)+len(sealed))
	token = append(token, nonce...)
	token = append(token, sealed...)
	return token, nil
}

// Open authenticates and decrypts token, returning the original
// plaintext iff it was produced by Seal under the same key and its
// embedded timestamp is no older than ttl relative to now.
func (c *Codec) Open(token []byte, ttl time.Duration, now time.Time) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(token) < nonceSize {
		return nil, ErrInvalid
	}
	nonce, ciphertext := token[:nonceSize], token[nonceSize:]

	framed, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalid
	}
	if len(framed) < timestampLen {
		return nil, ErrInvalid
	}

	created := time.Unix(int64(binary.BigEndian.Uint64(framed[:timestampLen])), 0)
	if now.Sub(created) > ttl {
		return nil, ErrExpired
	}
	return framed[timestampLen:], nil
}
