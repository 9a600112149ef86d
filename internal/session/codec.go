package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// errMalformed marks a persisted record that cannot be turned back into a
// session. Load maps it to Absent; it never reaches callers.
var errMalformed = errors.New("malformed session record")

// Codec seals session records before they reach shared storage. The record
// holds a bearer token, so it is encrypted with XChaCha20-Poly1305 under a key
// derived from the application secret.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives a 32-byte key from secret with SHA-256 so any length
// secret works consistently.
func NewCodec(secret string) (*Codec, error) {
	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("creating session cipher: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encode serializes and seals a session. The nonce is prepended to the
// ciphertext: [nonce][ciphertext+tag].
func (c *Codec) Encode(s Session) ([]byte, error) {
	plaintext, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decode opens and validates a persisted record. Every failure -- truncated
// ciphertext, wrong key, bad JSON, missing user id -- wraps errMalformed.
func (c *Codec) Decode(data []byte) (Session, error) {
	if len(data) < c.aead.NonceSize()+c.aead.Overhead() {
		return Session{}, fmt.Errorf("%w: record too short", errMalformed)
	}

	nonce, ciphertext := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	var s Session
	if err := json.Unmarshal(plaintext, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := s.Validate(); err != nil {
		return Session{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	return s, nil
}
