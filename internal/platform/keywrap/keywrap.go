// Package keywrap envelope-encrypts private key material before it reaches
// the database. Raw keys are never persisted.
package keywrap

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Wrapper provides AES-256-GCM encryption and decryption for stored keys.
type Wrapper struct {
	aead cipher.AEAD
}

// New creates a Wrapper with the given 32-byte AES-256 key.
func New(key []byte) (*Wrapper, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("keywrap: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keywrap: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keywrap: create GCM: %w", err)
	}

	return &Wrapper{aead: aead}, nil
}

// Wrap encrypts the plaintext key material and returns a base64-encoded
// ciphertext with the nonce prepended.
func (w *Wrapper) Wrap(plaintext string) (string, error) {
	nonce := make([]byte, w.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("keywrap: generate nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	sealed := w.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Unwrap decodes the base64 ciphertext, extracts the prepended nonce, and
// decrypts the key material.
func (w *Wrapper) Unwrap(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("keywrap: base64 decode: %w", err)
	}

	nonceSize := w.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("keywrap: ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := w.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("keywrap: decrypt: %w", err)
	}
	return string(plaintext), nil
}
