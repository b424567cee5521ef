package providers

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SensitiveDataCodec is the encryption boundary around credit payloads.
// Credit data is sealed immediately after vendor normalization and opened
// only at the validation/merge point; plaintext credit payloads are never
// held at rest or in the cache of raw provider output.
type SensitiveDataCodec struct {
	aead cipher.AEAD
}

// NewSensitiveDataCodec builds a codec from a 32-byte key.
func NewSensitiveDataCodec(key []byte) (*SensitiveDataCodec, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sensitive data codec: %w", err)
	}
	return &SensitiveDataCodec{aead: aead}, nil
}

// Seal serializes and encrypts v. The nonce is prepended to the ciphertext.
func (c *SensitiveDataCodec) Seal(v any) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal sensitive payload: %w", err)
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts and deserializes into out.
func (c *SensitiveDataCodec) Open(sealed []byte, out any) error {
	if len(sealed) < c.aead.NonceSize() {
		return fmt.Errorf("sealed payload too short")
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("open sensitive payload: %w", err)
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("unmarshal sensitive payload: %w", err)
	}
	return nil
}
