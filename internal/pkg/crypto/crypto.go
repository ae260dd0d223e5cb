package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/voxaria/voxpremium/internal/pkg/env"
)

// ErrDecrypt is returned for any ciphertext that fails authentication. Callers
// must treat it as "data unusable", typically by discarding the record; the
// cause (rotated key vs corruption) is deliberately not distinguished.
var ErrDecrypt = errors.New("crypto: decryption failed")

// TokenCipher encrypts OAuth access tokens at rest with XChaCha20-Poly1305.
// A fresh random nonce is prepended to every ciphertext.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher builds a cipher from a base64-encoded 32-byte key.
func NewTokenCipher(encodedKey string) (*TokenCipher, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("crypto: ENCRYPTION_KEY must decode to %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &TokenCipher{key: key}, nil
}

// NewTokenCipherFromEnv reads ENCRYPTION_KEY. In production a missing key is
// fatal; in development a throwaway key is generated so sessions survive only
// until the next restart.
func NewTokenCipherFromEnv() (*TokenCipher, error) {
	encoded := env.GetEnv("ENCRYPTION_KEY", "")
	if encoded == "" {
		if !env.IsDev() {
			return nil, errors.New("crypto: ENCRYPTION_KEY environment variable is required in production")
		}
		log.Warn("ENCRYPTION_KEY not set, generating a temporary development key")
		key := make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		return &TokenCipher{key: key}, nil
	}
	return NewTokenCipher(encoded)
}

// GenerateKey returns a fresh base64-encoded key suitable for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Encrypt seals plaintext and returns a base64 string safe for a TEXT column.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any tampering, truncation or
// key mismatch yields ErrDecrypt.
func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	if len(sealed) < aead.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
