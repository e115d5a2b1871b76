package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/angelmondragon/plaidbridge/pkg/config"
)

const (
	nonceSize     = 24
	sealedVersion = "v1"
)

// ErrInvalidCiphertext signals a sealed value that is malformed or was not
// produced with the current key.
var ErrInvalidCiphertext = fmt.Errorf("invalid sealed token")

// TokenSealer encrypts Plaid access tokens before they are persisted.
type TokenSealer struct {
	key   [32]byte
	nonce io.Reader
}

// NewTokenSealer builds a sealer from a 32 byte key.
func NewTokenSealer(key []byte) (*TokenSealer, error) {
	if len(key) != config.TokenKeySize {
		return nil, fmt.Errorf("token key must be %d bytes, got %d", config.TokenKeySize, len(key))
	}
	s := &TokenSealer{nonce: rand.Reader}
	copy(s.key[:], key)
	return s, nil
}

// NewTokenSealerFromConfig decodes the configured key.
func NewTokenSealerFromConfig(cfg config.SecurityConfig) (*TokenSealer, error) {
	key, err := cfg.TokenKey()
	if err != nil {
		return nil, err
	}
	return NewTokenSealer(key)
}

// Seal returns "v1:" followed by base64(nonce || box).
func (s *TokenSealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("token cannot be empty")
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.nonce, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealedVersion + ":" + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (s *TokenSealer) Open(sealed string) (string, error) {
	version, payload, ok := strings.Cut(sealed, ":")
	if !ok || version != sealedVersion {
		return "", ErrInvalidCiphertext
	}
	raw, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrInvalidCiphertext
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}
