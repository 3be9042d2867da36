// Package crypto seals exchange credentials so they can sit in the environment
// or in a registry file without being readable.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length.
	NonceSize = 12

	sealedPrefix = "ENC[v"
	sealedFormat = "ENC[v%d]:"
)

var (
	ErrInvalidKey    = errors.New("invalid master key: must be 32 bytes")
	ErrNotSealed     = errors.New("value is not in ENC[vN]: form")
	ErrOpenFailed    = errors.New("unseal failed")
	ErrKeyNotLoaded  = errors.New("no master key loaded")
	ErrVersionAbsent = errors.New("master key version not loaded")
)

// Sealer encrypts values with AES-256-GCM under one key version. The label
// (typically the environment variable name) is bound as additional data so a
// sealed value only opens under the name it was sealed for.
type Sealer struct {
	aead    cipher.AEAD
	version int
}

func NewSealer(key []byte, version int) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Sealer{aead: aead, version: version}, nil
}

// Seal returns ENC[vN]:base64(nonce|ciphertext).
func (s *Sealer) Seal(plaintext, label string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(label))
	return fmt.Sprintf(sealedFormat, s.version) + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. The label must match the one used when sealing.
func (s *Sealer) Open(sealed, label string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}
	_, encoded, _ := strings.Cut(sealed, "]:")
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	if len(data) < NonceSize+s.aead.Overhead() {
		return "", ErrNotSealed
	}
	plain, err := s.aead.Open(nil, data[:NonceSize], data[NonceSize:], []byte(label))
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(plain), nil
}

func (s *Sealer) Version() int { return s.version }

// IsSealed reports whether v carries the ENC[vN]: prefix.
func IsSealed(v string) bool {
	return SealedVersion(v) > 0
}

// SealedVersion extracts N from ENC[vN]:..., or 0 when v is not sealed.
func SealedVersion(v string) int {
	if !strings.HasPrefix(v, sealedPrefix) || !strings.Contains(v, "]:") {
		return 0
	}
	var version int
	if _, err := fmt.Sscanf(v, sealedFormat, &version); err != nil || version <= 0 {
		return 0
	}
	return version
}
