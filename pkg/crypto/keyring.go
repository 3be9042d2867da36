package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// DefaultKeyPrefix names the master key variables: CREDENTIALS_MASTER_KEY for
// version 1, CREDENTIALS_MASTER_KEY_V2 and up for rotated keys.
const DefaultKeyPrefix = "CREDENTIALS_MASTER_KEY"

const maxVersions = 10

// LookupFunc reads a named value, os.LookupEnv being the usual source.
type LookupFunc func(name string) (string, bool)

// Keyring holds every loaded master key version. It is immutable after Load,
// so concurrent Open calls need no locking.
type Keyring struct {
	current int
	sealers map[int]*Sealer
}

// LoadKeyring reads base64 master keys through lookup. A missing version 1 key
// is not an error: the ring is empty and Open fails with ErrKeyNotLoaded, which
// keeps plain-text deployments working.
func LoadKeyring(lookup LookupFunc, prefix string) (*Keyring, error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	kr := &Keyring{sealers: make(map[int]*Sealer)}
	for v := 1; v <= maxVersions; v++ {
		name := prefix
		if v > 1 {
			name = fmt.Sprintf("%s_V%d", prefix, v)
		}
		raw, ok := lookup(name)
		if !ok || raw == "" {
			continue
		}
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		s, err := NewSealer(key, v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		kr.sealers[v] = s
		kr.current = v
	}
	return kr, nil
}

// Seal encrypts with the newest loaded version.
func (k *Keyring) Seal(plaintext, label string) (string, error) {
	s, ok := k.sealers[k.current]
	if !ok {
		return "", ErrKeyNotLoaded
	}
	return s.Seal(plaintext, label)
}

// Open decrypts with whichever version the value names.
func (k *Keyring) Open(sealed, label string) (string, error) {
	if len(k.sealers) == 0 {
		return "", ErrKeyNotLoaded
	}
	v := SealedVersion(sealed)
	if v == 0 {
		return "", ErrNotSealed
	}
	s, ok := k.sealers[v]
	if !ok {
		return "", fmt.Errorf("%w: v%d", ErrVersionAbsent, v)
	}
	return s.Open(sealed, label)
}

// Reseal moves a value onto the current key version.
func (k *Keyring) Reseal(sealed, label string) (string, error) {
	plain, err := k.Open(sealed, label)
	if err != nil {
		return "", fmt.Errorf("open for reseal: %w", err)
	}
	return k.Seal(plain, label)
}

// CurrentVersion is 0 when no key is loaded.
func (k *Keyring) CurrentVersion() int { return k.current }

// GenerateKey returns a random base64 AES-256 key.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(randReader, key); err != nil {
		return "", fmt.Errorf("generate random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// randReader is swapped in tests.
var randReader io.Reader = rand.Reader
