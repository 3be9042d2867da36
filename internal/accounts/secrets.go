package accounts

import (
	"os"
	"strings"
)

// SecretLookup reads a named secret. Values never come from request payloads.
type SecretLookup interface {
	Lookup(name string) (string, bool)
}

// EnvSecrets reads the process environment.
type EnvSecrets struct{}

func (EnvSecrets) Lookup(name string) (string, bool) { return os.LookupEnv(name) }

// MapSecrets is a fixed lookup table.
type MapSecrets map[string]string

func (m MapSecrets) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Opener unseals ENC[vN]: values. *crypto.Keyring satisfies it.
type Opener interface {
	Open(sealed, label string) (string, error)
}

// Credentials is one resolved key pair.
type Credentials struct {
	APIKey    string
	APISecret string
	SourceKey string
	// Source is the index of the CredentialSource that resolved.
	Source int
}

func (c Credentials) String() string {
	return "Credentials{APIKey:" + mask(c.APIKey) + "}"
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 4)
}
