// Package accounts holds the account registry and resolves routing profiles to
// the accounts whose credentials are currently available.
package accounts

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Account modes.
const (
	ModeDry  = "dry"
	ModeTest = "test"
	ModeDemo = "demo"
	ModeLive = "live"
)

// DefaultAlias resolves to the registry's DefaultProfile.
const DefaultAlias = "default"

var ErrInvalidRegistry = errors.New("invalid account registry")

// CredentialSource names the environment variables holding one key pair.
type CredentialSource struct {
	APIKeyEnv    string `yaml:"api_key_env" json:"apiKeyEnv"`
	SecretKeyEnv string `yaml:"secret_key_env" json:"secretKeyEnv"`
	SourceKeyEnv string `yaml:"source_key_env,omitempty" json:"sourceKeyEnv,omitempty"`
}

// Account is one brokerage account. Credentials are tried in order.
type Account struct {
	ID                 string             `yaml:"id" json:"accountId"`
	Exchange           string             `yaml:"exchange" json:"exchange"`
	Mode               string             `yaml:"mode" json:"mode"`
	Credentials        []CredentialSource `yaml:"credentials" json:"credentials,omitempty"`
	SupportsReduceOnly bool               `yaml:"supports_reduce_only" json:"supportsReduceOnly"`
}

// Registry is the static account and profile configuration. Treat it as
// read-only once built.
type Registry struct {
	Accounts       []Account           `yaml:"accounts"`
	Profiles       map[string][]string `yaml:"profiles"`
	DefaultProfile string              `yaml:"default_profile"`
}

// Account looks up an account by id.
func (r *Registry) Account(id string) (Account, bool) {
	for _, a := range r.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// Members returns the declared account ids of a profile, applying the default
// alias.
func (r *Registry) Members(profile string) ([]string, bool) {
	if profile == DefaultAlias {
		profile = r.DefaultProfile
	}
	ids, ok := r.Profiles[profile]
	return ids, ok
}

// Validate checks modes, credential sources and profile references.
func (r *Registry) Validate() error {
	seen := make(map[string]bool, len(r.Accounts))
	for i, a := range r.Accounts {
		if a.ID == "" {
			return fmt.Errorf("%w: accounts[%d] has no id", ErrInvalidRegistry, i)
		}
		if seen[a.ID] {
			return fmt.Errorf("%w: duplicate account %s", ErrInvalidRegistry, a.ID)
		}
		seen[a.ID] = true
		if a.Exchange == "" {
			return fmt.Errorf("%w: account %s has no exchange", ErrInvalidRegistry, a.ID)
		}
		switch a.Mode {
		case ModeDry, ModeTest, ModeDemo, ModeLive:
		default:
			return fmt.Errorf("%w: account %s has unknown mode %q", ErrInvalidRegistry, a.ID, a.Mode)
		}
		if a.Mode != ModeDry && len(a.Credentials) == 0 {
			return fmt.Errorf("%w: account %s (%s) declares no credentials", ErrInvalidRegistry, a.ID, a.Mode)
		}
		for j, c := range a.Credentials {
			if c.APIKeyEnv == "" || c.SecretKeyEnv == "" {
				return fmt.Errorf("%w: account %s credentials[%d] needs api_key_env and secret_key_env", ErrInvalidRegistry, a.ID, j)
			}
		}
	}

	if _, ok := r.Profiles[DefaultAlias]; ok {
		return fmt.Errorf("%w: %q is reserved as the default_profile alias", ErrInvalidRegistry, DefaultAlias)
	}
	for name, ids := range r.Profiles {
		if len(ids) == 0 {
			return fmt.Errorf("%w: profile %s has no accounts", ErrInvalidRegistry, name)
		}
		for _, id := range ids {
			if !seen[id] {
				return fmt.Errorf("%w: profile %s names undeclared account %s", ErrInvalidRegistry, name, id)
			}
		}
	}
	if r.DefaultProfile == "" {
		return fmt.Errorf("%w: default_profile is required", ErrInvalidRegistry)
	}
	if _, ok := r.Profiles[r.DefaultProfile]; !ok {
		return fmt.Errorf("%w: default_profile %s is not declared", ErrInvalidRegistry, r.DefaultProfile)
	}
	return nil
}

// ParseRegistry decodes and validates a YAML registry.
func ParseRegistry(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadRegistryFile reads a YAML registry from disk.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return ParseRegistry(data)
}

// BuiltinRegistry is used when no registry file is configured. Each networked
// account tries the numbered variables first and the older named ones second.
func BuiltinRegistry() *Registry {
	return &Registry{
		Accounts: []Account{
			{
				ID:       "bingx_vst_demo",
				Exchange: "bingx",
				Mode:     ModeDemo,
				Credentials: []CredentialSource{
					{APIKeyEnv: "BINGX_1_API_KEY", SecretKeyEnv: "BINGX_1_API_SECRET", SourceKeyEnv: "BINGX_1_SOURCE_KEY"},
					{APIKeyEnv: "BINGX_VST_API_KEY", SecretKeyEnv: "BINGX_VST_API_SECRET"},
				},
			},
			{
				ID:       "bingx_primary",
				Exchange: "bingx",
				Mode:     ModeLive,
				Credentials: []CredentialSource{
					{APIKeyEnv: "BINGX_2_API_KEY", SecretKeyEnv: "BINGX_2_API_SECRET", SourceKeyEnv: "BINGX_2_SOURCE_KEY"},
					{APIKeyEnv: "BINGX_PRIMARY_API_KEY", SecretKeyEnv: "BINGX_PRIMARY_SECRET_KEY", SourceKeyEnv: "BINGX_PRIMARY_SOURCE_KEY"},
				},
			},
			{
				ID:       "bingx_test",
				Exchange: "bingx",
				Mode:     ModeTest,
				Credentials: []CredentialSource{
					{APIKeyEnv: "BINGX_PRIMARY_API_KEY", SecretKeyEnv: "BINGX_PRIMARY_SECRET_KEY"},
				},
			},
			{
				ID:       "bingx_paper",
				Exchange: "bingx",
				Mode:     ModeDry,
			},
		},
		Profiles: map[string][]string{
			"demo_1":  {"bingx_vst_demo"},
			"live_1":  {"bingx_primary"},
			"test_1":  {"bingx_test"},
			"paper":   {"bingx_paper"},
			"fan_all": {"bingx_vst_demo", "bingx_primary"},
		},
		DefaultProfile: "demo_1",
	}
}
