package accounts

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"signal-gateway/pkg/crypto"
)

func twoAccountRegistry() *Registry {
	return &Registry{
		Accounts: []Account{
			{ID: "a1", Exchange: "bingx", Mode: ModeDemo, Credentials: []CredentialSource{{APIKeyEnv: "A1_KEY", SecretKeyEnv: "A1_SECRET"}}},
			{ID: "a2", Exchange: "bingx", Mode: ModeLive, Credentials: []CredentialSource{{APIKeyEnv: "A2_KEY", SecretKeyEnv: "A2_SECRET"}}},
			{ID: "paper", Exchange: "bingx", Mode: ModeDry},
		},
		Profiles: map[string][]string{
			"pair":    {"a2", "a1"},
			"primary": {"a1"},
			"paper":   {"paper"},
		},
		DefaultProfile: "primary",
	}
}

func newResolver(t *testing.T, reg *Registry, secrets MapSecrets) (*Resolver, *observer.ObservedLogs) {
	t.Helper()
	p, err := NewStaticProvider(reg)
	if err != nil {
		t.Fatalf("NewStaticProvider: %v", err)
	}
	core, logs := observer.New(zap.InfoLevel)
	return NewResolver(p, secrets, nil, zap.New(core)), logs
}

func ids(accts []Account) []string {
	out := make([]string, len(accts))
	for i, a := range accts {
		out[i] = a.ID
	}
	return out
}

func TestResolveProfileFiltersUnavailable(t *testing.T) {
	r, logs := newResolver(t, twoAccountRegistry(), MapSecrets{"A1_KEY": "k", "A1_SECRET": "s"})

	got, err := r.ResolveProfile("pair")
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("accounts = %v, want [a1]", ids(got))
	}
	skipped := logs.FilterMessage("account unavailable, skipping").All()
	if len(skipped) != 1 || skipped[0].ContextMap()["account"] != "a2" {
		t.Fatalf("expected one skip log for a2, got %v", skipped)
	}
}

func TestResolveProfileDeclaredOrder(t *testing.T) {
	r, _ := newResolver(t, twoAccountRegistry(), MapSecrets{
		"A1_KEY": "k", "A1_SECRET": "s",
		"A2_KEY": "k", "A2_SECRET": "s",
	})
	got, err := r.ResolveProfile("pair")
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if strings.Join(ids(got), ",") != "a2,a1" {
		t.Fatalf("order = %v, want declaration order a2,a1", ids(got))
	}
}

func TestResolveProfileEmptyIsNotError(t *testing.T) {
	r, _ := newResolver(t, twoAccountRegistry(), MapSecrets{"A1_KEY": "k", "A1_SECRET": ""})
	got, err := r.ResolveProfile("primary")
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("accounts = %v, want empty non-nil slice", got)
	}
}

func TestResolveProfileDefaultAlias(t *testing.T) {
	r, _ := newResolver(t, twoAccountRegistry(), MapSecrets{
		"A1_KEY": "k", "A1_SECRET": "s",
		"A2_KEY": "k", "A2_SECRET": "s",
	})
	got, err := r.ResolveProfile(DefaultAlias)
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("default resolved to %v, want only the primary account", ids(got))
	}
}

func TestResolveUnknown(t *testing.T) {
	r, _ := newResolver(t, twoAccountRegistry(), nil)
	if _, err := r.ResolveProfile("nope"); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("err = %v, want ErrUnknownProfile", err)
	}
	if _, err := r.ResolveAccount("nope"); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("err = %v, want ErrUnknownAccount", err)
	}
	if a, err := r.ResolveAccount("a2"); err != nil || a.Mode != ModeLive {
		t.Fatalf("ResolveAccount(a2) = %+v, %v", a, err)
	}
}

func TestDryAccountNeedsNoCredentials(t *testing.T) {
	r, _ := newResolver(t, twoAccountRegistry(), nil)
	got, err := r.ResolveProfile("paper")
	if err != nil || len(got) != 1 {
		t.Fatalf("paper = %v, %v", ids(got), err)
	}
}

func TestCredentialFallbackChain(t *testing.T) {
	reg := twoAccountRegistry()
	reg.Accounts[0].Credentials = []CredentialSource{
		{APIKeyEnv: "NEW_KEY", SecretKeyEnv: "NEW_SECRET"},
		{APIKeyEnv: "OLD_KEY", SecretKeyEnv: "OLD_SECRET", SourceKeyEnv: "OLD_SOURCE"},
	}
	r, _ := newResolver(t, reg, MapSecrets{"NEW_KEY": "only-key", "OLD_KEY": "old", "OLD_SECRET": "olds", "OLD_SOURCE": "src"})

	acct, _ := r.ResolveAccount("a1")
	creds, ok := r.Credentials(acct)
	if !ok {
		t.Fatal("expected fallback source to resolve")
	}
	if creds.APIKey != "old" || creds.APISecret != "olds" || creds.SourceKey != "src" || creds.Source != 1 {
		t.Fatalf("creds = %+v", creds)
	}
	if strings.Contains(creds.String(), "olds") {
		t.Fatalf("String leaks secret: %s", creds)
	}
}

func TestSealedCredentials(t *testing.T) {
	key := make([]byte, crypto.KeySize)
	ring, err := crypto.LoadKeyring(MapSecrets{crypto.DefaultKeyPrefix: base64.StdEncoding.EncodeToString(key)}.Lookup, "")
	if err != nil {
		t.Fatalf("LoadKeyring: %v", err)
	}
	sealedKey, _ := ring.Seal("real-key", "A1_KEY")
	sealedSecret, _ := ring.Seal("real-secret", "A1_SECRET")
	secrets := MapSecrets{"A1_KEY": sealedKey, "A1_SECRET": sealedSecret}

	p, _ := NewStaticProvider(twoAccountRegistry())
	r := NewResolver(p, secrets, ring, nil)
	acct, _ := r.ResolveAccount("a1")
	creds, ok := r.Credentials(acct)
	if !ok || creds.APIKey != "real-key" || creds.APISecret != "real-secret" {
		t.Fatalf("creds = %+v ok=%v", creds, ok)
	}

	// without a keyring the sealed source is unavailable
	noRing := NewResolver(p, secrets, nil, nil)
	if _, ok := noRing.Credentials(acct); ok {
		t.Fatal("sealed credentials must not resolve without a master key")
	}

	// a value sealed for another variable does not open
	swapped := MapSecrets{"A1_KEY": sealedSecret, "A1_SECRET": sealedKey}
	if _, ok := NewResolver(p, swapped, ring, nil).Credentials(acct); ok {
		t.Fatal("swapped sealed values must not resolve")
	}
}

func TestResolveConcurrent(t *testing.T) {
	r, _ := newResolver(t, twoAccountRegistry(), MapSecrets{"A1_KEY": "k", "A1_SECRET": "s"})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.ResolveProfile("pair")
			if err != nil || len(got) != 1 {
				t.Errorf("concurrent resolve = %v, %v", ids(got), err)
			}
		}()
	}
	wg.Wait()
}

func TestRegistryValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Registry)
		want   string
	}{
		{"ok", func(*Registry) {}, ""},
		{"unknown mode", func(r *Registry) { r.Accounts[0].Mode = "paper" }, "unknown mode"},
		{"duplicate id", func(r *Registry) { r.Accounts[1].ID = "a1" }, "duplicate"},
		{"live without creds", func(r *Registry) { r.Accounts[1].Credentials = nil }, "no credentials"},
		{"half source", func(r *Registry) { r.Accounts[0].Credentials[0].SecretKeyEnv = "" }, "secret_key_env"},
		{"undeclared member", func(r *Registry) { r.Profiles["pair"] = []string{"ghost"} }, "undeclared account"},
		{"empty profile", func(r *Registry) { r.Profiles["pair"] = nil }, "no accounts"},
		{"missing default", func(r *Registry) { r.DefaultProfile = "ghost" }, "not declared"},
		{"reserved name", func(r *Registry) { r.Profiles[DefaultAlias] = []string{"a1"} }, "reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := twoAccountRegistry()
			tt.mutate(reg)
			err := reg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidRegistry) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBuiltinRegistry(t *testing.T) {
	reg := BuiltinRegistry()
	if err := reg.Validate(); err != nil {
		t.Fatalf("builtin registry invalid: %v", err)
	}
	members, ok := reg.Members(DefaultAlias)
	if !ok || len(members) != 1 || members[0] != "bingx_vst_demo" {
		t.Fatalf("default members = %v", members)
	}
	demo, _ := reg.Account("bingx_vst_demo")
	if demo.Mode != ModeDemo {
		t.Fatalf("bingx_vst_demo mode = %s", demo.Mode)
	}
	last := demo.Credentials[len(demo.Credentials)-1]
	if last.APIKeyEnv != "BINGX_VST_API_KEY" || last.SecretKeyEnv != "BINGX_VST_API_SECRET" {
		t.Fatalf("legacy fallback source = %+v", last)
	}
}

const registryYAML = `
default_profile: demo_1
accounts:
  - id: demo
    exchange: bingx
    mode: demo
    credentials:
      - api_key_env: DEMO_KEY
        secret_key_env: DEMO_SECRET
  - id: hedge
    exchange: bingx
    mode: live
    supports_reduce_only: true
    credentials:
      - api_key_env: HEDGE_KEY
        secret_key_env: HEDGE_SECRET
        source_key_env: HEDGE_SOURCE
profiles:
  demo_1: [demo]
  all: [demo, hedge]
`

func TestFileProviderRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	if err := os.WriteFile(path, []byte(registryYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}
	hedge, ok := p.Snapshot().Account("hedge")
	if !ok || !hedge.SupportsReduceOnly || hedge.Credentials[0].SourceKeyEnv != "HEDGE_SOURCE" {
		t.Fatalf("hedge = %+v", hedge)
	}

	updated := strings.Replace(registryYAML, "all: [demo, hedge]", "all: [hedge]", 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if m, _ := p.Snapshot().Members("all"); len(m) != 1 {
		t.Fatalf("members after refresh = %v", m)
	}

	if err := os.WriteFile(path, []byte("accounts: [{id: x, mode: nope}]"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.Refresh(); err == nil {
		t.Fatal("expected refresh error for invalid registry")
	}
	if m, _ := p.Snapshot().Members("all"); len(m) != 1 {
		t.Fatalf("failed refresh replaced the registry: %v", m)
	}
}
