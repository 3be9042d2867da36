package accounts

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"signal-gateway/pkg/crypto"
)

var (
	ErrUnknownProfile = errors.New("unknown routing profile")
	ErrUnknownAccount = errors.New("unknown account")
)

// Resolver answers profile and account lookups against the current registry.
// It holds no mutable state of its own; every call reads a fresh snapshot and
// the secret source, so it is safe for concurrent use.
type Resolver struct {
	provider ConfigProvider
	secrets  SecretLookup
	opener   Opener
	log      *zap.Logger
}

// NewResolver builds a resolver. opener may be nil when no sealed values are
// in use, and log may be nil.
func NewResolver(provider ConfigProvider, secrets SecretLookup, opener Opener, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{provider: provider, secrets: secrets, opener: opener, log: log.Named("accounts")}
}

// ResolveProfile returns the profile's accounts whose credentials currently
// resolve, in declaration order. A declared profile with no available account
// yields an empty slice and no error.
func (r *Resolver) ResolveProfile(name string) ([]Account, error) {
	reg := r.provider.Snapshot()
	ids, ok := reg.Members(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	out := make([]Account, 0, len(ids))
	for _, id := range ids {
		acct, ok := reg.Account(id)
		if !ok {
			r.log.Warn("profile member not declared, skipping", zap.String("profile", name), zap.String("account", id))
			continue
		}
		if reason, ok := r.available(acct); !ok {
			r.log.Info("account unavailable, skipping",
				zap.String("profile", name),
				zap.String("account", id),
				zap.String("reason", reason),
			)
			continue
		}
		out = append(out, acct)
	}
	return out, nil
}

// ResolveAccount looks an account up by id regardless of credential state.
func (r *Resolver) ResolveAccount(id string) (Account, error) {
	acct, ok := r.provider.Snapshot().Account(id)
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
	}
	return acct, nil
}

// Credentials returns the first source that yields a non-empty key and secret.
// Dry accounts without sources get empty credentials and ok=true.
func (r *Resolver) Credentials(acct Account) (Credentials, bool) {
	creds, _, ok := r.resolve(acct)
	return creds, ok
}

func (r *Resolver) available(acct Account) (string, bool) {
	_, reason, ok := r.resolve(acct)
	return reason, ok
}

func (r *Resolver) resolve(acct Account) (Credentials, string, bool) {
	if acct.Mode == ModeDry && len(acct.Credentials) == 0 {
		return Credentials{}, "", true
	}
	var reasons []string
	for i, src := range acct.Credentials {
		key, err := r.secret(src.APIKeyEnv)
		if err != nil {
			reasons = append(reasons, err.Error())
			continue
		}
		secret, err := r.secret(src.SecretKeyEnv)
		if err != nil {
			reasons = append(reasons, err.Error())
			continue
		}
		if key == "" || secret == "" {
			reasons = append(reasons, fmt.Sprintf("%s/%s not set", src.APIKeyEnv, src.SecretKeyEnv))
			continue
		}
		creds := Credentials{APIKey: key, APISecret: secret, Source: i}
		if src.SourceKeyEnv != "" {
			// optional header; a bad value only drops the header
			if v, err := r.secret(src.SourceKeyEnv); err == nil {
				creds.SourceKey = v
			}
		}
		return creds, "", true
	}
	if len(reasons) == 0 {
		return Credentials{}, "no credential sources declared", false
	}
	return Credentials{}, strings.Join(reasons, "; "), false
}

// secret reads name and unseals it when needed. An unset variable is "".
func (r *Resolver) secret(name string) (string, error) {
	v, ok := r.secrets.Lookup(name)
	if !ok {
		return "", nil
	}
	v = strings.TrimSpace(v)
	if !crypto.IsSealed(v) {
		return v, nil
	}
	if r.opener == nil {
		return "", fmt.Errorf("%s is sealed but no master key is configured", name)
	}
	plain, err := r.opener.Open(v, name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return plain, nil
}
