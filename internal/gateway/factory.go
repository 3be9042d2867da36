// Package gateway builds exchange gateways for resolved accounts.
package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"signal-gateway/internal/accounts"
	"signal-gateway/pkg/exchanges/bingx"
	exchange "signal-gateway/pkg/exchanges/common"
)

// Factory creates a Gateway bound to one account. Gateways are built per
// dispatch and hold nothing that outlives the call.
type Factory func(acct accounts.Account, creds accounts.Credentials) (exchange.Gateway, error)

// Options configures the default factory.
type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	// BaseURLs overrides the host per exchange name, as used against fake
	// exchanges in tests.
	BaseURLs map[string]string
}

// NewFactory switches on the account's exchange type.
func NewFactory(opts Options) Factory {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(acct accounts.Account, creds accounts.Credentials) (exchange.Gateway, error) {
		switch strings.ToLower(acct.Exchange) {
		case "bingx":
			c, err := bingx.NewClient(bingx.Config{
				AccountID:          acct.ID,
				Mode:               acct.Mode,
				APIKey:             creds.APIKey,
				APISecret:          creds.APISecret,
				SourceKey:          creds.SourceKey,
				SupportsReduceOnly: acct.SupportsReduceOnly,
				BaseURL:            opts.BaseURLs["bingx"],
				Timeout:            opts.Timeout,
				HTTPClient:         opts.HTTPClient,
				Logger:             log.Named("bingx"),
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		default:
			return nil, fmt.Errorf("unsupported exchange type: %s", acct.Exchange)
		}
	}
}
