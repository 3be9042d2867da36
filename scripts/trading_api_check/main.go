package main

import (
	"context"
	"os"
	"strconv"

	"go.uber.org/zap"

	"signal-gateway/internal/accounts"
	"signal-gateway/pkg/config"
	"signal-gateway/pkg/crypto"
	"signal-gateway/pkg/exchanges/bingx"
	exchange "signal-gateway/pkg/exchanges/common"
	"signal-gateway/pkg/logger"
)

// trading_api_check sends one tiny ENTER_LONG per configured account so the
// signing, headers and response parsing can be checked against the real API.
//
// Usage:
//
//   go run ./scripts/trading_api_check
//
// Accounts and credentials come from the same environment as the service
// (ACCOUNTS_FILE, BINGX_* variables, CREDENTIALS_MASTER_KEY).
//
// Behaviour:
//   TRADING_CHECK_PLACE_ORDERS  (default "false")
//        - false: every account is sent to the order/test endpoint, nothing fills
//        - true : each account uses its own mode; demo and live orders are real
//
//   CHECK_SYMBOL                (default "BTC-USDT")
//   CHECK_QTY                   (default "0.001")

func main() {
	log := logger.Must("info", "console", "trading_api_check")
	defer func() { _ = log.Sync() }()
	log.Info("trading API check starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load error", zap.Error(err))
	}

	placeOrders := getenv("TRADING_CHECK_PLACE_ORDERS", "false") == "true"
	symbol := getenv("CHECK_SYMBOL", "BTC-USDT")
	qty, err := strconv.ParseFloat(getenv("CHECK_QTY", "0.001"), 64)
	if err != nil || qty <= 0 {
		log.Fatal("CHECK_QTY must be a positive number")
	}
	log.Info("config", zap.Bool("placeOrders", placeOrders), zap.String("symbol", symbol), zap.Float64("qty", qty))

	reg := accounts.BuiltinRegistry()
	if cfg.AccountsFile != "" {
		reg, err = accounts.LoadRegistryFile(cfg.AccountsFile)
		if err != nil {
			log.Fatal("registry file load failed", zap.String("path", cfg.AccountsFile), zap.Error(err))
		}
	}
	provider, err := accounts.NewStaticProvider(reg)
	if err != nil {
		log.Fatal("registry invalid", zap.Error(err))
	}
	keyring, err := crypto.LoadKeyring(os.LookupEnv, cfg.MasterKeyPrefix)
	if err != nil {
		log.Fatal("master key load failed", zap.Error(err))
	}
	resolver := accounts.NewResolver(provider, accounts.EnvSecrets{}, keyring, log)

	for _, acct := range reg.Accounts {
		alog := log.With(zap.String("account", acct.ID))
		if acct.Mode == accounts.ModeDry {
			alog.Info("dry account, skipping")
			continue
		}
		creds, ok := resolver.Credentials(acct)
		if !ok {
			alog.Info("credentials not set, skipping")
			continue
		}
		mode := accounts.ModeTest
		if placeOrders {
			mode = acct.Mode
		}
		checkAccount(alog, cfg, acct, creds, mode, symbol, qty)
	}

	log.Info("trading API check finished")
}

func checkAccount(log *zap.Logger, cfg *config.Config, acct accounts.Account, creds accounts.Credentials, mode, symbol string, qty float64) {
	log.Info("checking", zap.String("mode", mode), zap.Stringer("credentials", creds))
	c, err := bingx.NewClient(bingx.Config{
		AccountID:          acct.ID,
		Mode:               mode,
		APIKey:             creds.APIKey,
		APISecret:          creds.APISecret,
		SourceKey:          creds.SourceKey,
		SupportsReduceOnly: acct.SupportsReduceOnly,
		BaseURL:            cfg.BingXBaseURL,
		Timeout:            cfg.ExchangeTimeout,
		Logger:             log,
	})
	if err != nil {
		log.Error("client error", zap.Error(err))
		return
	}
	log.Info("endpoint", zap.String("url", c.Endpoint().BaseURL+c.Endpoint().OrderPath))

	out := c.SubmitOrder(context.Background(), exchange.OrderRequest{
		AccountID: acct.ID,
		Command:   "ENTER_LONG",
		Symbol:    symbol,
		Side:      "long",
		Intent:    exchange.IntentOpen,
		Type:      exchange.OrderTypeMarket,
		Qty:       qty,
	})
	code := "none"
	if out.APICode != nil {
		code = strconv.FormatInt(*out.APICode, 10)
	}
	log.Info("result",
		zap.String("classification", string(out.Classification)),
		zap.Int("http", int(out.HTTPStatus)),
		zap.String("code", code),
		zap.String("msg", out.APIMessage),
		zap.String("orderId", out.OrderID),
	)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
