package main

import (
	"context"
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"signal-gateway/internal/accounts"
	"signal-gateway/internal/gateway"
	"signal-gateway/internal/pipeline"
	"signal-gateway/pkg/logger"
)

// dry_run_demo pushes a few alerts through the full pipeline against the
// built-in "paper" profile. Nothing reaches an exchange.
//
// Usage:
//   go run ./scripts/dry_run_demo
//
// It will:
//   1) ENTER_LONG then EXIT_LONG on BTCUSDT.
//   2) Send a code-style alert and a legacy side-style alert.
//   3) Send CANCEL_ALL, which is acknowledged but not executed.
//   4) Send an invalid alert to show the rejection detail.

var alerts = []string{
	`{"command":"ENTER_LONG","symbol":"BINANCE:BTCUSDT.P","quantity":0.001,"routing_profile":"paper"}`,
	`{"command":"EXIT_LONG","symbol":"BTCUSDT","quantity":0.001,"routing_profile":"paper"}`,
	`{"code":"entry_short","symbol":"ETHUSDT","quantity":0.01,"routing_profile":"paper"}`,
	`{"side":"buy","symbol":"SOLUSDT","order_type":"limit","entry_price":150.5,"quantity":1,"routing_profile":"paper"}`,
	`{"command":"CANCEL_ALL","symbol":"BTCUSDT","routing_profile":"paper"}`,
	`{"command":"EXIT_SHORT","symbol":"BTCUSDT","routing_profile":"paper"}`,
}

func main() {
	zl := logger.Must("info", "console", "dry_run_demo")
	defer func() { _ = zl.Sync() }()

	provider, err := accounts.NewStaticProvider(accounts.BuiltinRegistry())
	if err != nil {
		zl.Fatal("registry invalid", zap.Error(err))
	}
	orch := pipeline.New(
		accounts.NewResolver(provider, accounts.EnvSecrets{}, nil, zl),
		gateway.NewFactory(gateway.Options{Logger: zl}),
		pipeline.Options{Logger: zl},
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	ctx := context.Background()
	for i, raw := range alerts {
		zl.Info("alert", zap.Int("n", i+1), zap.String("payload", raw))
		res := orch.Handle(ctx, []byte(raw))
		zl.Info("handled", zap.Int("n", i+1), zap.Int("http", res.HTTPStatus()), zap.Stringer("kind", res.Kind))
		if err := enc.Encode(res); err != nil {
			zl.Fatal("encode failed", zap.Error(err))
		}
	}
}
