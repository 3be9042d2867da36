package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signal-gateway/internal/accounts"
	"signal-gateway/internal/api"
	"signal-gateway/internal/gateway"
	"signal-gateway/internal/monitor"
	"signal-gateway/internal/notify"
	"signal-gateway/internal/pipeline"
	"signal-gateway/pkg/config"
	"signal-gateway/pkg/crypto"
	"signal-gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config comes from cfg, so fall back to a plain one here
		logger.Must("error", "console", "signal-gateway").Fatal("config load failed", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		logger.Must("info", "console", cfg.ServiceName).Fatal("logger init failed", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("config loaded",
		zap.String("port", cfg.Port),
		zap.String("accountsFile", cfg.AccountsFile),
		zap.Duration("exchangeTimeout", cfg.ExchangeTimeout),
		zap.Int("concurrency", cfg.DispatchConcurrency),
	)

	provider, err := newProvider(cfg)
	if err != nil {
		log.Fatal("accounts registry invalid", zap.Error(err))
	}

	keyring, err := crypto.LoadKeyring(os.LookupEnv, cfg.MasterKeyPrefix)
	if err != nil {
		log.Fatal("master key load failed", zap.Error(err))
	}
	if keyring.CurrentVersion() > 0 {
		log.Info("master key loaded", zap.Int("version", keyring.CurrentVersion()))
	}

	resolver := accounts.NewResolver(provider, accounts.EnvSecrets{}, keyring, log)
	logAvailability(log, provider.Snapshot(), resolver)

	baseURLs := map[string]string{}
	if cfg.BingXBaseURL != "" {
		baseURLs["bingx"] = cfg.BingXBaseURL
	}
	factory := gateway.NewFactory(gateway.Options{
		Timeout:  cfg.ExchangeTimeout,
		Logger:   log,
		BaseURLs: baseURLs,
	})

	var notifier notify.Notifier = notify.LogNotifier{Log: log.Named("alerts")}
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn("telegram alerts disabled", zap.Error(err))
		} else {
			notifier = tg
			log.Info("telegram alerts enabled", zap.Int64("chatId", cfg.TelegramChatID))
		}
	}

	metrics := monitor.NewMetrics()
	orch := pipeline.New(resolver, factory, pipeline.Options{
		Concurrency:  cfg.DispatchConcurrency,
		AlertTimeout: cfg.AlertTimeout,
		Notifier:     notifier,
		Metrics:      metrics,
		Logger:       log,
	})

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(orch, metrics, log, api.Meta{
		Service:        cfg.ServiceName,
		RequestTimeout: cfg.RequestTimeout,
	})
	httpServer := server.HTTPServer(":" + cfg.Port)
	go func() {
		log.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if err := provider.Refresh(); err != nil {
				log.Error("registry reload failed, keeping previous", zap.Error(err))
				continue
			}
			log.Info("registry reloaded")
			logAvailability(log, provider.Snapshot(), resolver)
			continue
		}
		break
	}

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newProvider(cfg *config.Config) (accounts.ConfigProvider, error) {
	if cfg.AccountsFile != "" {
		return accounts.NewFileProvider(cfg.AccountsFile)
	}
	return accounts.NewStaticProvider(accounts.BuiltinRegistry())
}

// logAvailability reports which accounts currently have credentials.
func logAvailability(log *zap.Logger, reg *accounts.Registry, resolver *accounts.Resolver) {
	for _, acct := range reg.Accounts {
		_, ok := resolver.Credentials(acct)
		log.Info("account",
			zap.String("id", acct.ID),
			zap.String("exchange", acct.Exchange),
			zap.String("mode", acct.Mode),
			zap.Bool("available", ok),
		)
	}
}
