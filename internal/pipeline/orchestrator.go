// Package pipeline runs one alert through normalization, routing and the
// per-account fan-out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"signal-gateway/internal/accounts"
	"signal-gateway/internal/gateway"
	"signal-gateway/internal/notify"
	"signal-gateway/internal/routing"
	"signal-gateway/internal/signal"
	exchange "signal-gateway/pkg/exchanges/common"
)

const (
	defaultConcurrency  = 4
	defaultAlertTimeout = 5 * time.Second
)

// Resolver is the part of accounts.Resolver the pipeline needs.
type Resolver interface {
	ResolveProfile(name string) ([]accounts.Account, error)
	Credentials(acct accounts.Account) (accounts.Credentials, bool)
}

// Recorder receives pipeline metrics. *monitor.Metrics implements it.
type Recorder interface {
	SignalHandled(status string)
	OrderOutcome(mode, classification string)
	ExchangeCall(mode string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SignalHandled(string)                {}
func (nopRecorder) OrderOutcome(string, string)         {}
func (nopRecorder) ExchangeCall(string, time.Duration) {}

// Options tunes an Orchestrator. Zero values pick defaults.
type Options struct {
	Concurrency int
	// AlertTimeout bounds each notifier call made on the request path.
	AlertTimeout time.Duration
	Notifier     notify.Notifier
	Metrics      Recorder
	Logger       *zap.Logger
	Now          func() time.Time
}

// Orchestrator holds only read-only collaborators; concurrent Handle calls
// share nothing mutable.
type Orchestrator struct {
	resolver     Resolver
	factory      gateway.Factory
	notifier     notify.Notifier
	metrics      Recorder
	log          *zap.Logger
	now          func() time.Time
	concurrency  int
	alertTimeout time.Duration
}

func New(resolver Resolver, factory gateway.Factory, opts Options) *Orchestrator {
	o := &Orchestrator{
		resolver:     resolver,
		factory:      factory,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		now:          opts.Now,
		concurrency:  opts.Concurrency,
		alertTimeout: opts.AlertTimeout,
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	o.log = o.log.Named("pipeline")
	if o.notifier == nil {
		o.notifier = notify.LogNotifier{Log: o.log}
	}
	if o.metrics == nil {
		o.metrics = nopRecorder{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.concurrency <= 0 {
		o.concurrency = defaultConcurrency
	}
	if o.alertTimeout <= 0 {
		o.alertTimeout = defaultAlertTimeout
	}
	return o
}

// Handle normalizes a raw alert and runs it through the pipeline.
func (o *Orchestrator) Handle(ctx context.Context, raw []byte) Result {
	sig, err := signal.Normalize(raw, o.now())
	if err != nil {
		o.log.Warn("alert rejected", zap.Error(err), zap.ByteString("payload", truncate(raw, 500)))
		o.metrics.SignalHandled(StatusRejected)
		return rejected(KindValidationError, err.Error())
	}
	return o.HandleSignal(ctx, sig)
}

// HandleSignal runs an already normalized signal through routing and dispatch.
func (o *Orchestrator) HandleSignal(ctx context.Context, sig signal.Signal) Result {
	log := o.log.With(
		zap.String("command", sig.Command.String()),
		zap.String("symbol", sig.Symbol),
		zap.String("profile", sig.RoutingProfile),
	)
	log.Info("signal received", zap.String("source", sig.Source), zap.String("strategy", sig.StrategyName))

	action := routing.Route(sig)

	accts, err := o.resolver.ResolveProfile(sig.RoutingProfile)
	if err != nil {
		log.Error("routing failed", zap.Error(err))
		o.metrics.SignalHandled(StatusRejected)
		kind := KindValidationError
		if errors.Is(err, accounts.ErrUnknownProfile) {
			kind = KindUnknownProfile
		}
		return rejected(kind, err.Error())
	}

	res := Result{
		Kind:           KindOk,
		Status:         StatusProcessed,
		RoutingProfile: sig.RoutingProfile,
		Command:        sig.Command.String(),
		Action:         action.Kind,
		RoutedAccounts: len(accts),
		Results:        make([]exchange.OrderOutcome, len(accts)),
	}

	if len(accts) == 0 {
		log.Warn("no available accounts, dropping signal")
		o.metrics.SignalHandled(StatusDropped)
		res.Status = StatusDropped
		res.Reason = ReasonNoAccounts
		return res
	}

	if !action.Executable() {
		log.Info("action recognized but not executed", zap.String("action", string(action.Kind)))
		for i, a := range accts {
			res.Results[i] = exchange.OrderOutcome{
				AccountID:      a.ID,
				Mode:           a.Mode,
				Classification: exchange.ClassAcknowledged,
				Note:           routing.NotImplementedNote,
			}
			o.metrics.OrderOutcome(a.Mode, string(exchange.ClassAcknowledged))
		}
		o.metrics.SignalHandled(StatusProcessed)
		return res
	}

	if err := action.Validate(); err != nil {
		log.Warn("action rejected", zap.Error(err))
		o.metrics.SignalHandled(StatusRejected)
		return rejected(KindValidationError, err.Error())
	}

	log.Info("dispatching", zap.Int("accounts", len(accts)), zap.String("action", string(action.Kind)))
	o.dispatch(ctx, action, accts, res.Results)

	for _, out := range res.Results {
		o.metrics.OrderOutcome(out.Mode, string(out.Classification))
		if out.Classification.Success() {
			continue
		}
		o.alert(ctx, log, notify.FormatFailure(res.Command, sig.Symbol, out), out.AccountID)
	}
	o.metrics.SignalHandled(StatusProcessed)
	log.Info("signal processed", zap.Int("routedAccounts", res.RoutedAccounts), zap.Int("failed", len(res.Failed())))
	return res
}

// dispatch runs one order per account with bounded concurrency. Each outcome
// is written to its declared slot, so completion order does not matter and a
// failing or panicking account never stops its siblings.
func (o *Orchestrator) dispatch(ctx context.Context, action routing.Action, accts []accounts.Account, out []exchange.OrderOutcome) {
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, acct := range accts {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					o.log.Error("dispatch panic", zap.String("account", acct.ID), zap.Any("panic", r))
					out[i] = exchange.OrderOutcome{
						AccountID:      acct.ID,
						Mode:           acct.Mode,
						Classification: exchange.ClassHardError,
						APIMessage:     fmt.Sprintf("dispatch panic: %v", r),
					}
				}
			}()
			out[i] = o.submit(ctx, action, acct)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) submit(ctx context.Context, action routing.Action, acct accounts.Account) exchange.OrderOutcome {
	creds, ok := o.resolver.Credentials(acct)
	if !ok {
		return exchange.OrderOutcome{
			AccountID:      acct.ID,
			Mode:           acct.Mode,
			Classification: exchange.ClassHardError,
			APIMessage:     "credentials no longer available",
		}
	}
	gw, err := o.factory(acct, creds)
	if err != nil {
		o.log.Error("gateway build failed", zap.String("account", acct.ID), zap.Error(err))
		return exchange.OrderOutcome{
			AccountID:      acct.ID,
			Mode:           acct.Mode,
			Classification: exchange.ClassHardError,
			APIMessage:     err.Error(),
		}
	}

	start := time.Now()
	res := gw.SubmitOrder(ctx, action.OrderRequest(acct.ID))
	o.metrics.ExchangeCall(acct.Mode, time.Since(start))
	if res.AccountID == "" {
		res.AccountID = acct.ID
	}
	if res.Mode == "" {
		res.Mode = acct.Mode
	}
	if res.Classification == exchange.ClassNoPositionNoop {
		o.log.Info("no position to close, treated as no-op", zap.String("account", acct.ID), zap.String("symbol", action.Symbol))
	}
	return res
}

func (o *Orchestrator) alert(ctx context.Context, log *zap.Logger, msg, account string) {
	ctx, cancel := context.WithTimeout(ctx, o.alertTimeout)
	defer cancel()
	if err := o.notifier.Send(ctx, msg); err != nil {
		log.Warn("alert delivery failed", zap.String("account", account), zap.Error(err))
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
