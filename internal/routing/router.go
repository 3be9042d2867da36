// Package routing maps canonical commands onto the actions the gateway performs.
package routing

import (
	"fmt"

	"signal-gateway/internal/signal"
	"signal-gateway/pkg/exchanges/common"
)

// ActionKind is what a command asks the account to do.
type ActionKind string

const (
	OpenPosition         ActionKind = "OPEN_POSITION"
	ClosePositionFull    ActionKind = "CLOSE_POSITION_FULL"
	ClosePositionPartial ActionKind = "CLOSE_POSITION_PARTIAL"
	CloseAllPositions    ActionKind = "CLOSE_ALL_POSITIONS"
)

// NotImplementedNote is reported for recognized actions that are not sent.
const NotImplementedNote = "recognized, not implemented"

var kinds = map[signal.Command]ActionKind{
	signal.EnterLong:        OpenPosition,
	signal.EnterShort:       OpenPosition,
	signal.ExitLong:         ClosePositionFull,
	signal.ExitShort:        ClosePositionFull,
	signal.ExitLongAll:      ClosePositionFull,
	signal.ExitShortAll:     ClosePositionFull,
	signal.ExitLongPartial:  ClosePositionPartial,
	signal.ExitShortPartial: ClosePositionPartial,
	signal.CancelAll:        CloseAllPositions,
}

// Action is the routed form of a signal. It has no lifecycle of its own.
type Action struct {
	Kind       ActionKind       `json:"actionKind"`
	Command    signal.Command   `json:"command"`
	Symbol     string           `json:"symbol"`
	Side       signal.Side      `json:"side,omitempty"`
	Quantity   *float64         `json:"quantity,omitempty"`
	TPClosePct *float64         `json:"tpClosePct,omitempty"`
	MarginType string           `json:"marginType,omitempty"`
	Leverage   *float64         `json:"leverage,omitempty"`
	EntryType  signal.EntryType `json:"-"`
	EntryPrice *float64         `json:"-"`
}

// ValidationError is returned when an executable action lacks a required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Route is a total pure function over the canonical command set. An unknown
// command panics: Normalize never produces one.
func Route(sig signal.Signal) Action {
	kind, ok := kinds[sig.Command]
	if !ok {
		panic(fmt.Sprintf("routing: unknown command %q", sig.Command))
	}
	a := Action{
		Kind:       kind,
		Command:    sig.Command,
		Symbol:     sig.Symbol,
		MarginType: sig.MarginType,
		Leverage:   sig.Leverage,
	}
	if kind == CloseAllPositions {
		return a
	}
	a.Side = sig.Command.Side()
	a.Quantity = sig.Quantity
	a.EntryType = sig.EntryType
	a.EntryPrice = sig.EntryPrice
	if kind == ClosePositionPartial {
		a.TPClosePct = sig.TPClosePct
	}
	return a
}

// Executable reports whether the action is sent to the exchange. Opens and bare
// EXIT_LONG/EXIT_SHORT share one path; the exchange client flips buy/sell for
// the exit.
func (a Action) Executable() bool {
	switch a.Command {
	case signal.EnterLong, signal.EnterShort, signal.ExitLong, signal.ExitShort:
		return true
	}
	return false
}

// Validate checks that an executable action can be dispatched.
func (a Action) Validate() error {
	if a.Side != signal.SideLong && a.Side != signal.SideShort {
		return &ValidationError{Field: "side", Reason: fmt.Sprintf("required for %s", a.Command)}
	}
	if a.Quantity == nil || *a.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must be > 0 for %s", a.Command)}
	}
	if a.EntryType == signal.EntryLimit && (a.EntryPrice == nil || *a.EntryPrice <= 0) {
		return &ValidationError{Field: "entry_price", Reason: "required for limit orders"}
	}
	return nil
}

// OrderRequest builds the exchange request for one account.
func (a Action) OrderRequest(accountID string) common.OrderRequest {
	req := common.OrderRequest{
		AccountID:  accountID,
		Command:    a.Command.String(),
		Symbol:     a.Symbol,
		Side:       string(a.Side),
		Intent:     common.IntentOpen,
		Type:       common.OrderTypeMarket,
		MarginType: a.MarginType,
	}
	if a.Command.IsExit() {
		req.Intent = common.IntentClose
	}
	if a.Quantity != nil {
		req.Qty = *a.Quantity
	}
	if a.Leverage != nil {
		req.Leverage = *a.Leverage
	}
	if a.EntryType == signal.EntryLimit && a.EntryPrice != nil {
		req.Type = common.OrderTypeLimit
		req.Price = *a.EntryPrice
	}
	return req
}
