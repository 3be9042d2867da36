package signal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultSource         = "tradingview"
	DefaultRoutingProfile = "default"

	// MaxLeverage caps leverage accepted from alerts. Venues may cap lower.
	MaxLeverage = 200
)

// Timestamps past year 9999 fall back to the receive time.
const maxTimestampMillis = 253402300799999

// NormalizationError reports why an alert could not be normalized.
type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string { return e.Reason }

func fail(format string, args ...any) *NormalizationError {
	return &NormalizationError{Reason: fmt.Sprintf(format, args...)}
}

func invalidSide(s string) *NormalizationError {
	return fail("invalid side value: %s (must be one of buy, sell, long, short)", s)
}

// Normalize decodes a raw alert and converts it into a Signal. now is used when
// the alert carries no timestamp.
func Normalize(raw []byte, now time.Time) (Signal, error) {
	p, err := DecodePayload(raw)
	if err != nil {
		return Signal{}, err
	}
	sig, err := FromPayload(p, now)
	if err != nil {
		return Signal{}, err
	}
	sig.RawPayload = append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
	return sig, nil
}

// DecodePayload parses the alert JSON without interpreting it.
func DecodePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fail("invalid JSON payload: %v", err)
	}
	return p, nil
}

// FromPayload converts an already decoded payload. Precedence for the command
// is command field > code text > side field, and the output side always
// follows the final command.
func FromPayload(p Payload, now time.Time) (Signal, error) {
	variant, err := p.Variant()
	if err != nil {
		return Signal{}, err
	}
	if strings.TrimSpace(p.Side) != "" {
		if _, ok := ParseSide(p.Side); !ok {
			return Signal{}, invalidSide(p.Side)
		}
	}
	cmd, err := p.resolveCommand(variant)
	if err != nil {
		return Signal{}, err
	}

	symbol := NormalizeSymbol(p.Symbol)
	if symbol == "" {
		return Signal{}, fail("symbol is required")
	}

	entryType, err := resolveEntryType(p)
	if err != nil {
		return Signal{}, err
	}
	if entryType == EntryLimit && !p.EntryPrice.Set {
		return Signal{}, fail("entry_price required for limit orders")
	}

	for _, f := range []struct {
		name string
		n    Number
	}{
		{"entry_price", p.EntryPrice},
		{"quantity", p.Quantity},
		{"leverage", p.Leverage},
		{"stop_loss", p.StopLoss},
	} {
		if f.n.Set && f.n.Value <= 0 {
			return Signal{}, fail("%s must be > 0, got %v", f.name, f.n.Value)
		}
	}
	if p.Leverage.Set && p.Leverage.Value > MaxLeverage {
		return Signal{}, fail("leverage must be <= %d, got %v", MaxLeverage, p.Leverage.Value)
	}
	for _, f := range []struct {
		name string
		n    Number
	}{
		{"risk_per_trade_pct", p.RiskPerTradePct},
		{"tp_close_pct", p.TPClosePct},
	} {
		if f.n.Set && (f.n.Value < 0 || f.n.Value > 100) {
			return Signal{}, fail("%s must be within [0,100], got %v", f.name, f.n.Value)
		}
	}
	if cmd.IsEntry() && !p.Quantity.Set {
		return Signal{}, fail("quantity required for %s", cmd)
	}

	tps := make([]TakeProfitLevel, 0, len(p.TakeProfits))
	for i, tp := range p.TakeProfits {
		if !tp.Price.Set || tp.Price.Value <= 0 {
			return Signal{}, fail("take_profits[%d].price must be > 0", i)
		}
		if !tp.SizePct.Set || tp.SizePct.Value <= 0 || tp.SizePct.Value > 100 {
			return Signal{}, fail("take_profits[%d].size_pct must be within (0,100]", i)
		}
		tps = append(tps, TakeProfitLevel{Price: tp.Price.Value, SizePct: tp.SizePct.Value})
	}

	source := strings.TrimSpace(p.Source)
	if source == "" {
		source = DefaultSource
	}
	profile := strings.TrimSpace(p.RoutingProfile)
	if profile == "" {
		profile = DefaultRoutingProfile
	}
	ts := now.UTC()
	if p.Timestamp.Set && p.Timestamp.Value > 0 && p.Timestamp.Value <= maxTimestampMillis {
		ts = time.UnixMilli(int64(p.Timestamp.Value)).UTC()
	}

	return Signal{
		Command:         cmd,
		Source:          source,
		StrategyName:    p.StrategyName,
		Symbol:          symbol,
		Side:            cmd.Side(),
		EntryType:       entryType,
		EntryPrice:      p.EntryPrice.ptr(),
		Quantity:        p.Quantity.ptr(),
		Leverage:        p.Leverage.ptr(),
		MarginType:      strings.ToUpper(strings.TrimSpace(p.MarginType)),
		RiskPerTradePct: p.RiskPerTradePct.ptr(),
		TPClosePct:      p.TPClosePct.ptr(),
		StopLoss:        p.StopLoss.ptr(),
		TakeProfits:     tps,
		RoutingProfile:  profile,
		Code:            p.Code,
		Timestamp:       ts,
	}, nil
}

func resolveEntryType(p Payload) (EntryType, error) {
	t := strings.ToLower(strings.TrimSpace(p.OrderType))
	if t == "" {
		t = strings.ToLower(strings.TrimSpace(p.EntryType))
	}
	switch t {
	case "", string(EntryMarket):
		return EntryMarket, nil
	case string(EntryLimit):
		return EntryLimit, nil
	default:
		return "", fail("invalid order_type: %s (must be market or limit)", t)
	}
}

// NormalizeSymbol strips an "EXCHANGE:" prefix and a trailing ".P" perpetual
// suffix: "BINANCE:BTCUSDT.P" becomes "BTCUSDT".
func NormalizeSymbol(symbol string) string {
	s := strings.TrimSpace(symbol)
	if _, after, ok := strings.Cut(s, ":"); ok {
		s = after
	}
	if strings.HasSuffix(s, ".P") || strings.HasSuffix(s, ".p") {
		s = s[:len(s)-2]
	}
	return s
}
