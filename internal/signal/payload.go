package signal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is an optional numeric field. TradingView placeholders render either
// as JSON numbers or as quoted strings, so both are accepted. null and "" leave
// it unset.
type Number struct {
	Value float64
	Set   bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = Number{}
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("not a finite number: %s", b)
	}
	*n = Number{Value: v, Set: true}
	return nil
}

func (n Number) ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

// PayloadTakeProfit is one take_profits entry as TradingView sends it.
type PayloadTakeProfit struct {
	Price   Number `json:"price"`
	SizePct Number `json:"size_pct"`
}

// Payload is the union of every accepted alert shape.
type Payload struct {
	Command         string              `json:"command"`
	Code            string              `json:"code"`
	Side            string              `json:"side"`
	Source          string              `json:"source"`
	Symbol          string              `json:"symbol"`
	OrderType       string              `json:"order_type"`
	EntryType       string              `json:"entry_type"`
	EntryPrice      Number              `json:"entry_price"`
	Quantity        Number              `json:"quantity"`
	Leverage        Number              `json:"leverage"`
	MarginType      string              `json:"margin_type"`
	RiskPerTradePct Number              `json:"risk_per_trade_pct"`
	TPClosePct      Number              `json:"tp_close_pct"`
	StopLoss        Number              `json:"stop_loss"`
	TakeProfits     []PayloadTakeProfit `json:"take_profits"`
	RoutingProfile  string              `json:"routing_profile"`
	StrategyName    string              `json:"strategy_name"`
	Timestamp       Number              `json:"timestamp"`
}

// Variant names the payload shape a command was derived from.
type Variant int

const (
	VariantUnknown Variant = iota
	// VariantCommand carries a canonical command such as ENTER_LONG.
	VariantCommand
	// VariantCode derives intent and direction from free text like "short exit".
	VariantCode
	// VariantLegacySide has only side (buy/sell/long/short) and an optional
	// ENTER or EXIT keyword in command.
	VariantLegacySide
)

func (v Variant) String() string {
	switch v {
	case VariantCommand:
		return "command"
	case VariantCode:
		return "code"
	case VariantLegacySide:
		return "legacy_side"
	default:
		return "unknown"
	}
}

// codePhrases are checked in this order; the first contained phrase wins.
var codePhrases = []struct {
	phrase string
	exit   bool
	side   Side
}{
	{"short exit", true, SideShort},
	{"long exit", true, SideLong},
	{"short entry", false, SideShort},
	{"long entry", false, SideLong},
}

func commandKeyword(p Payload) string {
	kw := strings.ToUpper(strings.TrimSpace(p.Command))
	if kw == "" {
		return "ENTER"
	}
	return kw
}

// Variant classifies p into exactly one accepted shape.
func (p Payload) Variant() (Variant, error) {
	kw := commandKeyword(p)
	if _, ok := ParseCommand(kw); ok {
		return VariantCommand, nil
	}
	if kw != "ENTER" && kw != "EXIT" {
		return VariantUnknown, fail("unsupported command: %s", strings.TrimSpace(p.Command))
	}
	if _, _, ok := matchCode(p.Code); ok {
		return VariantCode, nil
	}
	if strings.TrimSpace(p.Side) != "" {
		return VariantLegacySide, nil
	}
	return VariantUnknown, fail("cannot determine command: missing both code and side")
}

func matchCode(code string) (exit bool, side Side, ok bool) {
	c := strings.ToLower(code)
	for _, cp := range codePhrases {
		if strings.Contains(c, cp.phrase) {
			return cp.exit, cp.side, true
		}
	}
	return false, SideNone, false
}

// resolveCommand derives the canonical command for the given variant.
func (p Payload) resolveCommand(v Variant) (Command, error) {
	switch v {
	case VariantCommand:
		c, _ := ParseCommand(p.Command)
		return c, nil
	case VariantCode:
		exit, side, _ := matchCode(p.Code)
		return compose(exit, side), nil
	case VariantLegacySide:
		side, ok := ParseSide(p.Side)
		if !ok {
			return "", invalidSide(p.Side)
		}
		return compose(commandKeyword(p) == "EXIT", side), nil
	default:
		return "", fail("cannot determine command")
	}
}
