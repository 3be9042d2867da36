package signal

import (
	"encoding/json"
	"time"
)

// EntryType is market or limit.
type EntryType string

const (
	EntryMarket EntryType = "market"
	EntryLimit  EntryType = "limit"
)

// TakeProfitLevel is one price target. Levels keep the order they arrived in.
type TakeProfitLevel struct {
	Price   float64 `json:"price"`
	SizePct float64 `json:"sizePct"`
}

// Signal is the normalized form of one alert. It is built once by Normalize
// and treated as read-only afterwards.
type Signal struct {
	Command         Command           `json:"command"`
	Source          string            `json:"source"`
	StrategyName    string            `json:"strategyName,omitempty"`
	Symbol          string            `json:"symbol"`
	Side            Side              `json:"side,omitempty"`
	EntryType       EntryType         `json:"entryType"`
	EntryPrice      *float64          `json:"entryPrice,omitempty"`
	Quantity        *float64          `json:"quantity,omitempty"`
	Leverage        *float64          `json:"leverage,omitempty"`
	MarginType      string            `json:"marginType,omitempty"`
	RiskPerTradePct *float64          `json:"riskPerTradePct,omitempty"`
	TPClosePct      *float64          `json:"tpClosePct,omitempty"`
	StopLoss        *float64          `json:"stopLoss,omitempty"`
	TakeProfits     []TakeProfitLevel `json:"takeProfits"`
	RoutingProfile  string            `json:"routingProfile"`
	Code            string            `json:"code,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	RawPayload      json.RawMessage   `json:"-"`
}

// Qty returns the quantity or zero when absent.
func (s Signal) Qty() float64 { return deref(s.Quantity) }

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
