package common

import (
	"encoding/json"
	"strconv"
)

// Side denotes order side on the wire.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PositionSide is the hedge-mode position tag sent with every order.
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// OrderType denotes the order types the gateway submits.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Intent tells the exchange client whether an order opens or closes a position.
type Intent string

const (
	IntentOpen  Intent = "open"
	IntentClose Intent = "close"
)

// OrderRequest captures one order for one account. Side is the logical
// position side ("long" or "short"), not the buy/sell direction.
type OrderRequest struct {
	AccountID  string
	Command    string
	Symbol     string
	Side       string
	Intent     Intent
	Type       OrderType
	Qty        float64
	Price      float64 // LIMIT only
	Leverage   float64 // optional, sent as integer
	MarginType string  // logged only
}

// Classification is the closed set of per-account dispatch results.
type Classification string

const (
	ClassOK             Classification = "ok"
	ClassNoPositionNoop Classification = "noPositionNoop"
	ClassHardError      Classification = "hardError"
	ClassTransportError Classification = "transportError"
	// ClassAcknowledged marks a recognized action that was reported but not sent.
	ClassAcknowledged Classification = "acknowledged"
)

// Success reports whether the outcome counts as a successful dispatch.
func (c Classification) Success() bool {
	switch c {
	case ClassOK, ClassNoPositionNoop, ClassAcknowledged:
		return true
	default:
		return false
	}
}

// HTTPStatus is the exchange HTTP status; zero means no response was received
// and is rendered as "error".
type HTTPStatus int

func (s HTTPStatus) MarshalJSON() ([]byte, error) {
	if s == 0 {
		return []byte(`"error"`), nil
	}
	return []byte(strconv.Itoa(int(s))), nil
}

func (s *HTTPStatus) UnmarshalJSON(b []byte) error {
	if string(b) == `"error"` || string(b) == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	*s = HTTPStatus(n)
	return nil
}

// OrderOutcome is the result of dispatching one order to one account.
type OrderOutcome struct {
	AccountID      string          `json:"accountId"`
	Mode           string          `json:"mode,omitempty"`
	HTTPStatus     HTTPStatus      `json:"httpStatus"`
	APICode        *int64          `json:"apiCode,omitempty"`
	APIMessage     string          `json:"apiMessage,omitempty"`
	Classification Classification  `json:"classification"`
	OrderID        string          `json:"orderId,omitempty"`
	Note           string          `json:"note,omitempty"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}
