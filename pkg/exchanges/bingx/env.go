// Package bingx implements the BingX USDT-M perpetual swap order protocol.
package bingx

import (
	"errors"
	"fmt"
)

const (
	prodHost = "https://open-api.bingx.com"
	vstHost  = "https://open-api-vst.bingx.com"

	orderPath     = "/openApi/swap/v2/trade/order"
	testOrderPath = "/openApi/swap/v2/trade/order/test"
)

// Account modes.
const (
	ModeDry  = "dry"
	ModeTest = "test"
	ModeDemo = "demo"
	ModeLive = "live"
)

var ErrUnsupportedMode = errors.New("unsupported bingx mode")

// Endpoint is the host and order path for one mode.
type Endpoint struct {
	BaseURL   string
	OrderPath string
}

// EndpointFor returns the HTTP endpoint for a networked mode. Dry mode has no
// endpoint and is rejected like any unknown value.
func EndpointFor(mode string) (Endpoint, error) {
	switch mode {
	case ModeTest:
		return Endpoint{BaseURL: prodHost, OrderPath: testOrderPath}, nil
	case ModeDemo:
		return Endpoint{BaseURL: vstHost, OrderPath: orderPath}, nil
	case ModeLive:
		return Endpoint{BaseURL: prodHost, OrderPath: orderPath}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w for HTTP: %q", ErrUnsupportedMode, mode)
	}
}

// ValidMode reports whether mode is one of dry, test, demo or live.
func ValidMode(mode string) bool {
	switch mode {
	case ModeDry, ModeTest, ModeDemo, ModeLive:
		return true
	}
	return false
}
