package bingx

import (
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestToExchangeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTCUSDT", "BTC-USDT"},
		{"ETHUSDC", "ETH-USDC"},
		{"BTC-USDT", "BTC-USDT"},
		{"USDT", "USDT"},
		{"BTCEUR", "BTCEUR"},
	}
	for _, tt := range tests {
		if got := ToExchangeSymbol(tt.in); got != tt.want {
			t.Errorf("ToExchangeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSignKnownVector(t *testing.T) {
	params := url.Values{}
	params.Set("symbol", "BTC-USDT")
	params.Set("side", "BUY")
	params.Set("quantity", "0.001")
	params.Set("timestamp", "1700000000000")

	const want = "a592405e04edcab5881a585ebad2bac947160c41ba81419bdcbfbcde34e379b7"
	if got := Sign(params, "test_secret"); got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
}

func TestSignedQuery(t *testing.T) {
	params := url.Values{}
	params.Set("symbol", "BTC-USDT")
	params.Set("side", "BUY")
	params.Set("quantity", "0.001")
	now := time.UnixMilli(1700000000000)

	q1 := SignedQuery(params, "test_secret", now)
	q2 := SignedQuery(params, "test_secret", now)
	if q1 != q2 {
		t.Fatalf("signature not deterministic: %s vs %s", q1, q2)
	}
	if params.Get("timestamp") != "" {
		t.Fatalf("SignedQuery modified caller params")
	}

	wantPrefix := "quantity=0.001&side=BUY&symbol=BTC-USDT&timestamp=1700000000000&signature="
	if !strings.HasPrefix(q1, wantPrefix) {
		t.Fatalf("query = %s, want prefix %s", q1, wantPrefix)
	}
	sig := strings.TrimPrefix(q1, wantPrefix)
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(sig) {
		t.Fatalf("signature %q is not 64 lowercase hex chars", sig)
	}

	if other := SignedQuery(params, "other_secret", now); other == q1 {
		t.Fatalf("different secrets produced the same signature")
	}
}

func TestEndpointFor(t *testing.T) {
	tests := []struct {
		mode     string
		wantBase string
		wantPath string
		wantErr  bool
	}{
		{ModeTest, prodHost, "/openApi/swap/v2/trade/order/test", false},
		{ModeDemo, vstHost, "/openApi/swap/v2/trade/order", false},
		{ModeLive, prodHost, "/openApi/swap/v2/trade/order", false},
		{ModeDry, "", "", true},
		{"paper", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			ep, err := EndpointFor(tt.mode)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for mode %q", tt.mode)
				}
				return
			}
			if err != nil {
				t.Fatalf("EndpointFor: %v", err)
			}
			if ep.BaseURL != tt.wantBase || ep.OrderPath != tt.wantPath {
				t.Fatalf("endpoint = %+v", ep)
			}
		})
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := map[float64]string{
		0.001: "0.001",
		1:     "1",
		12.5:  "12.5",
	}
	for in, want := range tests {
		if got := formatDecimal(in); got != want {
			t.Errorf("formatDecimal(%v) = %q, want %q", in, got, want)
		}
	}
}
