package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.SignalHandled("processed")
	m.SignalHandled("processed")
	m.SignalHandled("dropped")
	m.OrderOutcome("demo", "ok")
	m.OrderOutcome("demo", "noPositionNoop")
	m.ExchangeCall("demo", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.SignalsTotal.WithLabelValues("processed")); got != 2 {
		t.Fatalf("processed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SignalsTotal.WithLabelValues("dropped")); got != 1 {
		t.Fatalf("dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.OrderOutcomes.WithLabelValues("demo", "noPositionNoop")); got != 1 {
		t.Fatalf("noop outcomes = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.ExchangeLatency); n != 1 {
		t.Fatalf("latency series = %d, want 1", n)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.HTTPRequest("POST", "/webhook/tradingview", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `signal_gateway_http_requests_total{code="200",method="POST",route="/webhook/tradingview"} 1`) {
		t.Fatalf("metrics output missing request counter:\n%s", body)
	}
}
