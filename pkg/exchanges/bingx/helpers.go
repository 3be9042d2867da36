package bingx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var quoteAssets = []string{"USDT", "USDC"}

// ToExchangeSymbol converts BTCUSDT into BTC-USDT. Hyphenated or unrecognized
// symbols are returned unchanged.
func ToExchangeSymbol(symbol string) string {
	if strings.Contains(symbol, "-") {
		return symbol
	}
	for _, quote := range quoteAssets {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return symbol[:len(symbol)-len(quote)] + "-" + quote
		}
	}
	return symbol
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Sign returns the hex HMAC-SHA256 signature of the canonical query built from
// params. params must already carry a timestamp for the result to be stable.
func Sign(params url.Values, secret string) string {
	return sign(params.Encode(), secret)
}

// SignedQuery adds a millisecond timestamp when absent, encodes params with keys
// sorted lexicographically and appends the signature as the final parameter.
// params is not modified.
func SignedQuery(params url.Values, secret string, now time.Time) string {
	q := make(url.Values, len(params)+1)
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	if q.Get("timestamp") == "" {
		q.Set("timestamp", strconv.FormatInt(now.UnixMilli(), 10))
	}
	encoded := q.Encode()
	return encoded + "&signature=" + sign(encoded, secret)
}

func formatDecimal(v float64) string {
	return decimal.NewFromFloat(v).String()
}
