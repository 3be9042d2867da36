package bingx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signal-gateway/pkg/exchanges/common"
)

// CodeNoPosition is returned when an exit finds no open position to close.
const CodeNoPosition = 101205

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
	logBodyLimit   = 300
	maxLeverage    = 150
)

var ErrMissingCredentials = errors.New("bingx: API key/secret required")

// Config holds one account's BingX settings.
type Config struct {
	AccountID          string
	Mode               string
	APIKey             string
	APISecret          string
	SourceKey          string // optional X-SOURCE-KEY header
	SupportsReduceOnly bool

	BaseURL    string // overrides the mode host, used by tests
	Timeout    time.Duration
	HTTPClient *http.Client
	Now        func() time.Time
	Logger     *zap.Logger
}

// Client submits orders for a single account.
type Client struct {
	cfg        Config
	endpoint   Endpoint
	httpClient *http.Client
	now        func() time.Time
	log        *zap.Logger
}

// NewClient validates the mode and credentials and builds a client. Dry mode
// needs no credentials.
func NewClient(cfg Config) (*Client, error) {
	if !ValidMode(cfg.Mode) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, cfg.Mode)
	}
	c := &Client{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		now:        cfg.Now,
		log:        cfg.Logger,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.With(zap.String("account", cfg.AccountID), zap.String("mode", cfg.Mode))
	if cfg.Mode == ModeDry {
		return c, nil
	}

	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("%w for account %s", ErrMissingCredentials, cfg.AccountID)
	}
	ep, err := EndpointFor(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL != "" {
		ep.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	c.endpoint = ep
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c, nil
}

// Endpoint returns the resolved endpoint (zero for dry mode).
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// SubmitOrder sends one order and classifies the response. It issues exactly
// one HTTP call (none in dry mode) and never retries.
func (c *Client) SubmitOrder(ctx context.Context, req common.OrderRequest) common.OrderOutcome {
	out := common.OrderOutcome{AccountID: c.cfg.AccountID, Mode: c.cfg.Mode}

	params, err := c.buildParams(req)
	if err != nil {
		c.log.Error("bingx order rejected before send", zap.String("command", req.Command), zap.Error(err))
		out.Classification = common.ClassHardError
		out.APIMessage = err.Error()
		return out
	}

	if c.cfg.Mode == ModeDry {
		out.HTTPStatus = http.StatusOK
		out.Classification = common.ClassOK
		out.OrderID = "dryrun-" + strings.ReplaceAll(uuid.NewString(), "-", "")
		c.log.Info("dry run order",
			zap.String("command", req.Command),
			zap.String("symbol", params.Get("symbol")),
			zap.String("side", params.Get("side")),
			zap.String("positionSide", params.Get("positionSide")),
			zap.String("quantity", params.Get("quantity")),
			zap.String("orderId", out.OrderID),
		)
		return out
	}

	query := SignedQuery(params, c.cfg.APISecret, c.now())
	endpoint := c.endpoint.BaseURL + c.endpoint.OrderPath + "?" + query

	c.log.Info("bingx order request",
		zap.String("command", req.Command),
		zap.String("symbol", params.Get("symbol")),
		zap.String("side", params.Get("side")),
		zap.String("positionSide", params.Get("positionSide")),
		zap.String("quantity", params.Get("quantity")),
		zap.Bool("reduceOnly", params.Get("reduceOnly") == "true"),
		zap.String("path", c.endpoint.OrderPath),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		out.Classification = common.ClassTransportError
		out.APIMessage = err.Error()
		return out
	}
	httpReq.Header.Set("X-BX-APIKEY", c.cfg.APIKey)
	if c.cfg.SourceKey != "" {
		httpReq.Header.Set("X-SOURCE-KEY", c.cfg.SourceKey)
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Error("bingx http error", zap.String("symbol", params.Get("symbol")), zap.Error(err))
		out.Classification = common.ClassTransportError
		out.APIMessage = err.Error()
		return out
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	out.HTTPStatus = common.HTTPStatus(res.StatusCode)
	if err != nil {
		out.Classification = common.ClassTransportError
		out.APIMessage = fmt.Sprintf("read body: %v", err)
		return out
	}

	classify(&out, res.StatusCode, body)
	c.logOutcome(req, params, out, body)
	return out
}

func (c *Client) buildParams(req common.OrderRequest) (url.Values, error) {
	side, positionSide, err := mapSides(req.Side, req.Intent)
	if err != nil {
		return nil, err
	}
	if !finite(req.Qty) || req.Qty <= 0 {
		return nil, fmt.Errorf("bingx order requires quantity > 0, got %v", req.Qty)
	}
	orderType := req.Type
	if orderType == "" {
		orderType = common.OrderTypeMarket
	}

	params := url.Values{}
	params.Set("symbol", ToExchangeSymbol(req.Symbol))
	params.Set("side", string(side))
	params.Set("type", string(orderType))
	params.Set("quantity", formatDecimal(req.Qty))
	params.Set("positionSide", string(positionSide))
	if req.Intent == common.IntentClose && c.cfg.SupportsReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if orderType == common.OrderTypeLimit {
		if !finite(req.Price) || req.Price <= 0 {
			return nil, errors.New("limit order requires price")
		}
		params.Set("price", formatDecimal(req.Price))
	}
	if !finite(req.Leverage) || req.Leverage > maxLeverage {
		return nil, fmt.Errorf("leverage must be within [1,%d], got %v", maxLeverage, req.Leverage)
	}
	if req.Leverage > 0 {
		params.Set("leverage", strconv.Itoa(int(req.Leverage)))
	}
	return params, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// mapSides returns the buy/sell direction and the position side tag. Exits
// flip the direction; the position side always follows the logical side.
func mapSides(side string, intent common.Intent) (common.Side, common.PositionSide, error) {
	var long bool
	switch strings.ToLower(side) {
	case "long", "buy":
		long = true
	case "short", "sell":
		long = false
	default:
		return "", "", fmt.Errorf("unsupported side for positionSide: %q", side)
	}

	positionSide := common.PositionShort
	if long {
		positionSide = common.PositionLong
	}
	buy := long
	if intent == common.IntentClose {
		buy = !long
	}
	if buy {
		return common.SideBuy, positionSide, nil
	}
	return common.SideSell, positionSide, nil
}

type apiResponse struct {
	Code    json.RawMessage `json:"code"`
	Msg     string          `json:"msg"`
	Message string          `json:"message"`
	OrderID json.RawMessage `json:"orderId"`
	Data    json.RawMessage `json:"data"`
}

type orderData struct {
	OrderID json.RawMessage `json:"orderId"`
	Order   struct {
		OrderID json.RawMessage `json:"orderId"`
	} `json:"order"`
}

// orderID looks for the id in data.order, data and the top level, in that order.
func (r apiResponse) orderID() string {
	var d orderData
	// data may be absent or not an object; the top-level id still applies
	_ = json.Unmarshal(r.Data, &d)
	return firstID(d.Order.OrderID, d.OrderID, r.OrderID)
}

// classify fills the outcome from the HTTP status and body. BingX answers 200
// for business errors, so HTTP >= 400 is treated as a transport failure and the
// API code decides everything else.
func classify(out *common.OrderOutcome, status int, body []byte) {
	var resp apiResponse
	decodeErr := json.Unmarshal(body, &resp)
	if decodeErr == nil {
		out.Raw = json.RawMessage(body)
		if resp.Msg != "" {
			out.APIMessage = resp.Msg
		} else {
			out.APIMessage = resp.Message
		}
	} else {
		out.Raw = rawText(body)
	}

	code, hasCode, codeErr := parseCode(resp.Code)
	if decodeErr == nil && hasCode && codeErr == nil {
		out.APICode = &code
	}

	switch {
	case status >= http.StatusBadRequest:
		out.Classification = common.ClassTransportError
		if out.APIMessage == "" {
			out.APIMessage = http.StatusText(status)
		}
	case decodeErr != nil:
		out.Classification = common.ClassHardError
		out.APIMessage = "invalid response body"
	case codeErr != nil:
		out.Classification = common.ClassHardError
		if out.APIMessage == "" {
			out.APIMessage = codeErr.Error()
		}
	case !hasCode || code == 0:
		out.Classification = common.ClassOK
		out.OrderID = resp.orderID()
	case code == CodeNoPosition:
		out.Classification = common.ClassNoPositionNoop
		if out.APIMessage == "" {
			out.APIMessage = "No position to close"
		}
	default:
		out.Classification = common.ClassHardError
		if out.APIMessage == "" {
			out.APIMessage = "Unknown error"
		}
	}
}

// parseCode accepts a number, a numeric string or null.
func parseCode(raw json.RawMessage) (int64, bool, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false, nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return 0, false, nil
	}
	code, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("invalid api code %q", s)
	}
	return code, true, nil
}

func firstID(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
		if s != "" && s != "null" {
			return s
		}
	}
	return ""
}

func rawText(body []byte) json.RawMessage {
	text := string(bytes.TrimSpace(body))
	if len(text) > 500 {
		text = text[:500]
	}
	b, _ := json.Marshal(map[string]string{"raw_response": text})
	return b
}

func (c *Client) logOutcome(req common.OrderRequest, params url.Values, out common.OrderOutcome, body []byte) {
	snippet := string(body)
	if len(snippet) > logBodyLimit {
		snippet = snippet[:logBodyLimit] + "... (truncated)"
	}
	fields := []zap.Field{
		zap.String("command", req.Command),
		zap.String("symbol", params.Get("symbol")),
		zap.String("side", params.Get("side")),
		zap.String("positionSide", params.Get("positionSide")),
		zap.Int("httpStatus", int(out.HTTPStatus)),
		zap.String("classification", string(out.Classification)),
		zap.String("body", snippet),
	}
	if out.APICode != nil {
		fields = append(fields, zap.Int64("apiCode", *out.APICode))
	}
	switch out.Classification {
	case common.ClassOK:
		c.log.Info("bingx response", fields...)
	case common.ClassNoPositionNoop:
		c.log.Warn("bingx soft error (no position)", fields...)
	default:
		c.log.Error("bingx error response",
			append(fields,
				zap.String("quantity", params.Get("quantity")),
				zap.Float64("leverage", req.Leverage),
				zap.String("marginType", req.MarginType),
				zap.String("apiMsg", out.APIMessage),
			)...,
		)
	}
}
