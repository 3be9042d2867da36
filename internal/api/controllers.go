package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// receiveSignal serves both the TradingView webhook and the internal alias.
// Normalization and routing errors answer 400 with a detail string; every
// other outcome, including failed accounts, answers 200 with the result.
func (s *Server) receiveSignal(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.Meta.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unreadable body"})
		return
	}

	s.Log.Debug("alert received",
		zap.String("requestId", c.GetString(requestIDKey)),
		zap.String("route", c.FullPath()),
		zap.Int("bytes", len(raw)),
	)

	res := s.Pipeline.Handle(c.Request.Context(), raw)
	status := res.HTTPStatus()
	if status != http.StatusOK {
		c.JSON(status, gin.H{"detail": res.Detail, "kind": res.Kind.String()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) examplePayload(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"command":    "ENTER_LONG",
		"symbol":     "BTC-USDT",
		"order_type": "market",
		"quantity":   0.001,
		"stop_loss":  28000.0,
		"take_profits": []gin.H{
			{"price": 31000.0, "size_pct": 50},
			{"price": 32000.0, "size_pct": 50},
		},
		"routing_profile": "default",
		"leverage":        10,
		"margin_type":     "ISOLATED",
		"tp_close_pct":    nil,
		"strategy_name":   "tv_example_strategy",
		"timestamp":       1732387200000,
	})
}
