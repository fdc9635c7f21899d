package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamInterval = 15 * time.Second
	writeWait      = 10 * time.Second
	maxSymbols     = 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is CORS-open, the websocket follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type priceUpdate struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	At        time.Time `json:"at"`
}

// StreamPrices upgrades the connection and pushes quotes for the requested
// symbols on a fixed interval until the client disconnects.
func (h *APIHandler) StreamPrices(c *gin.Context) {
	symbols := parseSymbols(c.Query("symbols"))
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols query parameter required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain control frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	push := func() bool {
		updates := make([]priceUpdate, 0, len(symbols))
		for _, symbol := range symbols {
			quote, err := h.analyzer.CachedQuote(c.Request.Context(), symbol)
			if err != nil {
				h.logger.Debug("stream quote unavailable",
					zap.String("symbol", symbol), zap.Error(err))
				continue
			}
			updates = append(updates, priceUpdate{
				Symbol:    quote.Symbol,
				Price:     quote.Price,
				Change24h: quote.Change24h,
				At:        quote.FetchedAt,
			})
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(gin.H{"updates": updates}); err != nil {
			return false
		}
		return true
	}

	if !push() {
		return
	}
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			if !push() {
				return
			}
		}
	}
}

func parseSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.ToUpper(strings.TrimSpace(p))
		if s == "" {
			continue
		}
		symbols = append(symbols, s)
		if len(symbols) == maxSymbols {
			break
		}
	}
	return symbols
}
