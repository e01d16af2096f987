// Package binancefeed implements the live tick feed using the go-binance
// aggregated-trade WebSocket streams.
package binancefeed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

// Feed implements ports.TickFeed over Binance aggregated-trade streams, one
// stream per symbol with automatic reconnection.
type Feed struct {
	logger               ports.Logger
	reconnectDelay       time.Duration
	maxReconnectAttempts int
	buffer               int
}

// Config holds configuration specific to the Binance feed adapter.
type Config struct {
	Logger               ports.Logger
	ReconnectDelay       time.Duration // Reconnect delay (e.g., 1 * time.Second)
	MaxReconnectAttempts int           // Max attempts before giving up
	Buffer               int           // Tick channel buffer size
}

// New creates a new Binance feed adapter.
func New(cfg Config) (*Feed, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance feed")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 1 * time.Second
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 10
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	return &Feed{
		logger:               cfg.Logger,
		reconnectDelay:       cfg.ReconnectDelay,
		maxReconnectAttempts: cfg.MaxReconnectAttempts,
		buffer:               cfg.Buffer,
	}, nil
}

// Stream starts one aggregated-trade stream per symbol and merges them into a
// single channel. The channel closes when the context is cancelled or every
// stream gives up after exhausting its reconnection attempts.
func (f *Feed) Stream(ctx context.Context, symbols []string) (<-chan domain.Tick, error) {
	op := "Stream"
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", ports.ErrConfigurationError)
	}

	out := make(chan domain.Tick, f.buffer)
	done := make(chan struct{}, len(symbols))

	for _, symbol := range symbols {
		go f.streamSymbol(ctx, symbol, out, done)
	}

	go func() {
		for range symbols {
			<-done
		}
		f.logger.Info(ctx, op+": All symbol streams stopped, closing tick channel.", map[string]interface{}{"symbols": symbols})
		close(out)
	}()

	return out, nil
}

// streamSymbol runs the reconnection loop for one symbol.
func (f *Feed) streamSymbol(ctx context.Context, symbol string, out chan<- domain.Tick, done chan<- struct{}) {
	op := "streamSymbol"
	defer func() { done <- struct{}{} }()

	handler := func(event *futures.WsAggTradeEvent) {
		tick, err := translateAggTrade(event)
		if err != nil {
			f.logger.Error(ctx, err, op+": Failed to translate aggregated trade event", map[string]interface{}{"symbol": symbol})
			return
		}
		select {
		case out <- tick:
		default:
			f.logger.Warn(ctx, op+": Tick channel full, dropping tick", map[string]interface{}{"symbol": symbol})
		}
	}
	errHandler := func(err error) {
		f.logger.Warn(ctx, op+": WebSocket error reported", map[string]interface{}{"symbol": symbol, "error": err.Error()})
	}

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			f.logger.Info(ctx, op+": Context cancelled, stopping connection attempts.", map[string]interface{}{"symbol": symbol})
			return
		default:
		}

		f.logger.Info(ctx, op+": Attempting WebSocket connection...", map[string]interface{}{"symbol": symbol, "attempt": attempt + 1})
		innerDoneCh, innerStopCh, connectErr := futures.WsAggTradeServe(symbol, handler, errHandler)
		if connectErr != nil {
			attempt++
			if attempt >= f.maxReconnectAttempts {
				f.logger.Error(ctx, connectErr, op+": Max reconnection attempts exceeded, giving up.", map[string]interface{}{"symbol": symbol, "maxAttempts": f.maxReconnectAttempts})
				return
			}
			delay := f.reconnectDelay * time.Duration(1<<uint(attempt-1))
			f.logger.Info(ctx, op+": Connection failed, retrying...", map[string]interface{}{"symbol": symbol, "attempt": attempt + 1, "delay": delay.String()})
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return
			}
		}

		f.logger.Info(ctx, op+": WebSocket connection established.", map[string]interface{}{"symbol": symbol})
		attempt = 0

		select {
		case <-innerDoneCh:
			f.logger.Warn(ctx, op+": WebSocket connection closed unexpectedly. Reconnecting...", map[string]interface{}{"symbol": symbol})
		case <-ctx.Done():
			select {
			case innerStopCh <- struct{}{}:
			default:
			}
			return
		}
	}
}

// translateAggTrade converts a Binance aggregated trade event to a domain tick.
func translateAggTrade(event *futures.WsAggTradeEvent) (domain.Tick, error) {
	price, err := strconv.ParseFloat(event.Price, 64)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("parsing trade price %q: %w", event.Price, err)
	}
	volume, err := strconv.ParseFloat(event.Quantity, 64)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("parsing trade quantity %q: %w", event.Quantity, err)
	}
	return domain.Tick{
		Symbol: event.Symbol,
		Time:   time.UnixMilli(event.TradeTime).UTC(),
		Price:  price,
		Volume: volume,
		UnixMs: event.TradeTime,
	}, nil
}
