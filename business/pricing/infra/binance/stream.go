// Package binance streams ETH/USD from the Binance bookTicker feed.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swap-router/business/pricing/app"
	"github.com/fd1az/swap-router/business/pricing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/wsconn"
)

const (
	tracerName = "binance"
	meterName  = "binance"
	sourceName = "binance"

	DefaultWSURL = "wss://stream.binance.com:9443"

	symbol = "ethusdt"

	// Quotes older than this are not served from FetchEthUsd.
	maxQuoteAge = 30 * time.Second
)

var _ app.StreamingSource = (*Stream)(nil)

type streamMetrics struct {
	messagesTotal metric.Int64Counter
	parseErrors   metric.Int64Counter
}

// Stream consumes the ETHUSDT bookTicker and keeps the latest midpoint.
type Stream struct {
	baseURL string
	logger  logger.LoggerInterface

	conn   *wsconn.Client
	connMu sync.Mutex

	latest   domain.PriceQuote
	latestMu sync.RWMutex

	metrics *streamMetrics
}

// NewStream creates a Binance source. baseURL defaults to the public
// stream endpoint when empty.
func NewStream(baseURL string, log logger.LoggerInterface) (*Stream, error) {
	if baseURL == "" {
		baseURL = DefaultWSURL
	}

	s := &Stream{
		baseURL: baseURL,
		logger:  log,
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *Stream) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &streamMetrics{}

	s.metrics.messagesTotal, err = meter.Int64Counter(
		"binance_messages_total",
		metric.WithDescription("Total stream messages received"),
	)
	if err != nil {
		return err
	}

	s.metrics.parseErrors, err = meter.Int64Counter(
		"binance_parse_errors_total",
		metric.WithDescription("Stream message parse errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

func (s *Stream) Name() string { return sourceName }

// FetchEthUsd serves the last streamed midpoint. It never hits the
// network; a missing or aged-out quote is an error so the service
// falls through to the next source.
func (s *Stream) FetchEthUsd(ctx context.Context) (domain.PriceQuote, error) {
	s.latestMu.RLock()
	quote := s.latest
	s.latestMu.RUnlock()

	if !quote.Valid() {
		return domain.PriceQuote{}, apperror.New(apperror.CodePriceFeedFailed,
			apperror.WithContext("no ticker received yet"))
	}
	if quote.Stale(maxQuoteAge) {
		return domain.PriceQuote{}, apperror.New(apperror.CodePriceFeedStale,
			apperror.WithContext(fmt.Sprintf("last ticker is %s old", quote.Age().Round(time.Second))))
	}
	return quote, nil
}

// Stream connects to the combined bookTicker stream and delivers
// midpoint quotes until ctx ends.
func (s *Stream) Stream(ctx context.Context) (<-chan domain.PriceQuote, error) {
	url := fmt.Sprintf("%s/stream?streams=%s@bookTicker", strings.TrimRight(s.baseURL, "/"), symbol)

	conn, err := wsconn.New(wsconn.DefaultConfig(url, sourceName))
	if err != nil {
		return nil, err
	}

	quotes := make(chan domain.PriceQuote, 16)

	conn.OnMessage(func(msgCtx context.Context, msg []byte) {
		s.metrics.messagesTotal.Add(msgCtx, 1)

		quote, ok := s.parse(msgCtx, msg)
		if !ok {
			return
		}

		s.latestMu.Lock()
		s.latest = quote
		s.latestMu.Unlock()

		select {
		case quotes <- quote:
		default:
			// Consumer is behind. The next tick supersedes this one.
		}
	})

	conn.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			s.logger.Warn(ctx, "binance stream state change", "state", string(state), "error", err)
		}
	})

	if err := conn.Connect(ctx); err != nil {
		close(quotes)
		return nil, apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("bookTicker connect failed"))
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	go func() {
		<-ctx.Done()
		s.connMu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.connMu.Unlock()
		close(quotes)
	}()

	return quotes, nil
}

func (s *Stream) parse(ctx context.Context, msg []byte) (domain.PriceQuote, bool) {
	var wrapper streamEvent
	if err := json.Unmarshal(msg, &wrapper); err != nil || len(wrapper.Data) == 0 {
		s.metrics.parseErrors.Add(ctx, 1)
		return domain.PriceQuote{}, false
	}

	var ticker bookTickerEvent
	if err := json.Unmarshal(wrapper.Data, &ticker); err != nil {
		s.metrics.parseErrors.Add(ctx, 1)
		return domain.PriceQuote{}, false
	}

	mid := ticker.midPrice()
	if !mid.IsPositive() {
		return domain.PriceQuote{}, false
	}

	return domain.NewPriceQuote(sourceName, mid), true
}
