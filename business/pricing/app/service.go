package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swap-router/business/pricing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	meterName = "pricing"

	cacheKeyEthUsd = "ethusd"
)

// ServiceConfig controls caching and staleness behavior.
type ServiceConfig struct {
	CacheTTL     time.Duration // how long a fetched quote is served from cache
	StaleTimeout time.Duration // maximum age before a streamed quote is discarded
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CacheTTL:     30 * time.Second,
		StaleTimeout: 2 * time.Minute,
	}
}

type serviceMetrics struct {
	fetchesTotal metric.Int64Counter
	fetchErrors  metric.Int64Counter
	priceUsd     metric.Float64Gauge
}

// PricingService serves ETH/USD by querying sources in priority order
// and caching the winner. A streaming source, when present, keeps the
// cache warm between fetches.
type PricingService struct {
	sources []PriceSource
	cfg     ServiceConfig
	cache   *cache.Cache[string, domain.PriceQuote]
	logger  logger.LoggerInterface
	metrics *serviceMetrics
}

// NewPricingService creates a service over the given sources. Order is
// priority order: the first source to answer wins.
func NewPricingService(sources []PriceSource, cfg ServiceConfig, log logger.LoggerInterface) (*PricingService, error) {
	s := &PricingService{
		sources: sources,
		cfg:     cfg,
		cache:   cache.New[string, domain.PriceQuote](time.Minute),
		logger:  log,
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PricingService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.fetchesTotal, err = meter.Int64Counter(
		"pricing_fetches_total",
		metric.WithDescription("Total ETH/USD fetch attempts per source"),
	)
	if err != nil {
		return err
	}

	s.metrics.fetchErrors, err = meter.Int64Counter(
		"pricing_fetch_errors_total",
		metric.WithDescription("ETH/USD fetch failures per source"),
	)
	if err != nil {
		return err
	}

	s.metrics.priceUsd, err = meter.Float64Gauge(
		"pricing_eth_usd",
		metric.WithDescription("Last observed ETH/USD price"),
	)
	if err != nil {
		return err
	}

	return nil
}

// EthUsdPrice returns the current ETH/USD price. Sources are tried in
// priority order once the cache misses; all failing yields an error.
func (s *PricingService) EthUsdPrice(ctx context.Context) (decimal.Decimal, error) {
	if quote, ok := s.cache.Get(ctx, cacheKeyEthUsd); ok {
		if quote.Valid() && !quote.Stale(s.cfg.StaleTimeout) {
			return quote.Price, nil
		}
	}

	var lastErr error
	for _, src := range s.sources {
		s.metrics.fetchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", src.Name())))

		quote, err := src.FetchEthUsd(ctx)
		if err != nil {
			s.metrics.fetchErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("source", src.Name())))
			s.logger.Warn(ctx, "price source failed", "source", src.Name(), "error", err)
			lastErr = err
			continue
		}
		if !quote.Valid() {
			s.logger.Warn(ctx, "price source returned invalid quote", "source", src.Name())
			continue
		}

		s.record(ctx, quote)
		return quote.Price, nil
	}

	return decimal.Zero, apperror.New(apperror.CodePriceFeedFailed,
		apperror.WithCause(lastErr),
		apperror.WithContext("all ETH/USD sources failed"))
}

// StartStreams launches background consumption of every streaming
// source. Streamed quotes refresh the cache so EthUsdPrice rarely has
// to fetch. Returns immediately; consumption stops when ctx ends.
func (s *PricingService) StartStreams(ctx context.Context) {
	for _, src := range s.sources {
		streamer, ok := src.(StreamingSource)
		if !ok {
			continue
		}
		go s.consume(ctx, streamer)
	}
}

func (s *PricingService) consume(ctx context.Context, src StreamingSource) {
	quotes, err := src.Stream(ctx)
	if err != nil {
		s.logger.Warn(ctx, "price stream unavailable", "source", src.Name(), "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case quote, ok := <-quotes:
			if !ok {
				s.logger.Warn(ctx, "price stream closed", "source", src.Name())
				return
			}
			if quote.Valid() {
				s.record(ctx, quote)
			}
		}
	}
}

func (s *PricingService) record(ctx context.Context, quote domain.PriceQuote) {
	s.cache.Set(ctx, cacheKeyEthUsd, quote, s.cfg.CacheTTL)
	price, _ := quote.Price.Float64()
	s.metrics.priceUsd.Record(ctx, price, metric.WithAttributes(attribute.String("source", quote.Source)))
}

// Close releases the cache sweeper.
func (s *PricingService) Close() {
	s.cache.Close()
}
