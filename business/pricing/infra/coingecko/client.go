// Package coingecko fetches ETH/USD from the CoinGecko simple price API.
package coingecko

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/pricing/app"
	"github.com/fd1az/swap-router/business/pricing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/httpclient"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/ratelimit"
)

const (
	tracerName = "coingecko"
	sourceName = "coingecko"

	DefaultBaseURL = "https://api.coingecko.com"

	simplePricePath = "/api/v3/simple/price"
)

// simplePriceResponse mirrors the simple/price payload for ethereum in usd.
type simplePriceResponse struct {
	Ethereum struct {
		USD float64 `json:"usd"`
	} `json:"ethereum"`
}

var _ app.PriceSource = (*Client)(nil)

// Client is a rate-limited CoinGecko price source.
type Client struct {
	http    httpclient.Client
	baseURL string
	limiter *ratelimit.Limiter
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewClient creates a CoinGecko source. requestsPerMinute guards the
// public API's rate limit.
func NewClient(baseURL string, requestsPerMinute int, log logger.LoggerInterface) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpc, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName(sourceName),
		httpclient.WithBaseURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	return &Client{
		http:    httpc,
		baseURL: baseURL,
		limiter: ratelimit.New(requestsPerMinute),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

func (c *Client) Name() string { return sourceName }

// FetchEthUsd queries simple/price, waiting on the rate limiter first.
func (c *Client) FetchEthUsd(ctx context.Context) (domain.PriceQuote, error) {
	ctx, span := c.tracer.Start(ctx, "coingecko.simple_price")
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.PriceQuote{}, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext("rate limiter wait aborted"))
	}

	var result simplePriceResponse
	resp, err := c.http.NewRequest().
		SetQueryParam("ids", "ethereum").
		SetQueryParam("vs_currencies", "usd").
		SetResult(&result).
		Get(ctx, simplePricePath)
	if err != nil {
		span.RecordError(err)
		return domain.PriceQuote{}, apperror.New(apperror.CodePriceAPIError,
			apperror.WithCause(err),
			apperror.WithContext("simple/price request failed"))
	}
	if resp.IsError() {
		return domain.PriceQuote{}, apperror.New(apperror.CodePriceAPIError,
			apperror.WithContext(fmt.Sprintf("simple/price returned status %d", resp.StatusCode)))
	}

	if result.Ethereum.USD <= 0 {
		return domain.PriceQuote{}, apperror.New(apperror.CodePriceAPIError,
			apperror.WithContext("simple/price returned non-positive price"))
	}

	return domain.NewPriceQuote(sourceName, decimal.NewFromFloat(result.Ethereum.USD)), nil
}
