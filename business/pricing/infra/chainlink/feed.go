// Package chainlink reads ETH/USD from an on-chain aggregator feed.
package chainlink

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/chain/infra/ethereum"
	"github.com/fd1az/swap-router/business/pricing/app"
	"github.com/fd1az/swap-router/business/pricing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	tracerName = "chainlink"
	sourceName = "chainlink"

	// Chainlink USD feeds report with 8 decimals.
	feedDecimals = 8

	// Rounds older than this are treated as a broken feed.
	maxRoundAge = 2 * time.Hour
)

// AggregatorABI covers latestRoundData on AggregatorV3Interface.
const AggregatorABI = `[
	{
		"inputs": [],
		"name": "latestRoundData",
		"outputs": [
			{"internalType": "uint80", "name": "roundId", "type": "uint80"},
			{"internalType": "int256", "name": "answer", "type": "int256"},
			{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
			{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
			{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

var _ app.PriceSource = (*Feed)(nil)

// Feed reads ETH/USD from a Chainlink aggregator.
type Feed struct {
	client *ethereum.Client
	feed   common.Address
	abi    abi.ABI
	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]
	tracer trace.Tracer
}

// NewFeed creates a feed reader for the given aggregator address.
func NewFeed(client *ethereum.Client, feed common.Address, log logger.LoggerInterface) (*Feed, error) {
	parsed, err := abi.JSON(strings.NewReader(AggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}
	return &Feed{
		client: client,
		feed:   feed,
		abi:    parsed,
		logger: log,
		cb:     circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("chainlink-feed")),
		tracer: otel.Tracer(tracerName),
	}, nil
}

func (f *Feed) Name() string { return sourceName }

// FetchEthUsd reads latestRoundData and rejects stale or non-positive rounds.
func (f *Feed) FetchEthUsd(ctx context.Context) (domain.PriceQuote, error) {
	ctx, span := f.tracer.Start(ctx, "chainlink.latest_round")
	defer span.End()

	callData, err := f.abi.Pack("latestRoundData")
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to encode latestRoundData: %w", err)
	}

	raw, err := f.cb.Execute(func() ([]byte, error) {
		return f.client.CallContract(ctx, f.feed, callData)
	})
	if err != nil {
		span.RecordError(err)
		return domain.PriceQuote{}, apperror.New(apperror.CodePriceFeedFailed,
			apperror.WithCause(err),
			apperror.WithContext("latestRoundData call failed"))
	}

	outputs, err := f.abi.Unpack("latestRoundData", raw)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to decode latestRoundData: %w", err)
	}

	answer := outputs[1].(*big.Int)
	updatedAt := outputs[3].(*big.Int)

	if answer.Sign() <= 0 {
		return domain.PriceQuote{}, apperror.New(apperror.CodePriceFeedFailed,
			apperror.WithContext("feed returned non-positive answer"))
	}

	updated := time.Unix(updatedAt.Int64(), 0)
	if time.Since(updated) > maxRoundAge {
		return domain.PriceQuote{}, apperror.New(apperror.CodePriceFeedStale,
			apperror.WithContext(fmt.Sprintf("round updated at %s", updated.Format(time.RFC3339))))
	}

	price := decimal.NewFromBigInt(answer, -feedDecimals)
	return domain.NewPriceQuote(sourceName, price), nil
}
