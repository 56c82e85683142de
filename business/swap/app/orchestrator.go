package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/logger"
)

// Routes more expensive than best by this much (percent) need explicit
// confirmation before they can be pinned.
var materialDiffPct = decimal.RequireFromString("0.1")

// Orchestrator runs debounced, concurrent estimation rounds across all
// venues and publishes each settled round atomically. Stale rounds,
// identified by generation, are discarded instead of published.
type Orchestrator struct {
	estimators []Estimator
	store      *Store
	gas        GasPricer
	pricing    EthUsdSource
	debounce   *Debouncer
	cfg        config.SwapConfig
	log        logger.LoggerInterface

	tracer        trace.Tracer
	roundsTotal   metric.Int64Counter
	staleDiscards metric.Int64Counter
	roundDuration metric.Float64Histogram

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	lastReq *domain.SwapRequest

	publishMu sync.Mutex
}

// NewOrchestrator wires an orchestrator. The estimator slice fixes the
// venue display order.
func NewOrchestrator(
	estimators []Estimator,
	store *Store,
	gas GasPricer,
	pricing EthUsdSource,
	cfg config.SwapConfig,
	log logger.LoggerInterface,
) (*Orchestrator, error) {
	meter := otel.Meter("swap-router/orchestrator")

	roundsTotal, err := meter.Int64Counter("swap_estimation_rounds_total",
		metric.WithDescription("Completed estimation rounds"))
	if err != nil {
		return nil, fmt.Errorf("creating rounds counter: %w", err)
	}
	staleDiscards, err := meter.Int64Counter("swap_estimation_stale_discards_total",
		metric.WithDescription("Rounds discarded because a newer generation superseded them"))
	if err != nil {
		return nil, fmt.Errorf("creating stale counter: %w", err)
	}
	roundDuration, err := meter.Float64Histogram("swap_estimation_round_seconds",
		metric.WithDescription("Wall time of an estimation round"))
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &Orchestrator{
		estimators:    estimators,
		store:         store,
		gas:           gas,
		pricing:       pricing,
		debounce:      NewDebouncer(),
		cfg:           cfg,
		log:           log,
		tracer:        otel.Tracer("swap-router/orchestrator"),
		roundsTotal:   roundsTotal,
		staleDiscards: staleDiscards,
		roundDuration: roundDuration,
	}, nil
}

// Start binds the orchestrator's background lifetime.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.baseCtx, o.cancel = context.WithCancel(ctx)
}

// Stop cancels pending and in-flight rounds.
func (o *Orchestrator) Stop() {
	o.debounce.Cancel()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// OnInput reacts to any change of the swap form. Amount edits are
// debounced; coin or mode changes re-estimate immediately. A cleared,
// invalid or non-positive amount cancels pending work and clears all
// published state.
func (o *Orchestrator) OnInput(req domain.SwapRequest) {
	o.mu.Lock()
	delay := time.Duration(o.cfg.CoinChangeDebounceMs) * time.Millisecond
	if o.lastReq != nil && o.lastReq.SameShape(req) {
		delay = time.Duration(o.cfg.DebounceMs) * time.Millisecond
	}
	reqCopy := req
	o.lastReq = &reqCopy
	ctx := o.baseCtx
	o.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	amt, err := decimal.NewFromString(req.Amount)
	if err != nil || !amt.IsPositive() {
		o.debounce.Cancel()
		o.store.Clear()
		return
	}

	o.store.SetLoading(true)
	o.debounce.Trigger(delay, func(gen uint64) {
		o.runRound(ctx, gen, req)
	})
}

// runRound fans out every estimator plus the gas price and ETH/USD
// lookups, waits for all of them to settle and publishes the enriched
// round if its generation is still current.
func (o *Orchestrator) runRound(ctx context.Context, gen uint64, req domain.SwapRequest) {
	ctx, span := o.tracer.Start(ctx, "swap.estimation_round",
		trace.WithAttributes(
			attribute.String("swap.mode", string(req.Mode)),
			attribute.String("swap.coin", req.Coin.String()),
		))
	defer span.End()
	started := time.Now()

	amounts, err := domain.Normalize(req.Amount, req.InputAsset(), req.OutputAsset(), &req.Slippage)
	if err != nil || !amounts.SwapAmount.IsPositive() {
		if o.debounce.Current(gen) {
			o.store.Clear()
		}
		return
	}

	estimates := make([]domain.Estimate, len(o.estimators))
	var (
		wg          sync.WaitGroup
		gasPriceWei *big.Int
		ethUsd      decimal.Decimal
	)

	for i, est := range o.estimators {
		wg.Add(1)
		go func(i int, est Estimator) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.log.Error(ctx, "estimator panicked",
						"venue", est.Venue().String(), "panic", fmt.Sprint(r))
					estimates[i] = domain.Ineligible(est.Venue(), domain.ErrUnexpected)
				}
			}()
			estimates[i] = est.Estimate(ctx, req, amounts)
		}(i, est)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		price, err := o.gas.GasPriceWei(ctx)
		if err != nil {
			o.log.Warn(ctx, "gas price unavailable, ranking without gas cost", "error", err.Error())
			return
		}
		gasPriceWei = price
	}()
	go func() {
		defer wg.Done()
		rate, err := o.pricing.EthUsdPrice(ctx)
		if err != nil {
			o.log.Warn(ctx, "eth/usd rate unavailable, ranking without usd cost", "error", err.Error())
			return
		}
		ethUsd = rate
	}()

	wg.Wait()

	round := domain.RoundSet{
		Generation:  gen,
		Request:     req,
		Estimates:   domain.Rank(estimates, amounts.SwapAmount, gasPriceWei, ethUsd),
		EthUsd:      ethUsd,
		GasPriceWei: gasPriceWei,
		Timestamp:   time.Now(),
	}

	o.publishMu.Lock()
	current := o.debounce.Current(gen)
	if current {
		o.store.Publish(round)
	}
	o.publishMu.Unlock()

	elapsed := time.Since(started)
	if current {
		o.roundsTotal.Add(ctx, 1)
		o.roundDuration.Record(ctx, elapsed.Seconds())
		o.log.Debug(ctx, "estimation round published",
			"generation", gen,
			"venues", len(estimates),
			"elapsed_ms", elapsed.Milliseconds(),
		)
	} else {
		o.staleDiscards.Add(ctx, 1)
		o.log.Debug(ctx, "stale estimation round discarded", "generation", gen)
	}
}

// SelectRoute pins the user's venue choice. Choosing a route materially
// worse than best requires confirmed=true; the override then persists
// across re-estimation until cleared or invalidated.
func (o *Orchestrator) SelectRoute(v domain.Venue, confirmed bool) error {
	snap := o.store.Snapshot()
	e := snap.Round.Find(v)
	if e == nil || !e.CanSwap {
		return apperror.New(apperror.CodeNoEligibleRoute,
			apperror.WithMessage(fmt.Sprintf("venue %s is not eligible", v)))
	}
	if !e.IsBest && e.DiffPct.GreaterThan(materialDiffPct) && !confirmed {
		return ErrConfirmationRequired
	}
	if !o.store.SetOverride(v) {
		return apperror.New(apperror.CodeNoEligibleRoute,
			apperror.WithMessage(fmt.Sprintf("venue %s is not eligible", v)))
	}
	return nil
}

// ClearSelection reverts to automatic best-route selection.
func (o *Orchestrator) ClearSelection() {
	o.store.ClearOverride()
}
