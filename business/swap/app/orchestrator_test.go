package app_test

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
)

type fakeEstimator struct {
	venue    domain.Venue
	estimate func(domain.SwapRequest, domain.NormalizedAmounts) domain.Estimate
	calls    atomic.Int32
}

func (f *fakeEstimator) Venue() domain.Venue { return f.venue }

func (f *fakeEstimator) Estimate(_ context.Context, req domain.SwapRequest, amounts domain.NormalizedAmounts) domain.Estimate {
	f.calls.Add(1)
	if f.estimate != nil {
		return f.estimate(req, amounts)
	}
	return domain.Eligible(f.venue, amounts.SwapAmount.Rescale(asset.OUSD), 100_000)
}

type fakeGasPricer struct {
	wei *big.Int
	err error
}

func (f *fakeGasPricer) GasPriceWei(context.Context) (*big.Int, error) { return f.wei, f.err }

type fakeEthUsd struct {
	rate decimal.Decimal
	err  error
}

func (f *fakeEthUsd) EthUsdPrice(context.Context) (decimal.Decimal, error) { return f.rate, f.err }

func orchCfg(debounceMs, coinChangeMs int) config.SwapConfig {
	cfg := testSwapCfg()
	cfg.DebounceMs = debounceMs
	cfg.CoinChangeDebounceMs = coinChangeMs
	return cfg
}

func newTestOrchestrator(t *testing.T, store *app.Store, cfg config.SwapConfig, estimators ...app.Estimator) *app.Orchestrator {
	t.Helper()
	orch, err := app.NewOrchestrator(
		estimators, store,
		&fakeGasPricer{wei: big.NewInt(20_000_000_000)},
		&fakeEthUsd{rate: decimal.NewFromInt(2000)},
		cfg, testLog,
	)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orch
}

func waitForRound(t *testing.T, ch <-chan app.Snapshot, timeout time.Duration) app.Snapshot {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case snap := <-ch:
			if !snap.Loading && !snap.Round.Empty() {
				return snap
			}
		case <-deadline:
			t.Fatal("no round published before timeout")
		}
	}
}

func TestOrchestrator_PublishesRound(t *testing.T) {
	store := app.NewStore()
	est := &fakeEstimator{venue: domain.VenueVault}
	orch := newTestOrchestrator(t, store, orchCfg(10, 0), est)
	orch.Start(context.Background())
	defer orch.Stop()

	ch, cancel := store.Subscribe()
	defer cancel()

	orch.OnInput(mintDAI("100"))

	snap := waitForRound(t, ch, 2*time.Second)
	if len(snap.Round.Estimates) != 1 {
		t.Fatalf("estimates = %d", len(snap.Round.Estimates))
	}
	e := snap.Round.Estimates[0]
	if !e.CanSwap || !e.IsBest {
		t.Errorf("estimate = %+v, want eligible best", e)
	}
	if snap.Round.GasPriceWei.Cmp(big.NewInt(20_000_000_000)) != 0 {
		t.Errorf("gas price = %s", snap.Round.GasPriceWei)
	}
	if !snap.Round.EthUsd.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("eth/usd = %s", snap.Round.EthUsd)
	}
}

func TestOrchestrator_DebouncesAmountEdits(t *testing.T) {
	store := app.NewStore()
	est := &fakeEstimator{venue: domain.VenueVault}
	orch := newTestOrchestrator(t, store, orchCfg(50, 0), est)
	orch.Start(context.Background())
	defer orch.Stop()

	ch, cancel := store.Subscribe()
	defer cancel()

	// Simulate typing: the first input runs immediately (shape change
	// from nothing), the rapid amount edits coalesce into one round.
	orch.OnInput(mintDAI("1"))
	waitForRound(t, ch, 2*time.Second)
	before := est.calls.Load()

	orch.OnInput(mintDAI("10"))
	orch.OnInput(mintDAI("100"))
	orch.OnInput(mintDAI("1000"))

	snap := waitForRound(t, ch, 2*time.Second)
	if got := est.calls.Load() - before; got != 1 {
		t.Errorf("estimator ran %d times for three rapid edits, want 1", got)
	}
	if snap.Round.Request.Amount != "1000" {
		t.Errorf("published amount = %s, want the last edit", snap.Round.Request.Amount)
	}
}

func TestOrchestrator_StaleRoundDiscarded(t *testing.T) {
	store := app.NewStore()

	release := make(chan struct{})
	slow := &fakeEstimator{
		venue: domain.VenueVault,
		estimate: func(req domain.SwapRequest, amounts domain.NormalizedAmounts) domain.Estimate {
			if req.Amount == "1" {
				<-release
			}
			return domain.Eligible(domain.VenueVault, amounts.SwapAmount.Rescale(asset.OUSD), 100_000)
		},
	}
	orch := newTestOrchestrator(t, store, orchCfg(0, 0), slow)
	orch.Start(context.Background())
	defer orch.Stop()

	ch, cancel := store.Subscribe()
	defer cancel()

	// Switch coins so both rounds fire without debounce delay. The
	// first round blocks inside its estimator until released.
	req1 := mintDAI("1")
	req2 := req1
	req2.Coin = domain.CoinFor(asset.USDC)
	req2.Amount = "2"

	orch.OnInput(req1)
	time.Sleep(20 * time.Millisecond) // let round 1 enter the estimator
	orch.OnInput(req2)

	snap := waitForRound(t, ch, 2*time.Second)
	if snap.Round.Request.Amount != "2" {
		t.Fatalf("published amount = %s, want the newer round", snap.Round.Request.Amount)
	}

	// Release the stale round; it must not overwrite the newer one.
	close(release)
	time.Sleep(50 * time.Millisecond)
	if got := store.Snapshot().Round.Request.Amount; got != "2" {
		t.Errorf("amount after stale release = %s, want 2", got)
	}
}

func TestOrchestrator_InvalidAmountClears(t *testing.T) {
	store := app.NewStore()
	orch := newTestOrchestrator(t, store, orchCfg(0, 0), &fakeEstimator{venue: domain.VenueVault})
	orch.Start(context.Background())
	defer orch.Stop()

	ch, cancel := store.Subscribe()
	defer cancel()

	orch.OnInput(mintDAI("100"))
	waitForRound(t, ch, 2*time.Second)

	orch.OnInput(mintDAI(""))
	time.Sleep(30 * time.Millisecond)
	if snap := store.Snapshot(); !snap.Round.Empty() || snap.Loading {
		t.Errorf("state after cleared input = %+v", snap)
	}

	orch.OnInput(mintDAI("0"))
	time.Sleep(30 * time.Millisecond)
	if snap := store.Snapshot(); !snap.Round.Empty() {
		t.Error("zero amount should clear published state")
	}
}

func TestOrchestrator_GasAndPriceFailuresDegrade(t *testing.T) {
	store := app.NewStore()
	orch, err := app.NewOrchestrator(
		[]app.Estimator{&fakeEstimator{venue: domain.VenueVault}},
		store,
		&fakeGasPricer{err: errors.New("node down")},
		&fakeEthUsd{err: errors.New("feed down")},
		orchCfg(0, 0), testLog,
	)
	if err != nil {
		t.Fatal(err)
	}
	orch.Start(context.Background())
	defer orch.Stop()

	ch, cancel := store.Subscribe()
	defer cancel()

	orch.OnInput(mintDAI("100"))
	snap := waitForRound(t, ch, 2*time.Second)

	// The round still publishes; economics are simply zero.
	e := snap.Round.Estimates[0]
	if !e.CanSwap {
		t.Fatalf("ineligible: %s", e.Err)
	}
	if !e.GasCostUSD.IsZero() {
		t.Errorf("gas USD = %s, want zero without a price", e.GasCostUSD)
	}
}

func TestOrchestrator_SelectRouteConfirmation(t *testing.T) {
	store := app.NewStore()
	orch := newTestOrchestrator(t, store, orchCfg(0, 0))

	// Vault wins; curve costs ~7.4% more. Uniswap is ineligible.
	input := whole(asset.DAI, 100)
	estimates := domain.Rank(
		[]domain.Estimate{
			domain.Eligible(domain.VenueVault, whole(asset.OUSD, 100), 100_000),
			domain.Eligible(domain.VenueCurve, whole(asset.OUSD, 93), 100_000),
			domain.Ineligible(domain.VenueUniswapV3, domain.ErrLiquidity),
		},
		input, big.NewInt(0), decimal.NewFromInt(2000),
	)
	store.Publish(domain.RoundSet{
		Generation: 1,
		Request:    mintDAI("100"),
		Estimates:  estimates,
	})

	// Unconfirmed selection of a materially worse route is refused.
	if err := orch.SelectRoute(domain.VenueCurve, false); !errors.Is(err, app.ErrConfirmationRequired) {
		t.Fatalf("err = %v, want ErrConfirmationRequired", err)
	}
	if sel := store.Snapshot().Selected(); sel.Venue != domain.VenueVault {
		t.Error("refused selection must not change the route")
	}

	// Confirmed selection sticks.
	if err := orch.SelectRoute(domain.VenueCurve, true); err != nil {
		t.Fatalf("confirmed select: %v", err)
	}
	if sel := store.Snapshot().Selected(); sel.Venue != domain.VenueCurve {
		t.Error("confirmed selection did not stick")
	}

	// The best route never needs confirmation.
	orch.ClearSelection()
	if err := orch.SelectRoute(domain.VenueVault, false); err != nil {
		t.Errorf("selecting best: %v", err)
	}

	// Ineligible venues are refused with a typed error.
	err := orch.SelectRoute(domain.VenueUniswapV3, true)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeNoEligibleRoute {
		t.Errorf("err = %v, want CodeNoEligibleRoute", err)
	}
}
