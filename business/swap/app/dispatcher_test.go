package app_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
)

// execAdapter records the execution calls made against it.
type execAdapter struct {
	fakeAdapter
	executedGasLimit uint64
	executedMinOut   asset.Amount
	executeErr       error
	executed         bool
}

func (f *execAdapter) Execute(_ context.Context, _ domain.SwapRequest, _ asset.Amount, minOut asset.Amount, gasLimit uint64) (*app.TxHandle, error) {
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	f.executed = true
	f.executedGasLimit = gasLimit
	f.executedMinOut = minOut
	return &app.TxHandle{Hash: common.HexToHash("0xbeef"), GasLimit: gasLimit}, nil
}

// execVault wraps the vault capabilities around an execAdapter.
type execVault struct {
	execAdapter
	redeemAllGas  uint64
	redeemAllDone bool
}

func (f *execVault) QuoteRedeemMix(context.Context, asset.Amount) (asset.Amount, []domain.CoinSplit, error) {
	return asset.Amount{}, nil, errors.New("not scripted")
}

func (f *execVault) EstimateRedeemAllGas(context.Context, asset.Amount) (uint64, error) {
	return f.redeemAllGas, nil
}

func (f *execVault) ExecuteRedeemAll(_ context.Context, minOut asset.Amount, gasLimit uint64) (*app.TxHandle, error) {
	f.redeemAllDone = true
	f.executedGasLimit = gasLimit
	f.executedMinOut = minOut
	return &app.TxHandle{Hash: common.HexToHash("0xfeed"), GasLimit: gasLimit}, nil
}

// fakeApprover scripts approval submission.
type fakeApprover struct {
	approved bool
	err      error
}

func (f *fakeApprover) Approve(context.Context, *asset.Asset, common.Address, asset.Amount) (*app.TxHandle, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.approved = true
	return &app.TxHandle{Hash: common.HexToHash("0xaaaa"), GasLimit: 52_000}, nil
}

type fakeWaiter struct{ err error }

func (f *fakeWaiter) WaitMined(context.Context, common.Hash) error { return f.err }

func dispatchCfg() config.SwapConfig {
	cfg := testSwapCfg()
	cfg.GasBufferPct = 10
	cfg.VaultMintGasFloor = 20_000
	cfg.DefaultSlippagePct = 0.25
	return cfg
}

func publishSelected(t *testing.T, store *app.Store, req domain.SwapRequest, venue domain.Venue, received asset.Amount) {
	t.Helper()
	est := domain.Eligible(venue, received, 100_000)
	est.IsBest = true
	store.Publish(domain.RoundSet{Generation: 1, Request: req, Estimates: []domain.Estimate{est}})
}

func newDispatcher(vault *execVault, others []app.VenueAdapter, store *app.Store, snaps app.SnapshotReader, approver *fakeApprover, waiter *fakeWaiter) *app.Dispatcher {
	return app.NewDispatcher(vault, others, store, snaps, approver, waiter, dispatchCfg(), testLog)
}

func TestDispatcher_NoSelectedRoute(t *testing.T) {
	store := app.NewStore()
	vault := &execVault{execAdapter: execAdapter{fakeAdapter: fakeAdapter{venue: domain.VenueVault}}}
	d := newDispatcher(vault, nil, store, &fakeSnapshots{}, &fakeApprover{}, &fakeWaiter{})

	if _, err := d.Execute(context.Background()); !errors.Is(err, app.ErrNoSelectedRoute) {
		t.Errorf("err = %v, want ErrNoSelectedRoute", err)
	}
}

func TestDispatcher_ApproveThenSwap(t *testing.T) {
	req := mintDAI("100")
	req.Slippage = dispatchCfg().DefaultSlippage()

	curve := &execAdapter{fakeAdapter: fakeAdapter{
		venue:      domain.VenueCurve,
		supports:   true,
		needsAllow: true,
		gas:        150_000,
	}}
	vault := &execVault{execAdapter: execAdapter{fakeAdapter: fakeAdapter{venue: domain.VenueVault}}}

	store := app.NewStore()
	publishSelected(t, store, req, domain.VenueCurve, whole(asset.OUSD, 100))

	// Allowance on record is short, so the approve-wait-swap path runs.
	snaps := &fakeSnapshots{
		balances:   map[*asset.Asset]asset.Amount{asset.DAI: whole(asset.DAI, 1000)},
		allowances: map[*asset.Asset]asset.Amount{asset.DAI: whole(asset.DAI, 1)},
	}
	approver := &fakeApprover{}
	d := newDispatcher(vault, []app.VenueAdapter{curve}, store, snaps, approver, &fakeWaiter{})

	result, err := d.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !approver.approved || result.Approve == nil {
		t.Error("approval not submitted")
	}
	if !curve.executed {
		t.Fatal("swap not submitted")
	}
	if result.Venue != domain.VenueCurve || result.Swap == nil {
		t.Errorf("result = %+v", result)
	}

	// 150k node estimate with a 10% buffer.
	if curve.executedGasLimit != 165_000 {
		t.Errorf("gas limit = %d, want 165000", curve.executedGasLimit)
	}

	// Slippage floor derives from the quoted output: 100 - 0.25%.
	wantMin := "99750000000000000000"
	if curve.executedMinOut.Raw().String() != wantMin {
		t.Errorf("min out = %s, want %s", curve.executedMinOut.Raw(), wantMin)
	}
}

func TestDispatcher_SkipsApprovalWhenAllowanceCovers(t *testing.T) {
	req := mintDAI("100")
	req.Slippage = dispatchCfg().DefaultSlippage()

	curve := &execAdapter{fakeAdapter: fakeAdapter{
		venue:      domain.VenueCurve,
		supports:   true,
		needsAllow: true,
		gas:        150_000,
	}}
	vault := &execVault{execAdapter: execAdapter{fakeAdapter: fakeAdapter{venue: domain.VenueVault}}}

	store := app.NewStore()
	publishSelected(t, store, req, domain.VenueCurve, whole(asset.OUSD, 100))

	snaps := richSnapshots(req)
	approver := &fakeApprover{err: errors.New("should not approve")}
	d := newDispatcher(vault, []app.VenueAdapter{curve}, store, snaps, approver, &fakeWaiter{})

	result, err := d.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Approve != nil {
		t.Error("unexpected approval")
	}
}

func TestDispatcher_ApprovalRevertAborts(t *testing.T) {
	req := mintDAI("100")
	req.Slippage = dispatchCfg().DefaultSlippage()

	curve := &execAdapter{fakeAdapter: fakeAdapter{
		venue:      domain.VenueCurve,
		supports:   true,
		needsAllow: true,
		gas:        150_000,
	}}
	vault := &execVault{execAdapter: execAdapter{fakeAdapter: fakeAdapter{venue: domain.VenueVault}}}

	store := app.NewStore()
	publishSelected(t, store, req, domain.VenueCurve, whole(asset.OUSD, 100))

	d := newDispatcher(vault, []app.VenueAdapter{curve}, store, &fakeSnapshots{},
		&fakeApprover{}, &fakeWaiter{err: errors.New("reverted")})

	if _, err := d.Execute(context.Background()); err == nil {
		t.Fatal("expected error when the approval reverts")
	}
	if curve.executed {
		t.Error("swap must not run after a failed approval")
	}
}

func TestDispatcher_UserRejection(t *testing.T) {
	req := mintDAI("100")
	req.Slippage = dispatchCfg().DefaultSlippage()

	curve := &execAdapter{
		fakeAdapter: fakeAdapter{venue: domain.VenueCurve, supports: true, gas: 150_000},
		executeErr:  errors.New("MetaMask Tx Signature: User denied transaction signature"),
	}
	vault := &execVault{execAdapter: execAdapter{fakeAdapter: fakeAdapter{venue: domain.VenueVault}}}

	store := app.NewStore()
	publishSelected(t, store, req, domain.VenueCurve, whole(asset.OUSD, 100))

	d := newDispatcher(vault, []app.VenueAdapter{curve}, store, richSnapshots(req), &fakeApprover{}, &fakeWaiter{})

	if _, err := d.Execute(context.Background()); !errors.Is(err, app.ErrUserRejected) {
		t.Errorf("err = %v, want ErrUserRejected", err)
	}
}

func TestDispatcher_RedeemAllWithinOneUnit(t *testing.T) {
	req := domain.SwapRequest{
		Mode:     domain.ModeRedeem,
		Amount:   "99.7",
		Protocol: asset.OUSD,
		Coin:     domain.MixCoin(),
		Slippage: dispatchCfg().DefaultSlippage(),
	}

	vault := &execVault{
		execAdapter: execAdapter{fakeAdapter: fakeAdapter{
			venue:    domain.VenueVault,
			supports: true,
			gasErr:   errors.New("parametrized path should not be estimated"),
		}},
		redeemAllGas: 1_000_000,
	}

	store := app.NewStore()
	publishSelected(t, store, req, domain.VenueVault, whole(asset.OUSD, 99))

	// Balance within one whole unit of the request takes the
	// redeem-all path.
	snaps := &fakeSnapshots{
		balances: map[*asset.Asset]asset.Amount{
			asset.OUSD: asset.NewAmount(asset.OUSD, decRaw("100.2")),
		},
	}
	d := newDispatcher(vault, nil, store, snaps, &fakeApprover{}, &fakeWaiter{})

	result, err := d.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.RedeemAll || !vault.redeemAllDone {
		t.Error("redeem-all path not taken")
	}
	// 1M estimate with a 10% buffer; the mint floor does not apply.
	if vault.executedGasLimit != 1_100_000 {
		t.Errorf("gas limit = %d, want 1100000", vault.executedGasLimit)
	}
}

func TestDispatcher_RedeemFarFromBalanceIsParametrized(t *testing.T) {
	req := domain.SwapRequest{
		Mode:     domain.ModeRedeem,
		Amount:   "50",
		Protocol: asset.OUSD,
		Coin:     domain.MixCoin(),
		Slippage: dispatchCfg().DefaultSlippage(),
	}

	vault := &execVault{
		execAdapter:  execAdapter{fakeAdapter: fakeAdapter{venue: domain.VenueVault, supports: true, gas: 800_000}},
		redeemAllGas: 1_000_000,
	}

	store := app.NewStore()
	publishSelected(t, store, req, domain.VenueVault, whole(asset.OUSD, 50))

	snaps := &fakeSnapshots{
		balances: map[*asset.Asset]asset.Amount{
			asset.OUSD: asset.NewAmount(asset.OUSD, decRaw("100")),
		},
	}
	d := newDispatcher(vault, nil, store, snaps, &fakeApprover{}, &fakeWaiter{})

	result, err := d.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.RedeemAll || vault.redeemAllDone {
		t.Error("redeem-all must not trigger for a partial redeem")
	}
	if !vault.executed {
		t.Error("parametrized redeem not submitted")
	}
}

func TestDispatcher_VaultMintGasFloor(t *testing.T) {
	req := mintDAI("100")
	req.Slippage = dispatchCfg().DefaultSlippage()

	// 100k estimate: +10% gives 110k but the +20k floor gives 120k.
	vault := &execVault{
		execAdapter: execAdapter{fakeAdapter: fakeAdapter{venue: domain.VenueVault, supports: true, gas: 100_000}},
	}

	store := app.NewStore()
	publishSelected(t, store, req, domain.VenueVault, whole(asset.OUSD, 100))

	d := newDispatcher(vault, nil, store, richSnapshots(req), &fakeApprover{}, &fakeWaiter{})

	if _, err := d.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if vault.executedGasLimit != 120_000 {
		t.Errorf("gas limit = %d, want floor of 120000", vault.executedGasLimit)
	}

	// With a large estimate the percentage buffer wins over the floor.
	vault.gas = 400_000
	if _, err := d.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if vault.executedGasLimit != 440_000 {
		t.Errorf("gas limit = %d, want 440000", vault.executedGasLimit)
	}
}

// decRaw converts a whole-token decimal string into 18-decimal raw units.
func decRaw(s string) *big.Int {
	amt, err := asset.ParseString(asset.OUSD, s)
	if err != nil {
		panic(err)
	}
	return amt.Raw()
}
