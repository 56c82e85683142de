package app_test

import (
	"math/big"
	"testing"

	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/asset"
)

func eligibleRound(gen uint64, req domain.SwapRequest, venues ...domain.Venue) domain.RoundSet {
	estimates := make([]domain.Estimate, 0, len(venues))
	for i, v := range venues {
		out := asset.NewAmount(asset.OUSD, new(big.Int).Mul(big.NewInt(int64(100-i)), big.NewInt(1e18)))
		e := domain.Eligible(v, out, 100_000)
		if i == 0 {
			e.IsBest = true
		}
		estimates = append(estimates, e)
	}
	return domain.RoundSet{Generation: gen, Request: req, Estimates: estimates}
}

func mintDAI(amount string) domain.SwapRequest {
	return domain.SwapRequest{
		Mode:     domain.ModeMint,
		Amount:   amount,
		Protocol: asset.OUSD,
		Coin:     domain.CoinFor(asset.DAI),
	}
}

func TestStore_PublishAndSnapshot(t *testing.T) {
	store := app.NewStore()

	round := eligibleRound(1, mintDAI("100"), domain.VenueVault, domain.VenueCurve)
	store.Publish(round)

	snap := store.Snapshot()
	if snap.Loading {
		t.Error("publish should clear loading")
	}
	if snap.Round.Generation != 1 || len(snap.Round.Estimates) != 2 {
		t.Fatalf("snapshot = %+v", snap.Round)
	}

	// Snapshot copies are isolated from later writes.
	snap.Round.Estimates[0].CanSwap = false
	if !store.Snapshot().Round.Estimates[0].CanSwap {
		t.Error("snapshot shares backing array with store")
	}
}

func TestStore_SubscribeKeepsLatest(t *testing.T) {
	store := app.NewStore()
	ch, cancel := store.Subscribe()
	defer cancel()

	req := mintDAI("100")
	store.Publish(eligibleRound(1, req, domain.VenueVault))
	store.Publish(eligibleRound(2, req, domain.VenueVault))
	store.Publish(eligibleRound(3, req, domain.VenueVault))

	// A slow consumer sees only the newest snapshot.
	snap := <-ch
	if snap.Round.Generation != 3 {
		t.Errorf("generation = %d, want 3", snap.Round.Generation)
	}
}

func TestStore_OverrideSurvivesSameShape(t *testing.T) {
	store := app.NewStore()
	req := mintDAI("100")
	store.Publish(eligibleRound(1, req, domain.VenueVault, domain.VenueCurve))

	if !store.SetOverride(domain.VenueCurve) {
		t.Fatal("override rejected")
	}

	// Same mode and coin, different amount: the override sticks.
	store.Publish(eligibleRound(2, mintDAI("250"), domain.VenueVault, domain.VenueCurve))
	sel := store.Snapshot().Selected()
	if sel == nil || sel.Venue != domain.VenueCurve {
		t.Fatalf("selected = %+v, want curve", sel)
	}

	// Different coin: the override drops and best wins.
	other := req
	other.Coin = domain.CoinFor(asset.USDC)
	store.Publish(eligibleRound(3, other, domain.VenueVault, domain.VenueCurve))
	sel = store.Snapshot().Selected()
	if sel == nil || sel.Venue != domain.VenueVault {
		t.Fatalf("selected = %+v, want best after shape change", sel)
	}
}

func TestStore_OverrideDropsWhenVenueIneligible(t *testing.T) {
	store := app.NewStore()
	req := mintDAI("100")
	store.Publish(eligibleRound(1, req, domain.VenueVault, domain.VenueCurve))
	store.SetOverride(domain.VenueCurve)

	next := eligibleRound(2, mintDAI("100"), domain.VenueVault)
	next.Estimates = append(next.Estimates, domain.Ineligible(domain.VenueCurve, domain.ErrLiquidity))
	store.Publish(next)

	sel := store.Snapshot().Selected()
	if sel == nil || sel.Venue != domain.VenueVault {
		t.Fatalf("selected = %+v, want best after venue went ineligible", sel)
	}
}

func TestStore_SetOverrideRejectsIneligible(t *testing.T) {
	store := app.NewStore()
	round := eligibleRound(1, mintDAI("100"), domain.VenueVault)
	round.Estimates = append(round.Estimates, domain.Ineligible(domain.VenueCurve, domain.ErrUnsupported))
	store.Publish(round)

	if store.SetOverride(domain.VenueCurve) {
		t.Error("override accepted for an ineligible venue")
	}
	if store.SetOverride(domain.VenueZapper) {
		t.Error("override accepted for an absent venue")
	}
}

func TestStore_ClearOverride(t *testing.T) {
	store := app.NewStore()
	store.Publish(eligibleRound(1, mintDAI("100"), domain.VenueVault, domain.VenueCurve))
	store.SetOverride(domain.VenueCurve)

	store.ClearOverride()
	sel := store.Snapshot().Selected()
	if sel == nil || sel.Venue != domain.VenueVault {
		t.Fatalf("selected = %+v, want best", sel)
	}

	// Cleared means cleared: the next publish does not resurrect it.
	store.Publish(eligibleRound(2, mintDAI("100"), domain.VenueVault, domain.VenueCurve))
	sel = store.Snapshot().Selected()
	if sel == nil || sel.Venue != domain.VenueVault {
		t.Fatalf("selected = %+v after publish, want best", sel)
	}
}

func TestStore_Clear(t *testing.T) {
	store := app.NewStore()
	store.Publish(eligibleRound(1, mintDAI("100"), domain.VenueVault))
	store.SetLoading(true)
	store.Clear()

	snap := store.Snapshot()
	if !snap.Round.Empty() || snap.Loading {
		t.Errorf("snapshot after clear = %+v", snap)
	}
}

func TestStore_SubscribeCancel(t *testing.T) {
	store := app.NewStore()
	ch, cancel := store.Subscribe()
	cancel()

	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}
	// A second cancel is a no-op.
	cancel()

	store.Publish(eligibleRound(1, mintDAI("1"), domain.VenueVault))
}
