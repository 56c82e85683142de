package app_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/business/pricing/app"
	"github.com/fd1az/swap-router/business/pricing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

var testLog = logger.New(io.Discard, logger.LevelDebug, "test", nil)

type fakeSource struct {
	name  string
	price decimal.Decimal
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchEthUsd(context.Context) (domain.PriceQuote, error) {
	f.calls++
	if f.err != nil {
		return domain.PriceQuote{}, f.err
	}
	return domain.NewPriceQuote(f.name, f.price), nil
}

type fakeStreamSource struct {
	fakeSource
	quotes chan domain.PriceQuote
}

func (f *fakeStreamSource) Stream(context.Context) (<-chan domain.PriceQuote, error) {
	return f.quotes, nil
}

func newService(t *testing.T, cfg app.ServiceConfig, sources ...app.PriceSource) *app.PricingService {
	t.Helper()
	svc, err := app.NewPricingService(sources, cfg, testLog)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func TestPricingService_PriorityOrder(t *testing.T) {
	first := &fakeSource{name: "first", err: errors.New("down")}
	second := &fakeSource{name: "second", price: decimal.NewFromInt(2000)}
	third := &fakeSource{name: "third", price: decimal.NewFromInt(9999)}

	svc := newService(t, app.DefaultServiceConfig(), first, second, third)

	price, err := svc.EthUsdPrice(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("price = %s, want the second source's answer", price)
	}
	if third.calls != 0 {
		t.Error("lower-priority source consulted after a success")
	}
}

func TestPricingService_InvalidQuoteSkipped(t *testing.T) {
	zero := &fakeSource{name: "zero", price: decimal.Zero}
	good := &fakeSource{name: "good", price: decimal.NewFromInt(1850)}

	svc := newService(t, app.DefaultServiceConfig(), zero, good)

	price, err := svc.EthUsdPrice(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(1850)) {
		t.Errorf("price = %s, want 1850", price)
	}
}

func TestPricingService_AllSourcesFail(t *testing.T) {
	svc := newService(t, app.DefaultServiceConfig(),
		&fakeSource{name: "a", err: errors.New("down")},
		&fakeSource{name: "b", err: errors.New("also down")},
	)

	_, err := svc.EthUsdPrice(context.Background())
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodePriceFeedFailed {
		t.Errorf("err = %v, want CodePriceFeedFailed", err)
	}
}

func TestPricingService_CachesWinner(t *testing.T) {
	src := &fakeSource{name: "src", price: decimal.NewFromInt(2000)}
	svc := newService(t, app.DefaultServiceConfig(), src)

	ctx := context.Background()
	if _, err := svc.EthUsdPrice(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EthUsdPrice(ctx); err != nil {
		t.Fatal(err)
	}
	if src.calls != 1 {
		t.Errorf("source fetched %d times, want 1 (cache hit)", src.calls)
	}
}

func TestPricingService_StreamKeepsCacheWarm(t *testing.T) {
	stream := &fakeStreamSource{
		fakeSource: fakeSource{name: "stream", err: errors.New("fetch path unused")},
		quotes:     make(chan domain.PriceQuote, 1),
	}
	svc := newService(t, app.DefaultServiceConfig(), stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartStreams(ctx)

	stream.quotes <- domain.NewPriceQuote("stream", decimal.NewFromInt(2100))

	// The consumer goroutine records the quote; poll until it lands.
	deadline := time.After(time.Second)
	for {
		price, err := svc.EthUsdPrice(ctx)
		if err == nil {
			if !price.Equal(decimal.NewFromInt(2100)) {
				t.Errorf("price = %s, want streamed 2100", price)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("streamed quote never reached the cache")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPriceQuote_Staleness(t *testing.T) {
	q := domain.NewPriceQuote("test", decimal.NewFromInt(2000))
	if q.Stale(time.Minute) {
		t.Error("fresh quote reported stale")
	}
	q.Timestamp = time.Now().Add(-2 * time.Minute)
	if !q.Stale(time.Minute) {
		t.Error("old quote not reported stale")
	}

	if !q.Valid() {
		t.Error("positive price should be valid")
	}
	q.Price = decimal.Zero
	if q.Valid() {
		t.Error("zero price should be invalid")
	}
}
