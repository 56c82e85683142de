// Package main is the entry point for the swap router.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fd1az/swap-router/business/chain"
	"github.com/fd1az/swap-router/business/pricing"
	pricingDI "github.com/fd1az/swap-router/business/pricing/di"
	"github.com/fd1az/swap-router/business/swap"
	swapApp "github.com/fd1az/swap-router/business/swap/app"
	swapDI "github.com/fd1az/swap-router/business/swap/di"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/business/swap/infra/reporter"
	"github.com/fd1az/swap-router/internal/apm"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/health"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/metrics"
	"github.com/fd1az/swap-router/internal/monolith"
	"github.com/fd1az/swap-router/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	mode := flag.String("mode", "mint", "Swap mode: mint or redeem")
	amount := flag.String("amount", "", "Input amount, e.g. 1500.50")
	coin := flag.String("coin", "", "Counter-asset symbol, or 'mix' on redeem")
	execute := flag.Bool("execute", false, "In CLI mode, execute the best route after the first round")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("swap-router %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging and one-shot swaps
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode, requestFlags{
		mode:    *mode,
		amount:  *amount,
		coin:    *coin,
		execute: *execute,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// requestFlags carries the swap request described on the command line.
type requestFlags struct {
	mode    string
	amount  string
	coin    string
	execute bool
}

func run(ctx context.Context, configPath string, tuiMode bool, reqFlags requestFlags) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		// In TUI mode, suppress logs (discard output)
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting swap router",
			"version", version,
			"environment", cfg.App.Environment,
			"protocol", cfg.Swap.Protocol,
		)
	}

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthPort := cfg.Telemetry.HealthPort
	if healthPort == 0 {
		healthPort = 8081
	}
	healthServer := health.NewServer(healthPort, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", healthPort)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Modules in dependency order
	modules := []monolith.Module{
		&chain.Module{},   // Must be first - provides the node client and snapshot
		&pricing.Module{}, // Depends on chain for the on-chain feed
		&swap.Module{},    // Depends on chain and pricing
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	healthServer.RegisterCheck("rpc", func(ctx context.Context) (bool, string) {
		if _, err := mono.EthClient().ChainID(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})
	pricingSvc := pricingDI.GetPricingService(mono.Services())
	healthServer.RegisterCheck("eth_usd_price", func(ctx context.Context) (bool, string) {
		if _, err := pricingSvc.EthUsdPrice(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})

	req, err := buildRequest(cfg, mono.AssetRegistry(), reqFlags)
	if err != nil {
		return err
	}

	orch := swapDI.GetOrchestrator(mono.Services())
	dispatcher := swapDI.GetDispatcher(mono.Services())
	store := swapDI.GetStore(mono.Services())

	if tuiMode {
		return runTUI(ctx, orch, dispatcher, store, req)
	}
	return runCLI(ctx, orch, dispatcher, store, req, reqFlags.execute, log)
}

// buildRequest translates the command-line flags into a swap request.
func buildRequest(cfg *config.Config, registry *asset.Registry, f requestFlags) (*domain.SwapRequest, error) {
	if f.amount == "" {
		return nil, nil
	}

	var mode domain.Mode
	switch strings.ToLower(f.mode) {
	case "mint":
		mode = domain.ModeMint
	case "redeem":
		mode = domain.ModeRedeem
	default:
		return nil, fmt.Errorf("unknown mode %q (want mint or redeem)", f.mode)
	}

	var c domain.Coin
	if strings.EqualFold(f.coin, "mix") {
		if mode != domain.ModeRedeem {
			return nil, fmt.Errorf("mix is only valid on redeem")
		}
		c = domain.MixCoin()
	} else {
		a, ok := registry.GetBySymbol(strings.ToUpper(f.coin))
		if !ok {
			return nil, fmt.Errorf("unknown coin %q", f.coin)
		}
		c = domain.CoinFor(a)
	}

	protocol, ok := registry.GetBySymbol(cfg.Swap.Protocol)
	if !ok {
		return nil, fmt.Errorf("protocol token %q not in registry", cfg.Swap.Protocol)
	}

	return &domain.SwapRequest{
		Mode:     mode,
		Amount:   f.amount,
		Protocol: protocol,
		Coin:     c,
		Slippage: cfg.Swap.DefaultSlippage(),
	}, nil
}

func runCLI(
	ctx context.Context,
	orch *swapApp.Orchestrator,
	dispatcher *swapApp.Dispatcher,
	store *swapApp.Store,
	req *domain.SwapRequest,
	execute bool,
	log *logger.Logger,
) error {
	if req == nil {
		return fmt.Errorf("CLI mode needs -amount and -coin")
	}

	rep := reporter.NewConsoleReporter()
	if err := rep.Start(ctx); err != nil {
		return err
	}
	defer rep.Stop()

	snapshots, unsubscribe := store.Subscribe()
	defer unsubscribe()

	orch.OnInput(*req)

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-snapshots:
			rep.ReportRound(snap)
			if execute && !snap.Loading && snap.Selected() != nil {
				result, err := dispatcher.Execute(ctx)
				if err != nil {
					return fmt.Errorf("execution failed: %w", err)
				}
				log.Info(ctx, "swap submitted",
					"venue", result.Venue.DisplayName(),
					"tx", result.Swap.Hash.Hex(),
					"redeem_all", result.RedeemAll,
				)
				return nil
			}
		}
	}
}

func runTUI(
	ctx context.Context,
	orch *swapApp.Orchestrator,
	dispatcher *swapApp.Dispatcher,
	store *swapApp.Store,
	req *domain.SwapRequest,
) error {
	ui.OnSelectRoute = func(v domain.Venue, confirmed bool) {
		if err := orch.SelectRoute(v, confirmed); err != nil {
			if ui.IsConfirmationRequired(err) {
				ui.Send(ui.ConfirmRouteMsg{Venue: v})
				return
			}
			ui.Send(ui.ErrorMsg{Error: err})
		}
	}
	ui.OnClearSelection = func() {
		orch.ClearSelection()
	}
	ui.OnExecute = func() {
		result, err := dispatcher.Execute(ctx)
		if err != nil {
			ui.Send(ui.ExecutionMsg{Err: err})
			return
		}
		ui.Send(ui.ExecutionMsg{Venue: result.Venue, TxHash: result.Swap.Hash.Hex()})
	}

	rep := reporter.NewTUIReporter()
	snapshots, unsubscribe := store.Subscribe()
	defer unsubscribe()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapshots:
				rep.ReportRound(snap)
			}
		}
	}()

	if req != nil {
		orch.OnInput(*req)
	}

	return ui.Run()
}
