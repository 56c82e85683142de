package app

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/logger"
)

// ExecutionResult records what the dispatcher submitted.
type ExecutionResult struct {
	Venue       domain.Venue
	Approve     *TxHandle // nil when no approval was needed
	Swap        *TxHandle
	AmountIn    asset.Amount
	MinReceived asset.Amount
	RedeemAll   bool
}

// Dispatcher turns the currently selected estimate into transactions.
// It never trusts round-time figures for execution: the minimum output
// and the gas limit are both re-derived at dispatch time.
type Dispatcher struct {
	adapters  map[domain.Venue]VenueAdapter
	vault     VaultPort
	store     *Store
	snapshots SnapshotReader
	approver  Approver
	waiter    TxWaiter
	cfg       config.SwapConfig
	log       logger.LoggerInterface
	tracer    trace.Tracer
}

// NewDispatcher wires a dispatcher over the closed venue set. The vault
// adapter appears twice: in the generic map and as the typed port for
// its basket and redeem-all paths.
func NewDispatcher(
	vault VaultPort,
	others []VenueAdapter,
	store *Store,
	snapshots SnapshotReader,
	approver Approver,
	waiter TxWaiter,
	cfg config.SwapConfig,
	log logger.LoggerInterface,
) *Dispatcher {
	adapters := map[domain.Venue]VenueAdapter{domain.VenueVault: vault}
	for _, a := range others {
		adapters[a.Venue()] = a
	}
	return &Dispatcher{
		adapters:  adapters,
		vault:     vault,
		store:     store,
		snapshots: snapshots,
		approver:  approver,
		waiter:    waiter,
		cfg:       cfg,
		log:       log,
		tracer:    otel.Tracer("swap-router/dispatcher"),
	}
}

// Execute submits the selected route. The sequence is: fresh allowance
// check, approve and wait if short, fresh gas estimate, buffer, submit.
func (d *Dispatcher) Execute(ctx context.Context) (*ExecutionResult, error) {
	snap := d.store.Snapshot()
	sel := snap.Selected()
	if sel == nil {
		return nil, ErrNoSelectedRoute
	}
	req := snap.Round.Request

	ctx, span := d.tracer.Start(ctx, "swap.execute",
		trace.WithAttributes(attribute.String("swap.venue", sel.Venue.String())))
	defer span.End()

	adapter, ok := d.adapters[sel.Venue]
	if !ok {
		return nil, apperror.New(apperror.CodeRouteNotFound,
			apperror.WithMessage(fmt.Sprintf("no adapter for venue %s", sel.Venue)))
	}

	amounts, err := domain.Normalize(req.Amount, req.InputAsset(), req.OutputAsset(), &req.Slippage)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidAmount, "normalizing amount for execution")
	}

	// Slippage floor comes from the estimate's quoted output, not from
	// the round-time minimum, so it reflects what the user accepted.
	minOut := domain.MinimumReceived(sel.AmountReceived, req.Slippage)

	result := &ExecutionResult{
		Venue:       sel.Venue,
		AmountIn:    amounts.SwapAmount,
		MinReceived: minOut,
	}

	if handle, err := d.ensureAllowance(ctx, adapter, req, amounts.SwapAmount); err != nil {
		return nil, err
	} else if handle != nil {
		result.Approve = handle
	}

	if sel.Venue == domain.VenueVault && req.Mode == domain.ModeRedeem {
		if all, err := d.isRedeemAll(req, amounts.SwapAmount); err == nil && all {
			return d.executeRedeemAll(ctx, minOut, result)
		}
	}

	gas, err := adapter.EstimateGas(ctx, req, amounts.SwapAmount, minOut)
	if err != nil {
		return nil, d.classifyExecError(err, "estimating swap gas")
	}
	limit := d.bufferedGasLimit(sel.Venue, req.Mode, gas)

	d.log.Info(ctx, "submitting swap",
		"venue", sel.Venue.String(),
		"mode", string(req.Mode),
		"amount", amounts.SwapAmount.String(),
		"min_received", minOut.String(),
		"gas_limit", limit,
	)

	handle, err := adapter.Execute(ctx, req, amounts.SwapAmount, minOut, limit)
	if err != nil {
		return nil, d.classifyExecError(err, "submitting swap")
	}
	result.Swap = handle
	return result, nil
}

// ensureAllowance re-reads the allowance and, when short, submits an
// exact-amount approval and waits for it to mine before the swap can
// be gas-estimated.
func (d *Dispatcher) ensureAllowance(ctx context.Context, adapter VenueAdapter, req domain.SwapRequest, amount asset.Amount) (*TxHandle, error) {
	in := req.InputAsset()
	if in.IsNative() || !adapter.RequiresAllowance(req) {
		return nil, nil
	}

	if allowance, ok := d.snapshots.Allowance(in, adapter.Spender(req)); ok {
		if enough, _ := allowance.GreaterThanOrEqual(amount); enough {
			return nil, nil
		}
	}

	d.log.Info(ctx, "submitting approval",
		"token", in.Symbol(),
		"spender", adapter.Spender(req).Hex(),
		"amount", amount.String(),
	)
	handle, err := d.approver.Approve(ctx, in, adapter.Spender(req), amount)
	if err != nil {
		return nil, d.classifyExecError(err, "submitting approval")
	}
	if err := d.waiter.WaitMined(ctx, handle.Hash); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeContractCallFailed, "waiting for approval")
	}
	return handle, nil
}

// isRedeemAll reports whether the requested amount is within one whole
// unit of the full balance. Display-side rounding makes exact equality
// unreachable, so near-total redeems take the redeem-all path.
func (d *Dispatcher) isRedeemAll(req domain.SwapRequest, amount asset.Amount) (bool, error) {
	bal, ok := d.snapshots.Balance(req.Protocol)
	if !ok {
		return false, nil
	}
	return amount.WithinOneUnit(bal)
}

func (d *Dispatcher) executeRedeemAll(ctx context.Context, minOut asset.Amount, result *ExecutionResult) (*ExecutionResult, error) {
	gas, err := d.vault.EstimateRedeemAllGas(ctx, minOut)
	if err != nil {
		return nil, d.classifyExecError(err, "estimating redeem-all gas")
	}
	limit := d.bufferedGasLimit(domain.VenueVault, domain.ModeRedeem, gas)

	d.log.Info(ctx, "submitting redeem-all",
		"min_received", minOut.String(), "gas_limit", limit)

	handle, err := d.vault.ExecuteRedeemAll(ctx, minOut, limit)
	if err != nil {
		return nil, d.classifyExecError(err, "submitting redeem-all")
	}
	result.Swap = handle
	result.RedeemAll = true
	return result, nil
}

// bufferedGasLimit pads the node estimate. Vault mints can rebase and
// reallocate after the estimate was taken, so they get whichever is
// larger: the additive floor or the percentage buffer. Everything else
// gets the percentage buffer.
func (d *Dispatcher) bufferedGasLimit(v domain.Venue, mode domain.Mode, gas uint64) uint64 {
	buffered := gas + uint64(float64(gas)*d.cfg.GasBufferPct/100)
	if v == domain.VenueVault && mode == domain.ModeMint {
		if floor := gas + d.cfg.VaultMintGasFloor; floor > buffered {
			return floor
		}
	}
	return buffered
}

// classifyExecError separates a user's wallet rejection, which is a
// decision rather than a failure, from real submission errors.
func (d *Dispatcher) classifyExecError(err error, context string) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "user denied") || strings.Contains(msg, "rejected by user") ||
		strings.Contains(msg, "request rejected") {
		return ErrUserRejected
	}
	return apperror.Wrap(err, apperror.CodeContractCallFailed, context)
}
