package ethereum

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/logger"
)

// TrackedToken is one token whose balance, and allowances toward the
// given spenders, the snapshot keeps fresh.
type TrackedToken struct {
	Token    *asset.Asset
	Spenders []common.Address
}

// SnapshotPollerConfig tunes the refresh loop.
type SnapshotPollerConfig struct {
	PollInterval    time.Duration
	SubscribeEvents bool
}

// SnapshotPoller maintains the account snapshot. A full snapshot is
// rebuilt on every refresh and swapped in atomically; Transfer and
// Approval events touching the account coalesce into an early refresh.
type SnapshotPoller struct {
	client  *Client
	erc20   *ERC20
	account common.Address
	native  *asset.Asset
	tracked []TrackedToken
	cfg     SnapshotPollerConfig
	logger  logger.LoggerInterface

	current atomic.Pointer[domain.AccountSnapshot]
	kick    chan struct{}
	tracer  trace.Tracer
}

// NewSnapshotPoller creates a poller for the account the client signs
// with.
func NewSnapshotPoller(
	client *Client,
	erc20 *ERC20,
	native *asset.Asset,
	tracked []TrackedToken,
	cfg SnapshotPollerConfig,
	log logger.LoggerInterface,
) *SnapshotPoller {
	p := &SnapshotPoller{
		client:  client,
		erc20:   erc20,
		account: client.Account(),
		native:  native,
		tracked: tracked,
		cfg:     cfg,
		logger:  log,
		kick:    make(chan struct{}, 1),
		tracer:  otel.Tracer(tracerName),
	}
	p.current.Store(domain.EmptySnapshot(p.account))
	return p
}

// Current returns the latest snapshot.
func (p *SnapshotPoller) Current() *domain.AccountSnapshot {
	return p.current.Load()
}

// Refresh rebuilds the snapshot now.
func (p *SnapshotPoller) Refresh(ctx context.Context) error {
	return p.refresh(ctx)
}

// Start runs the refresh loop until the context ends. With a websocket
// connection it also reacts to Transfer/Approval events instead of
// waiting for the next tick.
func (p *SnapshotPoller) Start(ctx context.Context) error {
	if (p.account == common.Address{}) {
		p.logger.Info(ctx, "no account connected, snapshot refresh disabled")
		<-ctx.Done()
		return nil
	}

	if err := p.refresh(ctx); err != nil {
		p.logger.Warn(ctx, "initial snapshot refresh failed", "error", err.Error())
	}

	if p.cfg.SubscribeEvents && p.client.WsEth() != nil {
		go p.watchEvents(ctx)
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-p.kick:
		}
		if err := p.refresh(ctx); err != nil {
			p.logger.Warn(ctx, "snapshot refresh failed", "error", err.Error())
		}
	}
}

func (p *SnapshotPoller) refresh(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "snapshot.refresh")
	defer span.End()

	snap := domain.EmptySnapshot(p.account)

	if p.native != nil {
		bal, err := p.erc20.BalanceOf(ctx, p.native, p.account)
		if err != nil {
			return err
		}
		snap.Balances[p.native.ID()] = asset.NewAmount(p.native, bal)
	}

	for _, t := range p.tracked {
		bal, err := p.erc20.BalanceOf(ctx, t.Token, p.account)
		if err != nil {
			return err
		}
		snap.Balances[t.Token.ID()] = asset.NewAmount(t.Token, bal)

		if len(t.Spenders) == 0 {
			continue
		}
		bySpender := make(map[common.Address]asset.Amount, len(t.Spenders))
		for _, spender := range t.Spenders {
			allowance, err := p.erc20.Allowance(ctx, t.Token, p.account, spender)
			if err != nil {
				return err
			}
			bySpender[spender] = asset.NewAmount(t.Token, allowance)
		}
		snap.Allowances[t.Token.ID()] = bySpender
	}

	p.current.Store(snap)
	span.SetAttributes(attribute.Int("tokens", len(p.tracked)))
	p.logger.Debug(ctx, "account snapshot refreshed",
		"account", p.account.Hex(), "tokens", len(p.tracked))
	return nil
}

// watchEvents subscribes to Transfer/Approval logs on the tracked
// tokens and kicks a refresh when one involves the account. The event
// only triggers the rebuild; log payloads are never applied directly.
func (p *SnapshotPoller) watchEvents(ctx context.Context) {
	addresses := make([]common.Address, 0, len(p.tracked))
	for _, t := range p.tracked {
		addresses = append(addresses, t.Token.Address())
	}

	query := ethereum.FilterQuery{
		Addresses: addresses,
		Topics:    [][]common.Hash{{p.erc20.TransferTopic(), p.erc20.ApprovalTopic()}},
	}

	logs := make(chan types.Log, 64)
	sub, err := p.client.WsEth().SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		p.logger.Warn(ctx, "event subscription failed, falling back to polling",
			"error", err.Error())
		return
	}
	defer sub.Unsubscribe()

	accountTopic := common.BytesToHash(p.account.Bytes())
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			p.logger.Warn(ctx, "event subscription dropped, falling back to polling",
				"error", err.Error())
			return
		case l := <-logs:
			if !p.involvesAccount(l, accountTopic) {
				continue
			}
			select {
			case p.kick <- struct{}{}:
			default:
			}
		}
	}
}

func (p *SnapshotPoller) involvesAccount(l types.Log, accountTopic common.Hash) bool {
	for _, topic := range l.Topics[1:] {
		if topic == accountTopic {
			return true
		}
	}
	return false
}
