// Package ethereum implements the chain context ports with go-ethereum.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	tracerName = "ethereum"
	meterName  = "ethereum"

	receiptPollInterval = 2 * time.Second
)

// ClientConfig holds connection and signing configuration.
type ClientConfig struct {
	HTTPURL      string
	WebSocketURL string // optional, enables event subscriptions
	ChainID      uint64
	PrivateKey   string // hex, optional; empty means read-only
}

// Client wraps an Ethereum node connection with optional signing. All
// contract adapters in the swap context go through it.
type Client struct {
	eth     *ethclient.Client
	ownsEth bool
	wsEth   *ethclient.Client // nil without a websocket URL
	chainID *big.Int

	key     *ecdsa.PrivateKey // nil means read-only
	account common.Address
	nonceMu sync.Mutex

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// Dial connects to the node and derives the signing account if a
// private key is configured.
func Dial(ctx context.Context, cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.HTTPURL)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("dialing %s", cfg.HTTPURL)))
	}
	c, err := NewClient(ctx, eth, cfg, log)
	if err != nil {
		eth.Close()
		return nil, err
	}
	c.ownsEth = true
	return c, nil
}

// NewClient wraps an already-dialed connection; the caller keeps
// ownership of it.
func NewClient(ctx context.Context, eth *ethclient.Client, cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	c := &Client{
		eth:     eth,
		chainID: new(big.Int).SetUint64(cfg.ChainID),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if cfg.WebSocketURL != "" {
		wsEth, err := ethclient.DialContext(ctx, cfg.WebSocketURL)
		if err != nil {
			log.Warn(ctx, "websocket dial failed, event subscriptions disabled",
				"url", cfg.WebSocketURL, "error", err.Error())
		} else {
			c.wsEth = wsEth
		}
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, apperror.New(apperror.CodeSignerUnavailable,
				apperror.WithCause(err),
				apperror.WithContext("parsing private key"))
		}
		c.key = key
		c.account = crypto.PubkeyToAddress(key.PublicKey)
		log.Info(ctx, "signer loaded", "account", c.account.Hex())
	}

	return c, nil
}

// Account returns the signing account, zero when read-only.
func (c *Client) Account() common.Address {
	return c.account
}

// HasSigner reports whether transactions can be submitted.
func (c *Client) HasSigner() bool {
	return c.key != nil
}

// Eth exposes the underlying client for read paths.
func (c *Client) Eth() *ethclient.Client {
	return c.eth
}

// WsEth returns the websocket client, nil when unavailable.
func (c *Client) WsEth() *ethclient.Client {
	return c.wsEth
}

// CallContract performs an eth_call.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// CallContractFrom performs an eth_call with an explicit sender, for
// views whose result depends on msg.sender.
func (c *Client) CallContractFrom(ctx context.Context, from, to common.Address, value *big.Int, data []byte) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}, nil)
}

// EstimateGas estimates gas for a call from the signing account.
func (c *Client) EstimateGas(ctx context.Context, to common.Address, value *big.Int, data []byte) (uint64, error) {
	return c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.account,
		To:    &to,
		Value: value,
		Data:  data,
	})
}

// SendTx signs and submits a dynamic-fee transaction.
func (c *Client) SendTx(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64) (common.Hash, error) {
	ctx, span := c.tracer.Start(ctx, "ethereum.send_tx",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int64("gas_limit", int64(gasLimit)),
		),
	)
	defer span.End()

	if c.key == nil {
		err := apperror.New(apperror.CodeSignerUnavailable,
			apperror.WithContext("no private key configured"))
		span.RecordError(err)
		return common.Hash{}, err
	}

	// Nonce assignment and submission are serialized so concurrent
	// sends cannot race on the same nonce.
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	nonce, err := c.eth.PendingNonceAt(ctx, c.account)
	if err != nil {
		span.RecordError(err)
		return common.Hash{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "fetching nonce")
	}

	tipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		span.RecordError(err)
		return common.Hash{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "fetching tip cap")
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return common.Hash{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "fetching head")
	}

	// feeCap = 2*baseFee + tip, survives one full base fee doubling
	feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tipCap)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		span.RecordError(err)
		return common.Hash{}, apperror.Wrap(err, apperror.CodeSignerUnavailable, "signing transaction")
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return common.Hash{}, apperror.Wrap(err, apperror.CodeTransactionRejected, "sending transaction")
	}

	hash := signed.Hash()
	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))
	span.SetStatus(codes.Ok, "sent")
	c.logger.Info(ctx, "transaction sent",
		"hash", hash.Hex(), "to", to.Hex(), "nonce", nonce, "gas_limit", gasLimit)

	return hash, nil
}

// WaitMined polls for the transaction receipt until mined or the
// context ends. A reverted receipt is an error.
func (c *Client) WaitMined(ctx context.Context, hash common.Hash) error {
	ctx, span := c.tracer.Start(ctx, "ethereum.wait_mined",
		trace.WithAttributes(attribute.String("tx_hash", hash.Hex())))
	defer span.End()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				span.SetStatus(codes.Error, "reverted")
				return apperror.New(apperror.CodeContractCallFailed,
					apperror.WithContext(fmt.Sprintf("transaction %s reverted", hash.Hex())))
			}
			span.SetStatus(codes.Ok, "mined")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the connections this client owns.
func (c *Client) Close() {
	if c.ownsEth {
		c.eth.Close()
	}
	if c.wsEth != nil {
		c.wsEth.Close()
	}
}
