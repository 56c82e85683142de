package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/logger"
)

// erc20ABI covers the reads and the approval the router needs, plus the
// two events the snapshot refresher subscribes to.
const erc20ABI = `[
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "spender", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "from", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "to", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "spender", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "Approval",
		"type": "event"
	}
]`

const approveGasBufferDivisor = 10 // +10%

// ERC20 packs and executes token calls through the shared client.
type ERC20 struct {
	abi    abi.ABI
	client *Client
	logger logger.LoggerInterface
}

// NewERC20 parses the ABI once for all tokens.
func NewERC20(client *Client, log logger.LoggerInterface) (*ERC20, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}
	return &ERC20{abi: parsed, client: client, logger: log}, nil
}

// BalanceOf reads a token balance. Native assets read the account
// balance directly.
func (e *ERC20) BalanceOf(ctx context.Context, token *asset.Asset, owner common.Address) (*big.Int, error) {
	if token.IsNative() {
		return e.client.Eth().BalanceAt(ctx, owner, nil)
	}

	data, err := e.abi.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to encode balanceOf: %w", err)
	}
	out, err := e.client.CallContract(ctx, token.Address(), data)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("balanceOf %s", token.Symbol())))
	}
	results, err := e.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode balanceOf: %w", err)
	}
	return results[0].(*big.Int), nil
}

// Allowance reads the spender allowance for a token.
func (e *ERC20) Allowance(ctx context.Context, token *asset.Asset, owner, spender common.Address) (*big.Int, error) {
	data, err := e.abi.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to encode allowance: %w", err)
	}
	out, err := e.client.CallContract(ctx, token.Address(), data)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("allowance %s for %s", token.Symbol(), spender.Hex())))
	}
	results, err := e.abi.Unpack("allowance", out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode allowance: %w", err)
	}
	return results[0].(*big.Int), nil
}

// Approve estimates, buffers and submits an approval. Returns the
// transaction hash and the gas limit it was sent with.
func (e *ERC20) Approve(ctx context.Context, token *asset.Asset, spender common.Address, amount *big.Int) (common.Hash, uint64, error) {
	data, err := e.abi.Pack("approve", spender, amount)
	if err != nil {
		return common.Hash{}, 0, fmt.Errorf("failed to encode approve: %w", err)
	}

	gas, err := e.client.EstimateGas(ctx, token.Address(), nil, data)
	if err != nil {
		return common.Hash{}, 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("estimating approve for %s", token.Symbol())))
	}
	gas += gas / approveGasBufferDivisor

	hash, err := e.client.SendTx(ctx, token.Address(), nil, data, gas)
	if err != nil {
		return common.Hash{}, 0, err
	}

	e.logger.Info(ctx, "approval submitted",
		"token", token.Symbol(),
		"spender", spender.Hex(),
		"amount", amount.String(),
		"hash", hash.Hex(),
	)
	return hash, gas, nil
}

// TransferTopic returns the Transfer event topic hash.
func (e *ERC20) TransferTopic() common.Hash {
	return e.abi.Events["Transfer"].ID
}

// ApprovalTopic returns the Approval event topic hash.
func (e *ERC20) ApprovalTopic() common.Hash {
	return e.abi.Events["Approval"].ID
}
