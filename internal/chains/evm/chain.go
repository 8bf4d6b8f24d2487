// Package evm provides the EVM chain module: build tool selection,
// contract creation over JSON-RPC and local bytecode comparison.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pendergraft/casino-deployer/internal/chains"
)

// DefaultPollInterval is how often a pending creation's receipt is polled
const DefaultPollInterval = 2 * time.Second

// Backend is the subset of an Ethereum JSON-RPC client used for deployments.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Chain submits contract creations signed by a single deployer key
type Chain struct {
	backend      Backend
	key          *ecdsa.PrivateKey
	from         common.Address
	chainID      *big.Int
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Chain
type Option func(*Chain)

// WithPollInterval sets the receipt polling interval
func WithPollInterval(d time.Duration) Option {
	return func(c *Chain) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// Dial connects to an RPC endpoint and returns a Chain for the given key
func Dial(ctx context.Context, rpcURL string, key *ecdsa.PrivateKey, opts ...Option) (*Chain, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", rpcURL, err)
	}
	c, err := New(ctx, client, key, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

// New creates a Chain on top of an existing backend
func New(ctx context.Context, backend Backend, key *ecdsa.PrivateKey, opts ...Option) (*Chain, error) {
	if key == nil {
		return nil, errors.New("deployer key is required")
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain ID: %w", err)
	}

	c := &Chain{
		backend:      backend,
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		chainID:      chainID,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ChainID returns the chain ID reported by the node
func (c *Chain) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// From returns the deployer address
func (c *Chain) From() common.Address {
	return c.from
}

// Close releases the underlying RPC connection if it has one
func (c *Chain) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// SubmitInstantiation signs and broadcasts a contract creation transaction
func (c *Chain) SubmitInstantiation(ctx context.Context, f *chains.Factory, encodedArgs []byte) (*chains.PendingDeployment, error) {
	data := f.CreationCode(encodedArgs)

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce: %w", err)
	}

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: c.from, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimating gas: %w", err)
	}
	gas += gas / 5 // 20% headroom

	tx, err := c.buildTx(ctx, nonce, gas, data)
	if err != nil {
		return nil, err
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}

	pending := &chains.PendingDeployment{
		Contract: f.Name,
		TxHash:   signed.Hash(),
		From:     c.from,
		Nonce:    nonce,
		Address:  crypto.CreateAddress(c.from, nonce),
	}
	c.logger.Debug("contract creation submitted",
		"contract", f.Name,
		"tx", pending.TxHash.Hex(),
		"nonce", nonce,
		"gas", gas,
	)
	return pending, nil
}

// buildTx uses an EIP-1559 transaction when the chain reports a base fee
func (c *Chain) buildTx(ctx context.Context, nonce, gas uint64, data []byte) (*types.Transaction, error) {
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching head: %w", err)
	}

	if head.BaseFee == nil {
		gasPrice, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggesting gas price: %w", err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			Data:     data,
		}), nil
	}

	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggesting gas tip: %w", err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		Data:      data,
	}), nil
}

// AwaitSettlement blocks until the creation transaction has a receipt.
// There is no deadline beyond ctx; the node decides when the tx is mined.
func (c *Chain) AwaitSettlement(ctx context.Context, p *chains.PendingDeployment) (*chains.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, p.TxHash)
		if err == nil {
			return toReceipt(p, receipt)
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetching receipt for %s: %w", p.TxHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func toReceipt(p *chains.PendingDeployment, r *types.Receipt) (*chains.Receipt, error) {
	if r.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("contract creation reverted in tx %s", p.TxHash.Hex())
	}

	addr := r.ContractAddress
	if addr == (common.Address{}) {
		addr = p.Address
	}

	var block uint64
	if r.BlockNumber != nil {
		block = r.BlockNumber.Uint64()
	}

	return &chains.Receipt{
		TxHash:      p.TxHash,
		Address:     addr,
		BlockNumber: block,
		GasUsed:     r.GasUsed,
	}, nil
}

// GetDeployedBytecode fetches the runtime code at address (eth_getCode)
func (c *Chain) GetDeployedBytecode(ctx context.Context, address common.Address) ([]byte, error) {
	code, err := c.backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching code at %s: %w", address.Hex(), err)
	}
	return code, nil
}

// VerifyDeployment compares on-chain runtime code with the artifact's deployed bytecode
func (c *Chain) VerifyDeployment(ctx context.Context, f *chains.Factory, address common.Address) (*chains.VerifyResult, error) {
	if len(f.DeployedBytecode) == 0 {
		return nil, fmt.Errorf("artifact for %s has no deployed bytecode", f.Name)
	}

	deployed, err := c.GetDeployedBytecode(ctx, address)
	if err != nil {
		return nil, err
	}
	return CompareBytecode(deployed, f.DeployedBytecode), nil
}
