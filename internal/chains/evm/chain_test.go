package evm

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/casino-deployer/internal/chains"
)

// fakeBackend is an in-memory Backend
type fakeBackend struct {
	mu sync.Mutex

	chainID  *big.Int
	nonce    uint64
	baseFee  *big.Int
	estimate uint64
	code     []byte

	sent []*types.Transaction

	// receipts become visible after notFoundFor lookups
	receipt      *types.Receipt
	notFoundFor  int
	receiptCalls int
	receiptErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(31337),
		nonce:    7,
		baseFee:  big.NewInt(1_000_000_000),
		estimate: 100_000,
	}
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return f.chainID, nil }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.estimate, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptCalls++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receipt == nil || f.receiptCalls <= f.notFoundFor {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return f.code, nil
}

func testFactory() *chains.Factory {
	return &chains.Factory{
		Name:             "Casino",
		Bytecode:         []byte{0x60, 0x80, 0x60, 0x40},
		DeployedBytecode: []byte{0x60, 0x80},
	}
}

func newTestChain(t *testing.T, backend *fakeBackend) *Chain {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	c, err := New(context.Background(), backend, key, WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Run("requires key", func(t *testing.T) {
		_, err := New(context.Background(), newFakeBackend(), nil)
		require.Error(t, err)
	})

	t.Run("reads chain ID", func(t *testing.T) {
		c := newTestChain(t, newFakeBackend())
		assert.Equal(t, int64(31337), c.ChainID().Int64())
	})
}

func TestChain_SubmitInstantiation(t *testing.T) {
	t.Run("dynamic fee transaction", func(t *testing.T) {
		backend := newFakeBackend()
		c := newTestChain(t, backend)
		f := testFactory()
		args := []byte{0xaa, 0xbb}

		pending, err := c.SubmitInstantiation(context.Background(), f, args)
		require.NoError(t, err)
		require.Len(t, backend.sent, 1)

		tx := backend.sent[0]
		assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
		assert.Nil(t, tx.To())
		assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0xaa, 0xbb}, tx.Data())
		assert.Equal(t, uint64(120_000), tx.Gas())
		assert.Equal(t, uint64(7), tx.Nonce())
		// tip + 2 * baseFee
		assert.Equal(t, big.NewInt(4_000_000_000), tx.GasFeeCap())

		sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(31337)), tx)
		require.NoError(t, err)
		assert.Equal(t, c.From(), sender)

		assert.Equal(t, "Casino", pending.Contract)
		assert.Equal(t, tx.Hash(), pending.TxHash)
		assert.Equal(t, crypto.CreateAddress(c.From(), 7), pending.Address)
	})

	t.Run("legacy transaction without base fee", func(t *testing.T) {
		backend := newFakeBackend()
		backend.baseFee = nil
		c := newTestChain(t, backend)

		_, err := c.SubmitInstantiation(context.Background(), testFactory(), nil)
		require.NoError(t, err)
		require.Len(t, backend.sent, 1)
		assert.Equal(t, uint8(types.LegacyTxType), backend.sent[0].Type())
		assert.Equal(t, big.NewInt(3_000_000_000), backend.sent[0].GasPrice())
	})
}

func TestChain_AwaitSettlement(t *testing.T) {
	pending := &chains.PendingDeployment{
		Contract: "Casino",
		TxHash:   common.HexToHash("0x01"),
		Address:  common.HexToAddress("0xabc"),
	}

	t.Run("polls until mined", func(t *testing.T) {
		backend := newFakeBackend()
		backend.notFoundFor = 2
		backend.receipt = &types.Receipt{
			Status:          types.ReceiptStatusSuccessful,
			ContractAddress: common.HexToAddress("0xdef"),
			BlockNumber:     big.NewInt(12),
			GasUsed:         21_000,
		}
		c := newTestChain(t, backend)

		receipt, err := c.AwaitSettlement(context.Background(), pending)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0xdef"), receipt.Address)
		assert.Equal(t, uint64(12), receipt.BlockNumber)
		assert.Equal(t, 3, backend.receiptCalls)
	})

	t.Run("reverted", func(t *testing.T) {
		backend := newFakeBackend()
		backend.receipt = &types.Receipt{Status: types.ReceiptStatusFailed}
		c := newTestChain(t, backend)

		_, err := c.AwaitSettlement(context.Background(), pending)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reverted")
	})

	t.Run("rpc error", func(t *testing.T) {
		backend := newFakeBackend()
		backend.receiptErr = errors.New("connection refused")
		c := newTestChain(t, backend)

		_, err := c.AwaitSettlement(context.Background(), pending)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("context cancelled", func(t *testing.T) {
		c := newTestChain(t, newFakeBackend())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.AwaitSettlement(ctx, pending)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestChain_VerifyDeployment(t *testing.T) {
	addr := common.HexToAddress("0xdef")

	t.Run("matching code", func(t *testing.T) {
		backend := newFakeBackend()
		backend.code = []byte{0x60, 0x80}
		c := newTestChain(t, backend)

		result, err := c.VerifyDeployment(context.Background(), testFactory(), addr)
		require.NoError(t, err)
		assert.True(t, result.Match)
		assert.Equal(t, "full", result.MatchType)
	})

	t.Run("no code", func(t *testing.T) {
		c := newTestChain(t, newFakeBackend())

		result, err := c.VerifyDeployment(context.Background(), testFactory(), addr)
		require.NoError(t, err)
		assert.False(t, result.Match)
	})
}
