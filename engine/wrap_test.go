package engine

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridgefoundry/wbtc-bridge/adapters/native"
	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/retry"
)

func newTestWrapEngine(t *testing.T, s *fakeStore, nc *fakeNativeChain, sc *fakeSmartChain, nonces *fakeNonceManager) *WrapEngine {
	t.Helper()
	return &WrapEngine{
		Store:               s,
		Native:              nc,
		Smart:               sc,
		Nonces:              nonces,
		Governor:            retry.New(retry.DefaultConfig),
		NativeConfirmations: 6,
		Fees: bridge.Fees{
			ETHFeeInTokenBaseUnits: 100 * bridge.TokenUnit,
			MinWrapAmountBaseUnits: 1,
			MaxGasPrice:            big.NewInt(100_000_000_000),
			MintGasLimit:           100000,
		},
	}
}

func TestWrapEngineIssuesMintAfterConfirmations(t *testing.T) {
	s := newFakeStore()
	rec := &bridge.WrapRecord{
		ID:               1,
		NativeTxID:       "t1",
		WalletID:         "w1",
		RecipientAddress: "0x0000000000000000000000000000000000000042",
		DepositAmount:    150 * bridge.TokenUnit, // 150 coins, above the 100-coin fee
		State:            bridge.WrapNativeBroadcasted,
	}
	s.wraps[rec.ID] = rec

	nc := &fakeNativeChain{txStatus: map[string]*native.TxStatus{"t1": {Confirmations: 6}}}
	sc := &fakeSmartChain{gasPrice: big.NewInt(1_000_000_000)}
	nonces := &fakeNonceManager{hash: common.HexToHash("0xabc")}

	e := newTestWrapEngine(t, s, nc, sc, nonces)
	require.NoError(t, e.Tick(context.Background()))

	assert.Equal(t, bridge.WrapMintingInProgress, rec.State)
	assert.Equal(t, int64(150*bridge.TokenUnit-100*bridge.TokenUnit), rec.MintedTokenAmount)
	assert.Equal(t, nonces.hash.Hex(), rec.MintTxHash)
	assert.Equal(t, 0, rec.Attempts)
}

func TestWrapEngineWaitsForConfirmations(t *testing.T) {
	s := newFakeStore()
	rec := &bridge.WrapRecord{ID: 1, NativeTxID: "t1", DepositAmount: 50_000_000, State: bridge.WrapNativeBroadcasted}
	s.wraps[rec.ID] = rec

	nc := &fakeNativeChain{txStatus: map[string]*native.TxStatus{"t1": {Confirmations: 2}}}
	sc := &fakeSmartChain{gasPrice: big.NewInt(1)}
	e := newTestWrapEngine(t, s, nc, sc, &fakeNonceManager{})

	require.NoError(t, e.Tick(context.Background()))
	assert.Equal(t, bridge.WrapNativeBroadcasted, rec.State)
	assert.Empty(t, rec.MintTxHash)
}

func TestWrapEngineFailsInsufficientAmount(t *testing.T) {
	s := newFakeStore()
	rec := &bridge.WrapRecord{ID: 1, NativeTxID: "t1", DepositAmount: 0, State: bridge.WrapNativeBroadcasted}
	s.wraps[rec.ID] = rec

	e := newTestWrapEngine(t, s, &fakeNativeChain{}, &fakeSmartChain{}, &fakeNonceManager{})
	require.NoError(t, e.Tick(context.Background()))
	assert.Equal(t, bridge.WrapFailedInsufficientAmount, rec.State)
}

func TestWrapEngineRecordsExceptionOnAdapterFailure(t *testing.T) {
	s := newFakeStore()
	rec := &bridge.WrapRecord{ID: 1, NativeTxID: "t1", DepositAmount: 50_000_000, State: bridge.WrapNativeBroadcasted}
	s.wraps[rec.ID] = rec

	nc := &fakeNativeChain{getTxErr: assertErr("native rpc unreachable")}
	e := newTestWrapEngine(t, s, nc, &fakeSmartChain{}, &fakeNonceManager{})

	require.NoError(t, e.Tick(context.Background()))
	assert.Equal(t, bridge.WrapNativeBroadcasted, rec.State)
	assert.Equal(t, 1, rec.Attempts)
	require.NotNil(t, rec.LastErrorAt)

	history := bridge.DecodeExceptionHistory(rec.ExceptionHistory)
	assert.Equal(t, 1, history.Sum())
}

func TestWrapEngineCompletesOnSuccessfulReceipt(t *testing.T) {
	s := newFakeStore()
	hash := common.HexToHash("0xdead")
	rec := &bridge.WrapRecord{ID: 1, MintTxHash: hash.Hex(), State: bridge.WrapMintingInProgress}
	s.wraps[rec.ID] = rec

	sc := &fakeSmartChain{receipts: map[common.Hash]*types.Receipt{hash: {Status: types.ReceiptStatusSuccessful}}}
	e := newTestWrapEngine(t, s, &fakeNativeChain{}, sc, &fakeNonceManager{})

	require.NoError(t, e.Tick(context.Background()))
	assert.Equal(t, bridge.WrapCompleted, rec.State)
}

func TestWrapEngineFailsOnRevertedReceipt(t *testing.T) {
	s := newFakeStore()
	hash := common.HexToHash("0xdead")
	rec := &bridge.WrapRecord{ID: 1, MintTxHash: hash.Hex(), State: bridge.WrapMintingInProgress}
	s.wraps[rec.ID] = rec

	sc := &fakeSmartChain{receipts: map[common.Hash]*types.Receipt{hash: {Status: types.ReceiptStatusFailed}}}
	e := newTestWrapEngine(t, s, &fakeNativeChain{}, sc, &fakeNonceManager{})

	require.NoError(t, e.Tick(context.Background()))
	assert.Equal(t, bridge.WrapFailedTransactionUnknown, rec.State)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
