package engine

import (
	"context"
	"errors"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgefoundry/wbtc-bridge/adapters/native"
	"github.com/bridgefoundry/wbtc-bridge/bridge"
)

// fakeStore is a minimal in-memory store.Store, just enough to drive the
// engines through a single-record advance without a real database.
type fakeStore struct {
	wraps   map[uint64]*bridge.WrapRecord
	unwraps map[uint64]*bridge.UnwrapRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{wraps: map[uint64]*bridge.WrapRecord{}, unwraps: map[uint64]*bridge.UnwrapRecord{}}
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) InsertWrap(rec *bridge.WrapRecord) error {
	s.wraps[rec.ID] = rec
	return nil
}

func (s *fakeStore) InsertUnwrap(rec *bridge.UnwrapRecord) error {
	s.unwraps[rec.ID] = rec
	return nil
}

func (s *fakeStore) GetWrapByNativeTxID(nativeTxID string) (*bridge.WrapRecord, error) {
	for _, r := range s.wraps {
		if r.NativeTxID == nativeTxID {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetUnwrapByBurnTxHash(burnTxHash string) (*bridge.UnwrapRecord, error) {
	for _, r := range s.unwraps {
		if r.BurnTxHash == burnTxHash {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) WrapHistory(walletID string) ([]*bridge.WrapRecord, error) { return nil, nil }
func (s *fakeStore) UnwrapHistory(walletID string) ([]*bridge.UnwrapRecord, error) {
	return nil, nil
}

func (s *fakeStore) WrapsInState(state bridge.WrapState, limit int) ([]*bridge.WrapRecord, error) {
	var out []*bridge.WrapRecord
	for _, r := range s.wraps {
		if r.State == state {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) UnwrapsInState(state bridge.UnwrapState, limit int) ([]*bridge.UnwrapRecord, error) {
	var out []*bridge.UnwrapRecord
	for _, r := range s.unwraps {
		if r.State == state {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) WithWrapLock(id uint64, fn func(rec *bridge.WrapRecord) error) error {
	rec, ok := s.wraps[id]
	if !ok {
		return errors.New("fakeStore: no such wrap")
	}
	return fn(rec)
}

func (s *fakeStore) WithUnwrapLock(id uint64, fn func(rec *bridge.UnwrapRecord) error) error {
	rec, ok := s.unwraps[id]
	if !ok {
		return errors.New("fakeStore: no such unwrap")
	}
	return fn(rec)
}

func (s *fakeStore) UnwrapCountForSender(ethSender string) (int64, error) { return 0, nil }

// fakeNativeChain is a scriptable NativeChain.
type fakeNativeChain struct {
	txStatus     map[string]*native.TxStatus
	getTxErr     error
	utxos        []native.UTXO
	changeAddr   string
	createRawHex string
	signResult   *native.SignResult
	broadcastID  string
	broadcastErr error

	// lastListUnspentAddr records the addr ListUnspent was called with, so
	// tests can assert it was queried against the custodial address rather
	// than some other configured or node-derived address.
	lastListUnspentAddr string
}

func (f *fakeNativeChain) GetTx(ctx context.Context, txID string) (*native.TxStatus, error) {
	if f.getTxErr != nil {
		return nil, f.getTxErr
	}
	return f.txStatus[txID], nil
}

func (f *fakeNativeChain) ListUnspent(ctx context.Context, addr string, minAmount, minSum int64) ([]native.UTXO, error) {
	f.lastListUnspentAddr = addr
	return f.utxos, nil
}

func (f *fakeNativeChain) GetChangeAddress(ctx context.Context) (string, error) {
	return f.changeAddr, nil
}

func (f *fakeNativeChain) CreateRaw(ctx context.Context, inputs []native.RawInput, outputs []native.RawOutput) (string, error) {
	return f.createRawHex, nil
}

func (f *fakeNativeChain) SignWithWallet(ctx context.Context, rawHex string) (*native.SignResult, error) {
	return f.signResult, nil
}

func (f *fakeNativeChain) Broadcast(ctx context.Context, rawHex string) (string, error) {
	if f.broadcastErr != nil {
		return "", f.broadcastErr
	}
	return f.broadcastID, nil
}

// fakeSmartChain is a scriptable SmartChain.
type fakeSmartChain struct {
	bridgeAddr    common.Address
	gasPrice      *big.Int
	gasPriceErr   error
	blockNumber   uint64
	receipts      map[common.Hash]*types.Receipt
	receiptErr    error
	tx            *types.Transaction
	callErr       error
}

func (f *fakeSmartChain) BridgeAddress() common.Address { return f.bridgeAddr }

func (f *fakeSmartChain) GasPrice(ctx context.Context) (*big.Int, error) {
	if f.gasPriceErr != nil {
		return nil, f.gasPriceErr
	}
	return f.gasPrice, nil
}

func (f *fakeSmartChain) BlockNumber(ctx context.Context) (uint64, error) { return f.blockNumber, nil }

func (f *fakeSmartChain) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return f.receipts[hash], nil
}

func (f *fakeSmartChain) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	return f.tx, nil
}

func (f *fakeSmartChain) CallAtBlock(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, f.callErr
}

// fakeNonceManager is a scriptable MintBroadcaster.
type fakeNonceManager struct {
	hash common.Hash
	err  error

	lastTo       common.Address
	lastData     []byte
	lastGasLimit uint64
	lastGasPrice *big.Int
}

func (f *fakeNonceManager) SignAndSend(ctx context.Context, to common.Address, data []byte, gasLimit uint64, gasPrice *big.Int) (common.Hash, error) {
	f.lastTo, f.lastData, f.lastGasLimit, f.lastGasPrice = to, data, gasLimit, gasPrice
	if f.err != nil {
		return common.Hash{}, f.err
	}
	return f.hash, nil
}

// revertError implements the dataError interface used by extractRevertData.
type revertError struct {
	msg  string
	data interface{}
}

func (e *revertError) Error() string          { return e.msg }
func (e *revertError) ErrorData() interface{} { return e.data }
