package api

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgefoundry/wbtc-bridge/adapters/native"
	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/store"
)

// fakeStore is a minimal in-memory store.Store, enough to exercise the
// admission and read handlers without a real database.
type fakeStore struct {
	wraps     map[uint64]*bridge.WrapRecord
	unwraps   map[uint64]*bridge.UnwrapRecord
	nextID    uint64
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{wraps: map[uint64]*bridge.WrapRecord{}, unwraps: map[uint64]*bridge.UnwrapRecord{}}
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) InsertWrap(rec *bridge.WrapRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, r := range s.wraps {
		if r.NativeTxID == rec.NativeTxID {
			return store.ErrDuplicateRecord
		}
	}
	s.nextID++
	rec.ID = s.nextID
	s.wraps[rec.ID] = rec
	return nil
}

func (s *fakeStore) InsertUnwrap(rec *bridge.UnwrapRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, r := range s.unwraps {
		if r.BurnTxHash == rec.BurnTxHash {
			return store.ErrDuplicateRecord
		}
	}
	s.nextID++
	rec.ID = s.nextID
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

func (s *fakeStore) WrapHistory(walletID string) ([]*bridge.WrapRecord, error) {
	var out []*bridge.WrapRecord
	for _, r := range s.wraps {
		if r.WalletID == walletID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) UnwrapHistory(walletID string) ([]*bridge.UnwrapRecord, error) {
	var out []*bridge.UnwrapRecord
	for _, r := range s.unwraps {
		if r.WalletID == walletID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) WrapsInState(state bridge.WrapState, limit int) ([]*bridge.WrapRecord, error) {
	return nil, nil
}

func (s *fakeStore) UnwrapsInState(state bridge.UnwrapState, limit int) ([]*bridge.UnwrapRecord, error) {
	return nil, nil
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

func (s *fakeStore) UnwrapCountForSender(ethSender string) (int64, error) {
	var count int64
	for _, r := range s.unwraps {
		if r.EthSender == ethSender {
			count++
		}
	}
	return count, nil
}

// fakeNativeChain is a scriptable NativeChain.
type fakeNativeChain struct {
	decoded      *native.DecodedTx
	decodeErr    error
	broadcastID  string
	broadcastErr error
}

func (f *fakeNativeChain) DecodeRaw(rawHex string) (*native.DecodedTx, error) {
	if f.decodeErr != nil {
		return nil, f.decodeErr
	}
	return f.decoded, nil
}

func (f *fakeNativeChain) Broadcast(ctx context.Context, rawHex string) (string, error) {
	if f.broadcastErr != nil {
		return "", f.broadcastErr
	}
	return f.broadcastID, nil
}

// fakeSmartChain is a scriptable SmartChain.
type fakeSmartChain struct {
	chainID      *big.Int
	gasPrice     *big.Int
	gasPriceErr  error
	nonce        uint64
	nonceErr     error
	balance      *big.Int
	balanceErr   error
	sendHash     common.Hash
	sendErr      error
	caller       bind.ContractCaller
}

func (f *fakeSmartChain) ChainID() *big.Int { return f.chainID }

func (f *fakeSmartChain) GasPrice(ctx context.Context) (*big.Int, error) {
	if f.gasPriceErr != nil {
		return nil, f.gasPriceErr
	}
	return f.gasPrice, nil
}

func (f *fakeSmartChain) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	if f.nonceErr != nil {
		return 0, f.nonceErr
	}
	return f.nonce, nil
}

func (f *fakeSmartChain) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeSmartChain) SendRaw(ctx context.Context, signed *types.Transaction) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	if f.sendHash != (common.Hash{}) {
		return f.sendHash, nil
	}
	return signed.Hash(), nil
}

func (f *fakeSmartChain) Caller() bind.ContractCaller { return f.caller }
