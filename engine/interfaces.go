package engine

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgefoundry/wbtc-bridge/adapters/native"
)

// NativeChain is the subset of adapters/native.Adapter the engines consume;
// satisfied structurally by *native.Adapter, and by fakes in tests.
type NativeChain interface {
	GetTx(ctx context.Context, txID string) (*native.TxStatus, error)
	ListUnspent(ctx context.Context, addr string, minAmount, minSum int64) ([]native.UTXO, error)
	GetChangeAddress(ctx context.Context) (string, error)
	CreateRaw(ctx context.Context, inputs []native.RawInput, outputs []native.RawOutput) (string, error)
	SignWithWallet(ctx context.Context, rawHex string) (*native.SignResult, error)
	Broadcast(ctx context.Context, rawHex string) (string, error)
}

// SmartChain is the subset of adapters/smart.Adapter the engines consume;
// satisfied structurally by *smart.Adapter, and by fakes in tests.
type SmartChain interface {
	BridgeAddress() common.Address
	GasPrice(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error)
	CallAtBlock(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// MintBroadcaster issues a signed mint transaction from the owner account;
// satisfied by *smart.OwnerNonceManager.
type MintBroadcaster interface {
	SignAndSend(ctx context.Context, to common.Address, data []byte, gasLimit uint64, gasPrice *big.Int) (common.Hash, error)
}
