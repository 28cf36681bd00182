// Package api exposes the bridge's admission endpoints (accept a signed
// native deposit or smart-chain burn, validate it without trusting client
// metadata, and admit the initial record) and its read endpoints (status,
// history, fee and balance lookups), routed with
// github.com/julienschmidt/httprouter and wrapped in github.com/rs/cors.
package api

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgefoundry/wbtc-bridge/adapters/native"
	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/internal/log"
	"github.com/bridgefoundry/wbtc-bridge/store"
)

var logger = log.NewModuleLogger(log.ModuleAPI)

// NativeChain is the narrow native-chain surface the admission path needs,
// satisfied structurally by *adapters/native.Adapter (same pattern as
// engine.NativeChain).
type NativeChain interface {
	DecodeRaw(rawHex string) (*native.DecodedTx, error)
	Broadcast(ctx context.Context, rawHex string) (string, error)
}

// SmartChain is the narrow smart-chain surface the admission and read paths
// need, satisfied structurally by *adapters/smart.Adapter.
type SmartChain interface {
	ChainID() *big.Int
	GasPrice(ctx context.Context) (*big.Int, error)
	NonceAt(ctx context.Context, addr common.Address) (uint64, error)
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	SendRaw(ctx context.Context, signed *types.Transaction) (common.Hash, error)
	Caller() bind.ContractCaller
}

// Server holds the dependencies the admission and read handlers share. It
// has no mutable state of its own; every handler reads through Store/Native/
// Smart.
type Server struct {
	Store store.Store
	Native NativeChain
	Smart  SmartChain

	CustodialAddress string
	TokenAddress     common.Address

	Fees bridge.Fees

	CORSOrigins []string
}
