// This file is derived from client/bridge_client.go's pattern of wrapping a
// JSON-RPC client with a small typed surface, adapted from klaytn's internal
// client.Client to github.com/ethereum/go-ethereum's ethclient.Client, since
// klaytn's own EVM types are an internal fork not meant for import by a
// third-party bridge targeting a generic EVM chain.
package smart

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/bridgefoundry/wbtc-bridge/internal/log"
)

var logger = log.NewModuleLogger(log.ModuleAdapter)

// InsufficientBalanceSelector is the 4-byte selector of the smart-chain
// token's InsufficientBalance custom error, used to classify burn reverts.
var InsufficientBalanceSelector = [4]byte{0xe4, 0x50, 0xd3, 0x8c}

// DecodedTx is the bridge-relevant subset of a signed smart-chain
// transaction, extracted without trusting client-supplied metadata.
type DecodedTx struct {
	Hash     common.Hash
	To       *common.Address
	Sender   common.Address
	Data     []byte
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
}

// Adapter is the smart-chain adapter. It wraps ethclient.Client with a
// narrow call surface, plus helpers the wrap/unwrap engines need for revert
// inspection and nonce discipline.
type Adapter struct {
	client     *ethclient.Client
	chainID    *big.Int
	bridgeAddr common.Address
}

// New dials endpoint and fetches the chain id once at startup, failing fast
// on startup misconfiguration rather than later at first use.
func New(ctx context.Context, endpoint string, bridgeAddr common.Address) (*Adapter, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("smart: dial %s: %w", endpoint, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("smart: fetch chain id: %w", err)
	}
	return &Adapter{client: client, chainID: chainID, bridgeAddr: bridgeAddr}, nil
}

// ChainID returns the chain id fetched at startup.
func (a *Adapter) ChainID() *big.Int { return new(big.Int).Set(a.chainID) }

// BridgeAddress returns the configured token contract address.
func (a *Adapter) BridgeAddress() common.Address { return a.bridgeAddr }

// Caller exposes the underlying client as a bind.ContractCaller so read API
// handlers can bind a read-only contracts/token.BridgeToken without the
// adapter importing the generated binding package itself.
func (a *Adapter) Caller() bind.ContractCaller { return a.client }

// BalanceAt returns addr's native smart-chain coin balance (not the wrapped
// token balance, which goes through the token contract's balanceOf).
func (a *Adapter) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return a.client.BalanceAt(ctx, addr, nil)
}

// GasPrice returns the node's suggested gas price.
func (a *Adapter) GasPrice(ctx context.Context) (*big.Int, error) {
	return a.client.SuggestGasPrice(ctx)
}

// BlockNumber returns the current block height.
func (a *Adapter) BlockNumber(ctx context.Context) (uint64, error) {
	return a.client.BlockNumber(ctx)
}

// NonceAt returns the next nonce to use for addr.
func (a *Adapter) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return a.client.PendingNonceAt(ctx, addr)
}

// Receipt returns the receipt for hash, or nil if the transaction is still
// pending.
func (a *Adapter) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := a.client.TransactionReceipt(ctx, hash)
	if err == ethereum.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// SendRaw broadcasts a signed transaction. A broadcast that fails with
// "already known" is treated as success, with the hash derived locally from
// the signed bytes.
func (a *Adapter) SendRaw(ctx context.Context, signed *types.Transaction) (common.Hash, error) {
	err := a.client.SendTransaction(ctx, signed)
	if err == nil {
		return signed.Hash(), nil
	}
	if isAlreadyKnown(err) {
		logger.Info("smart chain broadcast observed already-known, deriving hash locally", "hash", signed.Hash())
		return signed.Hash(), nil
	}
	return common.Hash{}, err
}

func isAlreadyKnown(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "alreadyknown") || strings.Contains(msg, "nonce too low")
}

// TransactionByHash returns the transaction identified by hash as known to
// the node, used by the unwrap engine to recover the burn call's calldata
// for revert re-execution.
func (a *Adapter) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	tx, _, err := a.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// CallAtBlock executes msg as a read-only call against a specific historical
// block, used to re-execute a failed burn and capture its revert data.
func (a *Adapter) CallAtBlock(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return a.client.CallContract(ctx, msg, blockNumber)
}

// DecodeSignedRaw recovers {to, sender, data, value, gas, gas_price} from a
// raw signed transaction, using go-ethereum's generic typed-transaction RLP
// decoder so both legacy and EIP-1559 transactions are handled uniformly.
func DecodeSignedRaw(raw []byte, chainID *big.Int) (*DecodedTx, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("smart: decode signed raw tx: %w", err)
	}

	signer := types.LatestSignerForChainID(chainID)
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return nil, fmt.Errorf("smart: recover sender: %w", err)
	}

	return &DecodedTx{
		Hash:     tx.Hash(),
		To:       tx.To(),
		Sender:   sender,
		Data:     tx.Data(),
		Value:    tx.Value(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
	}, nil
}

// BurnSelector returns the 4-byte selector of burn(uint256,bytes), computed
// via keccak256 over the canonical signature.
func BurnSelector() [4]byte {
	hash := crypto.Keccak256([]byte("burn(uint256,bytes)"))
	var sel [4]byte
	copy(sel[:], hash[:4])
	return sel
}

// IsInsufficientBalanceRevert reports whether revertData's selector matches
// the token contract's InsufficientBalance custom error.
func IsInsufficientBalanceRevert(revertData []byte) bool {
	if len(revertData) < 4 {
		return false
	}
	var sel [4]byte
	copy(sel[:], revertData[:4])
	return sel == InsufficientBalanceSelector
}

// OwnerNonceManager serialises mint issuance from the single owner account.
// The wrap engine issues its mints one after another, up to a batch per tick,
// reading the pending nonce before each send; the mutex holds the nonce read
// and the send together so concurrent callers cannot reuse a nonce.
type OwnerNonceManager struct {
	adapter *Adapter
	owner   common.Address
	key     *ecdsa.PrivateKey

	mu sync.Mutex
}

// NewOwnerNonceManager binds a nonce manager to the owner key used to sign
// mint transactions.
func NewOwnerNonceManager(adapter *Adapter, key *ecdsa.PrivateKey) *OwnerNonceManager {
	return &OwnerNonceManager{adapter: adapter, owner: crypto.PubkeyToAddress(key.PublicKey), key: key}
}

// Owner returns the owner address derived from the signing key.
func (m *OwnerNonceManager) Owner() common.Address { return m.owner }

// SignAndSend builds a legacy transaction to `to` carrying `data`, signs it
// with the owner key using a nonce read immediately before signing, and
// broadcasts it.
func (m *OwnerNonceManager) SignAndSend(ctx context.Context, to common.Address, data []byte, gasLimit uint64, gasPrice *big.Int) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce, err := m.adapter.NonceAt(ctx, m.owner)
	if err != nil {
		return common.Hash{}, fmt.Errorf("smart: fetch owner nonce: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signer := types.NewEIP155Signer(m.adapter.chainID)
	signed, err := types.SignTx(tx, signer, m.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("smart: sign mint tx: %w", err)
	}
	return m.adapter.SendRaw(ctx, signed)
}

// NormalizeAddress validates and checksum-normalises a user-supplied
// smart-chain address, transparently prefixing "0x" if missing.
func NormalizeAddress(raw string) (common.Address, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("smart: invalid address %q", raw)
	}
	return common.HexToAddress(s), nil
}
