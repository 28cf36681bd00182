// Package native implements the native-chain adapter: decode, broadcast,
// confirmation lookup, UTXO enumeration and raw transaction
// construction/signing against a Bitcoin-Core-compatible node.
package native

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Output is a decoded transaction output.
type Output struct {
	Value           int64 // base units (satoshi-equivalent)
	ScriptType      string
	Address         string // empty if the script has no single-address form
	OpReturnPayload []byte // nil unless ScriptType is "nulldata"
}

// DecodedTx is the outcome of DecodeRaw.
type DecodedTx struct {
	TxID    string
	Outputs []Output
}

// UTXO mirrors a listunspent entry.
type UTXO struct {
	TxID   string
	Vout   uint32
	Amount int64 // base units
}

// TxStatus mirrors get_tx's confirmations field; nil when unknown.
type TxStatus struct {
	Confirmations int64
}

// RawOutput is either an (address, amount) pair or an OP_RETURN payload,
// used by CreateRaw.
type RawOutput struct {
	Address     string
	Amount      int64  // base units, ignored for OP_RETURN outputs
	OpReturnHex string // set instead of Address/Amount for a data output
}

// RawInput references a UTXO to spend.
type RawInput struct {
	TxID string
	Vout uint32
}

// SignResult mirrors sign_with_wallet's {complete, hex} shape.
type SignResult struct {
	Complete bool
	Hex      string
}

// Adapter is the native-chain adapter. Safe for concurrent use; the
// underlying RPCClient handles session recovery.
type Adapter struct {
	rpc        *RPCClient
	params     *chaincfg.Params
	changeAddr string
}

// New constructs a native-chain adapter against endpoint, using chainParams
// to validate/derive addresses and changeAddr as the custodial wallet's
// configured change address.
func New(endpoint, user, pass string, chainParams *chaincfg.Params, changeAddr string) *Adapter {
	return &Adapter{
		rpc:        NewRPCClient(endpoint, user, pass),
		params:     chainParams,
		changeAddr: changeAddr,
	}
}

// DecodeRaw parses a raw transaction hex string without trusting any
// accompanying client metadata.
func (a *Adapter) DecodeRaw(rawHex string) (*DecodedTx, error) {
	tx, err := deserializeTx(rawHex)
	if err != nil {
		return nil, err
	}

	outputs := make([]Output, 0, len(tx.TxOut))
	for _, out := range tx.TxOut {
		scriptClass, addrs, _, err := txscript.ExtractPkScriptAddrs(out.PkScript, a.params)
		o := Output{Value: out.Value}
		if err == nil {
			o.ScriptType = scriptClass.String()
			if len(addrs) == 1 {
				o.Address = addrs[0].EncodeAddress()
			}
			if scriptClass == txscript.NullDataTy {
				o.OpReturnPayload = extractNullDataPayload(out.PkScript)
			}
		}
		outputs = append(outputs, o)
	}

	return &DecodedTx{TxID: tx.TxHash().String(), Outputs: outputs}, nil
}

func deserializeTx(rawHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("decode raw tx hex: %w", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("deserialize raw tx: %w", err)
	}
	return tx, nil
}

// extractNullDataPayload strips the OP_RETURN opcode and push-data framing,
// returning the carried bytes.
func extractNullDataPayload(pkScript []byte) []byte {
	tokenizer := txscript.MakeScriptTokenizer(0, pkScript)
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
		return nil
	}
	if tokenizer.Next() {
		data := make([]byte, len(tokenizer.Data()))
		copy(data, tokenizer.Data())
		return data
	}
	return nil
}

// Broadcast submits a signed raw transaction and returns its tx id. A
// broadcast that fails with "already known"/"already have transaction" is
// treated as success with the hash derived locally.
func (a *Adapter) Broadcast(ctx context.Context, rawHex string) (string, error) {
	var txid string
	err := a.rpc.Call(ctx, "sendrawtransaction", &txid, rawHex)
	if err == nil {
		return txid, nil
	}
	if isAlreadyKnown(err) {
		tx, decErr := deserializeTx(rawHex)
		if decErr != nil {
			return "", decErr
		}
		logger.Info("broadcast observed already-known, deriving hash locally", "txid", tx.TxHash().String())
		return tx.TxHash().String(), nil
	}
	return "", err
}

func isAlreadyKnown(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") ||
		strings.Contains(msg, "already have transaction") ||
		strings.Contains(msg, "txn-already-in-mempool")
}

// GetTx returns the confirmation count of txID, or nil if unknown to the node.
func (a *Adapter) GetTx(ctx context.Context, txID string) (*TxStatus, error) {
	var result struct {
		Confirmations int64 `json:"confirmations"`
	}
	err := a.rpc.Call(ctx, "gettransaction", &result, txID)
	if err != nil {
		if isUnknownTx(err) {
			return nil, nil
		}
		return nil, err
	}
	return &TxStatus{Confirmations: result.Confirmations}, nil
}

func isUnknownTx(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid or non-wallet transaction id") || strings.Contains(msg, "not found")
}

// ListUnspent enumerates UTXOs at addr with amount >= minAmount, stopping
// once the accumulated sum reaches minSum. minSum <= 0 disables the early
// stop and all matching UTXOs are returned.
func (a *Adapter) ListUnspent(ctx context.Context, addr string, minAmount, minSum int64) ([]UTXO, error) {
	var raw []struct {
		TxID   string  `json:"txid"`
		Vout   uint32  `json:"vout"`
		Amount float64 `json:"amount"`
	}
	if err := a.rpc.Call(ctx, "listunspent", &raw, 0, 9999999, []string{addr}); err != nil {
		return nil, err
	}

	utxos := make([]UTXO, 0, len(raw))
	var sum int64
	for _, u := range raw {
		amt, err := btcutil.NewAmount(u.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse utxo amount: %w", err)
		}
		base := int64(amt)
		if base < minAmount {
			continue
		}
		utxos = append(utxos, UTXO{TxID: u.TxID, Vout: u.Vout, Amount: base})
		sum += base
		if minSum > 0 && sum >= minSum {
			break
		}
	}
	return utxos, nil
}

// GetChangeAddress returns the configured custodial change address.
func (a *Adapter) GetChangeAddress(ctx context.Context) (string, error) {
	if a.changeAddr != "" {
		return a.changeAddr, nil
	}
	var addr string
	if err := a.rpc.Call(ctx, "getrawchangeaddress", &addr); err != nil {
		return "", err
	}
	return addr, nil
}

// CreateRaw builds an unsigned raw transaction from inputs and outputs,
// appending at most one OP_RETURN data output.
func (a *Adapter) CreateRaw(ctx context.Context, inputs []RawInput, outputs []RawOutput) (string, error) {
	tx := wire.NewMsgTx(wire.TxVersion)

	for _, in := range inputs {
		h, err := chainhash.NewHashFromStr(in.TxID)
		if err != nil {
			return "", fmt.Errorf("parse input txid: %w", err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(h, in.Vout), nil, nil))
	}

	for _, out := range outputs {
		if out.OpReturnHex != "" {
			data, err := hex.DecodeString(out.OpReturnHex)
			if err != nil {
				return "", fmt.Errorf("decode op_return hex: %w", err)
			}
			script, err := txscript.NullDataScript(data)
			if err != nil {
				return "", fmt.Errorf("build op_return script: %w", err)
			}
			tx.AddTxOut(wire.NewTxOut(0, script))
			continue
		}
		addr, err := btcutil.DecodeAddress(out.Address, a.params)
		if err != nil {
			return "", fmt.Errorf("decode output address %q: %w", out.Address, err)
		}
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return "", fmt.Errorf("build output script: %w", err)
		}
		tx.AddTxOut(wire.NewTxOut(out.Amount, script))
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// SignWithWallet asks the node's wallet to sign rawHex with the keys it
// holds for the custodial address.
func (a *Adapter) SignWithWallet(ctx context.Context, rawHex string) (*SignResult, error) {
	var result struct {
		Hex      string `json:"hex"`
		Complete bool   `json:"complete"`
	}
	if err := a.rpc.Call(ctx, "signrawtransactionwithwallet", &result, rawHex); err != nil {
		return nil, err
	}
	return &SignResult{Complete: result.Complete, Hex: result.Hex}, nil
}
