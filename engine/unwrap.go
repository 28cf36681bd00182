package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgefoundry/wbtc-bridge/adapters/native"
	"github.com/bridgefoundry/wbtc-bridge/adapters/smart"
	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/retry"
	"github.com/bridgefoundry/wbtc-bridge/store"
)

// UnwrapEngine drives UnwrapRecords through BURN_INITIATED -> BURN_CONFIRMING
// -> BURN_CONFIRMED -> NATIVE_BROADCASTED -> UNWRAP_COMPLETED/FAILED_*.
type UnwrapEngine struct {
	Store  store.Store
	Native NativeChain
	Smart  SmartChain

	Governor *retry.Governor
	Fees     bridge.Fees

	// CustodialAddress is the bridge's native-chain custodial address: UTXOs
	// are enumerated from it and its own change is sent back to it. This is
	// always the custodial address, never a separately-configured or
	// node-wallet-derived change address.
	CustodialAddress string

	// NativeConfirmations is the confirmation depth K the release tx must
	// reach before UNWRAP_COMPLETED.
	NativeConfirmations int64
	// SmartConfirmations is the confirmation depth K the burn tx must reach
	// before the release is constructed.
	SmartConfirmations int64

	BatchSize int
}

// unwrapStates lists the non-terminal states from last to first, so a record
// advanced during a tick lands in a state already visited and is not advanced
// again until the next tick.
var unwrapStates = []bridge.UnwrapState{
	bridge.UnwrapNativeBroadcasted,
	bridge.UnwrapBurnConfirmed,
	bridge.UnwrapBurnConfirming,
	bridge.UnwrapBurnInitiated,
}

// Tick processes one batch of records in each non-terminal unwrap state.
func (e *UnwrapEngine) Tick(ctx context.Context) error {
	for _, state := range unwrapStates {
		if err := e.processState(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

func (e *UnwrapEngine) limit() int {
	if e.BatchSize > 0 {
		return e.BatchSize
	}
	return defaultBatchSize
}

func (e *UnwrapEngine) processState(ctx context.Context, state bridge.UnwrapState) error {
	recs, err := e.Store.UnwrapsInState(state, e.limit())
	if err != nil {
		return fmt.Errorf("engine: list unwraps in state %s: %w", state, err)
	}
	now := time.Now().UTC()
	for _, rec := range recs {
		if !e.Governor.ShouldProcess(rec.LastErrorAt, rec.Attempts, now) {
			continue
		}
		if err := e.advance(ctx, rec.ID, state, now); err != nil {
			logger.Error("unwrap advance failed", "id", rec.ID, "state", state, "err", err)
		}
	}
	return nil
}

func (e *UnwrapEngine) advance(ctx context.Context, id uint64, state bridge.UnwrapState, now time.Time) error {
	return e.Store.WithUnwrapLock(id, func(rec *bridge.UnwrapRecord) error {
		var stepErr error
		switch state {
		case bridge.UnwrapBurnInitiated:
			stepErr = e.advanceBurnInitiated(ctx, rec)
		case bridge.UnwrapBurnConfirming:
			stepErr = e.advanceBurnConfirming(ctx, rec)
		case bridge.UnwrapBurnConfirmed:
			stepErr = e.advanceBurnConfirmed(ctx, rec)
		case bridge.UnwrapNativeBroadcasted:
			stepErr = e.advanceNativeBroadcasted(ctx, rec)
		default:
			return nil
		}
		return applyUnwrapOutcome(e.Governor, rec, stepErr, now)
	})
}

func applyUnwrapOutcome(gov *retry.Governor, rec *bridge.UnwrapRecord, stepErr error, now time.Time) error {
	if stepErr != nil {
		history := bridge.DecodeExceptionHistory(rec.ExceptionHistory)
		outcome := gov.OnException(history, stepErr, now)
		rec.ExceptionHistory = outcome.ExceptionHistory.Encode()
		rec.Attempts = outcome.Attempts
		rec.LastErrorAt = outcome.LastErrorAt
		if outcome.ForceMaxAttempts {
			rec.State = bridge.UnwrapFailedTransactionMaxRetry
		}
		return nil
	}
	if rec.Attempts > 0 || rec.LastErrorAt != nil {
		outcome := gov.OnSuccess()
		rec.ExceptionHistory = outcome.ExceptionHistory.Encode()
		rec.Attempts = outcome.Attempts
		rec.LastErrorAt = outcome.LastErrorAt
	}
	return nil
}

func (e *UnwrapEngine) advanceBurnInitiated(ctx context.Context, rec *bridge.UnwrapRecord) error {
	if rec.BurnAmount < e.Fees.MinUnwrapAmountBaseUnits {
		rec.State = bridge.UnwrapFailedInsufficientAmount
		return nil
	}

	receipt, err := e.Smart.Receipt(ctx, common.HexToHash(rec.BurnTxHash))
	if err != nil {
		return fmt.Errorf("get burn receipt %s: %w", rec.BurnTxHash, err)
	}
	if receipt == nil {
		return nil
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		rec.State = bridge.UnwrapBurnConfirming
		return nil
	}
	return e.classifyBurnRevert(ctx, rec, receipt)
}

// classifyBurnRevert re-executes the failed burn as a read-only call against
// the block immediately before it, matching the revert's selector against
// the token's InsufficientBalance error.
func (e *UnwrapEngine) classifyBurnRevert(ctx context.Context, rec *bridge.UnwrapRecord, receipt *types.Receipt) error {
	tx, err := e.Smart.TransactionByHash(ctx, common.HexToHash(rec.BurnTxHash))
	if err != nil {
		return fmt.Errorf("fetch burn tx for revert inspection: %w", err)
	}
	priorBlock := new(big.Int).Sub(receipt.BlockNumber, big.NewInt(1))
	msg := ethereum.CallMsg{
		From:  common.HexToAddress(rec.EthSender),
		To:    tx.To(),
		Value: tx.Value(),
		Gas:   tx.Gas(),
		Data:  tx.Data(),
	}
	_, callErr := e.Smart.CallAtBlock(ctx, msg, priorBlock)
	if callErr != nil {
		logger.Warn("burn revert inspected", "burn_tx_hash", rec.BurnTxHash, "err", callErr)
	}
	if smart.IsInsufficientBalanceRevert(extractRevertData(callErr)) {
		rec.State = bridge.UnwrapFailedInsufficientFunds
		history := bridge.DecodeExceptionHistory(rec.ExceptionHistory).Record("Insufficient balance for unwrap")
		rec.ExceptionHistory = history.Encode()
		return nil
	}
	rec.State = bridge.UnwrapFailedTransactionUnknown
	return nil
}

// dataError mirrors go-ethereum's internal rpc.DataError interface, used to
// carry the raw revert payload alongside a JSON-RPC execution error.
type dataError interface {
	ErrorData() interface{}
}

func extractRevertData(err error) []byte {
	if err == nil {
		return nil
	}
	de, ok := err.(dataError)
	if !ok {
		return nil
	}
	switch v := de.ErrorData().(type) {
	case string:
		b, decErr := hex.DecodeString(strings.TrimPrefix(v, "0x"))
		if decErr == nil {
			return b
		}
	case []byte:
		return v
	}
	return nil
}

func (e *UnwrapEngine) advanceBurnConfirming(ctx context.Context, rec *bridge.UnwrapRecord) error {
	receipt, err := e.Smart.Receipt(ctx, common.HexToHash(rec.BurnTxHash))
	if err != nil {
		return fmt.Errorf("get burn receipt %s: %w", rec.BurnTxHash, err)
	}
	if receipt == nil {
		return nil
	}
	current, err := e.Smart.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get smart chain block number: %w", err)
	}
	confirmations := int64(current) - int64(receipt.BlockNumber.Uint64()) + 1
	if confirmations < e.SmartConfirmations {
		return nil
	}
	rec.State = bridge.UnwrapBurnConfirmed
	return nil
}

// advanceBurnConfirmed builds, signs and broadcasts the native release
// transaction.
func (e *UnwrapEngine) advanceBurnConfirmed(ctx context.Context, rec *bridge.UnwrapRecord) error {
	amountToSend := rec.BurnAmount - e.Fees.NativeFeeBaseUnits
	if amountToSend <= 0 {
		rec.State = bridge.UnwrapFailedInsufficientAmount
		return nil
	}

	minSum := amountToSend + e.Fees.NativeFeeBaseUnits
	utxos, err := e.Native.ListUnspent(ctx, e.CustodialAddress, e.Fees.DustThresholdBaseUnits, minSum)
	if err != nil {
		return fmt.Errorf("list unspent: %w", err)
	}
	var total int64
	inputs := make([]native.RawInput, 0, len(utxos))
	for _, u := range utxos {
		inputs = append(inputs, native.RawInput{TxID: u.TxID, Vout: u.Vout})
		total += u.Amount
	}
	if total < minSum {
		return fmt.Errorf("insufficient funds: have %d need %d", total, minSum)
	}

	outputs := []native.RawOutput{{Address: rec.NativeRecipientAddress, Amount: amountToSend}}
	if change := total - amountToSend - e.Fees.NativeFeeBaseUnits; change > e.Fees.DustThresholdBaseUnits {
		outputs = append(outputs, native.RawOutput{Address: e.CustodialAddress, Amount: change})
	}

	payload := bridge.EncodePayload(bridge.TagUnwrap, rec.WalletID, strings.TrimPrefix(rec.NativeRecipientAddress, "0x"))
	outputs = append(outputs, native.RawOutput{OpReturnHex: hex.EncodeToString([]byte(payload))})

	rawHex, err := e.Native.CreateRaw(ctx, inputs, outputs)
	if err != nil {
		return fmt.Errorf("create raw release tx: %w", err)
	}
	signed, err := e.Native.SignWithWallet(ctx, rawHex)
	if err != nil {
		return fmt.Errorf("sign release tx: %w", err)
	}
	if !signed.Complete {
		return errors.New("release transaction signature incomplete")
	}
	txID, err := e.Native.Broadcast(ctx, signed.Hex)
	if err != nil {
		return fmt.Errorf("broadcast release tx: %w", err)
	}

	rec.NativeTxID = txID
	rec.SentNativeAmount = amountToSend
	rec.State = bridge.UnwrapNativeBroadcasted
	return nil
}

func (e *UnwrapEngine) advanceNativeBroadcasted(ctx context.Context, rec *bridge.UnwrapRecord) error {
	status, err := e.Native.GetTx(ctx, rec.NativeTxID)
	if err != nil {
		return fmt.Errorf("get native release tx %s: %w", rec.NativeTxID, err)
	}
	if status == nil || status.Confirmations < e.NativeConfirmations {
		return nil
	}
	rec.State = bridge.UnwrapCompleted
	return nil
}
