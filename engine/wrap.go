// Package engine drives wrap and unwrap records through their state graphs,
// each scheduler tick processing a batch of candidate records per state and
// committing each advance independently under the retry governor. A record
// advances at most one state per tick.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	pkgerrors "github.com/pkg/errors"

	"github.com/bridgefoundry/wbtc-bridge/adapters/smart"
	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/contracts/token"
	"github.com/bridgefoundry/wbtc-bridge/internal/log"
	"github.com/bridgefoundry/wbtc-bridge/retry"
	"github.com/bridgefoundry/wbtc-bridge/store"
)

var logger = log.NewModuleLogger(log.ModuleEngine)

// defaultBatchSize bounds how many records in a given state a single tick
// considers, keeping sweep cost proportional to in-flight records rather
// than total history.
const defaultBatchSize = 100

// WrapEngine drives WrapRecords through NATIVE_BROADCASTED -> MINTING_IN_PROGRESS
// -> WRAP_COMPLETED/FAILED_*.
type WrapEngine struct {
	Store  store.Store
	Native NativeChain
	Smart  SmartChain
	Nonces MintBroadcaster

	Governor *retry.Governor
	Fees     bridge.Fees

	// NativeConfirmations is the confirmation depth K a deposit must reach
	// before a mint is issued.
	NativeConfirmations int64

	// BatchSize overrides defaultBatchSize; zero uses the default.
	BatchSize int
}

// Tick processes one batch of records in each non-terminal wrap state,
// MINTING_IN_PROGRESS first, so a record that reaches it during this tick is
// not checked for a mint receipt until the next tick.
func (e *WrapEngine) Tick(ctx context.Context) error {
	if err := e.processState(ctx, bridge.WrapMintingInProgress); err != nil {
		return err
	}
	return e.processState(ctx, bridge.WrapNativeBroadcasted)
}

func (e *WrapEngine) limit() int {
	if e.BatchSize > 0 {
		return e.BatchSize
	}
	return defaultBatchSize
}

func (e *WrapEngine) processState(ctx context.Context, state bridge.WrapState) error {
	recs, err := e.Store.WrapsInState(state, e.limit())
	if err != nil {
		return fmt.Errorf("engine: list wraps in state %s: %w", state, err)
	}
	now := time.Now().UTC()
	for _, rec := range recs {
		if !e.Governor.ShouldProcess(rec.LastErrorAt, rec.Attempts, now) {
			continue
		}
		if err := e.advance(ctx, rec.ID, state, now); err != nil {
			logger.Error("wrap advance failed", "id", rec.ID, "state", state, "err", err)
		}
	}
	return nil
}

func (e *WrapEngine) advance(ctx context.Context, id uint64, state bridge.WrapState, now time.Time) error {
	return e.Store.WithWrapLock(id, func(rec *bridge.WrapRecord) error {
		var stepErr error
		switch state {
		case bridge.WrapNativeBroadcasted:
			stepErr = e.advanceNativeBroadcasted(ctx, rec)
		case bridge.WrapMintingInProgress:
			stepErr = e.advanceMintingInProgress(ctx, rec)
		default:
			return nil
		}
		return applyWrapOutcome(e.Governor, rec, stepErr, now)
	})
}

// applyWrapOutcome folds a step's result into the record's retry bookkeeping
// inside the same row-locked transaction as the state advance itself; it
// never returns an error so the transaction always commits the bookkeeping
// update rather than rolling it back.
func applyWrapOutcome(gov *retry.Governor, rec *bridge.WrapRecord, stepErr error, now time.Time) error {
	if stepErr != nil {
		history := bridge.DecodeExceptionHistory(rec.ExceptionHistory)
		outcome := gov.OnException(history, stepErr, now)
		rec.ExceptionHistory = outcome.ExceptionHistory.Encode()
		rec.Attempts = outcome.Attempts
		rec.LastErrorAt = outcome.LastErrorAt
		if outcome.ForceMaxAttempts {
			rec.State = bridge.WrapFailedTransactionMaxRetry
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

func (e *WrapEngine) advanceNativeBroadcasted(ctx context.Context, rec *bridge.WrapRecord) error {
	if rec.DepositAmount < e.Fees.MinWrapAmountBaseUnits {
		rec.State = bridge.WrapFailedInsufficientAmount
		return nil
	}

	status, err := e.Native.GetTx(ctx, rec.NativeTxID)
	if err != nil {
		return fmt.Errorf("get native tx %s: %w", rec.NativeTxID, err)
	}
	if status == nil || status.Confirmations < e.NativeConfirmations {
		return nil
	}

	minted := rec.DepositAmount - e.Fees.ETHFeeInTokenBaseUnits
	if minted < 0 {
		rec.State = bridge.WrapFailedInsufficientAmount
		return nil
	}

	recipient, err := smart.NormalizeAddress(rec.RecipientAddress)
	if err != nil {
		return pkgerrors.Wrap(err, "normalize recipient address")
	}

	calldata, err := token.PackMint(recipient, big.NewInt(minted))
	if err != nil {
		return fmt.Errorf("pack mint calldata: %w", err)
	}

	gasPrice, err := e.mintGasPrice(ctx)
	if err != nil {
		return err
	}

	hash, err := e.Nonces.SignAndSend(ctx, e.Smart.BridgeAddress(), calldata, e.Fees.MintGasLimit, gasPrice)
	if err != nil {
		return fmt.Errorf("sign and send mint tx: %w", err)
	}

	rec.MintedTokenAmount = minted
	rec.MintTxHash = hash.Hex()
	rec.State = bridge.WrapMintingInProgress
	return nil
}

// mintGasPrice computes min(1.1 * suggested_gas_price, MaxGasPrice).
func (e *WrapEngine) mintGasPrice(ctx context.Context) (*big.Int, error) {
	suggested, err := e.Smart.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch gas price: %w", err)
	}
	price := new(big.Int).Mul(suggested, big.NewInt(11))
	price.Div(price, big.NewInt(10))
	if e.Fees.MaxGasPrice != nil && price.Cmp(e.Fees.MaxGasPrice) > 0 {
		price = new(big.Int).Set(e.Fees.MaxGasPrice)
	}
	return price, nil
}

func (e *WrapEngine) advanceMintingInProgress(ctx context.Context, rec *bridge.WrapRecord) error {
	receipt, err := e.Smart.Receipt(ctx, common.HexToHash(rec.MintTxHash))
	if err != nil {
		return fmt.Errorf("get mint receipt %s: %w", rec.MintTxHash, err)
	}
	if receipt == nil {
		return nil
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		rec.State = bridge.WrapCompleted
		return nil
	}
	rec.State = bridge.WrapFailedTransactionUnknown
	return nil
}
