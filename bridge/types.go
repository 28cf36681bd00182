// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from node/sc/bridge_manager.go (2018/06/04).
// Adapted for the custodial wrap/unwrap lifecycle engine.

// Package bridge holds the durable record types and state graphs shared by
// the wrap and unwrap engines, the retry governor, the persistence store and
// the admission/read APIs.
package bridge

import (
	"math/big"
	"time"
)

// TokenUnit is the number of base units per whole wrapped token.
const TokenUnit = 100000000 // 10^8

// Tag identifies the OP_RETURN payload kind carried by a native-chain
// transaction, matching TokenReceivedEvent/TokenTransferEvent's role in the
// teacher's BridgeManager but for the native rather than the smart side.
type Tag string

const (
	TagWrap   Tag = "wrp"
	TagUnwrap Tag = "un"
)

// WrapState is a node in the wrap lifecycle's state graph.
type WrapState string

const (
	WrapNativeBroadcasted          WrapState = "NATIVE_BROADCASTED"
	WrapMintingInProgress          WrapState = "MINTING_IN_PROGRESS"
	WrapCompleted                  WrapState = "WRAP_COMPLETED"
	WrapFailedInsufficientAmount   WrapState = "FAILED_INSUFFICIENT_AMOUNT"
	WrapFailedTransactionUnknown   WrapState = "FAILED_TRANSACTION_UNKNOWN"
	WrapFailedTransactionMaxRetry  WrapState = "FAILED_TRANSACTION_MAX_ATTEMPTS"
)

// WrapTerminal reports whether a wrap state accepts no further transitions.
func WrapTerminal(s WrapState) bool {
	switch s {
	case WrapCompleted, WrapFailedInsufficientAmount, WrapFailedTransactionUnknown, WrapFailedTransactionMaxRetry:
		return true
	default:
		return false
	}
}

// wrapEdges is the directed state graph; a transition not present here is
// forbidden.
var wrapEdges = map[WrapState]map[WrapState]bool{
	WrapNativeBroadcasted: {
		WrapMintingInProgress:         true,
		WrapFailedInsufficientAmount:  true,
		WrapFailedTransactionMaxRetry: true,
	},
	WrapMintingInProgress: {
		WrapCompleted:                 true,
		WrapFailedTransactionUnknown:  true,
		WrapFailedTransactionMaxRetry: true,
	},
}

// WrapTransitionAllowed checks an edge against the wrap state graph.
func WrapTransitionAllowed(from, to WrapState) bool {
	if from == to {
		return true
	}
	edges, ok := wrapEdges[from]
	if !ok {
		return false
	}
	return edges[to]
}

// UnwrapState is a node in the unwrap lifecycle's state graph.
type UnwrapState string

const (
	UnwrapBurnInitiated              UnwrapState = "BURN_INITIATED"
	UnwrapBurnConfirming             UnwrapState = "BURN_CONFIRMING"
	UnwrapBurnConfirmed              UnwrapState = "BURN_CONFIRMED"
	UnwrapNativeBroadcasted          UnwrapState = "NATIVE_BROADCASTED"
	UnwrapCompleted                  UnwrapState = "UNWRAP_COMPLETED"
	UnwrapFailedInsufficientAmount   UnwrapState = "FAILED_INSUFFICIENT_AMOUNT"
	UnwrapFailedInsufficientFunds    UnwrapState = "FAILED_INSUFFICIENT_FUNDS"
	UnwrapFailedTransactionUnknown   UnwrapState = "FAILED_TRANSACTION_UNKNOWN"
	UnwrapFailedTransactionMaxRetry  UnwrapState = "FAILED_TRANSACTION_MAX_ATTEMPTS"
)

// UnwrapTerminal reports whether an unwrap state accepts no further transitions.
func UnwrapTerminal(s UnwrapState) bool {
	switch s {
	case UnwrapCompleted, UnwrapFailedInsufficientAmount, UnwrapFailedInsufficientFunds,
		UnwrapFailedTransactionUnknown, UnwrapFailedTransactionMaxRetry:
		return true
	default:
		return false
	}
}

var unwrapEdges = map[UnwrapState]map[UnwrapState]bool{
	UnwrapBurnInitiated: {
		UnwrapBurnConfirming:            true,
		UnwrapFailedInsufficientAmount:  true,
		UnwrapFailedInsufficientFunds:   true,
		UnwrapFailedTransactionUnknown:  true,
		UnwrapFailedTransactionMaxRetry: true,
	},
	UnwrapBurnConfirming: {
		UnwrapBurnConfirmed:             true,
		UnwrapFailedTransactionMaxRetry: true,
	},
	UnwrapBurnConfirmed: {
		UnwrapNativeBroadcasted:         true,
		UnwrapFailedInsufficientAmount:  true,
		UnwrapFailedTransactionMaxRetry: true,
	},
	UnwrapNativeBroadcasted: {
		UnwrapCompleted:                 true,
		UnwrapFailedTransactionMaxRetry: true,
	},
}

// UnwrapTransitionAllowed checks an edge against the unwrap state graph.
func UnwrapTransitionAllowed(from, to UnwrapState) bool {
	if from == to {
		return true
	}
	edges, ok := unwrapEdges[from]
	if !ok {
		return false
	}
	return edges[to]
}

// MaxAttempts is the retry governor's cap on attempts before a record is
// moved to its terminal max-retry state.
const MaxAttempts = 10

// MaxExceptionHistory bounds the number of distinct exception messages kept
// per record.
const MaxExceptionHistory = 32

// MaxExceptionMessageLen truncates an individual exception message.
const MaxExceptionMessageLen = 256

// MaxWalletIDLen bounds the client-chosen wallet_id.
const MaxWalletIDLen = 128

// WrapRecord is the durable row tracking a single deposit-to-mint.
type WrapRecord struct {
	ID                 uint64    `gorm:"primary_key"`
	NativeTxID         string    `gorm:"unique_index;size:128;not null"`
	WalletID           string    `gorm:"index;size:128;not null"`
	RecipientAddress   string    `gorm:"size:42;not null"`
	DepositAmount      int64     `gorm:"not null"` // native base units (satoshi-equivalent)
	MintedTokenAmount  int64     // token base units, set at mint time
	State              WrapState `gorm:"index;size:40;not null"`
	MintTxHash         string    `gorm:"size:80"`
	ExceptionHistory   string    `gorm:"type:text"` // JSON-encoded map[string]int
	Attempts           int
	LastErrorAt        *time.Time
	CreatedAt          time.Time
}

// UnwrapRecord is the durable row tracking a single burn-to-release.
type UnwrapRecord struct {
	ID                      uint64      `gorm:"primary_key"`
	BurnTxHash              string      `gorm:"unique_index;size:80;not null"`
	WalletID                string      `gorm:"index;size:128;not null"`
	NativeRecipientAddress  string      `gorm:"size:64;not null"`
	BurnAmount              int64       `gorm:"not null"` // native base units
	EthSender               string      `gorm:"size:42;not null"`
	State                   UnwrapState `gorm:"index;size:40;not null"`
	NativeTxID              string      `gorm:"size:128"`
	SentNativeAmount        int64
	ExceptionHistory        string `gorm:"type:text"`
	Attempts                int
	LastErrorAt             *time.Time
	CreatedAt               time.Time
}

// Fees holds the bridge's configured fee and minimum-amount policy.
type Fees struct {
	ETHFeeInTokenBaseUnits int64 // withheld at mint time, in token base units
	NativeFeeBaseUnits     int64 // subtracted from burn_amount before release
	MinWrapAmountBaseUnits int64
	MinUnwrapAmountBaseUnits int64
	DustThresholdBaseUnits int64
	MaxGasPrice            *big.Int
	MintGasLimit            uint64
}
