package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/julienschmidt/httprouter"

	"github.com/bridgefoundry/wbtc-bridge/adapters/smart"
	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/contracts/token"
	"github.com/bridgefoundry/wbtc-bridge/store"
)

type wrapAdmissionRequest struct {
	SignedNativeTx string `json:"signed_native_tx"`
}

type wrapAdmissionResponse struct {
	NativeTxID string           `json:"native_tx_id"`
	Status     bridge.WrapState `json:"status"`
}

// InitiateWrap admits a signed native deposit transaction without trusting
// any client-supplied metadata: it decodes the raw transaction itself,
// recovers the OP_RETURN payload and the amount paid to the custodial
// address, rejects anything below the minimum or carrying an unparseable
// payload, then broadcasts and records the deposit in NATIVE_BROADCASTED.
func (s *Server) InitiateWrap(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req wrapAdmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SignedNativeTx == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decoded, err := s.Native.DecodeRaw(req.SignedNativeTx)
	if err != nil {
		writeError(w, http.StatusBadRequest, "undecodable native transaction")
		return
	}

	var payload []byte
	var depositAmount int64
	for _, out := range decoded.Outputs {
		if out.OpReturnPayload != nil {
			payload = out.OpReturnPayload
		}
		if out.Address == s.CustodialAddress {
			depositAmount += out.Value
		}
	}
	if payload == nil {
		writeError(w, http.StatusBadRequest, "transaction carries no op_return payload")
		return
	}
	tag, walletID, recipient, err := bridge.ParsePayload(payload)
	if err != nil || tag != bridge.TagWrap {
		writeError(w, http.StatusBadRequest, "unparseable op_return payload")
		return
	}
	if depositAmount < s.Fees.MinWrapAmountBaseUnits {
		writeError(w, http.StatusBadRequest, "deposit amount below minimum")
		return
	}
	recipientAddr, err := smart.NormalizeAddress(recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient address")
		return
	}

	nativeTxID, err := s.Native.Broadcast(r.Context(), req.SignedNativeTx)
	if err != nil {
		logger.Error("native broadcast failed", "err", err)
		writeError(w, http.StatusBadGateway, "broadcast failed")
		return
	}

	rec := &bridge.WrapRecord{
		NativeTxID:        nativeTxID,
		WalletID:          walletID,
		RecipientAddress:  recipientAddr.Hex(),
		DepositAmount:     depositAmount,
		State:             bridge.WrapNativeBroadcasted,
	}
	if err := s.Store.InsertWrap(rec); err != nil {
		if err == store.ErrDuplicateRecord {
			if existing, getErr := s.Store.GetWrapByNativeTxID(nativeTxID); getErr == nil && existing != nil {
				writeJSON(w, http.StatusOK, wrapAdmissionResponse{NativeTxID: existing.NativeTxID, Status: existing.State})
				return
			}
		}
		logger.Error("failed to insert wrap record", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to persist deposit")
		return
	}
	writeJSON(w, http.StatusOK, wrapAdmissionResponse{NativeTxID: rec.NativeTxID, Status: rec.State})
}

type unwrapAdmissionRequest struct {
	SignedEthTx string `json:"signed_eth_tx"`
}

type unwrapAdmissionResponse struct {
	BurnTxHash string             `json:"burn_tx_hash"`
	Status     bridge.UnwrapState `json:"status"`
}

// InitiateUnwrap admits a signed smart-chain burn transaction, decoded and
// validated independently of anything the client asserts: destination must
// be the bridge token contract, calldata must carry the burn selector, the
// amount must clear the minimum, and the carried nativeAddress payload must
// parse. A valid burn is broadcast and recorded in BURN_INITIATED.
func (s *Server) InitiateUnwrap(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req unwrapAdmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SignedEthTx == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	raw, err := hexDecode(req.SignedEthTx)
	if err != nil {
		writeError(w, http.StatusBadRequest, "undecodable smart chain transaction")
		return
	}
	decoded, err := smart.DecodeSignedRaw(raw, s.Smart.ChainID())
	if err != nil {
		writeError(w, http.StatusBadRequest, "undecodable smart chain transaction")
		return
	}
	if decoded.To == nil || *decoded.To != s.TokenAddress {
		writeError(w, http.StatusBadRequest, "transaction is not addressed to the bridge token contract")
		return
	}
	selector := smart.BurnSelector()
	if len(decoded.Data) < 4 || [4]byte(decoded.Data[:4]) != selector {
		writeError(w, http.StatusBadRequest, "transaction does not call burn")
		return
	}
	amount, nativeAddress, err := token.UnpackBurn(decoded.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unparseable burn calldata")
		return
	}
	tag, walletID, recipient, err := bridge.ParsePayload(nativeAddress)
	if err != nil || tag != bridge.TagUnwrap {
		writeError(w, http.StatusBadRequest, "unparseable burn nativeAddress payload")
		return
	}
	burnAmount := amount.Int64()
	if burnAmount < s.Fees.MinUnwrapAmountBaseUnits {
		writeError(w, http.StatusBadRequest, "burn amount below minimum")
		return
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		writeError(w, http.StatusBadRequest, "undecodable smart chain transaction")
		return
	}
	burnHash, err := s.Smart.SendRaw(r.Context(), tx)
	if err != nil {
		logger.Error("smart chain broadcast failed", "err", err)
		writeError(w, http.StatusBadGateway, "broadcast failed")
		return
	}

	rec := &bridge.UnwrapRecord{
		BurnTxHash:             burnHash.Hex(),
		WalletID:               walletID,
		NativeRecipientAddress: recipient,
		BurnAmount:             burnAmount,
		EthSender:              decoded.Sender.Hex(),
		State:                  bridge.UnwrapBurnInitiated,
	}
	if err := s.Store.InsertUnwrap(rec); err != nil {
		if err == store.ErrDuplicateRecord {
			if existing, getErr := s.Store.GetUnwrapByBurnTxHash(rec.BurnTxHash); getErr == nil && existing != nil {
				writeJSON(w, http.StatusOK, unwrapAdmissionResponse{BurnTxHash: existing.BurnTxHash, Status: existing.State})
				return
			}
		}
		logger.Error("failed to insert unwrap record", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to persist burn")
		return
	}
	writeJSON(w, http.StatusOK, unwrapAdmissionResponse{BurnTxHash: rec.BurnTxHash, Status: rec.State})
}
