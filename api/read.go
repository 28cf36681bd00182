package api

import (
	"encoding/hex"
	"net/http"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/julienschmidt/httprouter"

	"github.com/bridgefoundry/wbtc-bridge/adapters/smart"
	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/contracts/token"
)

type wrapStatusResponse struct {
	NativeTxID        string           `json:"native_tx_id"`
	WalletID          string           `json:"wallet_id"`
	RecipientAddress  string           `json:"recipient_address"`
	DepositAmount     int64            `json:"deposit_amount_base_units"`
	MintedTokenAmount int64            `json:"minted_token_amount_base_units"`
	Status            bridge.WrapState `json:"status"`
	MintTxHash        string           `json:"mint_tx_hash,omitempty"`
}

func projectWrap(rec *bridge.WrapRecord) wrapStatusResponse {
	return wrapStatusResponse{
		NativeTxID:        rec.NativeTxID,
		WalletID:          rec.WalletID,
		RecipientAddress:  rec.RecipientAddress,
		DepositAmount:     rec.DepositAmount,
		MintedTokenAmount: rec.MintedTokenAmount,
		Status:            rec.State,
		MintTxHash:        rec.MintTxHash,
	}
}

// WrapStatus serves GET /wrap-status/:native_tx_id.
func (s *Server) WrapStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, err := s.Store.GetWrapByNativeTxID(ps.ByName("native_tx_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no wrap found for that native transaction id")
		return
	}
	writeJSON(w, http.StatusOK, projectWrap(rec))
}

// WrapHistory serves GET /wrap-history/:wallet_id.
func (s *Server) WrapHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	recs, err := s.Store.WrapHistory(ps.ByName("wallet_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	out := make([]wrapStatusResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, projectWrap(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type unwrapStatusResponse struct {
	BurnTxHash             string             `json:"burn_tx_hash"`
	WalletID               string             `json:"wallet_id"`
	NativeRecipientAddress string             `json:"native_recipient_address"`
	BurnAmount             int64              `json:"burn_amount_base_units"`
	SentNativeAmount       int64              `json:"sent_native_amount_base_units"`
	Status                 bridge.UnwrapState `json:"status"`
	NativeTxID             string             `json:"native_tx_id,omitempty"`
}

func projectUnwrap(rec *bridge.UnwrapRecord) unwrapStatusResponse {
	return unwrapStatusResponse{
		BurnTxHash:             rec.BurnTxHash,
		WalletID:               rec.WalletID,
		NativeRecipientAddress: rec.NativeRecipientAddress,
		BurnAmount:             rec.BurnAmount,
		SentNativeAmount:       rec.SentNativeAmount,
		Status:                 rec.State,
		NativeTxID:             rec.NativeTxID,
	}
}

// UnwrapStatus serves GET /unwrap-status/:burn_tx_hash.
func (s *Server) UnwrapStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, err := s.Store.GetUnwrapByBurnTxHash(ps.ByName("burn_tx_hash"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no unwrap found for that burn transaction hash")
		return
	}
	writeJSON(w, http.StatusOK, projectUnwrap(rec))
}

// UnwrapHistory serves GET /unwrap-history/:wallet_id.
func (s *Server) UnwrapHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	recs, err := s.Store.UnwrapHistory(ps.ByName("wallet_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	out := make([]unwrapStatusResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, projectUnwrap(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// WrapFee serves GET /wrap-fee.
func (s *Server) WrapFee(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	gasPrice, err := s.Smart.GasPrice(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch gas price")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"eth_fee_in_token_base_units": s.Fees.ETHFeeInTokenBaseUnits,
		"min_wrap_amount_base_units":  s.Fees.MinWrapAmountBaseUnits,
		"gas_price_wei":               gasPrice.String(),
		"mint_gas_limit":              s.Fees.MintGasLimit,
	})
}

// UnwrapFee serves GET /unwrap-fee.
func (s *Server) UnwrapFee(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"native_fee_base_units":          s.Fees.NativeFeeBaseUnits,
		"min_unwrap_amount_base_units":   s.Fees.MinUnwrapAmountBaseUnits,
		"dust_threshold_base_units":      s.Fees.DustThresholdBaseUnits,
	})
}

// BridgeAddresses serves GET /bridge-addresses.
func (s *Server) BridgeAddresses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{
		"custodial_native_address": s.CustodialAddress,
		"token_contract_address":   s.TokenAddress.Hex(),
	})
}

// BridgeInfo serves GET /bridge-info, a consolidated payload combining the
// bridge's addresses, smart chain id, gas policy and the token contract's
// ABI fragment so a client can build and sign its own wrap/unwrap
// transactions without separately fetching each piece.
func (s *Server) BridgeInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	gasPrice, err := s.Smart.GasPrice(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch gas price")
		return
	}
	selector := smart.BurnSelector()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"custodial_native_address":    s.CustodialAddress,
		"token_contract_address":      s.TokenAddress.Hex(),
		"smart_chain_id":              s.Smart.ChainID().String(),
		"burn_selector":               hex.EncodeToString(selector[:]),
		"token_abi":                   token.BridgeTokenABI,
		"gas_price_wei":               gasPrice.String(),
		"mint_gas_limit":              s.Fees.MintGasLimit,
		"eth_fee_in_token_base_units": s.Fees.ETHFeeInTokenBaseUnits,
		"native_fee_base_units":       s.Fees.NativeFeeBaseUnits,
		"min_wrap_amount_base_units":  s.Fees.MinWrapAmountBaseUnits,
		"min_unwrap_amount_base_units": s.Fees.MinUnwrapAmountBaseUnits,
	})
}

// UnwrapEthTransactionCount serves GET /unwrap-eth-transaction-count/:address.
// The nonce a client should use for its next burn is the larger of what the
// chain reports and how many unwraps the bridge has already admitted for
// that sender, since an admitted-but-not-yet-mined burn would otherwise be
// double-counted against.
func (s *Server) UnwrapEthTransactionCount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr, err := smart.NormalizeAddress(ps.ByName("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	chainCount, err := s.Smart.NonceAt(r.Context(), addr)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch transaction count")
		return
	}
	recordCount, err := s.Store.UnwrapCountForSender(addr.Hex())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	final := chainCount
	if uint64(recordCount) > final {
		final = uint64(recordCount)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"eth_transaction_count":    chainCount,
		"unwrap_transaction_count": recordCount,
		"final_nonce":              final,
		"chain_id":                 s.Smart.ChainID().String(),
	})
}

// EthAddressBalance serves GET /eth-address/:address/balance, reporting both
// the address's native smart chain coin balance and its wrapped token
// balance.
func (s *Server) EthAddressBalance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr, err := smart.NormalizeAddress(ps.ByName("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	ethBalance, err := s.Smart.BalanceAt(r.Context(), addr)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch balance")
		return
	}
	contract, err := token.NewBridgeToken(s.TokenAddress, s.Smart.Caller())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to bind token contract")
		return
	}
	tokenBalance, err := contract.BalanceOf(&bind.CallOpts{Context: r.Context()}, addr)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch token balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"eth_balance_wei":       ethBalance.String(),
		"wrapped_token_balance": tokenBalance.String(),
	})
}
