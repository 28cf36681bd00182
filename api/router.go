package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// Handler builds the full routed, CORS-wrapped HTTP handler for the
// admission and read APIs.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	router.POST("/initiate-wrap/", s.InitiateWrap)
	router.POST("/initiate-unwrap/", s.InitiateUnwrap)

	router.GET("/wrap-status/:native_tx_id", s.WrapStatus)
	router.GET("/unwrap-status/:burn_tx_hash", s.UnwrapStatus)
	router.GET("/wrap-history/:wallet_id", s.WrapHistory)
	router.GET("/unwrap-history/:wallet_id", s.UnwrapHistory)
	router.GET("/wrap-fee", s.WrapFee)
	router.GET("/unwrap-fee", s.UnwrapFee)
	router.GET("/bridge-info", s.BridgeInfo)
	router.GET("/bridge-addresses", s.BridgeAddresses)
	router.GET("/unwrap-eth-transaction-count/:address", s.UnwrapEthTransactionCount)
	router.GET("/eth-address/:address/balance", s.EthAddressBalance)

	c := cors.New(cors.Options{
		AllowedOrigins: s.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}
