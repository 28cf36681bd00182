// Command bridge runs the custodial wrap/unwrap process: the admission and
// read HTTP API (api package) and the wrap/unwrap scheduler (engine,
// scheduler packages) share one store and one pair of chain adapters, wired
// up by a single cli.App that starts the long-lived services before
// blocking on an interrupt signal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/urfave/cli.v1"

	"github.com/bridgefoundry/wbtc-bridge/adapters/native"
	"github.com/bridgefoundry/wbtc-bridge/adapters/smart"
	"github.com/bridgefoundry/wbtc-bridge/api"
	"github.com/bridgefoundry/wbtc-bridge/cmd/utils"
	"github.com/bridgefoundry/wbtc-bridge/config"
	"github.com/bridgefoundry/wbtc-bridge/engine"
	"github.com/bridgefoundry/wbtc-bridge/internal/log"
	"github.com/bridgefoundry/wbtc-bridge/retry"
	"github.com/bridgefoundry/wbtc-bridge/scheduler"
	"github.com/bridgefoundry/wbtc-bridge/store"
)

var logger = log.NewModuleLogger(log.ModuleCmd)

func main() {
	app := cli.NewApp()
	app.Name = "wbtc-bridge"
	app.Usage = "Custodial wrap/unwrap bridge between a native UTXO chain and an EVM smart chain"
	app.Flags = utils.Flags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg := utils.BuildConfig(ctx).Validate()

	nativeParams, err := nativeChainParams(cfg.NativeNetwork)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DBDialect, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	nativeAdapter := native.New(cfg.NativeRPCEndpoint, cfg.NativeRPCUser, cfg.NativeRPCPass, nativeParams, cfg.NativeChangeAddress)

	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokenAddr := common.HexToAddress(cfg.BridgeTokenAddress)
	smartAdapter, err := smart.New(bgCtx, cfg.SmartRPCEndpoint, tokenAddr)
	if err != nil {
		return fmt.Errorf("dial smart chain: %w", err)
	}

	ownerKey, err := crypto.HexToECDSA(cfg.OwnerPrivateKeyHex)
	if err != nil {
		return fmt.Errorf("parse owner private key: %w", err)
	}
	nonces := smart.NewOwnerNonceManager(smartAdapter, ownerKey)
	logger.Info("bridge starting", "owner_address", nonces.Owner().Hex(), "token_address", tokenAddr.Hex())

	fees := cfg.Fees()

	wrapEngine := &engine.WrapEngine{
		Store:               db,
		Native:               nativeAdapter,
		Smart:                smartAdapter,
		Nonces:               nonces,
		Governor:             retry.New(retry.DefaultConfig),
		Fees:                 fees,
		NativeConfirmations:  cfg.NativeConfirmations,
	}
	unwrapEngine := &engine.UnwrapEngine{
		Store:               db,
		Native:               nativeAdapter,
		Smart:                smartAdapter,
		Governor:             retry.New(retry.DefaultConfig),
		Fees:                 fees,
		CustodialAddress:     cfg.CustodialAddress,
		NativeConfirmations:  cfg.NativeConfirmations,
		SmartConfirmations:   cfg.SmartConfirmations,
	}
	sched := scheduler.New(cfg.TickInterval, wrapEngine, unwrapEngine)

	apiServer := &api.Server{
		Store:            db,
		Native:            nativeAdapter,
		Smart:             smartAdapter,
		CustodialAddress:  cfg.CustodialAddress,
		TokenAddress:      tokenAddr,
		Fees:              fees,
		CORSOrigins:       cfg.CORSOrigins,
	}
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: apiServer.Handler(),
	}

	go sched.Run(bgCtx)

	go func() {
		logger.Info("admission and read API listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "err", err)
		}
	}()

	waitForShutdown()

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("bridge stopped")
	return nil
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutdown signal received")
}

func nativeChainParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown native network %q", network)
	}
}
