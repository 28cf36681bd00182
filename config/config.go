// Package config holds the bridge's runtime settings, loaded by cmd/utils
// from CLI flags (gopkg.in/urfave/cli.v1), sanitized, and validated with a
// hard exit on missing required values at startup.
package config

import (
	"math/big"
	"time"

	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/internal/log"
)

var logger = log.NewModuleLogger(log.ModuleConfig)

// Config is the full set of settings the bridge process needs, built once at
// startup and passed as an explicit dependency container to the admission
// API, the engines and the scheduler, rather than held as process-wide
// globals.
type Config struct {
	// Native chain
	NativeRPCEndpoint   string
	NativeRPCUser        string
	NativeRPCPass        string
	NativeNetwork        string // "mainnet", "testnet3", "regtest"
	CustodialAddress     string
	NativeChangeAddress  string // optional; falls back to get_raw_change_address
	NativeConfirmations  int64

	// Smart chain
	SmartRPCEndpoint    string
	BridgeTokenAddress  string
	OwnerPrivateKeyHex  string
	SmartConfirmations  int64

	// Persistence
	DBDialect string
	DBDSN     string

	// Fees and minimums, all in base units
	ETHFeeInTokenBaseUnits   int64
	NativeFeeBaseUnits       int64
	MinWrapAmountBaseUnits   int64
	MinUnwrapAmountBaseUnits int64
	DustThresholdBaseUnits   int64
	MaxGasPriceWei           *big.Int
	MintGasLimit             uint64

	// Scheduler
	TickInterval time.Duration

	// HTTP
	ListenAddr     string
	CORSOrigins    []string
}

// Default is a starting point sanitize()/Validate() can adjust or reject,
// not a production-ready configuration (secrets and endpoints always come
// from flags).
var Default = Config{
	NativeNetwork:            "mainnet",
	NativeConfirmations:      6,
	SmartConfirmations:       12,
	ETHFeeInTokenBaseUnits:   100 * bridge.TokenUnit,
	NativeFeeBaseUnits:       1_000_000, // 0.01 coin
	MinWrapAmountBaseUnits:   1,
	MinUnwrapAmountBaseUnits: 1,
	DustThresholdBaseUnits:   1_000,
	MaxGasPriceWei:           big.NewInt(100_000_000_000), // 100 gwei
	MintGasLimit:             100000,
	TickInterval:             2 * time.Minute,
	DBDialect:                "mysql",
	ListenAddr:               ":8080",
}

// sanitize replaces unreasonable or unset tunables with their defaults,
// logging every substitution.
func (c *Config) sanitize() Config {
	conf := *c
	if conf.NativeConfirmations <= 0 {
		logger.Error("sanitizing invalid native confirmation depth", "provided", conf.NativeConfirmations, "updated", Default.NativeConfirmations)
		conf.NativeConfirmations = Default.NativeConfirmations
	}
	if conf.SmartConfirmations <= 0 {
		logger.Error("sanitizing invalid smart confirmation depth", "provided", conf.SmartConfirmations, "updated", Default.SmartConfirmations)
		conf.SmartConfirmations = Default.SmartConfirmations
	}
	if conf.TickInterval <= 0 {
		logger.Error("sanitizing invalid scheduler tick interval", "provided", conf.TickInterval, "updated", Default.TickInterval)
		conf.TickInterval = Default.TickInterval
	}
	if conf.MintGasLimit == 0 {
		logger.Error("sanitizing invalid mint gas limit", "provided", conf.MintGasLimit, "updated", Default.MintGasLimit)
		conf.MintGasLimit = Default.MintGasLimit
	}
	if conf.MaxGasPriceWei == nil {
		logger.Error("sanitizing missing max gas price", "provided", conf.MaxGasPriceWei, "updated", Default.MaxGasPriceWei)
		conf.MaxGasPriceWei = Default.MaxGasPriceWei
	}
	if conf.DustThresholdBaseUnits <= 0 {
		logger.Error("sanitizing invalid dust threshold", "provided", conf.DustThresholdBaseUnits, "updated", Default.DustThresholdBaseUnits)
		conf.DustThresholdBaseUnits = Default.DustThresholdBaseUnits
	}
	if conf.DBDialect == "" {
		logger.Error("sanitizing missing db dialect", "provided", conf.DBDialect, "updated", Default.DBDialect)
		conf.DBDialect = Default.DBDialect
	}
	if conf.ListenAddr == "" {
		logger.Error("sanitizing missing listen address", "provided", conf.ListenAddr, "updated", Default.ListenAddr)
		conf.ListenAddr = Default.ListenAddr
	}
	return conf
}

// Fees projects the fee-relevant fields into a bridge.Fees value consumed by
// the engines.
func (c Config) Fees() bridge.Fees {
	return bridge.Fees{
		ETHFeeInTokenBaseUnits:   c.ETHFeeInTokenBaseUnits,
		NativeFeeBaseUnits:       c.NativeFeeBaseUnits,
		MinWrapAmountBaseUnits:   c.MinWrapAmountBaseUnits,
		MinUnwrapAmountBaseUnits: c.MinUnwrapAmountBaseUnits,
		DustThresholdBaseUnits:   c.DustThresholdBaseUnits,
		MaxGasPrice:              c.MaxGasPriceWei,
		MintGasLimit:             c.MintGasLimit,
	}
}

// Validate sanitizes tunables and then hard-exits the process if a setting
// with no safe default is missing. Returns the sanitized config so callers
// can chain `cfg = cfg.Validate()`.
func (c Config) Validate() Config {
	conf := c.sanitize()

	missing := []string{}
	if conf.NativeRPCEndpoint == "" {
		missing = append(missing, "native-rpc-endpoint")
	}
	if conf.SmartRPCEndpoint == "" {
		missing = append(missing, "smart-rpc-endpoint")
	}
	if conf.CustodialAddress == "" {
		missing = append(missing, "custodial-address")
	}
	if conf.BridgeTokenAddress == "" {
		missing = append(missing, "bridge-token-address")
	}
	if conf.OwnerPrivateKeyHex == "" {
		missing = append(missing, "owner-private-key")
	}
	if conf.DBDSN == "" {
		missing = append(missing, "db-dsn")
	}

	if len(missing) > 0 {
		logger.Crit("missing required configuration", "settings", missing)
	}
	return conf
}
