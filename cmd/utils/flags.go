// Package utils defines the CLI flags the bridge process accepts: flag var
// declarations grouped by concern, each carrying Name/Usage/Value, built on
// gopkg.in/urfave/cli.v1.
package utils

import (
	"math/big"

	"gopkg.in/urfave/cli.v1"

	"github.com/bridgefoundry/wbtc-bridge/config"
)

var (
	NativeRPCEndpointFlag = cli.StringFlag{
		Name:  "native-rpc-endpoint",
		Usage: "JSON-RPC endpoint of the native chain node",
	}
	NativeRPCUserFlag = cli.StringFlag{
		Name:  "native-rpc-user",
		Usage: "Basic auth username for the native chain node",
	}
	NativeRPCPassFlag = cli.StringFlag{
		Name:  "native-rpc-pass",
		Usage: "Basic auth password for the native chain node",
	}
	NativeNetworkFlag = cli.StringFlag{
		Name:  "native-network",
		Usage: `Native chain network ("mainnet", "testnet3", "regtest")`,
		Value: config.Default.NativeNetwork,
	}
	CustodialAddressFlag = cli.StringFlag{
		Name:  "custodial-address",
		Usage: "Native chain address the bridge custodies deposits at",
	}
	NativeChangeAddressFlag = cli.StringFlag{
		Name:  "native-change-address",
		Usage: "Native chain change address; falls back to the node wallet's own change address if unset",
	}
	NativeConfirmationsFlag = cli.Int64Flag{
		Name:  "native-confirmations",
		Usage: "Confirmation depth required before a native deposit or release is treated as final",
		Value: config.Default.NativeConfirmations,
	}

	SmartRPCEndpointFlag = cli.StringFlag{
		Name:  "smart-rpc-endpoint",
		Usage: "JSON-RPC endpoint of the smart chain node",
	}
	BridgeTokenAddressFlag = cli.StringFlag{
		Name:  "bridge-token-address",
		Usage: "Address of the deployed bridge token contract",
	}
	OwnerPrivateKeyFlag = cli.StringFlag{
		Name:  "owner-private-key",
		Usage: "Hex-encoded private key of the account authorized to mint",
	}
	SmartConfirmationsFlag = cli.Int64Flag{
		Name:  "smart-confirmations",
		Usage: "Confirmation depth required before a burn is treated as final",
		Value: config.Default.SmartConfirmations,
	}

	DBDialectFlag = cli.StringFlag{
		Name:  "db-dialect",
		Usage: "gorm dialect for the persistence store",
		Value: config.Default.DBDialect,
	}
	DBDSNFlag = cli.StringFlag{
		Name:  "db-dsn",
		Usage: "Data source name for the persistence store",
	}

	ETHFeeInTokenBaseUnitsFlag = cli.Int64Flag{
		Name:  "eth-fee-in-token-base-units",
		Usage: "Fee withheld at mint time, in wrapped-token base units",
		Value: config.Default.ETHFeeInTokenBaseUnits,
	}
	NativeFeeBaseUnitsFlag = cli.Int64Flag{
		Name:  "native-fee-base-units",
		Usage: "Fee subtracted from burn_amount before native release, in native base units",
		Value: config.Default.NativeFeeBaseUnits,
	}
	MinWrapAmountBaseUnitsFlag = cli.Int64Flag{
		Name:  "min-wrap-amount-base-units",
		Usage: "Minimum deposit amount accepted for a wrap, in native base units",
		Value: config.Default.MinWrapAmountBaseUnits,
	}
	MinUnwrapAmountBaseUnitsFlag = cli.Int64Flag{
		Name:  "min-unwrap-amount-base-units",
		Usage: "Minimum burn amount accepted for an unwrap, in token base units",
		Value: config.Default.MinUnwrapAmountBaseUnits,
	}
	DustThresholdBaseUnitsFlag = cli.Int64Flag{
		Name:  "dust-threshold-base-units",
		Usage: "Native change below this threshold is dropped instead of paid back",
		Value: config.Default.DustThresholdBaseUnits,
	}
	MaxGasPriceGweiFlag = cli.Int64Flag{
		Name:  "max-gas-price-gwei",
		Usage: "Ceiling on the smart chain gas price the bridge will pay for a mint",
		Value: new(big.Int).Div(config.Default.MaxGasPriceWei, big.NewInt(1_000_000_000)).Int64(),
	}
	MintGasLimitFlag = cli.Uint64Flag{
		Name:  "mint-gas-limit",
		Usage: "Gas limit set on mint transactions",
		Value: config.Default.MintGasLimit,
	}

	TickIntervalFlag = cli.DurationFlag{
		Name:  "tick-interval",
		Usage: "Interval between scheduler passes",
		Value: config.Default.TickInterval,
	}

	ListenAddrFlag = cli.StringFlag{
		Name:  "listen-addr",
		Usage: "HTTP listen address for the admission and read API",
		Value: config.Default.ListenAddr,
	}
	CORSOriginsFlag = cli.StringSliceFlag{
		Name:  "cors-origin",
		Usage: "Allowed CORS origin; repeatable",
	}
)

// Flags is the full flag set cmd/bridge registers on its cli.App.
var Flags = []cli.Flag{
	NativeRPCEndpointFlag, NativeRPCUserFlag, NativeRPCPassFlag, NativeNetworkFlag,
	CustodialAddressFlag, NativeChangeAddressFlag, NativeConfirmationsFlag,
	SmartRPCEndpointFlag, BridgeTokenAddressFlag, OwnerPrivateKeyFlag, SmartConfirmationsFlag,
	DBDialectFlag, DBDSNFlag,
	ETHFeeInTokenBaseUnitsFlag, NativeFeeBaseUnitsFlag, MinWrapAmountBaseUnitsFlag,
	MinUnwrapAmountBaseUnitsFlag, DustThresholdBaseUnitsFlag, MaxGasPriceGweiFlag, MintGasLimitFlag,
	TickIntervalFlag, ListenAddrFlag, CORSOriginsFlag,
}

// BuildConfig assembles a config.Config from a populated cli.Context: a
// single function translating flags into a settings struct before
// sanitize()/Validate().
func BuildConfig(ctx *cli.Context) config.Config {
	c := config.Default

	c.NativeRPCEndpoint = ctx.GlobalString(NativeRPCEndpointFlag.Name)
	c.NativeRPCUser = ctx.GlobalString(NativeRPCUserFlag.Name)
	c.NativeRPCPass = ctx.GlobalString(NativeRPCPassFlag.Name)
	c.NativeNetwork = ctx.GlobalString(NativeNetworkFlag.Name)
	c.CustodialAddress = ctx.GlobalString(CustodialAddressFlag.Name)
	c.NativeChangeAddress = ctx.GlobalString(NativeChangeAddressFlag.Name)
	c.NativeConfirmations = ctx.GlobalInt64(NativeConfirmationsFlag.Name)

	c.SmartRPCEndpoint = ctx.GlobalString(SmartRPCEndpointFlag.Name)
	c.BridgeTokenAddress = ctx.GlobalString(BridgeTokenAddressFlag.Name)
	c.OwnerPrivateKeyHex = ctx.GlobalString(OwnerPrivateKeyFlag.Name)
	c.SmartConfirmations = ctx.GlobalInt64(SmartConfirmationsFlag.Name)

	c.DBDialect = ctx.GlobalString(DBDialectFlag.Name)
	c.DBDSN = ctx.GlobalString(DBDSNFlag.Name)

	c.ETHFeeInTokenBaseUnits = ctx.GlobalInt64(ETHFeeInTokenBaseUnitsFlag.Name)
	c.NativeFeeBaseUnits = ctx.GlobalInt64(NativeFeeBaseUnitsFlag.Name)
	c.MinWrapAmountBaseUnits = ctx.GlobalInt64(MinWrapAmountBaseUnitsFlag.Name)
	c.MinUnwrapAmountBaseUnits = ctx.GlobalInt64(MinUnwrapAmountBaseUnitsFlag.Name)
	c.DustThresholdBaseUnits = ctx.GlobalInt64(DustThresholdBaseUnitsFlag.Name)
	c.MaxGasPriceWei = new(big.Int).Mul(big.NewInt(ctx.GlobalInt64(MaxGasPriceGweiFlag.Name)), big.NewInt(1_000_000_000))
	c.MintGasLimit = ctx.GlobalUint64(MintGasLimitFlag.Name)

	c.TickInterval = ctx.GlobalDuration(TickIntervalFlag.Name)

	c.ListenAddr = ctx.GlobalString(ListenAddrFlag.Name)
	c.CORSOrigins = ctx.GlobalStringSlice(CORSOriginsFlag.Name)

	return c
}
