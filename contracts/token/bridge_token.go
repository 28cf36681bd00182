// This binding is hand-maintained in place of the toolchain's output (no
// solc/abigen available in this environment) but follows the
// generated-binding shape abigen itself produces, built on
// github.com/ethereum/go-ethereum's accounts/abi/bind.
package token

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// BridgeTokenABI is the input ABI used to generate the binding from. It
// covers only the surface this bridge uses: mint, burn, balanceOf, and the
// Transfer and Burn events (only Burn has filter/watch bindings here).
const BridgeTokenABI = `[
{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"mint","outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"},
{"constant":false,"inputs":[{"name":"amount","type":"uint256"},{"name":"nativeAddress","type":"bytes"}],"name":"burn","outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"nativeAddress","type":"bytes"}],"name":"Burn","type":"event"}
]`

// BridgeToken is an auto generated Go binding around an Ethereum contract.
type BridgeToken struct {
	BridgeTokenCaller     // Read-only binding to the contract
	BridgeTokenTransactor // Write-only binding to the contract
	BridgeTokenFilterer   // Log filterer for contract events
}

// BridgeTokenCaller is an auto generated read-only Go binding around an Ethereum contract.
type BridgeTokenCaller struct {
	contract *bind.BoundContract
}

// BridgeTokenTransactor is an auto generated write-only Go binding around an Ethereum contract.
type BridgeTokenTransactor struct {
	contract *bind.BoundContract
}

// BridgeTokenFilterer is an auto generated log filtering Go binding around an Ethereum contract events.
type BridgeTokenFilterer struct {
	contract *bind.BoundContract
}

// BridgeTokenSession is an auto generated Go binding around an Ethereum contract,
// with pre-set call and transact options.
type BridgeTokenSession struct {
	Contract     *BridgeToken
	CallOpts     bind.CallOpts
	TransactOpts bind.TransactOpts
}

var parsedBridgeTokenABI abi.ABI

func init() {
	var err error
	parsedBridgeTokenABI, err = abi.JSON(strings.NewReader(BridgeTokenABI))
	if err != nil {
		panic(err)
	}
}

// PackMint ABI-encodes a call to mint(address,uint256), used by the wrap
// engine to build the mint transaction it signs with the owner key directly
// rather than through bind's own transactor, since the engine needs to
// control nonce/gas price/broadcast itself (see adapters/smart.SendRaw's
// "already known" handling).
func PackMint(to common.Address, amount *big.Int) ([]byte, error) {
	return parsedBridgeTokenABI.Pack("mint", to, amount)
}

// UnpackBurn decodes the (amount, nativeAddress) parameters of a
// burn(uint256,bytes) call from calldata that still carries its 4-byte
// selector.
func UnpackBurn(calldata []byte) (amount *big.Int, nativeAddress []byte, err error) {
	method, ok := parsedBridgeTokenABI.Methods["burn"]
	if !ok {
		return nil, nil, errors.New("token: burn method missing from ABI")
	}
	if len(calldata) < 4 {
		return nil, nil, errors.New("token: calldata shorter than a selector")
	}
	values, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return nil, nil, err
	}
	amount = *abi.ConvertType(values[0], new(*big.Int)).(**big.Int)
	nativeAddress = *abi.ConvertType(values[1], new([]byte)).(*[]byte)
	return amount, nativeAddress, nil
}

// NewBridgeToken creates a new instance of BridgeToken, bound to a specific deployed contract.
func NewBridgeToken(address common.Address, backend bind.ContractBackend) (*BridgeToken, error) {
	contract, err := bindBridgeToken(address, backend, backend, backend)
	if err != nil {
		return nil, err
	}
	return &BridgeToken{
		BridgeTokenCaller:     BridgeTokenCaller{contract: contract},
		BridgeTokenTransactor: BridgeTokenTransactor{contract: contract},
		BridgeTokenFilterer:   BridgeTokenFilterer{contract: contract},
	}, nil
}

func bindBridgeToken(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*bind.BoundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(BridgeTokenABI))
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(address, parsed, caller, transactor, filterer), nil
}

// BalanceOf is a free data retrieval call binding the contract method balanceOf.
//
// Solidity: function balanceOf(address owner) constant returns(uint256)
func (_BridgeToken *BridgeTokenCaller) BalanceOf(opts *bind.CallOpts, owner common.Address) (*big.Int, error) {
	var out []interface{}
	err := _BridgeToken.contract.Call(opts, &out, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// BalanceOf calls BalanceOf using the session's preset call options.
func (_BridgeToken *BridgeTokenSession) BalanceOf(owner common.Address) (*big.Int, error) {
	return _BridgeToken.Contract.BalanceOf(&_BridgeToken.CallOpts, owner)
}

// Mint is a paid mutator transaction binding the contract method mint.
//
// Solidity: function mint(address to, uint256 amount) returns()
func (_BridgeToken *BridgeTokenTransactor) Mint(opts *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error) {
	return _BridgeToken.contract.Transact(opts, "mint", to, amount)
}

// Mint transacts using the session's preset transact options.
func (_BridgeToken *BridgeTokenSession) Mint(to common.Address, amount *big.Int) (*types.Transaction, error) {
	return _BridgeToken.Contract.Mint(&_BridgeToken.TransactOpts, to, amount)
}

// Burn is a paid mutator transaction binding the contract method burn.
//
// Solidity: function burn(uint256 amount, bytes nativeAddress) returns()
func (_BridgeToken *BridgeTokenTransactor) Burn(opts *bind.TransactOpts, amount *big.Int, nativeAddress []byte) (*types.Transaction, error) {
	return _BridgeToken.contract.Transact(opts, "burn", amount, nativeAddress)
}

// Burn transacts using the session's preset transact options.
func (_BridgeToken *BridgeTokenSession) Burn(amount *big.Int, nativeAddress []byte) (*types.Transaction, error) {
	return _BridgeToken.Contract.Burn(&_BridgeToken.TransactOpts, amount, nativeAddress)
}

// BridgeTokenBurn represents a Burn event raised by BridgeToken.
type BridgeTokenBurn struct {
	Account       common.Address
	Amount        *big.Int
	NativeAddress []byte
	Raw           types.Log
}

// FilterBurn returns an iterator-free one-shot filter over historical Burn logs, mirroring
// the pattern of generated FilterX methods but returning a plain slice since the bridge only
// needs bounded-range lookups, not long-lived subscriptions.
func (_BridgeToken *BridgeTokenFilterer) FilterBurn(opts *bind.FilterOpts, account []common.Address) ([]*BridgeTokenBurn, error) {
	var accountRule []interface{}
	for _, a := range account {
		accountRule = append(accountRule, a)
	}
	logs, sub, err := _BridgeToken.contract.FilterLogs(opts, "Burn", accountRule)
	if err != nil {
		return nil, err
	}
	defer func() {
		if sub != nil {
			sub.Unsubscribe()
		}
	}()

	var events []*BridgeTokenBurn
	for {
		select {
		case vLog := <-logs:
			event := new(BridgeTokenBurn)
			if err := _BridgeToken.contract.UnpackLog(event, "Burn", vLog); err != nil {
				return nil, err
			}
			event.Raw = vLog
			events = append(events, event)
		case err := <-sub.Err():
			if err != nil {
				return nil, err
			}
			if len(logs) == 0 {
				return events, nil
			}
		}
	}
}

// WatchBurn subscribes to new Burn events, matching the generated WatchX shape.
func (_BridgeToken *BridgeTokenFilterer) WatchBurn(opts *bind.WatchOpts, sink chan<- *BridgeTokenBurn, account []common.Address) (event.Subscription, error) {
	var accountRule []interface{}
	for _, a := range account {
		accountRule = append(accountRule, a)
	}
	logs, sub, err := _BridgeToken.contract.WatchLogs(opts, "Burn", accountRule)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				ev := new(BridgeTokenBurn)
				if err := _BridgeToken.contract.UnpackLog(ev, "Burn", log); err != nil {
					return err
				}
				ev.Raw = log
				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}
