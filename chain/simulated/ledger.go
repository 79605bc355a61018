package simulated

import (
	"fmt"
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/params"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/chain/config"
	"github.com/thpani/fuzz-pb25/chain/types"
)

// Call describes the context a native contract is invoked with.
type Call struct {
	// Caller is the transaction sender.
	Caller common.Address
	// Address is the address of the contract being called.
	Address common.Address
	// Value is the ether value sent along with the call.
	Value *big.Int
	// Input is the raw calldata.
	Input []byte
	// ChainID is the chain identifier of the ledger hosting the contract.
	ChainID *big.Int
	// Timestamp is the timestamp of the pseudo-block the call executes in.
	Timestamp uint64
}

// Contract describes a contract implemented natively in Go. A contract which returns an error must leave its state
// untouched, as the ledger cannot roll it back.
type Contract interface {
	// Run executes a call against the contract. A *RevertError reverts with its payload, any other error reverts with
	// an empty payload.
	Run(call *Call) ([]byte, error)
}

// Constructor creates a native contract deployed by the provided account at the provided address.
type Constructor func(deployer common.Address, address common.Address, chainID *big.Int) (Contract, error)

// RevertError describes a contract revert carrying an ABI-encoded payload.
type RevertError struct {
	Data []byte
}

// Error returns the error message representing this error.
func (e *RevertError) Error() string {
	return fmt.Sprintf("execution reverted: 0x%x", e.Data)
}

// factory binds deployable init code to the native contract it creates.
type factory struct {
	runtimeCode []byte
	constructor Constructor
}

// Ledger is a chain.Ledger hosting Go-native contracts instead of an EVM. It validates signatures and nonces like a
// real chain, deploys contracts whose init code was registered through RegisterFactory, and dispatches calls to them.
type Ledger struct {
	config    *config.LedgerConfig
	signer    gethTypes.Signer
	nonces    map[common.Address]uint64
	balances  map[common.Address]*uint256.Int
	code      map[common.Address][]byte
	contracts map[common.Address]Contract
	factories map[common.Hash]factory

	// timestamp is the timestamp of the pseudo-block the last transaction was applied in.
	timestamp uint64
}

// NewLedger creates an empty simulated ledger. If a nil config is provided, a default one is used.
func NewLedger(ledgerConfig *config.LedgerConfig) *Ledger {
	if ledgerConfig == nil {
		ledgerConfig = config.DefaultLedgerConfig()
	}
	return &Ledger{
		config:    ledgerConfig,
		signer:    gethTypes.LatestSignerForChainID(ledgerConfig.ChainIDBig()),
		nonces:    make(map[common.Address]uint64),
		balances:  make(map[common.Address]*uint256.Int),
		code:      make(map[common.Address][]byte),
		contracts: make(map[common.Address]Contract),
		factories: make(map[common.Hash]factory),
		timestamp: 1,
	}
}

// RegisterFactory registers init code which, when deployed, stores the provided runtime code and hosts the contract
// produced by the constructor.
func (l *Ledger) RegisterFactory(initCode []byte, runtimeCode []byte, constructor Constructor) {
	l.factories[crypto.Keccak256Hash(initCode)] = factory{
		runtimeCode: common.CopyBytes(runtimeCode),
		constructor: constructor,
	}
}

// Contract returns the native contract deployed at the provided address, or nil if there is none.
func (l *Ledger) Contract(address common.Address) Contract {
	return l.contracts[address]
}

// ChainID returns the chain identifier transactions must be signed for.
func (l *Ledger) ChainID() *big.Int {
	return l.config.ChainIDBig()
}

// GasPrice returns the configured base fee.
func (l *Ledger) GasPrice() *big.Int {
	return new(big.Int).SetUint64(l.config.BaseFee)
}

// GasLimit returns the configured per-transaction gas limit.
func (l *Ledger) GasLimit() uint64 {
	return l.config.TransactionGasLimit
}

// GetNonce returns the current nonce of the provided account.
func (l *Ledger) GetNonce(address common.Address) uint64 {
	return l.nonces[address]
}

// GetBalance returns the current ether balance of the provided account.
func (l *Ledger) GetBalance(address common.Address) *uint256.Int {
	if balance, ok := l.balances[address]; ok {
		return balance.Clone()
	}
	return new(uint256.Int)
}

// SetBalance overwrites the ether balance of the provided account.
func (l *Ledger) SetBalance(address common.Address, amount *uint256.Int) {
	l.balances[address] = amount.Clone()
}

// GetCode returns the code stored at the provided address.
func (l *Ledger) GetCode(address common.Address) []byte {
	return common.CopyBytes(l.code[address])
}

// ApplyTransaction validates a signed transaction, charges for its gas and dispatches it to the target contract.
func (l *Ledger) ApplyTransaction(tx *gethTypes.Transaction) (*types.ExecutionResult, error) {
	from, err := gethTypes.Sender(l.signer, tx)
	if err != nil {
		return nil, errors.Wrap(err, "could not recover transaction sender")
	}
	if nonce := l.nonces[from]; tx.Nonce() < nonce {
		return nil, errors.Errorf("%v: address %v, tx: %d state: %d", core.ErrNonceTooLow, from, tx.Nonce(), nonce)
	} else if tx.Nonce() > nonce {
		return nil, errors.Errorf("%v: address %v, tx: %d state: %d", core.ErrNonceTooHigh, from, tx.Nonce(), nonce)
	}
	if tx.Gas() > l.config.BlockGasLimit {
		return nil, errors.WithStack(core.ErrGasLimitReached)
	}
	gasUsed := intrinsicGas(tx)
	if tx.Gas() < gasUsed {
		return nil, errors.WithStack(core.ErrIntrinsicGas)
	}

	// The sender must afford the gas and the value up front.
	cost, overflow := uint256.FromBig(tx.Cost())
	balance := l.GetBalance(from)
	if overflow || balance.Lt(cost) {
		return nil, errors.Errorf("%v: address %v have %v want %v", core.ErrInsufficientFunds, from, balance, cost)
	}
	gasCost := new(uint256.Int).Mul(uint256.NewInt(gasUsed), uint256.MustFromBig(tx.GasPrice()))
	l.balances[from] = new(uint256.Int).Sub(balance, gasCost)
	l.nonces[from]++
	l.timestamp++

	result := &types.ExecutionResult{GasUsed: gasUsed}
	if tx.To() == nil {
		contractAddress := crypto.CreateAddress(from, tx.Nonce())
		result.ContractAddress = &contractAddress
		l.create(from, contractAddress, tx.Data(), result)
		return result, nil
	}

	call := &Call{
		Caller:    from,
		Address:   *tx.To(),
		Value:     tx.Value(),
		Input:     common.CopyBytes(tx.Data()),
		ChainID:   l.ChainID(),
		Timestamp: l.timestamp,
	}
	l.call(call, result)
	return result, nil
}

// create deploys registered init code, failing the transaction if the init code is unknown.
func (l *Ledger) create(deployer common.Address, address common.Address, initCode []byte, result *types.ExecutionResult) {
	f, ok := l.factories[crypto.Keccak256Hash(initCode)]
	if !ok {
		result.Err = vm.ErrExecutionReverted
		return
	}
	contract, err := f.constructor(deployer, address, l.ChainID())
	if err != nil {
		fail(result, err)
		return
	}
	l.code[address] = common.CopyBytes(f.runtimeCode)
	l.contracts[address] = contract
	result.Success = true
}

// call dispatches a call to a native contract. Calls to addresses without a contract are plain value transfers.
func (l *Ledger) call(call *Call, result *types.ExecutionResult) {
	contract, ok := l.contracts[call.Address]
	if !ok {
		l.transferValue(call.Caller, call.Address, call.Value)
		result.Success = true
		return
	}
	ret, err := contract.Run(call)
	if err != nil {
		fail(result, err)
		return
	}
	l.transferValue(call.Caller, call.Address, call.Value)
	result.Success = true
	result.ReturnData = ret
}

func (l *Ledger) transferValue(from common.Address, to common.Address, value *big.Int) {
	if value == nil || value.Sign() == 0 {
		return
	}
	amount := uint256.MustFromBig(value)
	l.balances[from] = new(uint256.Int).Sub(l.GetBalance(from), amount)
	l.balances[to] = new(uint256.Int).Add(l.GetBalance(to), amount)
}

// fail records a contract error on an execution result.
func fail(result *types.ExecutionResult, err error) {
	result.Success = false
	result.Err = vm.ErrExecutionReverted
	var revertErr *RevertError
	if errors.As(err, &revertErr) {
		result.RevertData = common.CopyBytes(revertErr.Data)
	}
}

// intrinsicGas approximates the gas a transaction consumes before execution.
func intrinsicGas(tx *gethTypes.Transaction) uint64 {
	gas := params.TxGas
	if tx.To() == nil {
		gas = params.TxGasContractCreation
	}
	for _, b := range tx.Data() {
		if b == 0 {
			gas += params.TxDataZeroGas
		} else {
			gas += params.TxDataNonZeroGasEIP2028
		}
	}
	return gas
}
