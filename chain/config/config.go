package config

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core/vm"
)

// LedgerConfig represents the configuration of the simulated chain a campaign runs against.
type LedgerConfig struct {
	// ChainID describes the chain identifier used for EIP-155 transaction signing and EIP-712 permit domains.
	ChainID uint64 `json:"chainId" toml:"chainId"`

	// BaseFee describes the base fee (in wei) reported for every block. The fuzzer prices its transactions at this
	// value, so a zero base fee means gas is free.
	BaseFee uint64 `json:"baseFee" toml:"baseFee"`

	// BlockGasLimit describes the maximum amount of gas a single block (and hence a single transaction) may consume.
	BlockGasLimit uint64 `json:"blockGasLimit" toml:"blockGasLimit"`

	// TransactionGasLimit describes the gas limit attached to every fuzzer generated transaction.
	TransactionGasLimit uint64 `json:"transactionGasLimit" toml:"transactionGasLimit"`

	// CodeSizeCheckDisabled indicates whether EIP-170 code size checks should be disabled in the EVM.
	CodeSizeCheckDisabled bool `json:"codeSizeCheckDisabled" toml:"codeSizeCheckDisabled"`
}

// DefaultLedgerConfig obtains a default configuration for a chain.TestLedger.
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		ChainID:               1337,
		BaseFee:               0,
		BlockGasLimit:         125_000_000,
		TransactionGasLimit:   12_500_000,
		CodeSizeCheckDisabled: true,
	}
}

// ChainIDBig returns the chain identifier as a big.Int.
func (c *LedgerConfig) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(c.ChainID)
}

// GetVMConfigExtensions derives a vm.ConfigExtensions from the provided LedgerConfig. The fuzzer installs no
// additional precompiles or address overrides, but the extensions must be non-nil for the EVM to consult.
func (c *LedgerConfig) GetVMConfigExtensions() *vm.ConfigExtensions {
	return &vm.ConfigExtensions{
		OverrideCodeSizeCheck:    c.CodeSizeCheckDisabled,
		AdditionalPrecompiles:    make(map[common.Address]vm.PrecompiledContract),
		ContractAddressOverrides: make(map[common.Hash]common.Address),
	}
}
