package types

import (
	"github.com/crytic/medusa-geth/common"
)

// ExecutionResult describes the outcome of a single transaction applied to a ledger. It is produced and consumed
// within one fuzzing episode.
type ExecutionResult struct {
	// Success indicates the transaction executed without reverting or hitting an exceptional halt.
	Success bool

	// ReturnData holds the data returned by a successful call.
	ReturnData []byte

	// RevertData holds the raw revert payload of a failed call (e.g. an ABI-encoded Error(string)). It may be empty
	// when execution halted without reverting, such as an out-of-gas condition.
	RevertData []byte

	// Err describes the VM-level failure of a failed call, such as "execution reverted" or "out of gas".
	Err error

	// GasUsed describes the amount of gas consumed by the transaction.
	GasUsed uint64

	// ContractAddress is set when the transaction was a contract creation.
	ContractAddress *common.Address
}

// Failed returns a boolean indicating whether the execution failed.
func (r *ExecutionResult) Failed() bool {
	return !r.Success
}
