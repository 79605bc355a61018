package chain

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/holiman/uint256"
	"github.com/thpani/fuzz-pb25/chain/types"
)

// Ledger describes the state machine a campaign submits transactions to. Implementations must be deterministic:
// identical transactions applied over identical prior state yield identical results. Ledgers are not safe for
// concurrent use.
type Ledger interface {
	// ChainID returns the chain identifier transactions must be signed for.
	ChainID() *big.Int

	// GasPrice returns the price per unit of gas a transaction should offer to be accepted.
	GasPrice() *big.Int

	// GasLimit returns the gas limit to attach to a transaction.
	GasLimit() uint64

	// GetNonce returns the current nonce of the provided account.
	GetNonce(address common.Address) uint64

	// GetBalance returns the current ether balance of the provided account.
	GetBalance(address common.Address) *uint256.Int

	// SetBalance overwrites the ether balance of the provided account.
	SetBalance(address common.Address, amount *uint256.Int)

	// GetCode returns the code stored at the provided address.
	GetCode(address common.Address) []byte

	// ApplyTransaction executes a signed transaction against the current state. An error is returned only when the
	// transaction could not be included at all (bad nonce, insufficient funds for gas, invalid signature). Reverts
	// and exceptional halts are reported through the returned ExecutionResult.
	ApplyTransaction(tx *gethTypes.Transaction) (*types.ExecutionResult, error)
}
