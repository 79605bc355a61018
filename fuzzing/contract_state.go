package fuzzing

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
)

// ContractState describes the read-only queries call overrides and invariants evaluate against the contract under
// test. It is implemented by harness.Harness. A failed query returns a *harness.QueryFailedError, which callers
// treat as fatal.
type ContractState interface {
	// BalanceOf queries the token balance of the account.
	BalanceOf(account common.Address) (*big.Int, error)
	// TotalSupply queries the total token supply.
	TotalSupply() (*big.Int, error)
	// StakingShares queries the staking shares held by the account.
	StakingShares(account common.Address) (*big.Int, error)
	// TotalStakingShares queries the total staking shares issued.
	TotalStakingShares() (*big.Int, error)
	// CountAdmins queries the number of administrators.
	CountAdmins() (*big.Int, error)
	// PermitNonce queries the permit nonce the contract expects next for the owner.
	PermitNonce(owner common.Address) (*big.Int, error)
}
