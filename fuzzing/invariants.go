package fuzzing

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/thpani/fuzz-pb25/fuzzing/accounts"
	"github.com/thpani/fuzz-pb25/utils"
)

const (
	// InvariantBalancesMatchSupply requires the balances of the pool accounts and the contract to sum to the total
	// supply.
	InvariantBalancesMatchSupply = "balances sum to total supply"
	// InvariantSharesMatchTotalShares requires the staking shares of the pool accounts to sum to the total staking
	// shares.
	InvariantSharesMatchTotalShares = "staking shares sum to total staking shares"
	// InvariantStakeBacksShares requires the token balance of the contract to equal the total staking shares.
	InvariantStakeBacksShares = "contract balance equals total staking shares"
)

// AddressValue pairs an address with a value queried for it.
type AddressValue struct {
	Address common.Address
	Value   *big.Int
}

// InvariantViolationError describes a conservation identity which no longer holds after an episode.
type InvariantViolationError struct {
	// Invariant is the name of the violated identity.
	Invariant string

	// Expected is the total reported by the contract and Actual the total computed from Values.
	Expected *big.Int
	Actual   *big.Int

	// ExpectedLabel and ActualLabel describe what Expected and Actual were computed from.
	ExpectedLabel string
	ActualLabel   string

	// Values holds the per-address values the identity was evaluated over.
	Values []AddressValue
}

// Error returns the error message representing this error.
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violated: %s (%s = %v, %s = %v)", e.Invariant, e.ActualLabel, e.Actual, e.ExpectedLabel, e.Expected)
}

// Dump renders the violation with every per-address value, for the campaign log.
func (e *InvariantViolationError) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invariant violated: %s\n", e.Invariant)
	fmt.Fprintf(&b, "  %s: %v\n", e.ActualLabel, e.Actual)
	fmt.Fprintf(&b, "  %s: %v\n", e.ExpectedLabel, e.Expected)
	for _, value := range e.Values {
		fmt.Fprintf(&b, "  %s: %v\n", value.Address.Hex(), value.Value)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// InvariantChecker verifies the conservation identities of the staking token after every executed episode.
type InvariantChecker struct {
	state           ContractState
	addresses       []common.Address
	contractAddress common.Address
}

// NewInvariantChecker creates an InvariantChecker over the pool accounts and the contract at contractAddress.
func NewInvariantChecker(state ContractState, pool *accounts.AccountPool, contractAddress common.Address) *InvariantChecker {
	return &InvariantChecker{
		state:           state,
		addresses:       pool.Addresses(),
		contractAddress: contractAddress,
	}
}

// Check evaluates every identity in order and returns an *InvariantViolationError for the first one which does not
// hold. A failed query is returned as is.
func (c *InvariantChecker) Check() error {
	checks := []func() error{
		c.checkBalancesMatchSupply,
		c.checkSharesMatchTotalShares,
		c.checkStakeBacksShares,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *InvariantChecker) checkBalancesMatchSupply() error {
	holders := append(append([]common.Address{}, c.addresses...), c.contractAddress)
	balances, err := c.queryAll(holders, c.state.BalanceOf)
	if err != nil {
		return err
	}
	totalSupply, err := c.state.TotalSupply()
	if err != nil {
		return err
	}
	return compare(InvariantBalancesMatchSupply, "sum of balances", "totalSupply", totalSupply, balances)
}

func (c *InvariantChecker) checkSharesMatchTotalShares() error {
	shares, err := c.queryAll(c.addresses, c.state.StakingShares)
	if err != nil {
		return err
	}
	totalShares, err := c.state.TotalStakingShares()
	if err != nil {
		return err
	}
	return compare(InvariantSharesMatchTotalShares, "sum of staking shares", "totalStakingShares", totalShares, shares)
}

func (c *InvariantChecker) checkStakeBacksShares() error {
	contractBalance, err := c.state.BalanceOf(c.contractAddress)
	if err != nil {
		return err
	}
	totalShares, err := c.state.TotalStakingShares()
	if err != nil {
		return err
	}
	values := []AddressValue{{Address: c.contractAddress, Value: contractBalance}}
	return compare(InvariantStakeBacksShares, "balanceOf(contract)", "totalStakingShares", totalShares, values)
}

// queryAll queries a value for every address.
func (c *InvariantChecker) queryAll(addresses []common.Address, query func(common.Address) (*big.Int, error)) ([]AddressValue, error) {
	values := make([]AddressValue, 0, len(addresses))
	for _, address := range addresses {
		value, err := query(address)
		if err != nil {
			return nil, err
		}
		values = append(values, AddressValue{Address: address, Value: value})
	}
	return values, nil
}

// compare sums the values and returns an *InvariantViolationError if the sum differs from expected.
func compare(invariant string, actualLabel string, expectedLabel string, expected *big.Int, values []AddressValue) error {
	summands := make([]*big.Int, len(values))
	for i, value := range values {
		summands[i] = value.Value
	}
	actual := utils.SumBigInts(summands...)
	if actual.Cmp(expected) == 0 {
		return nil
	}
	return &InvariantViolationError{
		Invariant:     invariant,
		Expected:      expected,
		Actual:        actual,
		ExpectedLabel: expectedLabel,
		ActualLabel:   actualLabel,
		Values:        values,
	}
}
