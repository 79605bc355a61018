package fuzzing

import (
	"math/big"
	"math/rand"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/fuzzing/accounts"
	"github.com/thpani/fuzz-pb25/fuzzing/permit"
	"github.com/thpani/fuzz-pb25/utils"
	"github.com/thpani/fuzz-pb25/utils/randomutils"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	// OverrideNone is the strategy name which disables the override of a function.
	OverrideNone = "none"
	// OverrideLastAdminGuard skips a call while the contract has exactly one administrator.
	OverrideLastAdminGuard = "lastAdminGuard"
	// OverrideStakeAmount redraws the first argument in [0, min(2 * balanceOf(caller), 2^256 - 1)].
	OverrideStakeAmount = "stakeAmount"
	// OverrideUnstakeAmount skips a call if the caller holds no shares, otherwise redraws the first argument in
	// [1, min(2 * stakingShares(caller), 2^256 - 1)].
	OverrideUnstakeAmount = "unstakeAmount"
	// OverridePermitSignature replaces the arguments of a permit call with a valid signature by a random owner.
	OverridePermitSignature = "permitSignature"
)

// OverrideContext holds the campaign collaborators call overrides consult.
type OverrideContext struct {
	// RandomProvider is the campaign's random stream. Overrides draw from it after the call was generated.
	RandomProvider *rand.Rand
	// State answers queries about the contract under test.
	State ContractState
	// Pool is the campaign's account pool.
	Pool *accounts.AccountPool
	// Signer issues permits for pool accounts.
	Signer *permit.Signer
	// ResyncPermitNonces indicates whether the signer's nonce for an owner is re-read from the contract before
	// signing a permit.
	ResyncPermitNonces bool
}

// CallOverride describes a function-aware strategy applied to a generated call before it is submitted. It may
// replace arguments of the call or veto the episode entirely.
type CallOverride interface {
	// Name returns the name the strategy is configured by.
	Name() string

	// Apply rewrites the call in place. Returns true if the episode should be skipped.
	Apply(ctx *OverrideContext, call *CallSpec, caller accounts.Account) (bool, error)
}

// callOverrides describes every known override strategy, keyed by name.
var callOverrides = map[string]CallOverride{
	OverrideLastAdminGuard:  lastAdminGuard{},
	OverrideStakeAmount:     stakeAmount{},
	OverrideUnstakeAmount:   unstakeAmount{},
	OverridePermitSignature: permitSignature{},
}

// CallOverrideNames returns the names of every known override strategy, sorted.
func CallOverrideNames() []string {
	names := maps.Keys(callOverrides)
	slices.Sort(names)
	return names
}

// NewCallOverrideTable resolves a mapping of function names to strategy names into a table of strategies keyed by
// function name. Functions bound to OverrideNone are left out. Unknown strategy names are an error.
func NewCallOverrideTable(bindings map[string]string) (map[string]CallOverride, error) {
	table := make(map[string]CallOverride, len(bindings))
	for function, strategyName := range bindings {
		if strategyName == OverrideNone {
			continue
		}
		strategy, ok := callOverrides[strategyName]
		if !ok {
			return nil, errors.Errorf("function '%s' is bound to unknown override '%s' (known overrides: %v)",
				function, strategyName, CallOverrideNames())
		}
		table[function] = strategy
	}
	return table, nil
}

// lastAdminGuard skips calls which would remove the last administrator, since the contract rejects them anyway.
type lastAdminGuard struct{}

func (lastAdminGuard) Name() string { return OverrideLastAdminGuard }

func (lastAdminGuard) Apply(ctx *OverrideContext, call *CallSpec, caller accounts.Account) (bool, error) {
	admins, err := ctx.State.CountAdmins()
	if err != nil {
		return false, err
	}
	return admins.Cmp(big.NewInt(1)) == 0, nil
}

// stakeAmount biases the staked amount around the caller's balance to exercise both sides of the boundary.
type stakeAmount struct{}

func (stakeAmount) Name() string { return OverrideStakeAmount }

func (stakeAmount) Apply(ctx *OverrideContext, call *CallSpec, caller accounts.Account) (bool, error) {
	if err := requireUint256Arg(call, 0); err != nil {
		return false, err
	}
	balance, err := ctx.State.BalanceOf(caller.Address)
	if err != nil {
		return false, err
	}
	max := utils.MinBigInt(new(big.Int).Lsh(balance, 1), utils.MaxUint256)
	call.Args[0] = randomutils.RandomBigIntInRange(ctx.RandomProvider, big.NewInt(0), max)
	return false, nil
}

// unstakeAmount biases the unstaked share count around the caller's shares, skipping callers without any.
type unstakeAmount struct{}

func (unstakeAmount) Name() string { return OverrideUnstakeAmount }

func (unstakeAmount) Apply(ctx *OverrideContext, call *CallSpec, caller accounts.Account) (bool, error) {
	if err := requireUint256Arg(call, 0); err != nil {
		return false, err
	}
	shares, err := ctx.State.StakingShares(caller.Address)
	if err != nil {
		return false, err
	}
	if shares.Sign() == 0 {
		return true, nil
	}
	max := utils.MinBigInt(new(big.Int).Lsh(shares, 1), utils.MaxUint256)
	call.Args[0] = randomutils.RandomBigIntInRange(ctx.RandomProvider, big.NewInt(1), max)
	return false, nil
}

// permitSignature replaces the arguments of `permit(owner, spender, value, deadline, v, r, s)` with a permit signed
// by an owner chosen independently of the caller. Spender, value and deadline are kept from the generated call.
type permitSignature struct{}

func (permitSignature) Name() string { return OverridePermitSignature }

func (permitSignature) Apply(ctx *OverrideContext, call *CallSpec, caller accounts.Account) (bool, error) {
	if len(call.Args) != 7 {
		return false, errors.Errorf("override '%s' expects 7 arguments, '%s' declares %d", OverridePermitSignature, call.Method.Name, len(call.Args))
	}
	spender, ok := call.Args[1].(common.Address)
	if !ok {
		return false, errors.Errorf("override '%s' expects argument 1 of '%s' to be an address", OverridePermitSignature, call.Method.Name)
	}
	if err := requireUint256Arg(call, 2); err != nil {
		return false, err
	}
	if err := requireUint256Arg(call, 3); err != nil {
		return false, err
	}

	owner := ctx.Pool.Random(ctx.RandomProvider)
	if ctx.ResyncPermitNonces {
		nonce, err := ctx.State.PermitNonce(owner.Address)
		if err != nil {
			return false, err
		}
		ctx.Signer.SetNonce(owner.Address, nonce)
	}
	signed, err := ctx.Signer.Sign(owner.Address, spender, call.Args[2].(*big.Int), call.Args[3].(*big.Int))
	if err != nil {
		return false, err
	}
	call.Args = signed.Args()
	return false, nil
}

// requireUint256Arg verifies the call has a uint256 argument at the index, so an override is not bound to a function
// of an unexpected shape.
func requireUint256Arg(call *CallSpec, index int) error {
	if len(call.Args) <= index {
		return errors.Errorf("'%s' has no argument %d", call.Method.Name, index)
	}
	if _, ok := call.Args[index].(*big.Int); !ok {
		return errors.Errorf("argument %d of '%s' is not a uint256", index, call.Method.Name)
	}
	return nil
}
