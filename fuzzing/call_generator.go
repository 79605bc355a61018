package fuzzing

import (
	"math/rand"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/fuzzing/accounts"
	"github.com/thpani/fuzz-pb25/fuzzing/valuegeneration"
	"golang.org/x/exp/slices"
)

// CallGenerator produces one CallSpec per episode for the contract under test. Every random decision is drawn from a
// single provider, in a fixed order: the function, its arguments, the caller, then any redraws by the function's
// override. Given the same seed, the same sequence of calls is produced.
type CallGenerator struct {
	// randomProvider offers a source of random data.
	randomProvider *rand.Rand

	// methods describes the fuzzable methods of the contract, sorted by name.
	methods []abi.Method

	// valueGenerator synthesizes argument values.
	valueGenerator *valuegeneration.RandomValueGenerator

	// overrides describes the override strategy applied to calls of a function, keyed by function name.
	overrides map[string]CallOverride

	// overrideContext is handed to every override.
	overrideContext *OverrideContext
}

// FuzzableMethods returns the methods of the ABI which mutate state (nonpayable or payable), sorted by name.
func FuzzableMethods(contractAbi *abi.ABI) []abi.Method {
	methods := make([]abi.Method, 0, len(contractAbi.Methods))
	for _, method := range contractAbi.Methods {
		if method.IsConstant() {
			continue
		}
		methods = append(methods, method)
	}
	slices.SortFunc(methods, func(a, b abi.Method) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return methods
}

// NewCallGenerator creates a CallGenerator for the contract deployed at contractAddress. Generated address arguments
// are drawn from the pool's addresses and the contract address. The random provider, pool and state are taken from
// the override context. Returns an error if the contract has no fuzzable methods.
func NewCallGenerator(contractAbi *abi.ABI, contractAddress common.Address, overrides map[string]CallOverride, overrideContext *OverrideContext) (*CallGenerator, error) {
	methods := FuzzableMethods(contractAbi)
	if len(methods) == 0 {
		return nil, errors.New("contract has no state-changing functions to call")
	}

	valueGenerator := valuegeneration.NewRandomValueGenerator(overrideContext.RandomProvider, overrideContext.Pool.Addresses())
	valueGenerator.AddAddress(contractAddress)

	return &CallGenerator{
		randomProvider:  overrideContext.RandomProvider,
		methods:         methods,
		valueGenerator:  valueGenerator,
		overrides:       overrides,
		overrideContext: overrideContext,
	}, nil
}

// Methods returns the fuzzable methods calls are generated for, sorted by name.
func (g *CallGenerator) Methods() []abi.Method {
	return g.methods
}

// Generate produces the call and calling account for the next episode. If the returned bool is true, the function's
// override vetoed the episode and the call must not be submitted. An error is returned if an argument type is not
// supported or an override query failed.
func (g *CallGenerator) Generate() (*CallSpec, accounts.Account, bool, error) {
	method := &g.methods[g.randomProvider.Intn(len(g.methods))]

	args, err := valuegeneration.GenerateArguments(g.valueGenerator, method)
	if err != nil {
		return nil, accounts.Account{}, false, err
	}
	call := &CallSpec{Method: method, Args: args}

	caller := g.overrideContext.Pool.Random(g.randomProvider)

	override, ok := g.overrides[method.Name]
	if !ok {
		return call, caller, false, nil
	}
	skip, err := override.Apply(g.overrideContext, call, caller)
	if err != nil {
		return nil, accounts.Account{}, false, errors.Wrapf(err, "override '%s' for '%s' failed", override.Name(), method.Name)
	}
	return call, caller, skip, nil
}
