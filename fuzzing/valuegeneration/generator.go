package valuegeneration

import (
	"math/big"
	"math/rand"

	"github.com/crytic/medusa-geth/common"
	"github.com/thpani/fuzz-pb25/utils"
	"github.com/thpani/fuzz-pb25/utils/randomutils"
)

// ValueGenerator represents an interface for a provider used to generate function inputs and call arguments for use
// in fuzzing campaigns.
type ValueGenerator interface {
	// RandomProvider returns the internal random provider used for value generation.
	RandomProvider() *rand.Rand

	// GenerateAddress generates/selects an address to use when populating inputs.
	GenerateAddress() common.Address

	// GenerateFixedBytes generates/selects a fixed-sized byte array to use when populating inputs.
	GenerateFixedBytes(length int) []byte

	// GenerateInteger generates/selects an unsigned integer of the given bit length to use when populating inputs.
	GenerateInteger(bitLength int) *big.Int
}

// RandomValueGenerator represents a ValueGenerator which draws every value uniformly at random from its domain.
// Addresses are drawn from a known set of addresses rather than the whole address space.
type RandomValueGenerator struct {
	// randomProvider offers a source of random data.
	randomProvider *rand.Rand

	// addresses describes the addresses known to the campaign.
	addresses []common.Address
}

// NewRandomValueGenerator creates a new RandomValueGenerator drawing addresses from the provided set.
func NewRandomValueGenerator(randomProvider *rand.Rand, addresses []common.Address) *RandomValueGenerator {
	return &RandomValueGenerator{
		randomProvider: randomProvider,
		addresses:      append([]common.Address(nil), addresses...),
	}
}

// RandomProvider returns the internal random provider used for value generation.
func (g *RandomValueGenerator) RandomProvider() *rand.Rand {
	return g.randomProvider
}

// Addresses returns the set of addresses generated addresses are drawn from.
func (g *RandomValueGenerator) Addresses() []common.Address {
	return append([]common.Address(nil), g.addresses...)
}

// AddAddress adds an address to the set of addresses generated addresses are drawn from, if not already present.
func (g *RandomValueGenerator) AddAddress(address common.Address) {
	for _, existing := range g.addresses {
		if existing == address {
			return
		}
	}
	g.addresses = append(g.addresses, address)
}

// GenerateAddress selects one of the known addresses uniformly at random. If none are known, the zero address is
// returned.
func (g *RandomValueGenerator) GenerateAddress() common.Address {
	if len(g.addresses) == 0 {
		return common.Address{}
	}
	return g.addresses[g.randomProvider.Intn(len(g.addresses))]
}

// GenerateFixedBytes generates a byte array of the given length filled with random data.
func (g *RandomValueGenerator) GenerateFixedBytes(length int) []byte {
	return randomutils.RandomBytes(g.randomProvider, length)
}

// GenerateInteger generates an unsigned integer uniformly distributed over [0, 2^bitLength - 1].
func (g *RandomValueGenerator) GenerateInteger(bitLength int) *big.Int {
	min, max := utils.GetIntegerConstraints(false, bitLength)
	return randomutils.RandomBigIntInRange(g.randomProvider, min, max)
}
