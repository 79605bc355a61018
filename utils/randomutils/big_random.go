package randomutils

import (
	"math/big"
	"math/rand"
)

// RandomBigIntInRange returns a uniformly distributed integer in the inclusive range [min, max]. If max is less than
// min, min is returned.
func RandomBigIntInRange(randomProvider *rand.Rand, min *big.Int, max *big.Int) *big.Int {
	if max.Cmp(min) <= 0 {
		return new(big.Int).Set(min)
	}

	// big.Int.Rand draws from [0, n), so the span is widened by one to make max reachable.
	span := new(big.Int).Sub(max, min)
	span.Add(span, big.NewInt(1))
	value := new(big.Int).Rand(randomProvider, span)
	return value.Add(value, min)
}

// RandomBytes returns a slice of the given length filled with random data from the provider.
func RandomBytes(randomProvider *rand.Rand, length int) []byte {
	b := make([]byte, length)
	_, err := randomProvider.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}
