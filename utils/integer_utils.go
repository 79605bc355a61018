package utils

import "math/big"

// MaxUint256 is 2^256 - 1, the largest value representable by a Solidity uint256.
var _, MaxUint256 = GetIntegerConstraints(false, 256)

// GetIntegerConstraints takes a given signed indicator and bit length for a prospective integer and determines the
// minimum/maximum value boundaries.
// Returns the minimum and maximum value for the provided integer properties. Minimums and maximums are inclusive.
func GetIntegerConstraints(signed bool, bitLength int) (*big.Int, *big.Int) {
	var min, max *big.Int
	if signed {
		// Set max as 2^(bitLen - 1) - 1
		max = big.NewInt(2)
		max.Exp(max, big.NewInt(int64(bitLength-1)), nil)
		max.Sub(max, big.NewInt(1))

		// Set min as -(2^(bitLen - 1))
		min = big.NewInt(0).Mul(max, big.NewInt(-1))
		min.Sub(min, big.NewInt(1))
	} else {
		// Set max as 2^bitLen - 1
		max = big.NewInt(2)
		max.Exp(max, big.NewInt(int64(bitLength)), nil)
		max.Sub(max, big.NewInt(1))

		min = big.NewInt(0)
	}
	return min, max
}

// MinBigInt returns a copy of the smaller of the two provided integers.
func MinBigInt(x *big.Int, y *big.Int) *big.Int {
	if x.Cmp(y) <= 0 {
		return new(big.Int).Set(x)
	}
	return new(big.Int).Set(y)
}

// SumBigInts returns the sum of all provided integers. An empty list sums to zero.
func SumBigInts(values ...*big.Int) *big.Int {
	sum := big.NewInt(0)
	for _, v := range values {
		sum.Add(sum, v)
	}
	return sum
}
