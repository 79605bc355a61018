package valuegeneration

import (
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thpani/fuzz-pb25/utils"
)

func mustType(t *testing.T, typeName string) abi.Type {
	typ, err := abi.NewType(typeName, "", nil)
	require.NoError(t, err)
	return typ
}

var testAddresses = []common.Address{
	common.HexToAddress("0x1111111111111111111111111111111111111111"),
	common.HexToAddress("0x2222222222222222222222222222222222222222"),
}

// TestGenerateSupportedValues checks every supported kind yields values within its domain, in the representation
// the abi package packs.
func TestGenerateSupportedValues(t *testing.T) {
	generator := NewRandomValueGenerator(rand.New(rand.NewSource(1)), testAddresses)
	addressType := mustType(t, "address")
	uint8Type := mustType(t, "uint8")
	uint256Type := mustType(t, "uint256")
	bytes32Type := mustType(t, "bytes32")

	for i := 0; i < 200; i++ {
		value, err := GenerateAbiValue(generator, &addressType)
		require.NoError(t, err)
		assert.Contains(t, testAddresses, value.(common.Address))

		value, err = GenerateAbiValue(generator, &uint8Type)
		require.NoError(t, err)
		assert.IsType(t, uint8(0), value)

		value, err = GenerateAbiValue(generator, &uint256Type)
		require.NoError(t, err)
		integer := value.(*big.Int)
		assert.True(t, integer.Sign() >= 0)
		assert.True(t, integer.Cmp(utils.MaxUint256) <= 0)

		value, err = GenerateAbiValue(generator, &bytes32Type)
		require.NoError(t, err)
		assert.IsType(t, [32]byte{}, value)

		// Generated values pack without error.
		_, err = abi.Arguments{{Type: bytes32Type}}.Pack(value)
		require.NoError(t, err)
	}
}

// TestGenerateUnsupportedValues checks unsupported types fail rather than producing a default.
func TestGenerateUnsupportedValues(t *testing.T) {
	generator := NewRandomValueGenerator(rand.New(rand.NewSource(1)), testAddresses)
	for _, typeName := range []string{"bool", "string", "bytes", "uint128", "int256", "bytes4", "address[]", "uint256[2]"} {
		typ := mustType(t, typeName)
		value, err := GenerateAbiValue(generator, &typ)
		assert.Nil(t, value, typeName)

		var unsupported *UnsupportedTypeError
		require.ErrorAs(t, err, &unsupported, typeName)
		assert.EqualValues(t, typeName, unsupported.Type)
	}
}

// TestGenerateArguments checks whole argument lists are generated and unsupported methods are named.
func TestGenerateArguments(t *testing.T) {
	contractAbi, err := abi.JSON(strings.NewReader(`[
		{"type":"function","name":"permit","stateMutability":"nonpayable","outputs":[],"inputs":[
			{"name":"owner","type":"address"},{"name":"spender","type":"address"},{"name":"value","type":"uint256"},
			{"name":"deadline","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]},
		{"type":"function","name":"setName","stateMutability":"nonpayable","outputs":[],"inputs":[{"name":"name","type":"string"}]}
	]`))
	require.NoError(t, err)
	generator := NewRandomValueGenerator(rand.New(rand.NewSource(3)), testAddresses)

	permit := contractAbi.Methods["permit"]
	args, err := GenerateArguments(generator, &permit)
	require.NoError(t, err)
	require.Len(t, args, 7)
	_, err = permit.Inputs.Pack(args...)
	assert.NoError(t, err)
	assert.NoError(t, CheckMethodSupported(&permit))

	setName := contractAbi.Methods["setName"]
	_, err = GenerateArguments(generator, &setName)
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.EqualValues(t, "setName", unsupported.Method)
	assert.Contains(t, err.Error(), "string")
	assert.Error(t, CheckMethodSupported(&setName))
}

// TestGeneratorDeterminism checks identical seeds generate identical values.
func TestGeneratorDeterminism(t *testing.T) {
	a := NewRandomValueGenerator(rand.New(rand.NewSource(5)), testAddresses)
	b := NewRandomValueGenerator(rand.New(rand.NewSource(5)), testAddresses)
	for i := 0; i < 20; i++ {
		assert.EqualValues(t, a.GenerateInteger(256).String(), b.GenerateInteger(256).String())
		assert.EqualValues(t, a.GenerateAddress(), b.GenerateAddress())
	}
}

// TestAddAddress checks added addresses become reachable and duplicates are ignored.
func TestAddAddress(t *testing.T) {
	generator := NewRandomValueGenerator(rand.New(rand.NewSource(1)), nil)
	assert.EqualValues(t, common.Address{}, generator.GenerateAddress())

	contract := common.HexToAddress("0x3333333333333333333333333333333333333333")
	generator.AddAddress(contract)
	generator.AddAddress(contract)
	assert.Len(t, generator.Addresses(), 1)
	assert.EqualValues(t, contract, generator.GenerateAddress())
}

// TestArgumentKindString checks kinds render as their ABI type names.
func TestArgumentKindString(t *testing.T) {
	assert.EqualValues(t, "address", ArgumentKindAddress.String())
	assert.EqualValues(t, "uint8", ArgumentKindUint8.String())
	assert.EqualValues(t, "uint256", ArgumentKindUint256.String())
	assert.EqualValues(t, "bytes32", ArgumentKindBytes32.String())
}
