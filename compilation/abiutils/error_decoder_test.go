package abiutils

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thpani/fuzz-pb25/chain/types"
)

func errorPayload(t *testing.T, message string) []byte {
	packed, err := stringArguments.Pack(message)
	require.NoError(t, err)
	return append(common.CopyBytes(errorSelector), packed...)
}

func panicPayload(t *testing.T, code int64) []byte {
	packed, err := uint256Arguments.Pack(big.NewInt(code))
	require.NoError(t, err)
	return append(common.CopyBytes(panicSelector), packed...)
}

// TestSelectors checks the well-known selectors are computed correctly.
func TestSelectors(t *testing.T) {
	assert.EqualValues(t, []byte{0x08, 0xc3, 0x79, 0xa0}, errorSelector)
	assert.EqualValues(t, []byte{0x4e, 0x48, 0x7b, 0x71}, panicSelector)
}

// TestDecodeErrorString checks reason strings are rendered quoted.
func TestDecodeErrorString(t *testing.T) {
	decoder := NewErrorDecoder(nil)
	decoded := decoder.DecodePayload(vm.ErrExecutionReverted, errorPayload(t, "insufficient balance"))
	assert.EqualValues(t, "Error('insufficient balance')", decoded)
}

// TestDecodePanic checks the arithmetic panic is named and other panics are rendered by code.
func TestDecodePanic(t *testing.T) {
	decoder := NewErrorDecoder(nil)
	assert.EqualValues(t, "Panic(arithmetic under/overflow)", decoder.DecodePayload(vm.ErrExecutionReverted, panicPayload(t, 0x11)))
	assert.EqualValues(t, "Panic(0x12)", decoder.DecodePayload(vm.ErrExecutionReverted, panicPayload(t, 0x12)))
	assert.EqualValues(t, "Panic(0x1)", decoder.DecodePayload(vm.ErrExecutionReverted, panicPayload(t, 0x01)))

	// Trailing bytes after the code word are ignored.
	padded := append(panicPayload(t, 0x11), make([]byte, 32)...)
	assert.EqualValues(t, "Panic(arithmetic under/overflow)", decoder.DecodePayload(vm.ErrExecutionReverted, padded))
	padded = append(panicPayload(t, 0x12), 0x00)
	assert.EqualValues(t, "Panic(0x12)", decoder.DecodePayload(vm.ErrExecutionReverted, padded))
}

// TestDecodeCustomError checks custom errors declared in the ABI are resolved with their arguments.
func TestDecodeCustomError(t *testing.T) {
	contractAbi, err := abi.JSON(strings.NewReader(`[{"type":"error","name":"Unauthorized","inputs":[{"name":"account","type":"address"}]}]`))
	require.NoError(t, err)

	account := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	customError := contractAbi.Errors["Unauthorized"]
	packed, err := customError.Inputs.Pack(account)
	require.NoError(t, err)
	payload := append(common.CopyBytes(customError.ID.Bytes()[:4]), packed...)

	assert.EqualValues(t, "Unauthorized("+account.Hex()+")", NewErrorDecoder(&contractAbi).DecodePayload(vm.ErrExecutionReverted, payload))

	// Without the ABI, the payload is rendered raw.
	assert.True(t, strings.HasPrefix(NewErrorDecoder(nil).DecodePayload(vm.ErrExecutionReverted, payload), "0x"))
}

// TestDecodeMalformedPayloads checks malformed or unknown payloads fall back to the raw value without panicking.
func TestDecodeMalformedPayloads(t *testing.T) {
	decoder := NewErrorDecoder(nil)

	// Error selector with a truncated body.
	truncated := errorPayload(t, "insufficient balance")[:40]
	assert.EqualValues(t, "0x"+common.Bytes2Hex(truncated), decoder.DecodePayload(vm.ErrExecutionReverted, truncated))

	// Panic selector with a truncated code.
	short := panicPayload(t, 0x11)[:35]
	assert.EqualValues(t, "0x"+common.Bytes2Hex(short), decoder.DecodePayload(vm.ErrExecutionReverted, short))

	// Short payloads.
	assert.EqualValues(t, "0x08c3", decoder.DecodePayload(vm.ErrExecutionReverted, []byte{0x08, 0xc3}))

	// Empty payloads fall back to the VM error.
	assert.EqualValues(t, vm.ErrOutOfGas.Error(), decoder.DecodePayload(vm.ErrOutOfGas, nil))
	assert.EqualValues(t, "unknown error", decoder.DecodePayload(nil, nil))
}

// TestDecodeResult checks execution results are decoded from their revert data.
func TestDecodeResult(t *testing.T) {
	decoder := NewErrorDecoder(nil)
	assert.Empty(t, decoder.Decode(&types.ExecutionResult{Success: true}))
	assert.Empty(t, decoder.Decode(nil))

	result := &types.ExecutionResult{Err: errors.New("execution reverted"), RevertData: errorPayload(t, "nope")}
	assert.EqualValues(t, "Error('nope')", decoder.Decode(result))
}
