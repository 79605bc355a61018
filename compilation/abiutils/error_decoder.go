package abiutils

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/thpani/fuzz-pb25/chain/types"
	"golang.org/x/crypto/sha3"
)

// PanicCodeArithmeticUnderOverflow is the `Panic(uint256)` code Solidity >= 0.8.0 reverts with when checked
// arithmetic under- or overflows.
// Reference: https://docs.soliditylang.org/en/latest/control-structures.html#panic-via-assert-and-error-via-require
const PanicCodeArithmeticUnderOverflow = 0x11

var (
	// errorSelector is the selector of the `Error(string)` payload emitted by require/revert with a reason string.
	errorSelector = selector("Error(string)")

	// panicSelector is the selector of the `Panic(uint256)` payload emitted by compiler-inserted checks.
	panicSelector = selector("Panic(uint256)")

	stringArguments  = abi.Arguments{{Type: mustNewType("string")}}
	uint256Arguments = abi.Arguments{{Type: mustNewType("uint256")}}
)

// selector computes the 4-byte selector of a canonical error or function signature.
func selector(signature string) []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(signature))
	return hasher.Sum(nil)[:4]
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// ErrorDecoder classifies the raw failure payload of an execution into a human-readable string. It never fails: a
// payload it cannot make sense of is rendered raw.
type ErrorDecoder struct {
	// contractAbi is used to resolve custom errors declared by the contract. It may be nil.
	contractAbi *abi.ABI
}

// NewErrorDecoder creates an ErrorDecoder which additionally resolves custom errors declared in the provided ABI.
// A nil ABI restricts decoding to the builtin Error and Panic payloads.
func NewErrorDecoder(contractAbi *abi.ABI) *ErrorDecoder {
	return &ErrorDecoder{contractAbi: contractAbi}
}

// Decode classifies the failure of an execution result. Successful results decode to an empty string.
func (d *ErrorDecoder) Decode(result *types.ExecutionResult) string {
	if result == nil || result.Success {
		return ""
	}
	return d.DecodePayload(result.Err, result.RevertData)
}

// DecodePayload classifies a raw revert payload. Recognized forms are `Error(string)`, `Panic(uint256)` and custom
// errors from the contract ABI. Anything else is rendered as hex, or as the VM error when the payload is empty.
func (d *ErrorDecoder) DecodePayload(vmErr error, payload []byte) string {
	if message, ok := DecodeRevertReason(payload); ok {
		return fmt.Sprintf("Error('%s')", message)
	}
	if code, ok := DecodePanicCode(payload); ok {
		if code.IsUint64() && code.Uint64() == PanicCodeArithmeticUnderOverflow {
			return "Panic(arithmetic under/overflow)"
		}
		return fmt.Sprintf("Panic(0x%x)", code)
	}
	if customError, args := d.decodeCustomError(payload); customError != nil {
		return formatCustomError(customError, args)
	}

	// Fall back to the raw value.
	if len(payload) > 0 {
		return hexutil.Encode(payload)
	}
	if vmErr != nil {
		return vmErr.Error()
	}
	return "unknown error"
}

// DecodeRevertReason obtains the reason string of an `Error(string)` payload, if the payload is one.
func DecodeRevertReason(payload []byte) (string, bool) {
	if len(payload) < 4 || !bytes.Equal(payload[:4], errorSelector) {
		return "", false
	}
	values, err := stringArguments.Unpack(payload[4:])
	if err != nil || len(values) != 1 {
		return "", false
	}
	message, ok := values[0].(string)
	return message, ok
}

// DecodePanicCode obtains the code of a `Panic(uint256)` payload, if the payload is one. Only the first word after the
// selector is read, trailing bytes are ignored.
func DecodePanicCode(payload []byte) (*big.Int, bool) {
	if len(payload) < 4+32 || !bytes.Equal(payload[:4], panicSelector) {
		return nil, false
	}
	values, err := uint256Arguments.Unpack(payload[4 : 4+32])
	if err != nil || len(values) != 1 {
		return nil, false
	}
	code, ok := values[0].(*big.Int)
	return code, ok
}

// decodeCustomError resolves a custom error declared in the contract ABI. Returns the ABI error definition and its
// unpacked values, or nil outputs if the payload does not match any declared error.
func (d *ErrorDecoder) decodeCustomError(payload []byte) (*abi.Error, []any) {
	if d.contractAbi == nil || len(payload) < 4 {
		return nil, nil
	}
	for _, abiError := range d.contractAbi.Errors {
		if !bytes.Equal(abiError.ID.Bytes()[:4], payload[:4]) {
			continue
		}
		// Make a local copy to avoid taking a pointer of a loop variable
		matched := abiError
		args, err := matched.Inputs.Unpack(payload[4:])
		if err == nil {
			return &matched, args
		}
	}
	return nil, nil
}

// formatCustomError renders a custom error as `Name(arg1, arg2)`.
func formatCustomError(abiError *abi.Error, args []any) string {
	rendered := make([]string, len(args))
	for i, arg := range args {
		rendered[i] = FormatValue(arg)
	}
	return fmt.Sprintf("%s(%s)", abiError.Name, strings.Join(rendered, ", "))
}

// FormatValue renders a decoded ABI value for display. Addresses and fixed byte arrays are rendered as hex, integers
// in decimal.
func FormatValue(value any) string {
	switch v := value.(type) {
	case common.Address:
		return v.Hex()
	case *big.Int:
		return v.String()
	case [32]byte:
		return hexutil.Encode(v[:])
	case []byte:
		return hexutil.Encode(v)
	case string:
		return fmt.Sprintf("'%s'", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
