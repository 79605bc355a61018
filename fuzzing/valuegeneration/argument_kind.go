package valuegeneration

import (
	"fmt"

	"github.com/crytic/medusa-geth/accounts/abi"
)

// ArgumentKind describes the closed set of ABI argument types values can be generated for.
type ArgumentKind int

const (
	// ArgumentKindAddress describes an `address` argument.
	ArgumentKindAddress ArgumentKind = iota
	// ArgumentKindUint8 describes a `uint8` argument.
	ArgumentKindUint8
	// ArgumentKindUint256 describes a `uint256` argument.
	ArgumentKindUint256
	// ArgumentKindBytes32 describes a `bytes32` argument.
	ArgumentKindBytes32
)

// String returns the canonical ABI type name of the kind.
func (k ArgumentKind) String() string {
	switch k {
	case ArgumentKindAddress:
		return "address"
	case ArgumentKindUint8:
		return "uint8"
	case ArgumentKindUint256:
		return "uint256"
	case ArgumentKindBytes32:
		return "bytes32"
	default:
		return fmt.Sprintf("ArgumentKind(%d)", int(k))
	}
}

// UnsupportedTypeError describes an ABI argument type no value can be generated for.
type UnsupportedTypeError struct {
	// Type is the canonical name of the ABI type.
	Type string
	// Method is the name of the method declaring the argument, if known.
	Method string
}

// Error returns the error message representing this error.
func (e *UnsupportedTypeError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("cannot generate argument of unsupported type '%s' for function '%s'", e.Type, e.Method)
	}
	return fmt.Sprintf("cannot generate argument of unsupported type '%s'", e.Type)
}

// ArgumentKindOf maps an ABI type onto its ArgumentKind. Returns an *UnsupportedTypeError for any other type.
func ArgumentKindOf(inputType abi.Type) (ArgumentKind, error) {
	switch {
	case inputType.T == abi.AddressTy:
		return ArgumentKindAddress, nil
	case inputType.T == abi.UintTy && inputType.Size == 8:
		return ArgumentKindUint8, nil
	case inputType.T == abi.UintTy && inputType.Size == 256:
		return ArgumentKindUint256, nil
	case inputType.T == abi.FixedBytesTy && inputType.Size == 32:
		return ArgumentKindBytes32, nil
	default:
		return 0, &UnsupportedTypeError{Type: inputType.String()}
	}
}

// CheckMethodSupported verifies values can be generated for every input of the method. Returns an
// *UnsupportedTypeError naming the first unsupported input type otherwise.
func CheckMethodSupported(method *abi.Method) error {
	for _, input := range method.Inputs {
		if _, err := ArgumentKindOf(input.Type); err != nil {
			return &UnsupportedTypeError{Type: input.Type.String(), Method: method.Name}
		}
	}
	return nil
}
