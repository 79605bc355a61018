package valuegeneration

import (
	"github.com/crytic/medusa-geth/accounts/abi"
)

// GenerateAbiValue generates a value of the provided abi.Type using the provided ValueGenerator, in the Go
// representation the abi package packs: common.Address, uint8, *big.Int or [32]byte. Returns an
// *UnsupportedTypeError for types outside the supported ArgumentKind set.
func GenerateAbiValue(generator ValueGenerator, inputType *abi.Type) (any, error) {
	kind, err := ArgumentKindOf(*inputType)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ArgumentKindAddress:
		return generator.GenerateAddress(), nil
	case ArgumentKindUint8:
		return uint8(generator.GenerateInteger(8).Uint64()), nil
	case ArgumentKindUint256:
		return generator.GenerateInteger(256), nil
	case ArgumentKindBytes32:
		var b [32]byte
		copy(b[:], generator.GenerateFixedBytes(32))
		return b, nil
	default:
		return nil, &UnsupportedTypeError{Type: inputType.String()}
	}
}

// GenerateArguments generates one value per input of the method, in declaration order. Generation stops at the first
// unsupported input type, returning an *UnsupportedTypeError naming the method.
func GenerateArguments(generator ValueGenerator, method *abi.Method) ([]any, error) {
	args := make([]any, len(method.Inputs))
	for i := range method.Inputs {
		value, err := GenerateAbiValue(generator, &method.Inputs[i].Type)
		if err != nil {
			if unsupported, ok := err.(*UnsupportedTypeError); ok {
				unsupported.Method = method.Name
			}
			return nil, err
		}
		args[i] = value
	}
	return args, nil
}
