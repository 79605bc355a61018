package compilation

import (
	"bytes"
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/fxamacker/cbor"
)

// ContractMetadata is an CBOR-encoded structure describing contract information which is embedded within smart contract
// bytecode by the Solidity compiler (unless explicitly directed not to).
// Reference: https://docs.soliditylang.org/en/v0.8.20/metadata.html
type ContractMetadata map[string]any

// metadataHashPrefixes defines patterns to use in search for CBOR-encoded contract metadata appended to the end of
// bytecode.
var metadataHashPrefixes = [][]byte{
	{0xa2, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a2 65 "bzzr0" 0x58 0x20 (solc >= 0.5.9)
	{0xa2, 0x65, 98, 122, 122, 114, 49, 0x58, 0x20},  // a2 65 "bzzr1" 0x58 0x20 (solc >= 0.5.11)
	{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a2 64 "ipfs" 0x58 0x22 (solc >= 0.6.0)
}

// bytecodeHashMetadataKeys defines the keys in the CBOR-encoded ContractMetadata which contain bytecode hashes.
var bytecodeHashMetadataKeys = [...]string{
	"bzzr0",
	"bzzr1",
	"ipfs",
}

// ExtractContractMetadata extracts contract metadata from provided byte code and returns it. If contract metadata
// could not be extracted, nil is returned.
func ExtractContractMetadata(bytecode []byte) *ContractMetadata {
	offset := metadataOffset(bytecode)
	if offset == -1 {
		return nil
	}
	var metadata ContractMetadata
	if err := cbor.Unmarshal(bytecode[offset:], &metadata); err != nil {
		return nil
	}
	return &metadata
}

// RemoveContractMetadata returns the provided bytecode with any trailing contract metadata stripped. If no metadata
// could be located, the input is returned as-is.
func RemoveContractMetadata(bytecode []byte) []byte {
	offset := metadataOffset(bytecode)
	if offset == -1 {
		return bytecode
	}
	return bytecode[:offset]
}

// metadataOffset returns the offset of the last metadata structure found in the bytecode, or -1.
func metadataOffset(bytecode []byte) int {
	for _, prefix := range metadataHashPrefixes {
		if offset := bytes.LastIndex(bytecode, prefix); offset != -1 {
			return offset
		}
	}
	return -1
}

// ExtractBytecodeHash extracts the bytecode hash from given contract metadata and returns the bytes representing the
// hash. If it could not be detected or extracted, nil is returned.
func (m ContractMetadata) ExtractBytecodeHash() []byte {
	for _, key := range bytecodeHashMetadataKeys {
		if data, ok := m[key]; ok {
			if hash, ok := data.([]byte); ok {
				return hash
			}
		}
	}
	return nil
}

// CompilerVersion extracts the solc version recorded in the metadata. Solidity stores it as three bytes (major, minor,
// patch) under the "solc" key. If it is absent or malformed, nil is returned.
func (m ContractMetadata) CompilerVersion() *semver.Version {
	data, ok := m["solc"].([]byte)
	if !ok || len(data) != 3 {
		return nil
	}
	version, err := semver.NewVersion(fmt.Sprintf("%d.%d.%d", data[0], data[1], data[2]))
	if err != nil {
		return nil
	}
	return version
}

// HasPanicCodes indicates whether the compiler which produced this metadata reports checked arithmetic failures with
// Panic(uint256) payloads. Older compilers hit an invalid opcode or wrap silently instead.
func (m ContractMetadata) HasPanicCodes() bool {
	version := m.CompilerVersion()
	if version == nil {
		return false
	}
	constraint, err := semver.NewConstraint(">= 0.8.0")
	if err != nil {
		return false
	}
	return constraint.Check(version)
}
