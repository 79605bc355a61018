package compilation

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/pkg/errors"
)

// ContractArtifact represents a single compiled contract loaded from a build output file.
type ContractArtifact struct {
	// Name describes the name of the contract.
	Name string

	// SourcePath describes the source file the contract was compiled from, if the artifact records it.
	SourcePath string

	// Abi describes a contract's application binary interface: its constructor, functions, events and custom errors.
	Abi abi.ABI

	// InitBytecode describes the bytecode used to deploy a contract.
	InitBytecode []byte

	// RuntimeBytecode represents the bytecode expected to be stored once the contract has been successfully deployed.
	RuntimeBytecode []byte
}

// Metadata extracts the CBOR-encoded contract metadata appended to the runtime bytecode. If the artifact carries no
// runtime bytecode or no metadata could be found, nil is returned.
func (c *ContractArtifact) Metadata() *ContractMetadata {
	return ExtractContractMetadata(c.RuntimeBytecode)
}

// artifactJson describes the subset of a Hardhat or Foundry build artifact needed to deploy and call a contract.
type artifactJson struct {
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	Abi              json.RawMessage `json:"abi"`
	Bytecode         bytecodeJson    `json:"bytecode"`
	DeployedBytecode bytecodeJson    `json:"deployedBytecode"`
}

// bytecodeJson describes a hex-encoded bytecode field. Hardhat stores it as a plain string while Foundry nests it
// in an object under the "object" key.
type bytecodeJson string

// UnmarshalJSON accepts either a hex string or an object with an "object" hex string.
func (b *bytecodeJson) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = bytecodeJson(s)
		return nil
	}

	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.New("bytecode must be a hex string or an object with an 'object' field")
	}
	*b = bytecodeJson(obj.Object)
	return nil
}

// decode returns the bytes described by the hex string. Unlinked library placeholders are reported as an error.
func (b bytecodeJson) decode() ([]byte, error) {
	s := strings.TrimSpace(string(b))
	if strings.Contains(s, "__") {
		return nil, errors.New("bytecode contains unlinked library placeholders")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	if len(s) == 2 {
		return []byte{}, nil
	}
	return hexutil.Decode(s)
}

// LoadArtifact reads and parses the build artifact at the provided path. If the artifact does not record a contract
// name, the file name without its extension is used.
func LoadArtifact(path string) (*ContractArtifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read artifact '%s'", path)
	}
	fallbackName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	artifact, err := ParseArtifact(b, fallbackName)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse artifact '%s'", path)
	}
	return artifact, nil
}

// ParseArtifact parses a Hardhat or Foundry build artifact from its JSON representation.
func ParseArtifact(data []byte, fallbackName string) (*ContractArtifact, error) {
	var parsed artifactJson
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, errors.WithStack(err)
	}

	// Convert the abi structure to our parsed abi type
	if len(bytes.TrimSpace(parsed.Abi)) == 0 {
		return nil, errors.New("artifact does not contain an abi")
	}
	contractAbi, err := abi.JSON(bytes.NewReader(parsed.Abi))
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse abi")
	}

	name := parsed.ContractName
	if name == "" {
		name = fallbackName
	}

	// Decode our init and runtime bytecode
	initBytecode, err := parsed.Bytecode.decode()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse init bytecode for contract '%s'", name)
	}
	if len(initBytecode) == 0 {
		return nil, errors.Errorf("contract '%s' has no init bytecode, it may be abstract or an interface", name)
	}
	runtimeBytecode, err := parsed.DeployedBytecode.decode()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse runtime bytecode for contract '%s'", name)
	}

	return &ContractArtifact{
		Name:            name,
		SourcePath:      parsed.SourceName,
		Abi:             contractAbi,
		InitBytecode:    initBytecode,
		RuntimeBytecode: runtimeBytecode,
	}, nil
}
