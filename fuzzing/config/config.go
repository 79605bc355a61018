package config

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/thpani/fuzz-pb25/chain/config"
	"github.com/thpani/fuzz-pb25/utils"
)

// ProjectConfig describes the full configuration of a fuzzing campaign.
type ProjectConfig struct {
	// Fuzzing describes the configuration used in fuzzing campaigns.
	Fuzzing FuzzingConfig `json:"fuzzing" toml:"fuzzing"`

	// Chain describes the configuration of the ledger the contract is deployed to.
	Chain config.LedgerConfig `json:"chain" toml:"chain"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging" toml:"logging"`
}

// FuzzingConfig describes the configuration options used by the fuzzing.Campaign.
type FuzzingConfig struct {
	// Artifact describes the path to the Hardhat or Foundry build artifact of the contract under test.
	Artifact string `json:"artifact" toml:"artifact"`

	// Episodes describes the number of episodes (generated calls) the campaign runs for. Skipped episodes count
	// towards this number.
	Episodes uint64 `json:"episodes" toml:"episodes"`

	// Accounts describes how many accounts the campaign generates. The first account deploys the contract.
	Accounts int `json:"accounts" toml:"accounts"`

	// Seed describes the seed of the campaign's random stream. A zero value indicates a seed should be chosen at
	// startup. The seed in use is always logged so a run can be replayed.
	Seed int64 `json:"seed" toml:"seed"`

	// FlushInterval describes how many episodes pass between flushes of buffered log output.
	FlushInterval uint64 `json:"flushInterval" toml:"flushInterval"`

	// SenderBalance describes the ether balance (in wei) every sender is credited with before each transaction. It
	// accepts decimal ("1000"), scientific ("1e30") and hex ("0x3e8") notation.
	SenderBalance string `json:"senderBalance" toml:"senderBalance"`

	// VerifyDeployedBytecode describes whether the code stored after deployment must match the artifact's runtime
	// bytecode.
	VerifyDeployedBytecode bool `json:"verifyDeployedBytecode" toml:"verifyDeployedBytecode"`

	// ResyncPermitNonces describes whether permit nonces are re-read from the contract before every signature.
	// When disabled, nonces are tracked locally and drift from the contract when a permit reverts.
	ResyncPermitNonces bool `json:"resyncPermitNonces" toml:"resyncPermitNonces"`

	// Permit describes the EIP-712 domain the contract's permit function verifies signatures against.
	Permit PermitConfig `json:"permit" toml:"permit"`

	// FunctionOverrides maps contract function names to the name of the override strategy applied to generated
	// calls. The strategy "none" disables the override of a function.
	FunctionOverrides map[string]string `json:"functionOverrides" toml:"functionOverrides"`
}

// PermitConfig describes the EIP-712 domain of the contract's permit function.
type PermitConfig struct {
	// Name describes the domain name, usually the token name.
	Name string `json:"name" toml:"name"`

	// Version describes the domain version.
	Version string `json:"version" toml:"version"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes the minimum severity of emitted logs: trace, debug, info, warn or error.
	Level string `json:"level" toml:"level"`

	// NoColor describes whether console output should be left uncolored.
	NoColor bool `json:"noColor" toml:"noColor"`

	// Structured describes whether episode lines are written to the console as JSON rather than plain text.
	Structured bool `json:"structured" toml:"structured"`

	// LogDirectory describes the directory where structured log files will be written. If the string is empty, no log
	// files are kept.
	LogDirectory string `json:"logDirectory" toml:"logDirectory"`
}

// ZerologLevel parses the configured log level.
func (l LoggingConfig) ZerologLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil {
		return zerolog.NoLevel, errors.Errorf("invalid log level '%s'", l.Level)
	}
	return level, nil
}

// SenderBalanceWei parses the configured sender balance.
func (c FuzzingConfig) SenderBalanceWei() (*big.Int, error) {
	return ParseWei(c.SenderBalance)
}

// ParseWei parses a non-negative integer amount given in decimal, scientific or hex notation.
func ParseWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	var value *big.Int
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		parsed, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, errors.Errorf("invalid hex amount '%s'", s)
		}
		value = parsed
	} else {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, errors.Errorf("invalid amount '%s'", s)
		}
		if !d.Equal(d.Truncate(0)) {
			return nil, errors.Errorf("amount '%s' is not an integer", s)
		}
		value = d.BigInt()
	}
	if value.Sign() < 0 || value.Cmp(utils.MaxUint256) > 0 {
		return nil, errors.Errorf("amount '%s' is out of range", s)
	}
	return value, nil
}

// ReadProjectConfigFromFile reads a ProjectConfig from a provided file path. Files ending in .toml are parsed as
// TOML, anything else as JSON. Fields absent from the file keep their default values.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// TOML documents are converted to JSON so both formats overlay the defaults the same way.
	if isTOML(path) {
		tree, err := toml.LoadBytes(b)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse toml config")
		}
		b, err = json.Marshal(tree.ToMap())
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	// Parse the project configuration
	projectConfig := GetDefaultProjectConfig()
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path, in TOML if the path ends in .toml and in indented
// JSON otherwise. Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	var (
		b   []byte
		err error
	)
	if isTOML(path) {
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(*p)
		b = buf.Bytes()
	} else {
		b, err = json.MarshalIndent(p, "", "\t")
	}
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	return utils.WriteFile(path, b)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	if p.Fuzzing.Artifact == "" {
		return errors.New("an artifact path must be provided")
	}

	// Verify the account count is a positive number
	if p.Fuzzing.Accounts <= 0 {
		return errors.New("account count must be a positive number")
	}

	if p.Fuzzing.FlushInterval == 0 {
		return errors.New("flush interval must be a positive number")
	}

	if _, err := p.Fuzzing.SenderBalanceWei(); err != nil {
		return errors.Wrap(err, "invalid sender balance")
	}

	if p.Fuzzing.Permit.Name == "" || p.Fuzzing.Permit.Version == "" {
		return errors.New("permit domain name and version must be provided")
	}

	for function, strategy := range p.Fuzzing.FunctionOverrides {
		if function == "" || strategy == "" {
			return errors.Errorf("function override '%s' -> '%s' is malformed", function, strategy)
		}
	}

	// Verify gas limits are appropriate
	if p.Chain.BlockGasLimit < p.Chain.TransactionGasLimit {
		return errors.New("block gas limit cannot be less than transaction gas limit")
	}
	if p.Chain.BlockGasLimit == 0 || p.Chain.TransactionGasLimit == 0 {
		return errors.New("block and transaction gas limit cannot be zero")
	}
	if p.Chain.ChainID == 0 {
		return errors.New("chain id cannot be zero")
	}

	if _, err := p.Logging.ZerologLevel(); err != nil {
		return err
	}
	return nil
}
