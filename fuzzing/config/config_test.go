package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *ProjectConfig {
	projectConfig := GetDefaultProjectConfig()
	projectConfig.Fuzzing.Artifact = "StakingToken.json"
	return projectConfig
}

// TestDefaultsValidate checks the default configuration only lacks an artifact.
func TestDefaultsValidate(t *testing.T) {
	assert.Error(t, GetDefaultProjectConfig().Validate())
	assert.NoError(t, validConfig().Validate())
}

// TestValidateRejectsBadValues checks each malformed field is rejected.
func TestValidateRejectsBadValues(t *testing.T) {
	mutations := map[string]func(*ProjectConfig){
		"no accounts":          func(p *ProjectConfig) { p.Fuzzing.Accounts = 0 },
		"no flush interval":    func(p *ProjectConfig) { p.Fuzzing.FlushInterval = 0 },
		"bad sender balance":   func(p *ProjectConfig) { p.Fuzzing.SenderBalance = "lots" },
		"no permit name":       func(p *ProjectConfig) { p.Fuzzing.Permit.Name = "" },
		"empty override":       func(p *ProjectConfig) { p.Fuzzing.FunctionOverrides["stake"] = "" },
		"tx gas above block":   func(p *ProjectConfig) { p.Chain.TransactionGasLimit = p.Chain.BlockGasLimit + 1 },
		"zero gas limit":       func(p *ProjectConfig) { p.Chain.BlockGasLimit, p.Chain.TransactionGasLimit = 0, 0 },
		"zero chain id":        func(p *ProjectConfig) { p.Chain.ChainID = 0 },
		"unknown log level":    func(p *ProjectConfig) { p.Logging.Level = "loud" },
		"missing the artifact": func(p *ProjectConfig) { p.Fuzzing.Artifact = "" },
	}
	for name, mutate := range mutations {
		projectConfig := validConfig()
		mutate(projectConfig)
		assert.Error(t, projectConfig.Validate(), name)
	}
}

// TestParseWei checks the supported amount notations.
func TestParseWei(t *testing.T) {
	testCases := []struct {
		input    string
		expected *big.Int
	}{
		{"0", big.NewInt(0)},
		{"1000", big.NewInt(1000)},
		{"1e5", big.NewInt(100000)},
		{"10E-1", big.NewInt(1)},
		{"0x1337", big.NewInt(4919)},
		{"0X10", big.NewInt(16)},
		{"1e30", new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)},
	}
	for _, tc := range testCases {
		value, err := ParseWei(tc.input)
		require.NoError(t, err, tc.input)
		assert.EqualValues(t, tc.expected.String(), value.String(), tc.input)
	}

	for _, input := range []string{"", "abc", "1.5", "-1", "0xzz", "1e100"} {
		_, err := ParseWei(input)
		assert.Error(t, err, input)
	}
}

// TestLoggingLevel checks log levels are parsed case-insensitively.
func TestLoggingLevel(t *testing.T) {
	level, err := LoggingConfig{Level: "DEBUG"}.ZerologLevel()
	require.NoError(t, err)
	assert.EqualValues(t, zerolog.DebugLevel, level)
}

// TestJSONRoundTrip checks a written JSON config reads back identically.
func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pbfuzz.json")
	projectConfig := validConfig()
	projectConfig.Fuzzing.Seed = 42
	require.NoError(t, projectConfig.WriteToFile(path))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, projectConfig, read)
}

// TestTOMLOverlaysDefaults checks a partial TOML config keeps defaults for omitted fields and merges overrides.
func TestTOMLOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pbfuzz.toml")
	document := `
[fuzzing]
artifact = "out/StakingToken.json"
episodes = 250
seed = 7

[fuzzing.functionOverrides]
removeAdmin = "none"

[chain]
chainId = 31337

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(document), 0644))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, "out/StakingToken.json", read.Fuzzing.Artifact)
	assert.EqualValues(t, 250, read.Fuzzing.Episodes)
	assert.EqualValues(t, 7, read.Fuzzing.Seed)
	assert.EqualValues(t, 10, read.Fuzzing.Accounts)
	assert.EqualValues(t, "none", read.Fuzzing.FunctionOverrides["removeAdmin"])
	assert.EqualValues(t, "stakeAmount", read.Fuzzing.FunctionOverrides["stake"])
	assert.EqualValues(t, 31337, read.Chain.ChainID)
	assert.EqualValues(t, GetDefaultProjectConfig().Chain.BlockGasLimit, read.Chain.BlockGasLimit)
	assert.EqualValues(t, "debug", read.Logging.Level)
	assert.NoError(t, read.Validate())
}

// TestTOMLRoundTrip checks a written TOML config reads back identically.
func TestTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pbfuzz.toml")
	projectConfig := validConfig()
	require.NoError(t, projectConfig.WriteToFile(path))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, projectConfig, read)
}

// TestReadMissingFile checks a missing config file is an error.
func TestReadMissingFile(t *testing.T) {
	_, err := ReadProjectConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
