package cmd

import (
	"bytes"
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thpani/fuzz-pb25/chain/simulated"
	"github.com/thpani/fuzz-pb25/cmd/exitcodes"
	"github.com/thpani/fuzz-pb25/fuzzing"
	"github.com/thpani/fuzz-pb25/fuzzing/config"
	"github.com/thpani/fuzz-pb25/logging"
)

// execute runs the root command with the provided arguments and returns the resulting exit code.
func execute(t *testing.T, args ...string) int {
	rootCmd.SetArgs(args)
	rootCmd.SetIn(bytes.NewBufferString("n\n"))
	_, exitCode := exitcodes.GetInnerErrorAndExitCode(rootCmd.Execute())
	return exitCode
}

// TestInitWritesDefaultConfig checks init writes the default configuration with the artifact flag applied, in the
// format given by the file extension.
func TestInitWritesDefaultConfig(t *testing.T) {
	for _, name := range []string{"pbfuzz.json", "pbfuzz.toml"} {
		t.Run(name, func(t *testing.T) {
			outputPath := filepath.Join(t.TempDir(), name)
			assert.EqualValues(t, exitcodes.ExitCodeSuccess, execute(t, "init", "--out", outputPath, "--artifact", "out/StakingToken.json"))

			projectConfig, err := config.ReadProjectConfigFromFile(outputPath)
			require.NoError(t, err)
			expected := config.GetDefaultProjectConfig()
			expected.Fuzzing.Artifact = "out/StakingToken.json"
			assert.EqualValues(t, expected, projectConfig)
		})
	}
}

// TestInitKeepsExistingConfig checks an existing file is only replaced once the user confirms.
func TestInitKeepsExistingConfig(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), DefaultProjectConfigFilename)
	require.NoError(t, os.WriteFile(outputPath, []byte("{}"), 0644))

	assert.EqualValues(t, exitcodes.ExitCodeSuccess, execute(t, "init", "--out", outputPath, "--artifact", "token.json"))
	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.EqualValues(t, "{}", string(data))
}

// TestFuzzMissingConfig checks an explicitly provided config file must exist.
func TestFuzzMissingConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	assert.EqualValues(t, exitcodes.ExitCodeFuzzerError, execute(t, "fuzz", "--config", missing, "--no-color"))
}

// TestFuzzFailedQueryIsFatal runs the CLI against the EVM ledger with an artifact whose code reverts every call, so
// the first query of the campaign fails.
func TestFuzzFailedQueryIsFatal(t *testing.T) {
	directory := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(directory, "token.json"), simulated.StakingTokenArtifactJSON, 0644))

	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Fuzzing.Artifact = "token.json"
	projectConfig.Fuzzing.Episodes = 5
	projectConfig.Fuzzing.Seed = 1
	configPath := filepath.Join(directory, DefaultProjectConfigFilename)
	require.NoError(t, projectConfig.WriteToFile(configPath))

	assert.EqualValues(t, exitcodes.ExitCodeFuzzerError, execute(t, "fuzz", "--config", configPath, "--no-color"))
}

// newStakingTokenCampaign sets up a campaign against the native staking token, returning the token so tests can
// tamper with its state.
func newStakingTokenCampaign(t *testing.T, episodes uint64) (*fuzzing.Campaign, *simulated.StakingToken) {
	ledger, artifact, err := simulated.NewStakingTokenLedger(nil)
	require.NoError(t, err)

	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Fuzzing.Episodes = episodes
	projectConfig.Fuzzing.Accounts = 4
	projectConfig.Fuzzing.Seed = 3

	logger := logging.NewLogger(zerolog.InfoLevel)
	logger.AddWriter(&bytes.Buffer{}, logging.UNSTRUCTURED, false)
	campaign, err := fuzzing.NewCampaign(projectConfig, ledger, artifact, logger)
	require.NoError(t, err)

	token, ok := ledger.Contract(campaign.Harness().ContractAddress()).(*simulated.StakingToken)
	require.True(t, ok)
	return campaign, token
}

// TestRunCampaignExitCodes checks the outcome of a campaign maps to the exit code the process terminates with.
func TestRunCampaignExitCodes(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		campaign, _ := newStakingTokenCampaign(t, 50)
		err, exitCode := exitcodes.GetInnerErrorAndExitCode(runCampaign(context.Background(), campaign))
		assert.NoError(t, err)
		assert.EqualValues(t, exitcodes.ExitCodeSuccess, exitCode)
	})

	t.Run("interrupted", func(t *testing.T) {
		campaign, _ := newStakingTokenCampaign(t, 50)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err, exitCode := exitcodes.GetInnerErrorAndExitCode(runCampaign(ctx, campaign))
		assert.NoError(t, err)
		assert.EqualValues(t, exitcodes.ExitCodeSuccess, exitCode)
		assert.EqualValues(t, 0, campaign.Stats().Executed())
	})

	t.Run("invariant violation", func(t *testing.T) {
		campaign, token := newStakingTokenCampaign(t, 50)
		token.CorruptTotalSupply(big.NewInt(1))

		runErr := runCampaign(context.Background(), campaign)
		var violation *fuzzing.InvariantViolationError
		assert.True(t, errors.As(runErr, &violation))

		// The violation was already logged by the campaign.
		err, exitCode := exitcodes.GetInnerErrorAndExitCode(runErr)
		assert.NoError(t, err)
		assert.EqualValues(t, exitcodes.ExitCodeInvariantViolation, exitCode)
	})

	t.Run("fatal error", func(t *testing.T) {
		campaign, _ := newStakingTokenCampaign(t, 50)
		campaign.Events.EpisodeExecuted.Subscribe(func(fuzzing.EpisodeExecutedEvent) error {
			return errors.New("subscriber failed")
		})
		_, exitCode := exitcodes.GetInnerErrorAndExitCode(runCampaign(context.Background(), campaign))
		assert.EqualValues(t, exitcodes.ExitCodeFuzzerError, exitCode)
	})
}
