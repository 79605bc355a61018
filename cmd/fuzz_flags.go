package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thpani/fuzz-pb25/fuzzing/config"
)

// addFuzzFlags adds the various flags for the fuzz command
func addFuzzFlags() error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	fuzzCmd.Flags().SortFlags = false

	// Config file
	fuzzCmd.Flags().String("config", "", "path to config file")

	// Artifact
	fuzzCmd.Flags().String("artifact", "", ArtifactFlagDescription)

	// Number of episodes
	fuzzCmd.Flags().Uint64("episodes", 0,
		fmt.Sprintf("number of episodes to run (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Episodes))

	// Number of accounts
	fuzzCmd.Flags().Int("accounts", 0,
		fmt.Sprintf("number of accounts to generate (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Accounts))

	// Seed
	fuzzCmd.Flags().Int64("seed", 0, "seed of the random stream, 0 picks one at startup")

	// Flush interval
	fuzzCmd.Flags().Uint64("flush-interval", 0,
		fmt.Sprintf("number of episodes between flushes of the output (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.FlushInterval))

	// Permit nonce resync
	fuzzCmd.Flags().Bool("resync-permit-nonces", false,
		fmt.Sprintf("re-read permit nonces from the contract before signing (unless a config file is provided, default is %t)", defaultConfig.Fuzzing.ResyncPermitNonces))

	// Logging
	fuzzCmd.Flags().String("log-level", "",
		fmt.Sprintf("minimum level of emitted logs (unless a config file is provided, default is %q)", defaultConfig.Logging.Level))
	fuzzCmd.Flags().Bool("no-color", false, "disable colored console output")
	fuzzCmd.Flags().Bool("structured", false, "write episode lines to the console as JSON")
	return nil
}

// updateProjectConfigWithFuzzFlags will update the given projectConfig with any CLI arguments that were provided to the fuzz command
func updateProjectConfigWithFuzzFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update the artifact path
	if err = updateArtifactPath(cmd, projectConfig); err != nil {
		return err
	}

	// Update number of episodes
	if cmd.Flags().Changed("episodes") {
		projectConfig.Fuzzing.Episodes, err = cmd.Flags().GetUint64("episodes")
		if err != nil {
			return err
		}
	}

	// Update number of accounts
	if cmd.Flags().Changed("accounts") {
		projectConfig.Fuzzing.Accounts, err = cmd.Flags().GetInt("accounts")
		if err != nil {
			return err
		}
	}

	// Update seed
	if cmd.Flags().Changed("seed") {
		projectConfig.Fuzzing.Seed, err = cmd.Flags().GetInt64("seed")
		if err != nil {
			return err
		}
	}

	// Update flush interval
	if cmd.Flags().Changed("flush-interval") {
		projectConfig.Fuzzing.FlushInterval, err = cmd.Flags().GetUint64("flush-interval")
		if err != nil {
			return err
		}
	}

	// Update permit nonce resync
	if cmd.Flags().Changed("resync-permit-nonces") {
		projectConfig.Fuzzing.ResyncPermitNonces, err = cmd.Flags().GetBool("resync-permit-nonces")
		if err != nil {
			return err
		}
	}

	// Update log level
	if cmd.Flags().Changed("log-level") {
		projectConfig.Logging.Level, err = cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
	}

	// Update color
	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}

	// Update structured output
	if cmd.Flags().Changed("structured") {
		projectConfig.Logging.Structured, err = cmd.Flags().GetBool("structured")
		if err != nil {
			return err
		}
	}
	return nil
}
