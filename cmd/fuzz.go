package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thpani/fuzz-pb25/chain"
	"github.com/thpani/fuzz-pb25/cmd/exitcodes"
	"github.com/thpani/fuzz-pb25/compilation"
	"github.com/thpani/fuzz-pb25/fuzzing"
	"github.com/thpani/fuzz-pb25/fuzzing/config"
	"github.com/thpani/fuzz-pb25/logging"
	"github.com/thpani/fuzz-pb25/logging/colors"
	"github.com/thpani/fuzz-pb25/utils"
)

// fuzzCmd represents the command provider for fuzzing
var fuzzCmd = &cobra.Command{
	Use:               "fuzz",
	Short:             "Starts a fuzzing campaign",
	Long:              `Starts a fuzzing campaign against the contract of the configured artifact`,
	Args:              cmdValidateFuzzArgs,
	ValidArgsFunction: cmdValidFuzzArgs,
	RunE:              cmdRunFuzz,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the fuzz command
	if err := addFuzzFlags(); err != nil {
		cmdLogger.Error("Failed to initialize the fuzz command", err)
		os.Exit(exitcodes.ExitCodeFuzzerError)
	}

	// Add the fuzz command and its associated flags to the root command
	rootCmd.AddCommand(fuzzCmd)
}

// cmdValidFuzzArgs will return which flags and sub-commands are valid for dynamic completion for the fuzz command
func cmdValidFuzzArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateFuzzArgs makes sure that there are no positional arguments provided to the fuzz command
func cmdValidateFuzzArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("fuzz does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the fuzz command", err)
		return exitcodes.NewHandledErrorWithExitCode(err, exitcodes.ExitCodeFuzzerError)
	}
	return nil
}

// cmdRunFuzz executes the CLI fuzz command. Any setup or campaign failure exits with ExitCodeFuzzerError, an invariant
// violation with ExitCodeInvariantViolation. A campaign stopped by an interrupt signal exits successfully.
func cmdRunFuzz(cmd *cobra.Command, args []string) error {
	projectConfig, err := readFuzzProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return exitcodes.NewHandledErrorWithExitCode(err, exitcodes.ExitCodeFuzzerError)
	}

	// Load the artifact before taking over the global logger, so configuration problems surface on the CLI logger
	artifact, err := compilation.LoadArtifact(projectConfig.Fuzzing.Artifact)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return exitcodes.NewHandledErrorWithExitCode(err, exitcodes.ExitCodeFuzzerError)
	}

	closeLogging, err := setupCampaignLogging(projectConfig.Logging, os.Stdout)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return exitcodes.NewHandledErrorWithExitCode(err, exitcodes.ExitCodeFuzzerError)
	}
	defer closeLogging()

	ledger, err := chain.NewTestLedger(&projectConfig.Chain)
	if err != nil {
		logging.GlobalLogger.Error("Failed to create the ledger", err)
		return exitcodes.NewHandledErrorWithExitCode(err, exitcodes.ExitCodeFuzzerError)
	}
	defer ledger.Close()

	campaign, err := fuzzing.NewCampaign(projectConfig, ledger, artifact, nil)
	if err != nil {
		logging.GlobalLogger.Error("Failed to set up the campaign", err)
		return exitcodes.NewHandledErrorWithExitCode(err, exitcodes.ExitCodeFuzzerError)
	}

	// Stop fuzzing on keyboard interrupts. The campaign observes cancellation between episodes.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCampaign(ctx, campaign)
}

// runCampaign runs the campaign and maps its outcome to an exit code. A completed or interrupted campaign returns nil,
// an invariant violation an error with ExitCodeInvariantViolation and any other failure an error with
// ExitCodeFuzzerError. The campaign has already logged a violation, other failures are logged here.
func runCampaign(ctx context.Context, campaign *fuzzing.Campaign) error {
	err := campaign.Run(ctx)
	var violation *fuzzing.InvariantViolationError
	if errors.As(err, &violation) {
		return exitcodes.NewHandledErrorWithExitCode(err, exitcodes.ExitCodeInvariantViolation)
	}
	if err != nil {
		logging.GlobalLogger.Error("Campaign failed", err)
		return exitcodes.NewHandledErrorWithExitCode(err, exitcodes.ExitCodeFuzzerError)
	}
	return nil
}

// readFuzzProjectConfig obtains the project configuration of the fuzz command:
// #1: If --config was used, the file must exist and is read.
// #2: Otherwise pbfuzz.json in the working directory is read if it exists.
// #3: Otherwise the default project configuration is used.
// Flags are applied on top, a relative artifact path is resolved against the directory of the configuration file, and
// the result is validated.
func readFuzzProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	var projectConfig *config.ProjectConfig
	configDirectory := ""
	switch {
	case utils.FileExists(configPath):
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err = config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			return nil, err
		}
		configDirectory = filepath.Dir(configPath)
	case configFlagUsed:
		return nil, errors.Errorf("config file %s does not exist", configPath)
	default:
		cmdLogger.Warn("Unable to find the config file at ", configPath, ", will use the default project configuration instead")
		projectConfig = config.GetDefaultProjectConfig()
	}

	// Flag values are relative to the working directory, config values to the config file.
	artifactFromFile := !cmd.Flags().Changed("artifact")
	if err = updateProjectConfigWithFuzzFlags(cmd, projectConfig); err != nil {
		return nil, err
	}
	artifact := projectConfig.Fuzzing.Artifact
	if artifactFromFile && configDirectory != "" && artifact != "" && !filepath.IsAbs(artifact) {
		projectConfig.Fuzzing.Artifact = filepath.Join(configDirectory, artifact)
	}

	if err = projectConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid project configuration")
	}
	return projectConfig, nil
}

// setupCampaignLogging replaces the global logger with one configured from the logging configuration. Console output
// is buffered and flushed by the campaign every flush interval. If a log directory is configured, structured logs are
// also written to a new file in it. The returned function flushes and closes every writer.
func setupCampaignLogging(loggingConfig config.LoggingConfig, console io.Writer) (func(), error) {
	level, err := loggingConfig.ZerologLevel()
	if err != nil {
		return nil, err
	}
	if loggingConfig.NoColor {
		colors.DisableColor()
	}

	logger := logging.NewLogger(level)
	buffered := bufio.NewWriter(console)
	if loggingConfig.Structured {
		logger.AddWriter(buffered, logging.STRUCTURED, false)
	} else {
		logger.AddWriter(buffered, logging.UNSTRUCTURED, !loggingConfig.NoColor)
	}

	var logFile *os.File
	if loggingConfig.LogDirectory != "" {
		fileName := fmt.Sprintf("pbfuzz-%s.log", time.Now().Format("20060102-150405"))
		logFile, err = utils.CreateFile(loggingConfig.LogDirectory, fileName)
		if err != nil {
			return nil, errors.Wrap(err, "could not create log file")
		}
		logger.AddWriter(logFile, logging.STRUCTURED, false)
	}
	logging.GlobalLogger = logger

	return func() {
		_ = logger.Flush()
		if logFile != nil {
			_ = logFile.Close()
		}
	}, nil
}
