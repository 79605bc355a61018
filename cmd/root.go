package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/thpani/fuzz-pb25/logging"
	"github.com/thpani/fuzz-pb25/version"
)

// rootCmd represents the root CLI command object which all other commands stem from.
var rootCmd = &cobra.Command{
	Use:     "pbfuzz",
	Version: version.GetInfo().Short(),
	Short:   "A stateful property-based fuzzer for staking token contracts",
	Long:    "pbfuzz drives a staking token contract with randomly generated calls and checks its conservation invariants after every call",
}

// cmdLogger is the sub-logger used by the CLI for messages emitted before a campaign takes over the global logger.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel)

func init() {
	cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)
	cmdLogger = cmdLogger.NewSubLogger("module", logging.CLI_SERVICE)
}

// Execute provides an exportable function to invoke the CLI. Returns an error if one was encountered.
func Execute() error {
	return rootCmd.Execute()
}
