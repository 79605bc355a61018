package cmd

import (
	"github.com/spf13/cobra"
	"github.com/thpani/fuzz-pb25/fuzzing/config"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Artifact of the contract under test
	initCmd.Flags().String("artifact", "", ArtifactFlagDescription)
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	return updateArtifactPath(cmd, projectConfig)
}
