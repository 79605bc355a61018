package cmd

import (
	"github.com/spf13/cobra"
	"github.com/thpani/fuzz-pb25/fuzzing/config"
)

// updateArtifactPath will update the artifact path in the projectConfig if the --artifact flag is used in the
// command
func updateArtifactPath(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	if cmd.Flags().Changed("artifact") {
		artifact, err := cmd.Flags().GetString("artifact")
		if err != nil {
			return err
		}
		projectConfig.Fuzzing.Artifact = artifact
	}
	return nil
}
