package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "pbfuzz.json"

// ArtifactFlagDescription describes the description of the --artifact flag shared by the fuzz and init commands.
const ArtifactFlagDescription = "path to the Hardhat or Foundry build artifact of the contract to fuzz"
