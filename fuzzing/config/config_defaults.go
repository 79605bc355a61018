package config

import "github.com/thpani/fuzz-pb25/chain/config"

// GetDefaultProjectConfig obtains a default configuration for a project.
func GetDefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Fuzzing: FuzzingConfig{
			Artifact:               "",
			Episodes:               10_000,
			Accounts:               10,
			Seed:                   0,
			FlushInterval:          100,
			SenderBalance:          "1e30",
			VerifyDeployedBytecode: true,
			ResyncPermitNonces:     false,
			Permit: PermitConfig{
				Name:    "StakingToken",
				Version: "1",
			},
			FunctionOverrides: map[string]string{
				"removeAdmin": "lastAdminGuard",
				"stake":       "stakeAmount",
				"unstake":     "unstakeAmount",
				"permit":      "permitSignature",
			},
		},
		Chain: *config.DefaultLedgerConfig(),
		Logging: LoggingConfig{
			Level:        "info",
			NoColor:      false,
			Structured:   false,
			LogDirectory: "",
		},
	}
}
