package utils

import (
	"encoding/json"

	"github.com/crytic/medusa-geth/params"
	"github.com/pkg/errors"
)

// CopyChainConfig takes a chain configuration and creates a deep copy through a JSON round trip, so that fork
// times set on the copy never leak into go-ethereum's shared package-level configs.
// Returns the copy of the chain configuration, or an error if one occurs.
func CopyChainConfig(config *params.ChainConfig) (*params.ChainConfig, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var chainConfig *params.ChainConfig
	err = json.Unmarshal(data, &chainConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return chainConfig, nil
}
