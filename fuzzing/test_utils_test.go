package fuzzing

import (
	"bytes"
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thpani/fuzz-pb25/chain/simulated"
	"github.com/thpani/fuzz-pb25/compilation"
	"github.com/thpani/fuzz-pb25/fuzzing/accounts"
	"github.com/thpani/fuzz-pb25/fuzzing/config"
	"github.com/thpani/fuzz-pb25/fuzzing/harness"
	"github.com/thpani/fuzz-pb25/fuzzing/permit"
	"github.com/thpani/fuzz-pb25/logging"
)

// viewFunctionsAbi describes the read-only functions of the staking token the harness queries.
const viewFunctionsAbi = `
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"stakingShares","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"totalStakingShares","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"countAdmins","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"nonces","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}`

const (
	removeAdminAbi = `{"type":"function","name":"removeAdmin","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[]}`
	stakeAbi       = `{"type":"function","name":"stake","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]}`
	unstakeAbi     = `{"type":"function","name":"unstake","stateMutability":"nonpayable","inputs":[{"name":"shares","type":"uint256"}],"outputs":[]}`
	approveAbi     = `{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}`
	setNameAbi     = `{"type":"function","name":"setName","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"}],"outputs":[]}`
	permitAbi      = `{"type":"function","name":"permit","stateMutability":"nonpayable","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"},{"name":"value","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[]}`
)

// abiWithFunctions parses an ABI holding the staking token's view functions plus the provided function descriptors.
func abiWithFunctions(t *testing.T, functions ...string) *abi.ABI {
	definitions := append([]string{viewFunctionsAbi}, functions...)
	parsed, err := abi.JSON(strings.NewReader("[" + strings.Join(definitions, ",") + "]"))
	require.NoError(t, err)
	return &parsed
}

// artifactWithFunctions returns a copy of the staking token artifact whose ABI only declares the view functions and
// the provided function descriptors. It still deploys a full staking token on the simulated ledger.
func artifactWithFunctions(t *testing.T, base *compilation.ContractArtifact, functions ...string) *compilation.ContractArtifact {
	return &compilation.ContractArtifact{
		Name:            base.Name,
		Abi:             *abiWithFunctions(t, functions...),
		InitBytecode:    base.InitBytecode,
		RuntimeBytecode: base.RuntimeBytecode,
	}
}

// newTestLogger creates a logger writing uncolored console lines to the returned buffer.
func newTestLogger(level zerolog.Level) (*logging.Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	logger := logging.NewLogger(level)
	logger.AddWriter(buf, logging.UNSTRUCTURED, false)
	return logger, buf
}

// newTestConfig returns the default project configuration with a fixed seed and a small campaign.
func newTestConfig(seed int64, episodes uint64) *config.ProjectConfig {
	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Fuzzing.Seed = seed
	projectConfig.Fuzzing.Episodes = episodes
	projectConfig.Fuzzing.Accounts = 4
	projectConfig.Fuzzing.FlushInterval = 25
	return projectConfig
}

// newTestCampaign sets up a campaign against a fresh simulated staking token ledger. If artifact is nil, the full
// staking token artifact is fuzzed.
func newTestCampaign(t *testing.T, projectConfig *config.ProjectConfig, artifact *compilation.ContractArtifact) (*Campaign, *simulated.Ledger, *bytes.Buffer) {
	ledger, tokenArtifact, err := simulated.NewStakingTokenLedger(nil)
	require.NoError(t, err)
	if artifact == nil {
		artifact = tokenArtifact
	}
	logger, buf := newTestLogger(zerolog.InfoLevel)
	campaign, err := NewCampaign(projectConfig, ledger, artifact, logger)
	require.NoError(t, err)
	return campaign, ledger, buf
}

// generatorFixture describes a deployed staking token and the collaborators a CallGenerator needs.
type generatorFixture struct {
	ledger          *simulated.Ledger
	artifact        *compilation.ContractArtifact
	pool            *accounts.AccountPool
	harness         *harness.Harness
	signer          *permit.Signer
	contractAddress common.Address
	overrideContext *OverrideContext
}

// newGeneratorFixture deploys the full staking token and derives every random decision from the seed.
func newGeneratorFixture(t *testing.T, seed int64) *generatorFixture {
	randomProvider := rand.New(rand.NewSource(seed))
	ledger, artifact, err := simulated.NewStakingTokenLedger(nil)
	require.NoError(t, err)
	pool, err := accounts.NewAccountPool(3, randomProvider)
	require.NoError(t, err)
	h, err := harness.NewHarness(ledger, pool, new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil))
	require.NoError(t, err)
	contractAddress, err := h.Deploy(artifact, true)
	require.NoError(t, err)
	signer, err := permit.NewSigner(simulated.StakingTokenName, simulated.StakingTokenVersion, ledger.ChainID(), contractAddress, pool)
	require.NoError(t, err)

	return &generatorFixture{
		ledger:          ledger,
		artifact:        artifact,
		pool:            pool,
		harness:         h,
		signer:          signer,
		contractAddress: contractAddress,
		overrideContext: &OverrideContext{
			RandomProvider: randomProvider,
			State:          h,
			Pool:           pool,
			Signer:         signer,
		},
	}
}

// generator creates a CallGenerator over the ABI with the provided override bindings.
func (f *generatorFixture) generator(t *testing.T, contractAbi *abi.ABI, bindings map[string]string) *CallGenerator {
	overrides, err := NewCallOverrideTable(bindings)
	require.NoError(t, err)
	generator, err := NewCallGenerator(contractAbi, f.contractAddress, overrides, f.overrideContext)
	require.NoError(t, err)
	return generator
}

// mustSucceed submits a call to the token from the signer and requires it to succeed.
func (f *generatorFixture) mustSucceed(t *testing.T, signer accounts.Account, method string, args ...any) {
	result, err := f.harness.Call(signer, method, args...)
	require.NoError(t, err)
	require.True(t, result.Success, "%s reverted: %s", method, f.harness.ErrorDecoder().Decode(result))
}

// stakingToken returns the native token deployed by the fixture.
func (f *generatorFixture) stakingToken(t *testing.T) *simulated.StakingToken {
	token, ok := f.ledger.Contract(f.contractAddress).(*simulated.StakingToken)
	require.True(t, ok)
	return token
}

// assertBigEqual asserts two integers are equal by value.
func assertBigEqual(t *testing.T, expected *big.Int, actual *big.Int, msgAndArgs ...any) {
	assert.Equal(t, expected.String(), actual.String(), msgAndArgs...)
}
