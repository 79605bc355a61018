package fuzzing

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thpani/fuzz-pb25/chain/simulated"
	"github.com/thpani/fuzz-pb25/fuzzing/valuegeneration"
)

// TestCampaignCompletes runs a campaign against the staking token to completion and checks every episode is
// accounted for.
func TestCampaignCompletes(t *testing.T) {
	campaign, _, buf := newTestCampaign(t, newTestConfig(7, 400), nil)
	require.NoError(t, campaign.Run(context.Background()))

	stats := campaign.Stats()
	assert.EqualValues(t, 400, stats.Executed()+stats.Skipped())
	assert.NotEmpty(t, stats.Functions())

	successes, failures := uint64(0), uint64(0)
	for _, name := range stats.Functions() {
		successes += stats.Function(name).Successes
		failures += stats.Function(name).Errors
	}
	assert.Greater(t, successes, uint64(0))
	assert.Greater(t, failures, uint64(0))

	output := buf.String()
	assert.Contains(t, output, campaign.RunID().String())
	assert.Contains(t, output, "seed 7")
	assert.Contains(t, output, "Campaign summary")
	assert.Contains(t, output, "✔")
	assert.Contains(t, output, "✘")
}

// TestCampaignIsReproducible checks two runs with the same seed produce the same episodes.
func TestCampaignIsReproducible(t *testing.T) {
	run := func() string {
		campaign, _, buf := newTestCampaign(t, newTestConfig(11, 150), nil)
		require.NoError(t, campaign.Run(context.Background()))
		return strings.ReplaceAll(buf.String(), campaign.RunID().String(), "")
	}
	assert.Equal(t, run(), run())
}

// TestCampaignPicksSeed checks a zero seed is replaced by one which is reported.
func TestCampaignPicksSeed(t *testing.T) {
	campaign, _, _ := newTestCampaign(t, newTestConfig(0, 1), nil)
	assert.NotZero(t, campaign.Seed())
}

// TestCampaignInterrupted checks a cancelled campaign stops before the next episode and still succeeds.
func TestCampaignInterrupted(t *testing.T) {
	campaign, _, buf := newTestCampaign(t, newTestConfig(5, 100), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, campaign.Run(ctx))

	assert.EqualValues(t, 0, campaign.Stats().Executed())
	assert.EqualValues(t, 0, campaign.Stats().Skipped())
	assert.Contains(t, buf.String(), "interrupted after 0 episodes")
	assert.Contains(t, buf.String(), "Campaign summary")
}

// TestCampaignInvariantViolation checks a broken token stops the campaign after the first executed episode with a
// dump of both totals.
func TestCampaignInvariantViolation(t *testing.T) {
	campaign, ledger, buf := newTestCampaign(t, newTestConfig(13, 100), nil)
	token, ok := ledger.Contract(campaign.Harness().ContractAddress()).(*simulated.StakingToken)
	require.True(t, ok)
	token.CorruptTotalSupply(big.NewInt(1))

	err := campaign.Run(context.Background())
	var violation *InvariantViolationError
	require.True(t, errors.As(err, &violation), "expected a violation, got %v", err)
	assert.EqualValues(t, InvariantBalancesMatchSupply, violation.Invariant)
	assert.EqualValues(t, 1, campaign.Stats().Executed())

	expected := new(big.Int).Add(simulated.StakingTokenInitialSupply, big.NewInt(1))
	assertBigEqual(t, expected, violation.Expected)
	assertBigEqual(t, simulated.StakingTokenInitialSupply, violation.Actual)

	output := buf.String()
	assert.Contains(t, output, expected.String())
	assert.Contains(t, output, simulated.StakingTokenInitialSupply.String())
	assert.Contains(t, output, "Campaign summary")
}

// TestCampaignUnsupportedArgumentType checks a function with an unsupported argument type is reported at setup and
// stops the campaign once drawn.
func TestCampaignUnsupportedArgumentType(t *testing.T) {
	_, tokenArtifact, err := simulated.NewStakingTokenLedger(nil)
	require.NoError(t, err)
	campaign, _, buf := newTestCampaign(t, newTestConfig(17, 10), artifactWithFunctions(t, tokenArtifact, setNameAbi))
	assert.Contains(t, buf.String(), "unsupported type 'string'")

	err = campaign.Run(context.Background())
	var unsupported *valuegeneration.UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported), "expected an unsupported type, got %v", err)
	assert.EqualValues(t, "setName", unsupported.Method)
	assert.EqualValues(t, 0, campaign.Stats().Executed())
}

// TestCampaignSkipsLastAdminRemoval checks vetoed episodes count towards the budget but are never submitted.
func TestCampaignSkipsLastAdminRemoval(t *testing.T) {
	_, tokenArtifact, err := simulated.NewStakingTokenLedger(nil)
	require.NoError(t, err)
	campaign, _, buf := newTestCampaign(t, newTestConfig(19, 25), artifactWithFunctions(t, tokenArtifact, removeAdminAbi))
	require.NoError(t, campaign.Run(context.Background()))

	assert.EqualValues(t, 25, campaign.Stats().Skipped())
	assert.EqualValues(t, 0, campaign.Stats().Executed())
	assert.Empty(t, campaign.Stats().Functions())
	assert.NotContains(t, buf.String(), "removeAdmin(")

	admins, err := campaign.Harness().CountAdmins()
	require.NoError(t, err)
	assert.EqualValues(t, "1", admins.String())
}

// TestNewCampaignRejectsBadSetup checks setup failures are reported before any episode runs.
func TestNewCampaignRejectsBadSetup(t *testing.T) {
	ledger, tokenArtifact, err := simulated.NewStakingTokenLedger(nil)
	require.NoError(t, err)
	logger, _ := newTestLogger(0)

	unknownOverride := newTestConfig(1, 1)
	unknownOverride.Fuzzing.FunctionOverrides["stake"] = "doubleStake"
	_, err = NewCampaign(unknownOverride, ledger, tokenArtifact, logger)
	assert.ErrorContains(t, err, "doubleStake")

	noAccounts := newTestConfig(1, 1)
	noAccounts.Fuzzing.Accounts = 0
	_, err = NewCampaign(noAccounts, ledger, tokenArtifact, logger)
	assert.Error(t, err)

	ledger, _, err = simulated.NewStakingTokenLedger(nil)
	require.NoError(t, err)
	_, err = NewCampaign(newTestConfig(1, 1), ledger, artifactWithFunctions(t, tokenArtifact), logger)
	assert.ErrorContains(t, err, "cannot be fuzzed")
}

// TestCampaignEvents checks subscribers observe every episode and the reason the campaign stopped.
func TestCampaignEvents(t *testing.T) {
	campaign, _, _ := newTestCampaign(t, newTestConfig(21, 60), nil)

	started, executed, skipped := 0, uint64(0), uint64(0)
	var stopErr error
	stopped := false
	campaign.Events.CampaignStarting.Subscribe(func(event CampaignStartingEvent) error {
		assert.Same(t, campaign, event.Campaign)
		started++
		return nil
	})
	campaign.Events.EpisodeExecuted.Subscribe(func(event EpisodeExecutedEvent) error {
		executed++
		assert.NotNil(t, event.Result)
		assert.Equal(t, event.Result.Failed(), event.DecodedError != "")
		return nil
	})
	campaign.Events.EpisodeSkipped.Subscribe(func(event EpisodeSkippedEvent) error {
		skipped++
		return nil
	})
	campaign.Events.CampaignStopping.Subscribe(func(event CampaignStoppingEvent) error {
		stopped = true
		stopErr = event.Err
		return nil
	})

	require.NoError(t, campaign.Run(context.Background()))
	assert.EqualValues(t, 1, started)
	assert.True(t, stopped)
	assert.NoError(t, stopErr)
	assert.EqualValues(t, campaign.Stats().Executed(), executed)
	assert.EqualValues(t, campaign.Stats().Skipped(), skipped)
	assert.EqualValues(t, 60, executed+skipped)

	// A violation is handed to the stopping subscribers.
	violated, ledger, _ := newTestCampaign(t, newTestConfig(21, 10), nil)
	token, ok := ledger.Contract(violated.Harness().ContractAddress()).(*simulated.StakingToken)
	require.True(t, ok)
	token.CorruptTotalSupply(big.NewInt(1))

	var reported error
	violated.Events.CampaignStopping.Subscribe(func(event CampaignStoppingEvent) error {
		reported = event.Err
		return nil
	})
	err := violated.Run(context.Background())
	var violation *InvariantViolationError
	require.True(t, errors.As(err, &violation))
	assert.Same(t, err, reported)
}

// TestCampaignEventHandlerErrorIsFatal checks a failing subscriber stops the campaign with its error.
func TestCampaignEventHandlerErrorIsFatal(t *testing.T) {
	campaign, _, _ := newTestCampaign(t, newTestConfig(23, 50), nil)

	failure := errors.New("subscriber failed")
	calls := 0
	campaign.Events.EpisodeExecuted.Subscribe(func(EpisodeExecutedEvent) error {
		calls++
		return failure
	})

	err := campaign.Run(context.Background())
	assert.ErrorIs(t, err, failure)
	assert.EqualValues(t, 1, calls)
	assert.EqualValues(t, 1, campaign.Stats().Executed())
}

// TestCampaignTraceLogging checks the trace level reports every passed invariant check and the debug level every
// skipped episode.
func TestCampaignTraceLogging(t *testing.T) {
	ledger, tokenArtifact, err := simulated.NewStakingTokenLedger(nil)
	require.NoError(t, err)
	logger, buf := newTestLogger(zerolog.TraceLevel)
	campaign, err := NewCampaign(newTestConfig(29, 20), ledger, tokenArtifact, logger)
	require.NoError(t, err)
	require.NoError(t, campaign.Run(context.Background()))

	output := buf.String()
	assert.EqualValues(t, campaign.Stats().Executed(), strings.Count(output, "Invariants hold after episode "))
	assert.EqualValues(t, campaign.Stats().Skipped(), strings.Count(output, "Skipped episode "))
}
