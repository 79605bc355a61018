package fuzzing

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/chain"
	"github.com/thpani/fuzz-pb25/compilation"
	"github.com/thpani/fuzz-pb25/fuzzing/accounts"
	"github.com/thpani/fuzz-pb25/fuzzing/config"
	"github.com/thpani/fuzz-pb25/fuzzing/harness"
	"github.com/thpani/fuzz-pb25/fuzzing/permit"
	"github.com/thpani/fuzz-pb25/fuzzing/valuegeneration"
	"github.com/thpani/fuzz-pb25/logging"
	"github.com/thpani/fuzz-pb25/logging/colors"
	"github.com/thpani/fuzz-pb25/utils"
)

// Campaign describes a single fuzzing run against one deployed contract: a fixed number of episodes, each generating
// one call, submitting it and re-checking the conservation invariants.
type Campaign struct {
	// config describes the project configuration which the campaign is targeting.
	config config.FuzzingConfig

	// runID uniquely identifies this run in the logs.
	runID uuid.UUID
	// seed is the seed of randomProvider.
	seed int64
	// randomProvider is the single random stream every decision of the campaign is drawn from.
	randomProvider *rand.Rand

	pool      *accounts.AccountPool
	harness   *harness.Harness
	signer    *permit.Signer
	generator *CallGenerator
	checker   *InvariantChecker

	// stats tracks the outcome of every episode.
	stats *CampaignStats

	// logger describes the Campaign's log object that can be used to log important events
	logger *logging.Logger

	// Events describes the event system for the Campaign.
	Events CampaignEvents
}

// NewCampaign sets up a campaign for the artifact on the provided ledger: the account pool is generated from the
// seed, the contract is deployed from the first account, and the permit signer, call generator and invariant checker
// are bound to the deployed address. A zero seed in the configuration is replaced by a time-based one. If logger is
// nil, a sub-logger of the global logger is used.
func NewCampaign(projectConfig *config.ProjectConfig, ledger chain.Ledger, artifact *compilation.ContractArtifact, logger *logging.Logger) (*Campaign, error) {
	if logger == nil {
		logger = logging.GlobalLogger.NewSubLogger("module", logging.FUZZING_SERVICE)
	}
	fuzzingConfig := projectConfig.Fuzzing

	seed := fuzzingConfig.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	randomProvider := rand.New(rand.NewSource(seed))

	overrides, err := NewCallOverrideTable(fuzzingConfig.FunctionOverrides)
	if err != nil {
		return nil, err
	}
	senderBalance, err := fuzzingConfig.SenderBalanceWei()
	if err != nil {
		return nil, errors.Wrap(err, "invalid sender balance")
	}

	pool, err := accounts.NewAccountPool(fuzzingConfig.Accounts, randomProvider)
	if err != nil {
		return nil, err
	}
	executionHarness, err := harness.NewHarness(ledger, pool, senderBalance)
	if err != nil {
		return nil, err
	}
	contractAddress, err := executionHarness.Deploy(artifact, fuzzingConfig.VerifyDeployedBytecode)
	if err != nil {
		return nil, err
	}

	signer, err := permit.NewSigner(fuzzingConfig.Permit.Name, fuzzingConfig.Permit.Version, ledger.ChainID(), contractAddress, pool)
	if err != nil {
		return nil, err
	}

	overrideContext := &OverrideContext{
		RandomProvider:     randomProvider,
		State:              executionHarness,
		Pool:               pool,
		Signer:             signer,
		ResyncPermitNonces: fuzzingConfig.ResyncPermitNonces,
	}
	generator, err := NewCallGenerator(&artifact.Abi, contractAddress, overrides, overrideContext)
	if err != nil {
		return nil, errors.Wrapf(err, "contract '%s' cannot be fuzzed", artifact.Name)
	}

	// Unsupported argument types only fail the campaign once such a function is drawn, so report them up front.
	for _, method := range generator.Methods() {
		if err := valuegeneration.CheckMethodSupported(&method); err != nil {
			logger.Warn(err.Error(), ", the campaign will stop if it is called")
		}
	}

	campaign := &Campaign{
		config:         fuzzingConfig,
		runID:          uuid.New(),
		seed:           seed,
		randomProvider: randomProvider,
		pool:           pool,
		harness:        executionHarness,
		signer:         signer,
		generator:      generator,
		checker:        NewInvariantChecker(executionHarness, pool, contractAddress),
		stats:          NewCampaignStats(),
		logger:         logger,
	}
	campaign.Events.EpisodeExecuted.Subscribe(campaign.onEpisodeExecuted)
	campaign.Events.EpisodeSkipped.Subscribe(campaign.onEpisodeSkipped)
	return campaign, nil
}

// RunID returns the identifier of this run.
func (c *Campaign) RunID() uuid.UUID {
	return c.runID
}

// Seed returns the seed the campaign's random stream was created with.
func (c *Campaign) Seed() int64 {
	return c.seed
}

// Stats returns the statistics of the campaign.
func (c *Campaign) Stats() *CampaignStats {
	return c.stats
}

// Harness returns the execution harness the campaign submits through.
func (c *Campaign) Harness() *harness.Harness {
	return c.harness
}

// Run executes the configured number of episodes, stopping early when the context is cancelled. A summary of the
// statistics is logged when the run ends. Returns nil when every episode ran or the run was interrupted, an
// *InvariantViolationError when an invariant no longer holds, and any other error for fatal failures.
func (c *Campaign) Run(ctx context.Context) error {
	c.logger.Info("Starting campaign ", colors.Bold, c.runID.String(), colors.Reset, " with seed ", colors.Bold, c.seed,
		colors.Reset, " for ", c.config.Episodes, " episodes", logging.StructuredLogInfo{"runId": c.runID.String(), "seed": c.seed})

	err := c.Events.CampaignStarting.Publish(CampaignStartingEvent{Campaign: c})
	if err == nil {
		err = c.run(ctx)
	}
	if stopErr := c.Events.CampaignStopping.Publish(CampaignStoppingEvent{Campaign: c, Err: err}); stopErr != nil && err == nil {
		err = stopErr
	}

	var violation *InvariantViolationError
	if errors.As(err, &violation) {
		c.logger.Error(colors.RedBold, violation.Dump())
	}
	c.logger.Info("Campaign summary:\n", c.stats.Summary())
	if flushErr := c.logger.Flush(); flushErr != nil && err == nil {
		err = errors.Wrap(flushErr, "could not flush log output")
	}
	return err
}

func (c *Campaign) run(ctx context.Context) error {
	contractAddress := c.harness.ContractAddress()
	for episode := uint64(1); episode <= c.config.Episodes; episode++ {
		// Cancellation is only observed between episodes.
		if utils.CheckContextDone(ctx) {
			c.logger.Info("Campaign interrupted after ", episode-1, " episodes")
			return nil
		}

		call, caller, skip, err := c.generator.Generate()
		if err != nil {
			return err
		}
		if skip {
			if err := c.Events.EpisodeSkipped.Publish(EpisodeSkippedEvent{Episode: episode, Call: call, Caller: caller}); err != nil {
				return err
			}
			continue
		}

		data, err := call.Pack()
		if err != nil {
			return err
		}
		result, err := c.harness.Submit(caller, &contractAddress, data, nil)
		if err != nil {
			return err
		}

		executed := EpisodeExecutedEvent{Episode: episode, Call: call, Caller: caller, Result: result}
		if result.Failed() {
			executed.DecodedError = c.harness.ErrorDecoder().Decode(result)
		}
		if err := c.Events.EpisodeExecuted.Publish(executed); err != nil {
			return err
		}

		if err := c.checker.Check(); err != nil {
			return err
		}
		c.logger.Trace("Invariants hold after episode ", episode)

		if episode%c.config.FlushInterval == 0 {
			if err := c.logger.Flush(); err != nil {
				return errors.Wrap(err, "could not flush log output")
			}
		}
	}
	return nil
}

// onEpisodeSkipped records a vetoed episode.
func (c *Campaign) onEpisodeSkipped(event EpisodeSkippedEvent) error {
	c.stats.RecordSkip()
	c.logger.Debug(colors.Yellow, "Skipped episode ", event.Episode, colors.Reset, ": ", event.Call.String(), " from ", event.Caller.Address.Hex())
	return nil
}

// onEpisodeExecuted records the outcome of an executed episode and emits the line describing it.
func (c *Campaign) onEpisodeExecuted(event EpisodeExecutedEvent) error {
	if event.Result.Failed() {
		c.stats.RecordError(event.Call.Method.Name)
	} else {
		c.stats.RecordSuccess(event.Call.Method.Name)
	}
	c.logEpisode(event.Episode, event.Call, event.Caller, event.DecodedError)
	return nil
}

// logEpisode emits the line describing one executed episode. decoded is empty if the call succeeded.
func (c *Campaign) logEpisode(episode uint64, call *CallSpec, caller accounts.Account, decoded string) {
	info := logging.StructuredLogInfo{
		"episode":  episode,
		"outcome":  "success",
		"caller":   caller.Address.Hex(),
		"function": call.Method.Name,
		"args":     call.FormattedArgs(),
	}
	if decoded == "" {
		c.logger.Info("[", episode, "] ", colors.Green, colors.CHECK, colors.Reset, " ", caller.Address.Hex(), " ", call.String(), info)
		return
	}
	info["outcome"] = "error"
	info["error"] = decoded
	c.logger.Info("[", episode, "] ", colors.Red, colors.CROSS, colors.Reset, " ", caller.Address.Hex(), " ", call.String(),
		colors.Red, " ", decoded, info)
}
