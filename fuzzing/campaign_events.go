package fuzzing

import (
	"github.com/thpani/fuzz-pb25/chain/types"
	"github.com/thpani/fuzz-pb25/events"
	"github.com/thpani/fuzz-pb25/fuzzing/accounts"
)

// CampaignEvents defines event emitters for a Campaign.
type CampaignEvents struct {
	// CampaignStarting emits events when the Campaign deployed the contract and is about to run its first episode.
	CampaignStarting events.EventEmitter[CampaignStartingEvent]

	// EpisodeExecuted emits events after the call of an episode was submitted, before invariants are checked.
	EpisodeExecuted events.EventEmitter[EpisodeExecutedEvent]

	// EpisodeSkipped emits events when an override vetoed the call of an episode.
	EpisodeSkipped events.EventEmitter[EpisodeSkippedEvent]

	// CampaignStopping emits events when the Campaign exits its main loop, for whatever reason.
	CampaignStopping events.EventEmitter[CampaignStoppingEvent]
}

// CampaignStartingEvent describes an event where a Campaign is about to run its first episode.
type CampaignStartingEvent struct {
	// Campaign represents the instance of the Campaign for which the event occurred.
	Campaign *Campaign
}

// EpisodeExecutedEvent describes an event where the call of an episode was submitted.
type EpisodeExecutedEvent struct {
	// Episode is the 1-based index of the episode.
	Episode uint64
	// Call is the submitted call.
	Call *CallSpec
	// Caller is the account the call was sent from.
	Caller accounts.Account
	// Result is the outcome of the call.
	Result *types.ExecutionResult
	// DecodedError is the rendered failure of the call, or empty if it succeeded.
	DecodedError string
}

// EpisodeSkippedEvent describes an event where an override vetoed the call of an episode.
type EpisodeSkippedEvent struct {
	Episode uint64
	Call    *CallSpec
	Caller  accounts.Account
}

// CampaignStoppingEvent describes an event where a Campaign is exiting its main loop.
type CampaignStoppingEvent struct {
	// Campaign represents the instance of the Campaign for which the event occurred.
	Campaign *Campaign

	// Err describes the error which stopped the campaign, if any. Interrupted and completed campaigns report nil.
	Err error
}
