package fuzzing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FunctionStats tracks the outcomes of executed calls to one function.
type FunctionStats struct {
	// Successes describes the amount of calls which executed without reverting.
	Successes uint64
	// Errors describes the amount of calls which reverted.
	Errors uint64
}

// Calls returns the amount of executed calls.
func (s FunctionStats) Calls() uint64 {
	return s.Successes + s.Errors
}

// SuccessRate returns the share of calls which succeeded, as a percentage rounded to two decimal places. A function
// which was never called has a success rate of zero.
func (s FunctionStats) SuccessRate() decimal.Decimal {
	if s.Calls() == 0 {
		return decimal.Zero
	}
	successes := decimal.NewFromInt(int64(s.Successes))
	calls := decimal.NewFromInt(int64(s.Calls()))
	return successes.Mul(decimal.NewFromInt(100)).DivRound(calls, 2)
}

// CampaignStats represents a struct tracking the outcome of every episode of a campaign. Statistics are never reset
// during a run.
type CampaignStats struct {
	// functions describes the outcomes per function name.
	functions map[string]*FunctionStats

	// skipped describes the amount of episodes vetoed by an override.
	skipped uint64
}

// NewCampaignStats creates an empty CampaignStats.
func NewCampaignStats() *CampaignStats {
	return &CampaignStats{
		functions: make(map[string]*FunctionStats),
	}
}

func (s *CampaignStats) function(name string) *FunctionStats {
	stats, ok := s.functions[name]
	if !ok {
		stats = &FunctionStats{}
		s.functions[name] = stats
	}
	return stats
}

// RecordSuccess counts a call to the function which executed without reverting.
func (s *CampaignStats) RecordSuccess(function string) {
	s.function(function).Successes++
}

// RecordError counts a call to the function which reverted.
func (s *CampaignStats) RecordError(function string) {
	s.function(function).Errors++
}

// RecordSkip counts an episode vetoed by an override.
func (s *CampaignStats) RecordSkip() {
	s.skipped++
}

// Functions returns the names of every function with at least one executed call, sorted.
func (s *CampaignStats) Functions() []string {
	names := maps.Keys(s.functions)
	slices.Sort(names)
	return names
}

// Function returns the statistics for the function. A function which was never called has zero statistics.
func (s *CampaignStats) Function(name string) FunctionStats {
	if stats, ok := s.functions[name]; ok {
		return *stats
	}
	return FunctionStats{}
}

// Executed returns the amount of episodes whose call was submitted.
func (s *CampaignStats) Executed() uint64 {
	executed := uint64(0)
	for _, stats := range s.functions {
		executed += stats.Calls()
	}
	return executed
}

// Skipped returns the amount of episodes vetoed by an override.
func (s *CampaignStats) Skipped() uint64 {
	return s.skipped
}

// Summary renders a table of successes, errors and success rate per function, followed by the totals.
func (s *CampaignStats) Summary() string {
	names := s.Functions()
	width := len("function")
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %10s  %10s  %8s\n", width, "function", "successes", "errors", "success")
	for _, name := range names {
		stats := s.functions[name]
		fmt.Fprintf(&b, "%-*s  %10d  %10d  %7s%%\n", width, name, stats.Successes, stats.Errors, stats.SuccessRate().StringFixed(2))
	}
	fmt.Fprintf(&b, "executed episodes: %d, skipped episodes: %d", s.Executed(), s.Skipped())
	return b.String()
}
