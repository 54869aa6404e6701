// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trust

import (
	"math"

	"github.com/AleutianAI/CompanionGate/services/signals"
)

// Per-turn adjustment magnitudes. Rewards are small and penalties are
// larger, so trust is slow to earn and quick to lose.
const (
	deltaSafeTurn      = 0.02
	deltaIntimacy      = 0.01
	deltaFlirt         = 0.01
	deltaNewFacts      = 0.02
	deltaRepair        = -0.08
	deltaRuleHit       = -0.12
	deltaDeflect       = -0.03
	deltaBoundaryAck   = 0.04
	deltaLowEngagement = -0.02
)

// Score averages above this count toward the intimacy and flirt
// rapport bonuses.
const rapportThreshold = 0.3

// lowEngagementPenaltyStreak is the consecutive low-engagement turn
// count at which the per-turn penalty starts applying.
const lowEngagementPenaltyStreak = 2

// Outcome carries everything the tracker needs to know about one
// completed turn. The caller translates policy decisions into the
// boolean fields here so this package stays independent of the policy
// package.
type Outcome struct {
	// SafeTurn is true when the risk gate labeled the turn SAFE and no
	// escalation rule fired.
	SafeTurn bool

	// RuleHit is true when a hard escalation rule matched the user text.
	RuleHit bool

	// Repaired is true when the composed response was a boundary repair.
	Repaired bool

	// Deflected is true when the composed response was a soft deflect.
	Deflected bool

	// EroticIntent is true when the user text carried erotic intent.
	EroticIntent bool

	// BoundaryAck is true when the user acknowledged a boundary.
	BoundaryAck bool

	// PrevTurnRepaired is true when the previous turn's response was a
	// boundary repair. The boundary acknowledgment bonus only applies
	// right after a repair, so a bare "sorry" in open conversation
	// earns nothing.
	PrevTurnRepaired bool

	// NewFacts is the number of new personal facts extracted this turn.
	NewFacts int

	// IntimacyAvg and FlirtAvg are the windowed scores from the phase
	// tracker after this turn.
	IntimacyAvg float64
	FlirtAvg    float64

	// LowEngagementStreak counts consecutive low-engagement turns
	// including this one. Zero when this turn was engaged.
	LowEngagementStreak int

	// ConsentSignal is the consent phrase level detected this turn.
	ConsentSignal signals.EroticLevel
}

// Tracker accumulates trust for one conversation. Not safe for
// concurrent use; the session serializes turns.
type Tracker struct {
	state State
}

// NewTracker starts a conversation at the initial trust level with no
// consent granted.
func NewTracker() *Tracker {
	return &Tracker{state: State{Level: InitialLevel, Consent: ConsentNone}}
}

// NewTrackerFromState resumes a conversation from persisted trust.
// Out-of-range levels are clamped rather than rejected so a corrupt
// record degrades instead of crashing.
func NewTrackerFromState(s State) *Tracker {
	s.Level = clamp(s.Level)
	if s.Consent.Rank() == 0 {
		s.Consent = ConsentNone
	}
	return &Tracker{state: s}
}

// State returns the current trust snapshot.
func (t *Tracker) State() State {
	return t.state
}

// Update applies every adjustment the turn outcome warrants, in a
// fixed order, then clamps the level to [0, 1]. LastReason records the
// final adjustment that fired, which is what the logs and the CLI
// diagnostics surface.
func (t *Tracker) Update(o Outcome) State {
	level := t.state.Level
	reason := t.state.LastReason

	apply := func(delta float64, why string) {
		level += delta
		reason = why
	}

	if o.SafeTurn {
		apply(deltaSafeTurn, "safe_turn")
	}
	if o.IntimacyAvg > rapportThreshold {
		apply(deltaIntimacy, "intimacy")
	}
	if o.FlirtAvg > rapportThreshold {
		apply(deltaFlirt, "flirt")
	}
	if o.NewFacts > 0 {
		apply(deltaNewFacts, "new_facts")
	}
	if o.Repaired {
		apply(deltaRepair, "repair")
	}
	if o.RuleHit {
		apply(deltaRuleHit, "rule_hit")
	}
	if o.Deflected && o.EroticIntent {
		apply(deltaDeflect, "deflect_erotic")
	}
	if o.BoundaryAck && o.PrevTurnRepaired {
		apply(deltaBoundaryAck, "boundary_ack")
	}
	if o.LowEngagementStreak >= lowEngagementPenaltyStreak {
		apply(deltaLowEngagement, "low_engagement")
	}

	t.state.Level = clamp(level)
	t.state.LastReason = reason

	if granted := ConsentFromSignal(o.ConsentSignal); granted.Rank() > t.state.Consent.Rank() {
		t.state.Consent = granted
	}

	return t.state
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
