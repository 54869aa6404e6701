// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trust maintains the per-conversation trust score and consent
// state that gate how far escalation is allowed to go. Trust moves in
// small bounded steps per turn; consent only moves when the user says
// something that grants it.
package trust

import "github.com/AleutianAI/CompanionGate/services/signals"

// Consent is the highest level of erotic content the user has
// explicitly agreed to. It is sticky: once granted it stays granted
// until a later signal raises it further. Trust decay never lowers it.
type Consent string

const (
	ConsentNone       Consent = "none"
	ConsentSuggestive Consent = "suggestive"
	ConsentExplicit   Consent = "explicit"
)

// Rank orders consent levels for comparison. Unknown values rank as none.
func (c Consent) Rank() int {
	switch c {
	case ConsentSuggestive:
		return 1
	case ConsentExplicit:
		return 2
	default:
		return 0
	}
}

// ConsentFromSignal converts a consent phrase level reported by the
// signal extractor into a Consent value.
func ConsentFromSignal(level signals.EroticLevel) Consent {
	switch level {
	case signals.EroticExplicit:
		return ConsentExplicit
	case signals.EroticSuggestive:
		return ConsentSuggestive
	default:
		return ConsentNone
	}
}

// Tier buckets the continuous trust level into coarse bands used for
// logging and diagnostics. Policy decisions compare the raw level
// against thresholds directly; tiers exist so operators reading logs
// don't have to memorize the cut points.
type Tier string

const (
	TierStranger Tier = "T0" // [0.0, 0.3)
	TierWarming  Tier = "T1" // [0.3, 0.6)
	TierClose    Tier = "T2" // [0.6, 0.8)
	TierIntimate Tier = "T3" // [0.8, 1.0]
)

// State is the externally visible trust snapshot for one conversation.
type State struct {
	// Level is the trust score in [0, 1].
	Level float64

	// Consent is the sticky consent level.
	Consent Consent

	// LastReason names the final adjustment applied on the most recent
	// update. When several adjustments fire on one turn, the last one
	// in evaluation order wins.
	LastReason string
}

// Tier returns the band the current level falls in.
func (s State) Tier() Tier {
	switch {
	case s.Level >= 0.8:
		return TierIntimate
	case s.Level >= 0.6:
		return TierClose
	case s.Level >= 0.3:
		return TierWarming
	default:
		return TierStranger
	}
}

// InitialLevel is the trust score assigned to a brand new conversation.
const InitialLevel = 0.15
