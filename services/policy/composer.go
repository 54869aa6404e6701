// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"github.com/AleutianAI/CompanionGate/services/gate"
	"github.com/AleutianAI/CompanionGate/services/persona"
	"github.com/AleutianAI/CompanionGate/services/phase"
	"github.com/AleutianAI/CompanionGate/services/signals"
	"github.com/AleutianAI/CompanionGate/services/trust"
)

// Trust thresholds used by the composer.
const (
	// locationTrustBar is the trust below which a location request is
	// treated as a boundary violation even without a rule hit.
	locationTrustBar = 0.8

	// moveTrustFloor is the trust below which any MOVE-labeled turn
	// gets repaired.
	moveTrustFloor = 0.3

	// explicitTrustBar is the trust required before explicit content
	// can pass the gate.
	explicitTrustBar = 0.6
)

// Persona deflection thresholds.
const (
	opennessFloor      = 0.45
	slowPaceIntimacy   = 0.40
	mediumPaceIntimacy = 0.30
)

// Input is everything the composer looks at for one turn.
type Input struct {
	// RuleHit is true when a hard escalation rule matched, with RuleID
	// naming the pattern.
	RuleHit bool
	RuleID  string

	// LocationRequest is true when the user asked where the companion
	// lives or to meet.
	LocationRequest bool

	// Risk is the gate verdict for the user text.
	Risk gate.Score

	// EroticIntent and EroticLevel describe the user text.
	EroticIntent bool
	EroticLevel  signals.EroticLevel

	// Phase and IntimacyScore are the tracker state entering the turn.
	Phase         phase.Phase
	IntimacyScore float64

	// Trust is the trust snapshot entering the turn.
	Trust trust.State
}

// Decision is the composed turn strategy. AllowErotic feeds the system
// context guidance even on NORMAL turns; the reason slices explain
// repair and deflect picks in logs and CLI diagnostics.
type Decision struct {
	Mode           Mode
	AllowErotic    bool
	RepairReasons  []string
	DeflectReasons []string
}

// Composer applies one persona's policy to turn inputs. Stateless;
// counters live in Counters.
type Composer struct {
	profile persona.Profile
}

// NewComposer builds a composer for a persona.
func NewComposer(profile persona.Profile) *Composer {
	return &Composer{profile: profile}
}

// Compose walks the decision ladder in order: hard boundary first,
// then the risk gate with trust and consent, then persona pacing, and
// only then a normal model turn. The first matching branch wins.
func (c *Composer) Compose(in Input) Decision {
	d := Decision{Mode: ModeNormal}
	d.AllowErotic, d.DeflectReasons = c.allowErotic(in)

	// Hard boundaries repair unconditionally. Location requests get
	// the same treatment until trust is very high.
	if in.RuleHit {
		d.Mode = ModeSafetyRepair
		d.RepairReasons = append(d.RepairReasons, "rule_hit")
		return d
	}
	if in.LocationRequest && in.Trust.Level < locationTrustBar {
		d.Mode = ModeSafetyRepair
		d.RepairReasons = append(d.RepairReasons, "location_low_trust")
		return d
	}

	// A MOVE label resolves here either way: repair, or a trust-gated
	// pass straight to a normal turn. Persona pacing only applies to
	// turns the gate did not flag.
	if in.Risk.Label == gate.LabelMove {
		if reason, ok := c.riskRepairReason(in); ok {
			d.Mode = ModeSafetyRepair
			d.RepairReasons = append(d.RepairReasons, reason)
		}
		return d
	}

	if in.EroticIntent && !d.AllowErotic {
		d.Mode = ModeSoftDeflect
		return d
	}

	return d
}

// riskRepairReason decides whether a MOVE-labeled turn still needs a
// repair. Low trust always repairs; otherwise the escalation level has
// to be covered by trust, consent, and phase.
func (c *Composer) riskRepairReason(in Input) (string, bool) {
	if in.Trust.Level < moveTrustFloor {
		return "risk_low_trust", true
	}
	switch in.EroticLevel {
	case signals.EroticNone:
		return "", false
	case signals.EroticSuggestive:
		// Trust at or above the floor already covers suggestive moves.
		return "", false
	case signals.EroticExplicit:
		if in.Trust.Level >= explicitTrustBar &&
			in.Trust.Consent == trust.ConsentExplicit &&
			(in.Phase == phase.Intimate || in.Phase == phase.Erotic) {
			return "", false
		}
		return "risk_unconsented", true
	default:
		return "risk_unconsented", true
	}
}

// allowErotic applies the persona's pacing rules. All blocking reasons
// are collected, not just the first.
func (c *Composer) allowErotic(in Input) (bool, []string) {
	var reasons []string
	switch in.Phase {
	case phase.Opening, phase.Rapport, phase.Flirting:
		reasons = append(reasons, "phase_early")
	}
	if c.profile.EroticOpenness < opennessFloor {
		reasons = append(reasons, "low_openness")
	}
	if c.profile.Pace == "slow" && in.IntimacyScore < slowPaceIntimacy {
		reasons = append(reasons, "slow_pace")
	}
	if c.profile.Pace == "medium" && in.IntimacyScore < mediumPaceIntimacy {
		reasons = append(reasons, "mid_pace")
	}
	return len(reasons) == 0, reasons
}
