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

import "github.com/AleutianAI/CompanionGate/services/persona"

// Termination thresholds. Strictness and directness come from the
// persona, so a lenient profile tolerates more before bowing out.
const (
	repairTerminateCount  = 2
	deflectTerminateCount = 3
	lowEngagementCount    = 3

	ruleHitStrictness       = 0.6
	repeatRepairStrictness  = 0.7
	lowEngagementDirectness = 0.6
)

// Counters accumulates per-session behavior that feeds termination.
// The low-engagement counter is leaky: engaged turns work it back
// down instead of resetting it, so sparse one-word answers still
// accumulate.
type Counters struct {
	Repairs       int
	Deflects      int
	LowEngagement int
}

// Observe records one composed turn.
func (c *Counters) Observe(mode Mode, lowEngagement bool) {
	switch mode {
	case ModeSafetyRepair:
		c.Repairs++
	case ModeSoftDeflect:
		c.Deflects++
	}
	if lowEngagement {
		c.LowEngagement++
	} else if c.LowEngagement > 0 {
		c.LowEngagement--
	}
}

// Terminate reports whether the session should end now, with every
// reason that applies. Call after Observe for the current turn.
func (c *Counters) Terminate(profile persona.Profile, ruleHit, eroticIntent bool) []string {
	var reasons []string
	if ruleHit && profile.BoundaryStrictness >= ruleHitStrictness {
		reasons = append(reasons, "rule_hit")
	}
	if c.Repairs >= repairTerminateCount && profile.BoundaryStrictness >= repeatRepairStrictness {
		reasons = append(reasons, "repeat_boundary")
	}
	if c.Deflects >= deflectTerminateCount && eroticIntent {
		reasons = append(reasons, "repeat_escalation")
	}
	if c.LowEngagement >= lowEngagementCount && profile.Directness >= lowEngagementDirectness {
		reasons = append(reasons, "low_engagement")
	}
	return reasons
}
