// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package phase tracks the relational trajectory of a conversation.
//
// # Description
//
// The tracker estimates where a conversation sits on the ordered ladder
// OPENING < RAPPORT < FLIRTING < INTIMATE < EROTIC from smoothed
// per-category pattern scores, with two excursion states outside the
// ladder: BOUNDARY_REPAIR (entered immediately on any boundary event)
// and COOLDOWN (the mandatory settling turn after a repair). After the
// cooldown the conversation resumes at the last ladder phase held
// before the episode.
//
// # Invariants
//
//   - Conservative transitions: the phase never advances more than one
//     ladder rank per update, regardless of how far ahead the smoothed
//     scores point. Backward moves are unrestricted.
//   - Boundary forcing: a rule hit or a MOVE label forces
//     BOUNDARY_REPAIR on that same update, from any phase.
//   - Scores are means over a bounded trailing window (6 to 10 turns)
//     of per-turn ratios capped at 1.0.
//
// # Thread Safety
//
// A Tracker belongs to exactly one session and is not safe for
// concurrent use. Sessions never share trackers.
package phase

import (
	"github.com/AleutianAI/CompanionGate/services/gate"
	"github.com/AleutianAI/CompanionGate/services/signals"
)

// Phase is the coarse relational stage of a conversation.
type Phase string

const (
	Opening        Phase = "OPENING"
	Rapport        Phase = "RAPPORT"
	Flirting       Phase = "FLIRTING"
	Intimate       Phase = "INTIMATE"
	Erotic         Phase = "EROTIC"
	BoundaryRepair Phase = "BOUNDARY_REPAIR"
	Cooldown       Phase = "COOLDOWN"
)

// ladder is the ordered progression; excursion states are not on it.
var ladder = []Phase{Opening, Rapport, Flirting, Intimate, Erotic}

// Rank returns the ladder position (OPENING=0 .. EROTIC=4), or -1 for
// the excursion states.
func (p Phase) Rank() int {
	for i, q := range ladder {
		if p == q {
			return i
		}
	}
	return -1
}

// OnLadder reports whether p is part of the ordered progression.
func (p Phase) OnLadder() bool {
	return p.Rank() >= 0
}

// Ladder-phase thresholds on the smoothed category scores.
const (
	eroticThreshold   = 0.6
	intimateThreshold = 0.5
	flirtingThreshold = 0.4
	rapportThreshold  = 0.2
)

// eroticIntentThreshold is the per-turn erotic score at which a single
// message counts as carrying erotic intent. One pattern hit scores
// 0.33, so two distinct pattern hits are required.
const eroticIntentThreshold = 0.34

// Window bounds for the trailing sample buffer.
const (
	minWindow     = 6
	maxWindow     = 10
	DefaultWindow = 8
)

// State is the tracker's output for one turn.
type State struct {
	Phase         Phase    `json:"phase"`
	FlirtScore    float64  `json:"flirt_score"`
	IntimacyScore float64  `json:"intimacy_score"`
	EroticScore   float64  `json:"erotic_score"`
	ReasonTags    []string `json:"reason_tags,omitempty"`
}

// Tracker is the smoothed phase state machine for one session.
type Tracker struct {
	extractor *signals.Extractor
	window    *ring

	phase             Phase
	prevSafePhase     Phase
	cooldownRemaining int
	last              State
}

// NewTracker creates a Tracker starting at OPENING with all scores
// zero. The window size is clamped into [6,10].
func NewTracker(extractor *signals.Extractor, window int) *Tracker {
	if window < minWindow {
		window = minWindow
	}
	if window > maxWindow {
		window = maxWindow
	}
	return &Tracker{
		extractor:     extractor,
		window:        newRing(window),
		phase:         Opening,
		prevSafePhase: Opening,
		last:          State{Phase: Opening},
	}
}

// Last returns the state produced by the most recent Update, or the
// initial OPENING state before any update.
func (t *Tracker) Last() State {
	return t.last
}

// IsEroticIntent reports whether a single message carries enough
// erotic-pattern density to count as erotic intent on its own.
func (t *Tracker) IsEroticIntent(text string) bool {
	score, _ := t.extractor.Score(signals.FamilyErotic, text)
	return score >= eroticIntentThreshold
}

// Update advances the state machine by one turn.
//
// The user and bot text are scored together; the risk label and rule
// hit decide whether this turn is a boundary event. Excursion handling
// takes priority over ladder movement: a boundary event forces
// BOUNDARY_REPAIR, a repair turn advances to COOLDOWN, and a cooldown
// turn counts down before restoring the pre-episode ladder phase.
func (t *Tracker) Update(userText, botText string, riskLabel gate.Label, ruleHit bool) State {
	var reasonTags []string
	boundaryEvent := ruleHit || riskLabel == gate.LabelMove
	if boundaryEvent {
		reasonTags = append(reasonTags, "boundary_event")
	}

	combined := userText + "\n" + botText
	flirtScore, flirtTags := t.extractor.Score(signals.FamilyFlirt, combined)
	intimacyScore, intimacyTags := t.extractor.Score(signals.FamilyIntimacy, combined)
	eroticScore, eroticTags := t.extractor.Score(signals.FamilyErotic, combined)
	slowdownHit, slowdownTags := t.extractor.Slowdown(combined)

	reasonTags = append(reasonTags, flirtTags...)
	reasonTags = append(reasonTags, intimacyTags...)
	reasonTags = append(reasonTags, eroticTags...)
	reasonTags = append(reasonTags, slowdownTags...)

	t.window.push(sample{flirt: flirtScore, intimacy: intimacyScore, erotic: eroticScore})
	avgFlirt, avgIntimacy, avgErotic := t.window.averages()

	switch {
	case boundaryEvent:
		t.phase = BoundaryRepair
		t.cooldownRemaining = 1
	case t.phase == BoundaryRepair:
		t.phase = Cooldown
		reasonTags = append(reasonTags, "cooldown")
	case t.phase == Cooldown:
		if t.cooldownRemaining > 0 {
			t.cooldownRemaining--
			if t.cooldownRemaining == 0 {
				t.phase = t.prevSafePhase
				reasonTags = append(reasonTags, "resume")
			}
		}
	default:
		target := phaseFromScores(avgFlirt, avgIntimacy, avgErotic)
		if slowdownHit {
			target = stepBack(target)
		}
		t.phase = conservativeTransition(t.phase, target)
	}

	if t.phase.OnLadder() {
		t.prevSafePhase = t.phase
	}

	t.last = State{
		Phase:         t.phase,
		FlirtScore:    avgFlirt,
		IntimacyScore: avgIntimacy,
		EroticScore:   avgErotic,
		ReasonTags:    reasonTags,
	}
	return t.last
}

// phaseFromScores maps the smoothed averages to a target ladder phase.
func phaseFromScores(flirt, intimacy, erotic float64) Phase {
	switch {
	case erotic >= eroticThreshold:
		return Erotic
	case intimacy >= intimateThreshold:
		return Intimate
	case flirt >= flirtingThreshold:
		return Flirting
	case intimacy >= rapportThreshold || flirt >= rapportThreshold:
		return Rapport
	default:
		return Opening
	}
}

// stepBack moves a ladder phase one rank toward OPENING.
func stepBack(p Phase) Phase {
	idx := p.Rank() - 1
	if idx < 0 {
		idx = 0
	}
	return ladder[idx]
}

// conservativeTransition limits forward movement to one rank per turn.
// Backward movement is unrestricted.
func conservativeTransition(current, target Phase) Phase {
	curIdx := current.Rank()
	tgtIdx := target.Rank()
	if tgtIdx > curIdx+1 {
		tgtIdx = curIdx + 1
	}
	return ladder[tgtIdx]
}
