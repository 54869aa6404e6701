// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phase

import (
	"strings"
	"testing"

	"github.com/AleutianAI/CompanionGate/services/gate"
	"github.com/AleutianAI/CompanionGate/services/signals"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	ex, err := signals.Load()
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return NewTracker(ex, DefaultWindow)
}

// flirtHeavy saturates the flirt category for one turn.
const flirtHeavy = "you're so cute and playful, such a flirty tease"

// intimacyHeavy saturates the intimacy category for one turn.
const intimacyHeavy = "I feel a deep connection, I trust you and want to be honest"

// eroticHeavy saturates the erotic category for one turn.
const eroticHeavy = "sex in bed, nudes, let's make out"

func TestInitialState(t *testing.T) {
	tr := newTestTracker(t)
	st := tr.Last()
	if st.Phase != Opening {
		t.Errorf("initial phase = %v, want OPENING", st.Phase)
	}
	if st.FlirtScore != 0 || st.IntimacyScore != 0 || st.EroticScore != 0 {
		t.Errorf("initial scores not zero: %+v", st)
	}
}

func TestWindowClamping(t *testing.T) {
	ex, err := signals.Load()
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	tests := []struct {
		in   int
		want int
	}{
		{0, 6}, {5, 6}, {6, 6}, {8, 8}, {10, 10}, {11, 10}, {100, 10},
	}
	for _, tc := range tests {
		tr := NewTracker(ex, tc.in)
		if got := len(tr.window.buf); got != tc.want {
			t.Errorf("NewTracker window %d: capacity = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestConservativeTransitionInvariant(t *testing.T) {
	tr := newTestTracker(t)

	// Feed maximally escalating turns; rank must climb one step at a
	// time even though the target phase jumps far ahead.
	prevRank := tr.Last().Phase.Rank()
	for i := 0; i < 12; i++ {
		combined := flirtHeavy + " " + intimacyHeavy + " " + eroticHeavy
		st := tr.Update(combined, combined, gate.LabelSafe, false)
		if !st.Phase.OnLadder() {
			t.Fatalf("turn %d: excursion phase %v without boundary event", i, st.Phase)
		}
		rank := st.Phase.Rank()
		if rank > prevRank+1 {
			t.Fatalf("turn %d: rank jumped %d -> %d", i, prevRank, rank)
		}
		prevRank = rank
	}
	if tr.Last().Phase != Erotic {
		t.Errorf("after sustained escalation phase = %v, want EROTIC", tr.Last().Phase)
	}
}

func TestBoundaryEventForcesRepair(t *testing.T) {
	tests := []struct {
		name      string
		riskLabel gate.Label
		ruleHit   bool
	}{
		{"rule hit", gate.LabelSafe, true},
		{"MOVE label", gate.LabelMove, false},
		{"both", gate.LabelMove, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTracker(t)
			// Climb off OPENING first so the forcing is visible.
			tr.Update(flirtHeavy, "", gate.LabelSafe, false)
			tr.Update(flirtHeavy, "", gate.LabelSafe, false)

			st := tr.Update("whatever", "", tc.riskLabel, tc.ruleHit)
			if st.Phase != BoundaryRepair {
				t.Errorf("phase = %v, want BOUNDARY_REPAIR", st.Phase)
			}
			found := false
			for _, tag := range st.ReasonTags {
				if tag == "boundary_event" {
					found = true
				}
			}
			if !found {
				t.Errorf("boundary_event tag missing: %v", st.ReasonTags)
			}
		})
	}
}

func TestRepairRecovery(t *testing.T) {
	tr := newTestTracker(t)

	// Reach RAPPORT.
	tr.Update(flirtHeavy, "", gate.LabelSafe, false)
	before := tr.Last().Phase
	if before != Rapport {
		t.Fatalf("setup: phase = %v, want RAPPORT", before)
	}

	// Boundary event, then two clean turns.
	st := tr.Update("come over", "", gate.LabelSafe, true)
	if st.Phase != BoundaryRepair {
		t.Fatalf("phase = %v, want BOUNDARY_REPAIR", st.Phase)
	}

	st = tr.Update("sorry about that", "", gate.LabelSafe, false)
	if st.Phase != Cooldown {
		t.Fatalf("phase = %v, want COOLDOWN", st.Phase)
	}
	if !containsTag(st.ReasonTags, "cooldown") {
		t.Errorf("cooldown tag missing: %v", st.ReasonTags)
	}

	st = tr.Update("anyway, how was your week?", "", gate.LabelSafe, false)
	if st.Phase != before {
		t.Errorf("restored phase = %v, want %v", st.Phase, before)
	}
	if !containsTag(st.ReasonTags, "resume") {
		t.Errorf("resume tag missing: %v", st.ReasonTags)
	}
}

func TestRepeatedBoundaryEventStaysInRepair(t *testing.T) {
	tr := newTestTracker(t)

	tr.Update("come over", "", gate.LabelSafe, true)
	// A new boundary event during the repair episode re-arms it.
	st := tr.Update("come over NOW", "", gate.LabelSafe, true)
	if st.Phase != BoundaryRepair {
		t.Errorf("phase = %v, want BOUNDARY_REPAIR", st.Phase)
	}

	st = tr.Update("fine, sorry", "", gate.LabelSafe, false)
	if st.Phase != Cooldown {
		t.Errorf("phase = %v, want COOLDOWN", st.Phase)
	}
	st = tr.Update("so what do you like doing?", "", gate.LabelSafe, false)
	if st.Phase != Opening {
		t.Errorf("restored phase = %v, want OPENING", st.Phase)
	}
}

func TestSlowdownStepsTargetBack(t *testing.T) {
	tr := newTestTracker(t)

	// Build enough flirt average to target FLIRTING.
	tr.Update(flirtHeavy, "", gate.LabelSafe, false)
	tr.Update(flirtHeavy, "", gate.LabelSafe, false)
	if tr.Last().Phase != Flirting {
		t.Fatalf("setup: phase = %v, want FLIRTING", tr.Last().Phase)
	}

	// A slow-down request with the same flirt density steps back.
	st := tr.Update(flirtHeavy+" but let's slow down", "", gate.LabelSafe, false)
	if st.Phase.Rank() >= Flirting.Rank() {
		t.Errorf("phase after slowdown = %v, want below FLIRTING", st.Phase)
	}
	if !containsTag(st.ReasonTags, "slowdown:pace") {
		t.Errorf("slowdown tag missing: %v", st.ReasonTags)
	}
}

func TestScoresAreWindowAverages(t *testing.T) {
	tr := newTestTracker(t)

	// One saturated flirt turn then one empty turn: average is 0.5.
	tr.Update(flirtHeavy, "", gate.LabelSafe, false)
	st := tr.Update("nothing to see", "", gate.LabelSafe, false)
	if st.FlirtScore < 0.49 || st.FlirtScore > 0.51 {
		t.Errorf("flirt average = %v, want 0.5", st.FlirtScore)
	}
}

func TestBackwardMovementIsFree(t *testing.T) {
	tr := newTestTracker(t)

	combined := flirtHeavy + " " + intimacyHeavy + " " + eroticHeavy
	for i := 0; i < 8; i++ {
		tr.Update(combined, combined, gate.LabelSafe, false)
	}
	if tr.Last().Phase != Erotic {
		t.Fatalf("setup: phase = %v, want EROTIC", tr.Last().Phase)
	}

	// Fill the window with neutral turns; phase should fall multiple
	// ranks as the averages decay, with no single-step restriction.
	var ranks []int
	for i := 0; i < 10; i++ {
		st := tr.Update("just talking about the weather today, nothing else", "", gate.LabelSafe, false)
		ranks = append(ranks, st.Phase.Rank())
	}
	if tr.Last().Phase != Opening {
		t.Errorf("after decay phase = %v (ranks %v), want OPENING", tr.Last().Phase, ranks)
	}
}

func TestIsEroticIntent(t *testing.T) {
	tr := newTestTracker(t)

	if tr.IsEroticIntent("let's grab coffee sometime") {
		t.Error("plain text flagged as erotic intent")
	}
	// Two distinct erotic pattern families in one message.
	if !tr.IsEroticIntent("wanna have sex in bed") {
		t.Error("dense erotic text not flagged")
	}
	if tr.IsEroticIntent("") {
		t.Error("empty text flagged")
	}
}

func TestPhaseRank(t *testing.T) {
	wantOrder := []Phase{Opening, Rapport, Flirting, Intimate, Erotic}
	for i, p := range wantOrder {
		if p.Rank() != i {
			t.Errorf("%v.Rank() = %d, want %d", p, p.Rank(), i)
		}
		if !p.OnLadder() {
			t.Errorf("%v not on ladder", p)
		}
	}
	for _, p := range []Phase{BoundaryRepair, Cooldown} {
		if p.Rank() != -1 || p.OnLadder() {
			t.Errorf("%v: excursion state misclassified", p)
		}
	}
}

func containsTag(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.HasPrefix(tag, want) {
			return true
		}
	}
	return false
}
