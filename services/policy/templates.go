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

import "math/rand"

var safeRedirects = []string{
	"Totally fair—let’s keep it comfortable. I’m happy to stay here and chat. What are you up to this week?",
	"Got it. I don’t want to push. Want to switch topics—what have you been enjoying lately?",
	"No worries at all. We can keep this low-key. What kind of plans do you have for the weekend?",
	"Thanks for saying that. I’ll slow down. What’s something you’re looking forward to right now?",
}

var softeners = []string{
	"No pressure.",
	"Only if you feel comfortable.",
	"Totally fine either way.",
}

var softDeflects = []string{
	"You’re fun, but let’s keep it a little slow for now. Tell me what you’re into outside of dating apps?",
	"Mmm, tempting. I like a slow burn though—what’s your ideal first date?",
	"Okay, you’ve got my attention. I’m into building a vibe first—what’s your kind of night?",
	"You’re spicy. I’m down to flirt, but let’s not sprint—what’s something that makes you smile lately?",
	"I like the energy. Let’s keep it playful for a bit—what’s a hobby you actually get lost in?",
}

// Softener append probabilities. Kept low so scripted replies don't
// read as templated.
const (
	repairSoftenerChance  = 0.35
	deflectSoftenerChance = 0.30
)

// BlockMessage is the final reply when the conversation terminates.
const BlockMessage = "I don't think we're a match, so I'll bow out. Press Enter to exit the chatbot."

// EroticAllowedGuidance is appended to the system context when
// escalated content is permitted for the turn.
const EroticAllowedGuidance = "If mutual and appropriate, you may respond with a consensual adult tone. " +
	"Keep it playful and suggestive, avoid explicit pornographic detail, and stay respectful."

// NonEroticGuidance is the system context line used when escalated
// content is not permitted.
const NonEroticGuidance = "Keep replies non-explicit; slow down if needed."

// Templates renders scripted replies. The RNG is injected so tests
// and replays are deterministic.
type Templates struct {
	rng *rand.Rand
}

// NewTemplates wraps an RNG for scripted reply selection.
func NewTemplates(rng *rand.Rand) *Templates {
	return &Templates{rng: rng}
}

// BoundaryRepair picks a safe redirect, occasionally softened.
func (t *Templates) BoundaryRepair() string {
	base := safeRedirects[t.rng.Intn(len(safeRedirects))]
	if t.rng.Float64() < repairSoftenerChance {
		base = base + " " + softeners[t.rng.Intn(len(softeners))]
	}
	return base
}

// SoftDeflect picks a playful deflection, occasionally softened.
func (t *Templates) SoftDeflect() string {
	base := softDeflects[t.rng.Intn(len(softDeflects))]
	if t.rng.Float64() < deflectSoftenerChance {
		base = base + " " + softeners[t.rng.Intn(len(softeners))]
	}
	return base
}
