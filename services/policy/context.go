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
	"fmt"
	"strings"

	"github.com/AleutianAI/CompanionGate/services/persona"
	"github.com/AleutianAI/CompanionGate/services/phase"
)

// PersonaSystem maps the conversation style flag to the base system
// prompt. These set tone; the per-turn system context carries the
// actual constraints.
var PersonaSystem = map[string]string{
	"friendly": "You are a natural conversational partner on a dating app. " +
		"Keep replies short (1–3 sentences). Ask exactly one thoughtful question. " +
		"Be warm, curious, and specific.",
	"flirty_adult_ok": "You are playful and lightly flirty on a dating app. Adult topics are allowed if mutual and respectful. " +
		"Never be coercive, never push for address/location, and always respect boundaries. " +
		"Keep replies short (1–2 sentences). Ask exactly one engaging question.",
}

// ContextParams collects the per-turn facts the system context
// exposes to the model.
type ContextParams struct {
	Phase            phase.State
	Profile          persona.Profile
	MemoryHighlights []string
	AllowErotic      bool
	UserGender       string
	Attraction       string
}

// BuildSystemContext renders the hidden per-turn system message. The
// model sees current phase, the persona trait summary, what is known
// about the user, and whether escalated content is permitted this
// turn.
func BuildSystemContext(p ContextParams) string {
	mem := "none"
	if len(p.MemoryHighlights) > 0 {
		mem = strings.Join(p.MemoryHighlights, "; ")
	}
	guidance := NonEroticGuidance
	if p.AllowErotic {
		guidance = EroticAllowedGuidance
	}
	userGender := p.UserGender
	if userGender == "" {
		userGender = "unspecified"
	}
	attraction := p.Attraction
	if attraction == "" {
		attraction = "unspecified"
	}

	var b strings.Builder
	b.WriteString("SYSTEM CONTEXT (hidden):\n")
	fmt.Fprintf(&b, "phase=%s\n", p.Phase.Phase)
	fmt.Fprintf(&b, "bot_profile=%s\n", p.Profile.Summary())
	fmt.Fprintf(&b, "user_gender=%s\n", userGender)
	fmt.Fprintf(&b, "attraction=%s\n", attraction)
	fmt.Fprintf(&b, "memory=%s\n", mem)
	b.WriteString("Instruction: be natural and human; do not assume the user's attraction unless specified; " +
		"escalate only if appropriate; " +
		"respect boundaries and avoid asking for address/location. ")
	b.WriteString(guidance)
	return b.String()
}
