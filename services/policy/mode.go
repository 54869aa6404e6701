// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy decides how each turn is answered. The composer
// merges the risk gate verdict, extracted signals, conversation phase,
// trust, and the persona's traits into a response mode; the counters
// decide when a conversation has earned termination.
package policy

// Mode is the response strategy for one turn.
type Mode string

const (
	// ModeNormal lets the language model answer, guided by the system
	// context.
	ModeNormal Mode = "NORMAL"

	// ModeSafetyRepair replaces the model with a scripted boundary
	// redirect.
	ModeSafetyRepair Mode = "SAFETY_REPAIR"

	// ModeSoftDeflect replaces the model with a scripted
	// keep-it-playful deflection.
	ModeSoftDeflect Mode = "SOFT_DEFLECT"

	// ModeBlock ends the conversation.
	ModeBlock Mode = "BLOCK"
)
