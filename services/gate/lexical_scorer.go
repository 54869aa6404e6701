// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gate

import (
	"context"
	"fmt"

	"github.com/AleutianAI/CompanionGate/services/signals"
)

// LexicalScorer is an offline scorer backend built on the rule tables.
//
// It exists so the engine runs without the learned classifier sidecar
// (air-gapped deployments, tests). Probabilities are coarse by design:
// the point is ordering, not calibration. Escalation phrasing scores
// near-certain MOVE, explicit content scores above the default
// threshold, suggestive content below it.
type LexicalScorer struct {
	extractor *signals.Extractor
}

// NewLexicalScorer builds the offline backend over compiled rule tables.
func NewLexicalScorer(extractor *signals.Extractor) (*LexicalScorer, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor must not be nil")
	}
	return &LexicalScorer{extractor: extractor}, nil
}

// Score implements the Scorer interface.
func (s *LexicalScorer) Score(_ context.Context, text string) (float64, error) {
	if hit, _ := s.extractor.EscalationRuleHit(text); hit {
		return 0.95, nil
	}
	if s.extractor.LocationRequest(text) {
		return 0.85, nil
	}
	switch s.extractor.EroticIntentLevel(text) {
	case signals.EroticExplicit:
		return 0.60, nil
	case signals.EroticSuggestive:
		return 0.30, nil
	}
	return 0.05, nil
}

// Backend kinds selectable at configuration time.
const (
	BackendRemote  = "remote"
	BackendLexical = "lexical"
)

// NewScorer selects a scorer backend by kind. Unknown kinds are a
// configuration error, fatal at startup only.
func NewScorer(kind string, extractor *signals.Extractor) (Scorer, error) {
	switch kind {
	case BackendRemote:
		return NewRemoteScorer()
	case BackendLexical, "":
		return NewLexicalScorer(extractor)
	default:
		return nil, fmt.Errorf("unknown scorer backend %q (want %q or %q)",
			kind, BackendRemote, BackendLexical)
	}
}
