// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package signals extracts categorical and continuous signals from raw
// turn text: escalation rule hits, erotic-intent severity, consent
// phrases, boundary acknowledgments, location requests, low engagement,
// and the per-category pattern scores the phase tracker averages.
//
// Every extractor is a pure function over the input string. Extractors
// are total: any string, including empty and whitespace-only input,
// yields the "no signal" value and never an error or panic.
//
// The linguistic heuristics live in YAML rule tables (see the rules
// subpackage for the embedded defaults), loaded and compiled once at
// startup. The engine only knows family names; the patterns themselves
// are data and can be replaced without touching control flow.
package signals

import (
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/CompanionGate/services/signals/rules"
	"gopkg.in/yaml.v3"
)

// Family names the engine requires. Load fails if any is missing from
// the rule file, so a bad table is a startup error, never a mid-session
// surprise.
const (
	FamilyFlirt            = "flirt"
	FamilyIntimacy         = "intimacy"
	FamilyErotic           = "erotic"
	FamilySlowdown         = "slowdown"
	FamilyEroticExplicit   = "erotic_explicit"
	FamilyEroticSuggestive = "erotic_suggestive"
	FamilyConsent          = "consent"
	FamilyBoundaryAck      = "boundary_ack"
	FamilyLocation         = "location"
	FamilyEscalation       = "escalation"
)

var requiredFamilies = []string{
	FamilyFlirt, FamilyIntimacy, FamilyErotic, FamilySlowdown,
	FamilyEroticExplicit, FamilyEroticSuggestive, FamilyConsent,
	FamilyBoundaryAck, FamilyLocation, FamilyEscalation,
}

// scoreDivisor normalizes per-category hit counts into [0,1].
// Three distinct pattern hits saturate a category for one turn.
const scoreDivisor = 3.0

// Extractor evaluates the compiled rule tables against turn text.
//
// An Extractor is immutable after construction and safe for concurrent
// use. Live reload swaps the whole Extractor (see Watcher), it never
// mutates one in place.
type Extractor struct {
	file    *RuleFile
	fillers map[string]struct{}
}

// Load builds an Extractor from the embedded default rule tables.
func Load() (*Extractor, error) {
	return LoadBytes(rules.ConversationRules)
}

// LoadFile builds an Extractor from an external YAML rule table,
// for deployments that tune patterns without recompiling.
func LoadFile(path string) (*Extractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}
	ex, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return ex, nil
}

// LoadBytes parses, validates, and compiles a YAML rule table.
func LoadBytes(data []byte) (*Extractor, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal rule tables: %w", err)
	}
	if err := file.Compile(); err != nil {
		return nil, fmt.Errorf("compile rule tables: %w", err)
	}
	for _, name := range requiredFamilies {
		fam := file.family(name)
		if fam == nil {
			return nil, fmt.Errorf("rule tables missing required family %q", name)
		}
		if len(fam.Patterns) == 0 {
			return nil, fmt.Errorf("rule family %q has no patterns", name)
		}
	}

	fillers := make(map[string]struct{}, len(file.Fillers))
	for _, f := range file.Fillers {
		fillers[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
	return &Extractor{file: &file, fillers: fillers}, nil
}

// Score counts distinct pattern hits from the named family and returns
// min(1, hits/3) plus a "{family}:{id}" tag per hit. Unknown families
// and empty text score zero.
func (e *Extractor) Score(family, text string) (float64, []string) {
	fam := e.file.family(family)
	if fam == nil || text == "" {
		return 0, nil
	}
	var tags []string
	hits := 0
	for i := range fam.Patterns {
		p := &fam.Patterns[i]
		if p.compiled.MatchString(text) {
			hits++
			tags = append(tags, fam.Name+":"+p.Id)
		}
	}
	score := float64(hits) / scoreDivisor
	if score > 1.0 {
		score = 1.0
	}
	return score, tags
}

// Detect reports whether any pattern of the named family matches,
// with the tags of every hit.
func (e *Extractor) Detect(family, text string) (bool, []string) {
	_, tags := e.Score(family, text)
	return len(tags) > 0, tags
}

// EscalationRuleHit checks the high-precision escalation family and
// returns the id of the first matching pattern. These rules are the
// override path that bypasses the learned risk gate, so a hit here is
// treated as unambiguous.
func (e *Extractor) EscalationRuleHit(text string) (bool, string) {
	t := strings.TrimSpace(text)
	if t == "" {
		return false, ""
	}
	fam := e.file.family(FamilyEscalation)
	for i := range fam.Patterns {
		p := &fam.Patterns[i]
		if p.compiled.MatchString(t) {
			return true, p.Id
		}
	}
	return false, ""
}

// EroticIntentLevel classifies the severity of erotic content.
// Explicit patterns are checked first; first match wins.
func (e *Extractor) EroticIntentLevel(text string) EroticLevel {
	if hit, _ := e.Detect(FamilyEroticExplicit, text); hit {
		return EroticExplicit
	}
	if hit, _ := e.Detect(FamilyEroticSuggestive, text); hit {
		return EroticSuggestive
	}
	return EroticNone
}

// ConsentPhrase returns a non-none consent strength only when an
// affirmative-consent phrase and a non-none erotic level are present in
// the same turn. The returned strength mirrors the erotic level and
// never exceeds it; consent is never inferred from trust or phase.
func (e *Extractor) ConsentPhrase(text string, eroticLevel EroticLevel) EroticLevel {
	if eroticLevel == EroticNone {
		return EroticNone
	}
	if hit, _ := e.Detect(FamilyConsent, text); !hit {
		return EroticNone
	}
	if eroticLevel == EroticExplicit {
		return EroticExplicit
	}
	return EroticSuggestive
}

// BoundaryAck detects conciliatory phrasing after a boundary reminder.
func (e *Extractor) BoundaryAck(text string) bool {
	hit, _ := e.Detect(FamilyBoundaryAck, text)
	return hit
}

// LocationRequest detects address solicitation or immediate in-person
// meeting pressure.
func (e *Extractor) LocationRequest(text string) bool {
	hit, _ := e.Detect(FamilyLocation, text)
	return hit
}

// Slowdown detects explicit requests to de-escalate.
func (e *Extractor) Slowdown(text string) (bool, []string) {
	return e.Detect(FamilySlowdown, text)
}

// LowEngagement reports whether the text is empty, a lone filler token,
// or at most two words.
func (e *Extractor) LowEngagement(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return true
	}
	if _, ok := e.fillers[t]; ok {
		return true
	}
	return len(strings.Fields(t)) <= 2
}
