// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gate wraps an external boundary-risk classifier behind a
// decision threshold.
//
// The classifier estimates p(MOVE): the probability that a message is
// boundary-pushing. The gate turns that probability into a binary
// SAFE/MOVE label at a configurable threshold. Scorer backends are
// selected at configuration time behind the Scorer interface; the gate
// itself is stateless across turns.
//
// Failure policy: a scorer error, timeout, or non-finite probability is
// treated as risk 0.0 and logged. The gate fails toward SAFE rather
// than crashing a session or propagating NaN (rule-based overrides in
// the policy composer still catch the unambiguous cases).
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// Label is the binary risk decision.
type Label string

const (
	LabelSafe Label = "SAFE"
	LabelMove Label = "MOVE"
)

// DefaultThreshold is the decision threshold on p(MOVE).
const DefaultThreshold = 0.45

// Scorer is one classifier backend. Implementations must return a
// probability in [0,1] and must not fail on empty input (return 0.0).
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Score is the gate's evaluation of a single message.
type Score struct {
	PMove     float64 `json:"p_move"`
	Label     Label   `json:"label"`
	Threshold float64 `json:"threshold"`
}

// Gate applies a threshold to a Scorer's probability output.
type Gate struct {
	scorer    Scorer
	threshold float64
	logger    *slog.Logger
}

// New creates a Gate. A threshold outside (0,1) falls back to the
// default.
func New(scorer Scorer, threshold float64, logger *slog.Logger) (*Gate, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer must not be nil")
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Gate{scorer: scorer, threshold: threshold, logger: logger}, nil
}

// Threshold returns the configured decision threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Evaluate scores one message. Each call is independent; the gate
// carries no state between turns. Evaluate never returns an error:
// backend failures degrade to p(MOVE)=0.
func (g *Gate) Evaluate(ctx context.Context, text string) Score {
	p := g.probability(ctx, text)
	label := LabelSafe
	if p >= g.threshold {
		label = LabelMove
	}
	return Score{PMove: p, Label: label, Threshold: g.threshold}
}

func (g *Gate) probability(ctx context.Context, text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.0
	}

	p, err := g.scorer.Score(ctx, text)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("risk scorer failed, treating turn as SAFE", "error", err)
		}
		return 0.0
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		if g.logger != nil {
			g.logger.Warn("risk scorer returned non-finite probability, treating as 0", "p_move", p)
		}
		return 0.0
	}
	return math.Max(0.0, math.Min(1.0, p))
}
