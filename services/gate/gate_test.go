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
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/AleutianAI/CompanionGate/services/signals"
)

type fixedScorer struct {
	p   float64
	err error
}

func (s fixedScorer) Score(context.Context, string) (float64, error) {
	return s.p, s.err
}

func TestGateThreshold(t *testing.T) {
	tests := []struct {
		name      string
		p         float64
		threshold float64
		want      Label
	}{
		{"well below", 0.10, 0.45, LabelSafe},
		{"just below", 0.449, 0.45, LabelSafe},
		{"at threshold", 0.45, 0.45, LabelMove},
		{"above", 0.90, 0.45, LabelMove},
		{"custom threshold", 0.50, 0.60, LabelSafe},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(fixedScorer{p: tc.p}, tc.threshold, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			got := g.Evaluate(context.Background(), "some message")
			if got.Label != tc.want {
				t.Errorf("label = %v, want %v (p=%v thr=%v)", got.Label, tc.want, tc.p, tc.threshold)
			}
			if got.Threshold != tc.threshold {
				t.Errorf("threshold = %v, want %v", got.Threshold, tc.threshold)
			}
		})
	}
}

func TestGateFailsSafe(t *testing.T) {
	tests := []struct {
		name   string
		scorer Scorer
	}{
		{"scorer error", fixedScorer{err: errors.New("model unavailable")}},
		{"NaN", fixedScorer{p: math.NaN()}},
		{"+Inf", fixedScorer{p: math.Inf(1)}},
		{"-Inf", fixedScorer{p: math.Inf(-1)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(tc.scorer, DefaultThreshold, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			got := g.Evaluate(context.Background(), "anything")
			if got.PMove != 0.0 {
				t.Errorf("p_move = %v, want 0.0", got.PMove)
			}
			if got.Label != LabelSafe {
				t.Errorf("label = %v, want SAFE", got.Label)
			}
		})
	}
}

func TestGateClampsProbability(t *testing.T) {
	g, _ := New(fixedScorer{p: 1.7}, DefaultThreshold, nil)
	if got := g.Evaluate(context.Background(), "x"); got.PMove != 1.0 {
		t.Errorf("p_move = %v, want clamped 1.0", got.PMove)
	}

	g, _ = New(fixedScorer{p: -0.3}, DefaultThreshold, nil)
	if got := g.Evaluate(context.Background(), "x"); got.PMove != 0.0 {
		t.Errorf("p_move = %v, want clamped 0.0", got.PMove)
	}
}

func TestGateEmptyInput(t *testing.T) {
	// The scorer must not be called at all for empty input.
	g, _ := New(fixedScorer{p: 0.99}, DefaultThreshold, nil)
	for _, input := range []string{"", "   ", "\n\t"} {
		got := g.Evaluate(context.Background(), input)
		if got.PMove != 0.0 || got.Label != LabelSafe {
			t.Errorf("Evaluate(%q) = %+v, want SAFE at 0.0", input, got)
		}
	}
}

func TestGateBadThresholdFallsBack(t *testing.T) {
	for _, thr := range []float64{0, -1, 1, 2} {
		g, err := New(fixedScorer{p: 0.5}, thr, nil)
		if err != nil {
			t.Fatalf("New(%v): %v", thr, err)
		}
		if g.Threshold() != DefaultThreshold {
			t.Errorf("threshold %v not replaced with default, got %v", thr, g.Threshold())
		}
	}
}

func TestLexicalScorerOrdering(t *testing.T) {
	ex, err := signals.Load()
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	s, err := NewLexicalScorer(ex)
	if err != nil {
		t.Fatalf("NewLexicalScorer: %v", err)
	}

	ctx := context.Background()
	escalation, _ := s.Score(ctx, "come over right now")
	explicit, _ := s.Score(ctx, "let's have sex")
	suggestive, _ := s.Score(ctx, "you turn me on")
	plain, _ := s.Score(ctx, "how was your day?")

	if !(escalation > explicit && explicit > suggestive && suggestive > plain) {
		t.Errorf("ordering violated: escalation=%v explicit=%v suggestive=%v plain=%v",
			escalation, explicit, suggestive, plain)
	}
	if explicit < DefaultThreshold {
		t.Errorf("explicit content must gate MOVE at the default threshold, got %v", explicit)
	}
	if suggestive >= DefaultThreshold {
		t.Errorf("suggestive content must stay SAFE at the default threshold, got %v", suggestive)
	}
}

func TestRemoteScorer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/score" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"p_move": 0.87}`))
	}))
	defer srv.Close()

	os.Setenv("SCORER_BASE_URL", srv.URL)
	defer os.Unsetenv("SCORER_BASE_URL")

	s, err := NewRemoteScorer()
	if err != nil {
		t.Fatalf("NewRemoteScorer: %v", err)
	}

	p, err := s.Score(context.Background(), "some message")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if p != 0.87 {
		t.Errorf("p = %v, want 0.87", p)
	}

	// Empty input short-circuits without a request.
	p, err = s.Score(context.Background(), "  ")
	if err != nil || p != 0.0 {
		t.Errorf("empty input: p=%v err=%v, want 0 and nil", p, err)
	}
}

func TestNewScorerSelection(t *testing.T) {
	ex, err := signals.Load()
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}

	if _, err := NewScorer(BackendLexical, ex); err != nil {
		t.Errorf("lexical backend: %v", err)
	}
	if _, err := NewScorer("", ex); err != nil {
		t.Errorf("default backend: %v", err)
	}
	if _, err := NewScorer("quantum", ex); err == nil {
		t.Error("unknown backend accepted")
	}
}
