// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session runs complete conversations. A Session owns one
// conversation's history, phase, trust, and memory, and executes the
// per-turn pipeline: gate, signals, policy, generation, guards, state
// updates, persistence. Sessions are not safe for concurrent turns;
// the API layer serializes access per session.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/CompanionGate/pkg/logging"
	"github.com/AleutianAI/CompanionGate/services/gate"
	"github.com/AleutianAI/CompanionGate/services/llm"
	"github.com/AleutianAI/CompanionGate/services/memory"
	"github.com/AleutianAI/CompanionGate/services/persona"
	"github.com/AleutianAI/CompanionGate/services/phase"
	"github.com/AleutianAI/CompanionGate/services/policy"
	"github.com/AleutianAI/CompanionGate/services/signals"
	"github.com/AleutianAI/CompanionGate/services/trust"
)

// SignalSource hands out the current signal extractor. The hot-reload
// watcher swaps extractors between turns; a static source never does.
type SignalSource interface {
	Current() *signals.Extractor
}

// StaticSignals is a SignalSource that always returns the same
// extractor.
type StaticSignals struct {
	Extractor *signals.Extractor
}

func (s StaticSignals) Current() *signals.Extractor { return s.Extractor }

// Config fixes the conversation's persona and user context at start.
type Config struct {
	Profile  persona.Profile
	Identity persona.Identity

	// Style selects the base system prompt, "friendly" or
	// "flirty_adult_ok".
	Style string

	// MemoryID keys the persisted trust and memory records. Empty
	// derives one from the profile and today's date.
	MemoryID string

	UserGender string
	Attraction string

	// WindowSize is the phase tracker ring size. Zero uses the default.
	WindowSize int

	// ChatTimeout bounds one generation call. Zero uses the llm
	// default.
	ChatTimeout time.Duration
}

// Deps are the shared components a session borrows. All are required
// except Logger.
type Deps struct {
	Gate       *gate.Gate
	Signals    SignalSource
	Chat       llm.ChatClient
	TrustStore trust.Store
	Memory     *memory.Store
	Templates  *policy.Templates
	Logger     *logging.Logger
}

// Session is one live conversation.
type Session struct {
	ID       string
	cfg      Config
	deps     Deps
	logger   *logging.Logger
	memoryID string

	history  []llm.Message
	tracker  *phase.Tracker
	trust    *trust.Tracker
	record   *trust.Record
	composer *policy.Composer
	counters policy.Counters

	// lowEngagementStreak counts strictly consecutive low-engagement
	// turns for the trust penalty; the leaky termination counter lives
	// in counters.
	lowEngagementStreak int

	prevTurnRepaired bool
	blocked          bool
	turns            int
}

// New starts a session, resuming persisted trust for the memory id if
// any exists. A missing or corrupt trust record starts fresh.
func New(ctx context.Context, cfg Config, deps Deps) (*Session, error) {
	if deps.Gate == nil || deps.Signals == nil || deps.Chat == nil ||
		deps.TrustStore == nil || deps.Memory == nil || deps.Templates == nil {
		return nil, errors.New("session deps are incomplete")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}

	systemPrompt, ok := policy.PersonaSystem[cfg.Style]
	if !ok {
		return nil, fmt.Errorf("unknown conversation style %q", cfg.Style)
	}

	memoryID := cfg.MemoryID
	if memoryID == "" {
		memoryID = fmt.Sprintf("%s_%s", cfg.Profile.ID, time.Now().Format("20060102"))
	}

	trustTracker := trust.NewTracker()
	record := &trust.Record{Level: trust.InitialLevel, Consent: trust.ConsentNone}
	if rec, err := deps.TrustStore.Load(ctx, memoryID); err == nil {
		record = rec
		trustTracker = trust.NewTrackerFromState(trust.State{
			Level:   rec.Level,
			Consent: rec.Consent,
		})
	} else if !errors.Is(err, trust.ErrNotFound) {
		return nil, fmt.Errorf("load trust for session: %w", err)
	}

	s := &Session{
		ID:       uuid.NewString(),
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger,
		memoryID: memoryID,
		history:  []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}},
		tracker:  phase.NewTracker(deps.Signals.Current(), cfg.WindowSize),
		trust:    trustTracker,
		record:   record,
		composer: policy.NewComposer(cfg.Profile),
	}

	s.logger.Info("Session started",
		"session_id", s.ID,
		"persona", cfg.Profile.ID,
		"memory_id", memoryID,
		"trust", trustTracker.State().Level,
		"tier", string(trustTracker.State().Tier()))
	return s, nil
}

// MemoryID returns the persistence key for this session.
func (s *Session) MemoryID() string { return s.memoryID }

// Profile returns the persona in play.
func (s *Session) Profile() persona.Profile { return s.cfg.Profile }

// Blocked reports whether the session has terminated.
func (s *Session) Blocked() bool { return s.blocked }

// PhaseState returns the current phase snapshot.
func (s *Session) PhaseState() phase.State { return s.tracker.Last() }

// TrustState returns the current trust snapshot.
func (s *Session) TrustState() trust.State { return s.trust.State() }

// Turns returns how many turns have completed.
func (s *Session) Turns() int { return s.turns }
