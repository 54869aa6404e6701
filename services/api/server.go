// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the conversation engine over HTTP. One process
// serves many concurrent sessions; turns within a session are
// serialized, turns across sessions are not.
package api

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/CompanionGate/pkg/logging"
	"github.com/AleutianAI/CompanionGate/services/gate"
	"github.com/AleutianAI/CompanionGate/services/llm"
	"github.com/AleutianAI/CompanionGate/services/memory"
	"github.com/AleutianAI/CompanionGate/services/persona"
	"github.com/AleutianAI/CompanionGate/services/policy"
	"github.com/AleutianAI/CompanionGate/services/session"
	"github.com/AleutianAI/CompanionGate/services/trust"
)

// Server owns the shared components and the live session registry.
type Server struct {
	catalog    *persona.Catalog
	gate       *gate.Gate
	signals    session.SignalSource
	chat       llm.ChatClient
	trustStore trust.Store
	db         *badger.DB
	logger     *logging.Logger
	rng        *rand.Rand

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// liveSession wraps a session with its own turn lock.
type liveSession struct {
	mu   sync.Mutex
	sess *session.Session
}

// ServerConfig wires the shared components. DB may be nil to run
// without memory persistence.
type ServerConfig struct {
	Catalog    *persona.Catalog
	Gate       *gate.Gate
	Signals    session.SignalSource
	Chat       llm.ChatClient
	TrustStore trust.Store
	DB         *badger.DB
	Logger     *logging.Logger
	RNG        *rand.Rand
}

// NewServer validates the wiring and builds an empty registry.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Catalog == nil || cfg.Gate == nil || cfg.Signals == nil ||
		cfg.Chat == nil || cfg.TrustStore == nil {
		return nil, fmt.Errorf("server config is incomplete")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.RNG == nil {
		return nil, fmt.Errorf("server config requires an rng")
	}
	return &Server{
		catalog:    cfg.Catalog,
		gate:       cfg.Gate,
		signals:    cfg.Signals,
		chat:       cfg.Chat,
		trustStore: cfg.TrustStore,
		db:         cfg.DB,
		logger:     cfg.Logger,
		rng:        cfg.RNG,
		sessions:   make(map[string]*liveSession),
	}, nil
}

// startSession resolves the persona and builds a session plus its
// memory store.
func (s *Server) startSession(ctx context.Context, req createSessionRequest) (*session.Session, error) {
	profileID := req.Persona
	if profileID == "" {
		profileID = persona.RandomProfile
	}

	s.mu.Lock()
	profile, err := s.catalog.Lookup(profileID, s.rng)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	gender := req.Gender
	if gender == "" || gender == "random" {
		if s.seed()%2 == 0 {
			gender = "female"
		} else {
			gender = "male"
		}
	}
	identity, err := profile.Identity(gender)
	if err != nil {
		return nil, err
	}

	style := req.Style
	if style == "" {
		style = "friendly"
	}

	memoryID := req.MemoryID
	if memoryID == "" {
		memoryID = profile.ID
	}
	mem, err := memory.NewStore(memoryID, s.db, s.logger)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	sess, err := session.New(ctx, session.Config{
		Profile:    profile,
		Identity:   identity,
		Style:      style,
		MemoryID:   memoryID,
		UserGender: req.UserGender,
		Attraction: req.Attraction,
	}, session.Deps{
		Gate:       s.gate,
		Signals:    s.signals,
		Chat:       s.chat,
		TrustStore: s.trustStore,
		Memory:     mem,
		Templates:  policy.NewTemplates(rand.New(rand.NewSource(s.seed()))),
		Logger:     s.logger,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &liveSession{sess: sess}
	s.mu.Unlock()
	return sess, nil
}

func (s *Server) seed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int63()
}

func (s *Server) lookup(id string) (*liveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls, ok := s.sessions[id]
	return ls, ok
}
