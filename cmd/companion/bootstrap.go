// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"github.com/AleutianAI/CompanionGate/pkg/logging"
	"github.com/AleutianAI/CompanionGate/services/gate"
	"github.com/AleutianAI/CompanionGate/services/llm"
	"github.com/AleutianAI/CompanionGate/services/persona"
	"github.com/AleutianAI/CompanionGate/services/session"
	"github.com/AleutianAI/CompanionGate/services/signals"
	"github.com/AleutianAI/CompanionGate/services/storage/badgerdb"
	"github.com/AleutianAI/CompanionGate/services/trust"
)

// Flags shared by chat and serve.
var (
	flagScorerBackend string
	flagThreshold     float64
	flagLLMBackend    string
	flagDataDir       string
	flagRedisAddr     string
	flagRulesFile     string
	flagLogLevel      string
	flagSeed          int64
)

// components is everything the chat loop and the server share.
type components struct {
	logger     *logging.Logger
	catalog    *persona.Catalog
	signals    session.SignalSource
	gate       *gate.Gate
	chat       llm.ChatClient
	trustStore trust.Store
	db         *badger.DB
	rng        *rand.Rand

	reloader *signals.Reloader
}

// buildComponents wires the stack from flags. Callers must call
// close() when done.
func buildComponents() (*components, error) {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(flagLogLevel),
		Service: "companion",
	})

	catalog, err := persona.LoadBuiltin()
	if err != nil {
		return nil, err
	}

	var source session.SignalSource
	var reloader *signals.Reloader
	if flagRulesFile != "" {
		reloader, err = signals.NewReloader(flagRulesFile, logger.Slog())
		if err != nil {
			return nil, fmt.Errorf("load rules file: %w", err)
		}
		source = reloader
	} else {
		extractor, err := signals.Load()
		if err != nil {
			return nil, fmt.Errorf("load embedded rules: %w", err)
		}
		source = session.StaticSignals{Extractor: extractor}
	}

	scorer, err := gate.NewScorer(flagScorerBackend, source.Current())
	if err != nil {
		return nil, err
	}
	g, err := gate.New(scorer, flagThreshold, logger.Slog())
	if err != nil {
		return nil, err
	}

	chat, err := llm.NewChatClient(flagLLMBackend)
	if err != nil {
		return nil, err
	}

	var db *badger.DB
	if flagDataDir != "" {
		db, err = badgerdb.Open(badgerdb.Config{Path: flagDataDir, Logger: logger.Slog()})
		if err != nil {
			return nil, err
		}
	}

	var trustStore trust.Store
	switch {
	case flagRedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: flagRedisAddr})
		trustStore = trust.NewRedisStore(client, logger)
	case db != nil:
		trustStore = trust.NewBadgerStore(db, logger)
	default:
		trustStore = trust.NewMemoryStore()
	}

	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &components{
		logger:     logger,
		catalog:    catalog,
		signals:    source,
		gate:       g,
		chat:       chat,
		trustStore: trustStore,
		db:         db,
		rng:        rand.New(rand.NewSource(seed)),
		reloader:   reloader,
	}, nil
}

func (c *components) close() {
	if c.reloader != nil {
		c.reloader.Close()
	}
	if c.trustStore != nil {
		c.trustStore.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
	if c.logger != nil {
		c.logger.Close()
	}
}
