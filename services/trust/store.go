// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trust

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Store.Load when no record exists for the
// identity. Callers start the identity at the initial trust level.
var ErrNotFound = errors.New("trust record not found")

// historyLimit caps the per-identity adjustment history. Oldest
// entries are dropped first.
const historyLimit = 32

// Change records one trust adjustment for audit and debugging.
type Change struct {
	Level  float64   `json:"level"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Record is the persisted trust state for one identity.
type Record struct {
	Level      float64   `json:"level"`
	Consent    Consent   `json:"consent"`
	UpdatedAt  time.Time `json:"updated_at"`
	History    []Change  `json:"history,omitempty"`
	Boundaries []string  `json:"boundaries,omitempty"`
}

// AppendChange pushes an adjustment onto the record's history,
// evicting the oldest entry past the cap.
func (r *Record) AppendChange(c Change) {
	r.History = append(r.History, c)
	if len(r.History) > historyLimit {
		r.History = r.History[len(r.History)-historyLimit:]
	}
}

// Store persists trust records keyed by conversation identity.
//
// Implementations must return ErrNotFound (possibly wrapped) from Load
// when the identity has no record, and should treat an undecodable
// record the same way so a corrupt entry resets trust instead of
// wedging the conversation.
type Store interface {
	Load(ctx context.Context, identity string) (*Record, error)
	Save(ctx context.Context, identity string, rec *Record) error
	Close() error
}

// MemoryStore is an in-process Store for tests and for running
// without persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, identity string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[identity]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	return &out, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, identity string, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[identity] = *rec
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
