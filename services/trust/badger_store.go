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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/CompanionGate/pkg/logging"
)

const badgerKeyPrefix = "trust:"

// BadgerStore persists trust records in an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger *logging.Logger
	ownsDB bool
}

// NewBadgerStore wraps an already-open BadgerDB. The caller keeps
// ownership of the database; Close on the store is a no-op for it.
func NewBadgerStore(db *badger.DB, logger *logging.Logger) *BadgerStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &BadgerStore{db: db, logger: logger}
}

// Load implements Store. A record that fails to decode is logged and
// reported as ErrNotFound so the conversation restarts at the initial
// trust level instead of failing.
func (s *BadgerStore) Load(_ context.Context, identity string) (*Record, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + identity))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load trust record for %s: %w", identity, err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("Corrupt trust record, resetting to defaults",
			"identity", identity, "error", err)
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Save implements Store.
func (s *BadgerStore) Save(_ context.Context, identity string, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode trust record for %s: %w", identity, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+identity), raw)
	})
	if err != nil {
		return fmt.Errorf("save trust record for %s: %w", identity, err)
	}
	return nil
}

// Close implements Store. It closes the database only when this store
// opened it.
func (s *BadgerStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
