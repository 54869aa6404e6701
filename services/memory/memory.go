// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory extracts durable personal facts from user messages
// (preferences, favorites, occupation) and persists them per identity.
// Extraction is deliberately conservative: values that look like
// contact details, addresses, links, or long digit runs are discarded
// so the store never accumulates PII.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/CompanionGate/pkg/logging"
)

// Item is one remembered fact.
type Item struct {
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	LastSeen   time.Time `json:"last_seen"`
}

// defaultConfidence is assigned to freshly extracted facts. Repeated
// mentions refresh last_seen but never lower confidence.
const defaultConfidence = 0.6

type prefPattern struct {
	re  *regexp.Regexp
	key string
}

var prefPatterns = []prefPattern{
	{regexp.MustCompile(`(?i)\bi (really )?(like|love|enjoy|prefer|adore)\s+([^.!?]{2,60})`), "likes"},
	{regexp.MustCompile(`(?i)\bi'?m into\s+([^.!?]{2,60})`), "likes"},
	{regexp.MustCompile(`(?i)\bmy favorite\s+([^.!?]{2,40})\s+is\s+([^.!?]{2,60})`), "favorite"},
	{regexp.MustCompile(`(?i)\bi (work as|work in|do)\s+(a |an )?([^.!?]{2,60})`), "job"},
	{regexp.MustCompile(`(?i)\bi'?m (a|an)\s+([^.!?]{2,60})`), "job"},
}

var (
	blocklist = regexp.MustCompile(`(?i)\b(address|street|st\.|road|rd\.|ave|avenue|blvd|lane|ln\.|apt|suite|unit|zip|postal|postcode|phone|number|email|snap|insta)\b`)
	// Matches bare scheme and host fragments too: the capture groups
	// stop at sentence punctuation, so a URL can arrive truncated at
	// its first dot (e.g. "www" out of "www.example.com").
	contactRe = regexp.MustCompile(`(?i)@|\bhttps?\b|\bwww\b`)
	digitsRe  = regexp.MustCompile(`\d{3,}`)
	spacesRe  = regexp.MustCompile(`\s+`)
)

func cleanValue(text string) string {
	return strings.Trim(spacesRe.ReplaceAllString(text, " "), " .,!?:;\"'")
}

func isSafeValue(value string) bool {
	if len(value) < 2 {
		return false
	}
	if blocklist.MatchString(value) {
		return false
	}
	if contactRe.MatchString(value) {
		return false
	}
	if digitsRe.MatchString(value) {
		return false
	}
	return true
}

const badgerKeyPrefix = "memory:"

// Store holds the remembered facts for one identity. When a BadgerDB
// handle is provided, items load at construction and every mutation
// writes through; with a nil handle the store is purely in-process.
// Not safe for concurrent use; the session serializes turns.
type Store struct {
	identity string
	db       *badger.DB
	logger   *logging.Logger
	items    []Item

	// now is swappable for tests.
	now func() time.Time
}

// NewStore opens the fact store for an identity. A record that fails
// to decode is dropped with a warning rather than failing the session.
func NewStore(identity string, db *badger.DB, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{identity: identity, db: db, logger: logger, now: time.Now}
	if db == nil {
		return s, nil
	}

	var raw []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + identity))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load memory for %s: %w", identity, err)
	}
	if err := json.Unmarshal(raw, &s.items); err != nil {
		logger.Warn("Corrupt memory record, starting empty",
			"identity", identity, "error", err)
		s.items = nil
	}
	return s, nil
}

// UpdateFromText scans one user message for new facts, stores them,
// and returns what was added this turn. Re-mentioned facts refresh
// their last_seen timestamp without being reported as new.
func (s *Store) UpdateFromText(userText string) ([]Item, error) {
	var added []Item
	for _, p := range prefPatterns {
		for _, match := range p.re.FindAllStringSubmatch(userText, -1) {
			value := ""
			for i := len(match) - 1; i >= 1; i-- {
				if match[i] != "" {
					value = cleanValue(match[i])
					break
				}
			}
			if !isSafeValue(value) {
				continue
			}
			if item, isNew := s.upsert(p.key, value); isNew {
				added = append(added, item)
			}
		}
	}
	if len(added) > 0 {
		if err := s.persist(); err != nil {
			return added, err
		}
	}
	return added, nil
}

func (s *Store) upsert(key, value string) (Item, bool) {
	now := s.now().UTC().Truncate(time.Second)
	for i := range s.items {
		if s.items[i].Key == key && strings.EqualFold(s.items[i].Value, value) {
			s.items[i].LastSeen = now
			if s.items[i].Confidence < defaultConfidence {
				s.items[i].Confidence = defaultConfidence
			}
			return Item{}, false
		}
	}
	item := Item{Key: key, Value: value, Confidence: defaultConfidence, LastSeen: now}
	s.items = append(s.items, item)
	return item, true
}

// Highlights returns up to k "key: value" lines, most recently seen
// first, for inclusion in the system context.
func (s *Store) Highlights(k int) []string {
	sorted := make([]Item, len(s.items))
	copy(sorted, s.items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastSeen.After(sorted[j].LastSeen)
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	out := make([]string, 0, len(sorted))
	for _, item := range sorted {
		out = append(out, fmt.Sprintf("%s: %s", item.Key, item.Value))
	}
	return out
}

// Items returns a copy of every stored fact.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Clear forgets everything for this identity, including the persisted
// record.
func (s *Store) Clear() error {
	s.items = nil
	if s.db == nil {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerKeyPrefix + s.identity))
	})
	if err != nil {
		return fmt.Errorf("clear memory for %s: %w", s.identity, err)
	}
	return nil
}

func (s *Store) persist() error {
	if s.db == nil {
		return nil
	}
	raw, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode memory for %s: %w", s.identity, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+s.identity), raw)
	})
	if err != nil {
		return fmt.Errorf("save memory for %s: %w", s.identity, err)
	}
	return nil
}
