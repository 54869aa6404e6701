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

	"github.com/redis/go-redis/v9"

	"github.com/AleutianAI/CompanionGate/pkg/logging"
)

const redisKeyPrefix = "companiongate:trust:"

// RedisStore persists trust records in Redis, for deployments where
// several server instances share one trust view. Records have no TTL;
// trust is meant to survive reconnects.
type RedisStore struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client, logger *logging.Logger) *RedisStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, identity string) (*Record, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+identity).Bytes()
	if errors.Is(err, redis.Nil) {
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
func (s *RedisStore) Save(ctx context.Context, identity string, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode trust record for %s: %w", identity, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+identity, raw, 0).Err(); err != nil {
		return fmt.Errorf("save trust record for %s: %w", identity, err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
