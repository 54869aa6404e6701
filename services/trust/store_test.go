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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CompanionGate/services/storage/badgerdb"
)

func sampleRecord() *Record {
	return &Record{
		Level:     0.42,
		Consent:   ConsentSuggestive,
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		History: []Change{
			{Level: 0.42, Reason: "safe_turn", At: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		},
		Boundaries: []string{"come_over"},
	}
}

// exerciseStore runs the shared Store contract against an implementation.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing identity returns ErrNotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		want := sampleRecord()
		require.NoError(t, store.Save(ctx, "alex", want))

		got, err := store.Load(ctx, "alex")
		require.NoError(t, err)
		assert.Equal(t, want.Level, got.Level)
		assert.Equal(t, want.Consent, got.Consent)
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
		assert.Equal(t, want.Boundaries, got.Boundaries)
		require.Len(t, got.History, 1)
		assert.Equal(t, "safe_turn", got.History[0].Reason)
	})

	t.Run("save overwrites", func(t *testing.T) {
		rec := sampleRecord()
		rec.Level = 0.9
		require.NoError(t, store.Save(ctx, "alex", rec))

		got, err := store.Load(ctx, "alex")
		require.NoError(t, err)
		assert.Equal(t, 0.9, got.Level)
	})

	t.Run("identities are independent", func(t *testing.T) {
		_, err := store.Load(ctx, "someone-else")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	exerciseStore(t, store)
}

func TestBadgerStore(t *testing.T) {
	db, err := badgerdb.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	store := NewBadgerStore(db, nil)
	defer store.Close()
	exerciseStore(t, store)
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	store := NewRedisStore(client, nil)
	defer store.Close()
	exerciseStore(t, store)
}

func TestRedisStoreCorruptRecordResets(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	store := NewRedisStore(client, nil)
	defer store.Close()

	require.NoError(t, srv.Set(redisKeyPrefix+"alex", "{not json"))

	_, err := store.Load(context.Background(), "alex")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordAppendChangeCapsHistory(t *testing.T) {
	rec := &Record{}
	for i := 0; i < historyLimit+10; i++ {
		rec.AppendChange(Change{Level: float64(i)})
	}

	assert.Len(t, rec.History, historyLimit)
	assert.Equal(t, float64(10), rec.History[0].Level,
		"oldest entries evicted first")
	assert.Equal(t, float64(historyLimit+9), rec.History[historyLimit-1].Level)
}
