package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/batchrun/internal/engine/batch"
	"github.com/rshade/batchrun/internal/ingest"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *time.Time) {
	t.Helper()
	s, err := Open(t.TempDir(), ttl)
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestKey(t *testing.T) {
	assert.Len(t, Key("a"), 64)
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestRecordKey(t *testing.T) {
	a := ingest.Record{"name": "alice", "email": "a@example.com"}
	b := ingest.Record{"email": "a@example.com", "name": "alice"}

	ka, err := RecordKey("https://api.example.com", a)
	require.NoError(t, err)
	kb, err := RecordKey("https://api.example.com", b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)

	other, err := RecordKey("https://other.example.com", a)
	require.NoError(t, err)
	assert.NotEqual(t, ka, other)
}

func TestOpen(t *testing.T) {
	t.Run("creates directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "cache")
		s, err := Open(dir, time.Hour)
		require.NoError(t, err)
		assert.DirExists(t, dir)
		assert.Equal(t, dir, s.Dir())
		assert.Equal(t, time.Hour, s.TTL())
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		s, err := Open(t.TempDir(), 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultTTL, s.TTL())
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := Open("", time.Hour)
		require.Error(t, err)
	})
}

func TestStore_PutGet(t *testing.T) {
	s, now := newTestStore(t, time.Hour)
	key := Key("item")

	_, err := s.Get(key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(key, json.RawMessage(`{"status_code":200}`)))
	data, err := s.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status_code":200}`, string(data))

	*now = now.Add(time.Hour)
	_, err = s.Get(key)
	require.ErrorIs(t, err, ErrExpired)
}

func TestStore_InvalidKey(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	for _, key := range []string{"", "../etc/passwd", "not-hex", "abc"} {
		_, err := s.Get(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
		assert.ErrorIs(t, s.Put(key, json.RawMessage(`1`)), ErrInvalidKey, key)
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	key := Key("gone")

	require.NoError(t, s.Put(key, json.RawMessage(`1`)))
	require.NoError(t, s.Delete(key))
	require.NoError(t, s.Delete(key))

	_, err := s.Get(key)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PruneClearStats(t *testing.T) {
	s, now := newTestStore(t, time.Hour)

	require.NoError(t, s.Put(Key("old"), json.RawMessage(`1`)))
	*now = now.Add(30 * time.Minute)
	require.NoError(t, s.Put(Key("new"), json.RawMessage(`2`)))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), Key("broken")+entryExt), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "README.txt"), []byte("ignored"), 0o600))

	*now = now.Add(45 * time.Minute)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Entries)
	assert.Equal(t, 2, st.Expired)
	assert.Positive(t, st.Bytes)

	removed, err := s.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = s.Get(Key("new"))
	require.NoError(t, err)

	removed, err = s.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.FileExists(t, filepath.Join(s.Dir(), "README.txt"))
}

func TestProcessor(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	var calls atomic.Int32
	next := batch.ProcessorFunc[ingest.Record, string](
		func(_ context.Context, rec ingest.Record, _ int) (string, error) {
			calls.Add(1)
			if rec["fail"] == "yes" {
				return "", errors.New("remote said no")
			}
			return "processed " + rec["name"], nil
		})
	key := func(rec ingest.Record) (string, error) { return RecordKey("scope", rec) }

	p := Wrap[ingest.Record, string](s, key, next)
	ctx := context.Background()

	out, err := p.Process(ctx, ingest.Record{"name": "alice"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "processed alice", out)

	out, err = p.Process(ctx, ingest.Record{"name": "alice"}, 3)
	require.NoError(t, err)
	assert.Equal(t, "processed alice", out)
	assert.Equal(t, int32(1), calls.Load())

	_, err = p.Process(ctx, ingest.Record{"name": "bob", "fail": "yes"}, 1)
	require.Error(t, err)
	_, err = p.Process(ctx, ingest.Record{"name": "bob", "fail": "yes"}, 1)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	assert.Equal(t, int64(1), p.Hits())
	assert.Equal(t, int64(3), p.Misses())
}

func TestProcessor_KeyErrorBypassesCache(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	var calls atomic.Int32
	next := batch.ProcessorFunc[int, int](func(_ context.Context, item int, _ int) (int, error) {
		calls.Add(1)
		return item * 2, nil
	})
	key := func(int) (string, error) { return "", errors.New("no key") }

	p := Wrap[int, int](s, key, next)
	for range 2 {
		out, err := p.Process(context.Background(), 21, 0)
		require.NoError(t, err)
		assert.Equal(t, 42, out)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, p.Hits())
}

func TestProcessor_UnreadableEntryIsMiss(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	k := Key("x")
	require.NoError(t, s.Put(k, json.RawMessage(`"not a number"`)))

	next := batch.ProcessorFunc[int, int](func(context.Context, int, int) (int, error) {
		return 7, nil
	})
	p := Wrap[int, int](s, func(int) (string, error) { return k, nil }, next)

	out, err := p.Process(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, out)
	assert.Equal(t, int64(1), p.Misses())

	data, err := s.Get(k)
	require.NoError(t, err)
	assert.JSONEq(t, `7`, string(data))
}
