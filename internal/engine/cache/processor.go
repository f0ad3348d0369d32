package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/rshade/batchrun/internal/engine/batch"
	"github.com/rshade/batchrun/internal/logging"
)

// KeyFunc derives the cache key for an item.
type KeyFunc[In any] func(item In) (string, error)

// Processor serves items from a Store and records new successes in it.
// Cache problems are logged and never fail an item; failed items are not
// stored.
type Processor[In, Out any] struct {
	store *Store
	key   KeyFunc[In]
	next  batch.ItemProcessor[In, Out]

	hits   atomic.Int64
	misses atomic.Int64
}

// Wrap returns next backed by store.
func Wrap[In, Out any](store *Store, key KeyFunc[In], next batch.ItemProcessor[In, Out]) *Processor[In, Out] {
	return &Processor[In, Out]{store: store, key: key, next: next}
}

// Process implements batch.ItemProcessor.
func (p *Processor[In, Out]) Process(ctx context.Context, item In, index int) (Out, error) {
	log := logging.FromContext(ctx)

	key, err := p.key(item)
	if err != nil {
		log.Warn().Err(err).Int("index", index).Msg("cache key failed; processing without cache")
		p.misses.Add(1)
		return p.next.Process(ctx, item, index)
	}

	if out, ok := p.lookup(ctx, key, index); ok {
		p.hits.Add(1)
		return out, nil
	}
	p.misses.Add(1)

	out, err := p.next.Process(ctx, item, index)
	if err != nil {
		return out, err
	}

	data, err := json.Marshal(out)
	if err == nil {
		err = p.store.Put(key, data)
	}
	if err != nil {
		log.Warn().Err(err).Int("index", index).Msg("cache store failed")
	}
	return out, nil
}

func (p *Processor[In, Out]) lookup(ctx context.Context, key string, index int) (Out, bool) {
	var out Out
	data, err := p.store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrExpired) {
			logging.FromContext(ctx).Warn().Err(err).Int("index", index).Msg("cache read failed")
		}
		return out, false
	}
	if err = json.Unmarshal(data, &out); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Int("index", index).Msg("cache entry unreadable")
		return out, false
	}
	logging.FromContext(ctx).Trace().Int("index", index).Msg("cache hit")
	return out, true
}

// Hits returns how many items were served from the store.
func (p *Processor[In, Out]) Hits() int64 { return p.hits.Load() }

// Misses returns how many items were passed to the wrapped processor.
func (p *Processor[In, Out]) Misses() int64 { return p.misses.Load() }
