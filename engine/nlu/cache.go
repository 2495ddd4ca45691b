package nlu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// CachedParser memoizes successful parses of an underlying Parser in an
// in-memory badger store. Entries expire after the configured TTL.
type CachedParser struct {
	next Parser
	db   *badger.DB
	ttl  time.Duration
	log  *slog.Logger
}

// NewCachedParser opens an in-memory cache in front of next.
func NewCachedParser(next Parser, ttl time.Duration, log *slog.Logger) (*CachedParser, error) {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("nlu: open cache: %w", err)
	}
	return &CachedParser{next: next, db: db, ttl: ttl, log: log}, nil
}

// Close releases the cache.
func (p *CachedParser) Close() error { return p.db.Close() }

func cacheKey(text string) []byte { return []byte("parse:" + text) }

// Parse implements Parser. Failures from the underlying parser are returned
// as is and never cached.
func (p *CachedParser) Parse(ctx context.Context, text string) (Result, error) {
	if r, ok := p.get(text); ok {
		return r, nil
	}
	r, err := p.next.Parse(ctx, text)
	if err != nil {
		return Result{}, err
	}
	p.put(text, r)
	return r, nil
}

func (p *CachedParser) get(text string) (Result, bool) {
	var r Result
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &r) })
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			p.log.Warn("nlu cache read failed", "err", err)
		}
		return Result{}, false
	}
	return r, true
}

func (p *CachedParser) put(text string, r Result) {
	val, err := json.Marshal(r)
	if err != nil {
		return
	}
	err = p.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(cacheKey(text), val).WithTTL(p.ttl))
	})
	if err != nil {
		p.log.Warn("nlu cache write failed", "err", err)
	}
}
