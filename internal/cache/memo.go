// Package cache memoizes loaded datasets for the lifetime of a process.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"c19pulse/pkg/contracts/domain"
)

// LoadFunc produces the series for a key on a cache miss
type LoadFunc func(ctx context.Context) (*domain.Series, error)

type entry struct {
	series   *domain.Series
	cachedAt time.Time
	hits     int
}

// Memo caches series by key. Concurrent misses on one key share a single
// load. Failed loads are not cached.
type Memo struct {
	mu         sync.Mutex
	entries    map[string]entry
	group      singleflight.Group
	ttl        time.Duration
	maxEntries int
	hitCount   int64
	missCount  int64
	now        func() time.Time
}

// Stats is a point-in-time view of cache usage
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRatio   float64 `json:"hit_ratio"`
}

// NewMemo creates a cache. A zero ttl keeps entries for the life of the
// process; a zero maxEntries leaves the size unbounded.
func NewMemo(ttl time.Duration, maxEntries int) *Memo {
	return &Memo{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Key builds the cache key for a source, its column set and any variants
// that change how the source is loaded. Column and variant order do not
// matter.
func Key(source string, columns []string, variants ...string) string {
	key := source + "|" + sortedJoin(columns)
	if len(variants) > 0 {
		key += "|" + sortedJoin(variants)
	}
	return key
}

func sortedJoin(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Get returns the cached series for key, calling load on a miss. The
// boolean reports whether the value came from the cache.
func (m *Memo) Get(ctx context.Context, key string, load LoadFunc) (*domain.Series, bool, error) {
	if s, ok := m.lookup(key); ok {
		return s, true, nil
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		// Another caller may have stored it between lookup and Do.
		if s, ok := m.peek(key); ok {
			return s, nil
		}
		s, err := load(ctx)
		if err != nil {
			return nil, err
		}
		m.store(key, s)
		return s, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*domain.Series), false, nil
}

func (m *Memo) lookup(key string) (*domain.Series, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || m.expired(e) {
		if ok {
			delete(m.entries, key)
		}
		m.missCount++
		return nil, false
	}
	e.hits++
	m.entries[key] = e
	m.hitCount++
	return e.series, true
}

func (m *Memo) peek(key string) (*domain.Series, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || m.expired(e) {
		return nil, false
	}
	return e.series, true
}

func (m *Memo) store(key string, s *domain.Series) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictOldest()
	}
	m.entries[key] = entry{series: s, cachedAt: m.now()}
}

func (m *Memo) expired(e entry) bool {
	return m.ttl > 0 && m.now().Sub(e.cachedAt) > m.ttl
}

func (m *Memo) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range m.entries {
		if oldestKey == "" || e.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.cachedAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

// Purge removes every entry
func (m *Memo) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}

// Stats returns cache statistics
func (m *Memo) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.hitCount + m.missCount
	ratio := float64(0)
	if total > 0 {
		ratio = float64(m.hitCount) / float64(total)
	}
	return Stats{
		Entries:    len(m.entries),
		MaxEntries: m.maxEntries,
		Hits:       m.hitCount,
		Misses:     m.missCount,
		HitRatio:   ratio,
	}
}
