package store

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// settingsCacheTTL bounds how stale a threshold may be within a run.
const settingsCacheTTL = time.Minute

// Settings implements contracts.SettingsProvider on the screener.settings
// table. Values are cached briefly so a universe walk does not issue one
// query per stock per condition. A missing key or query error falls back
// to the caller-supplied default.
type Settings struct {
	pool *pgxpool.Pool

	mu      sync.RWMutex
	cache   map[string]string
	fetched time.Time
}

// NewSettings creates a new Settings provider
func NewSettings(pool *pgxpool.Pool) *Settings {
	return &Settings{
		pool:  pool,
		cache: make(map[string]string),
	}
}

// Get returns the raw string value for key, or def when absent
func (s *Settings) Get(ctx context.Context, key, def string) string {
	if v, ok := s.lookup(ctx, key); ok {
		return v
	}
	return def
}

// GetInt returns the value for key parsed as int64, or def
func (s *Settings) GetInt(ctx context.Context, key string, def int64) int64 {
	v, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def
	}
	return n
}

// GetFloat returns the value for key parsed as float64, or def
func (s *Settings) GetFloat(ctx context.Context, key string, def float64) float64 {
	v, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// GetBool returns the value for key parsed as bool, or def
func (s *Settings) GetBool(ctx context.Context, key string, def bool) bool {
	v, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Set upserts a setting value
func (s *Settings) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO screener.settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Settings) lookup(ctx context.Context, key string) (string, bool) {
	s.mu.RLock()
	fresh := time.Since(s.fetched) < settingsCacheTTL
	v, ok := s.cache[key]
	s.mu.RUnlock()

	if fresh {
		return v, ok
	}

	if err := s.refresh(ctx); err != nil {
		// Stale cache beats no answer
		return v, ok
	}

	s.mu.RLock()
	v, ok = s.cache[key]
	s.mu.RUnlock()
	return v, ok
}

func (s *Settings) refresh(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM screener.settings`)
	if err != nil {
		return err
	}
	defer rows.Close()

	next := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		next[k] = v
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache = next
	s.fetched = time.Now()
	s.mu.Unlock()
	return nil
}
