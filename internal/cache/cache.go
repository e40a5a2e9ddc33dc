// Package cache is the translation memory: every source paragraph that
// ever received a translation, keyed by content hash. Extract uses it
// to prefill sheets, inject banks completed sheets back into it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"vnsheet/internal/textutil"
	"vnsheet/internal/worker"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ErrNoDatabase is returned for operations that need Postgres when the
// memory runs without one.
var ErrNoDatabase = errors.New("translation memory has no database configured")

const importBatchSize = 500

const upsertSQL = `
	INSERT INTO translation_memory (hash, source, translated)
	VALUES ($1, $2, $3)
	ON CONFLICT (hash) DO UPDATE
	SET translated = EXCLUDED.translated, updated_at = now()
`

// TranslationCache provides in-memory caching of translations with
// optional PostgreSQL persistence. A nil pool means memory-only.
type TranslationCache struct {
	pool   *pgxpool.Pool
	mu     sync.RWMutex
	memory map[string]string // content hash → translated text
}

// NewTranslationCache creates a cache. pool may be nil.
func NewTranslationCache(pool *pgxpool.Pool) *TranslationCache {
	return &TranslationCache{
		pool:   pool,
		memory: make(map[string]string),
	}
}

// EnsureSchema creates the backing table when a database is attached.
func (c *TranslationCache) EnsureSchema(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS translation_memory (
			hash TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			translated TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure translation_memory table: %w", err)
	}
	return nil
}

// Get retrieves a cached translation. Returns empty string and false
// when not found.
func (c *TranslationCache) Get(ctx context.Context, sourceText string) (string, bool) {
	hash := textutil.Hash(sourceText)

	c.mu.RLock()
	if v, ok := c.memory[hash]; ok {
		c.mu.RUnlock()
		return v, true
	}
	c.mu.RUnlock()

	if c.pool == nil {
		return "", false
	}

	var translated string
	err := c.pool.QueryRow(ctx,
		`SELECT translated FROM translation_memory WHERE hash = $1`, hash,
	).Scan(&translated)
	if err != nil {
		// a read failure is a cache miss
		return "", false
	}

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()

	return translated, true
}

// Set stores a translation in memory and, when attached, in PostgreSQL.
func (c *TranslationCache) Set(ctx context.Context, sourceText, translated string) error {
	hash := textutil.Hash(sourceText)

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()

	if c.pool == nil {
		return nil
	}
	if _, err := c.pool.Exec(ctx, upsertSQL, hash, sourceText, translated); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Import banks a whole source→translation map, batching the database
// upserts. Returns the number of pairs stored.
func (c *TranslationCache) Import(ctx context.Context, pairs map[string]string) (int, error) {
	type pair struct{ source, translated string }
	items := make([]pair, 0, len(pairs))

	c.mu.Lock()
	for source, translated := range pairs {
		c.memory[textutil.Hash(source)] = translated
		items = append(items, pair{source, translated})
	}
	c.mu.Unlock()

	if c.pool == nil {
		return len(items), nil
	}

	stored := 0
	for _, chunk := range worker.Batch(items, importBatchSize) {
		b := &pgx.Batch{}
		for _, p := range chunk {
			b.Queue(upsertSQL, textutil.Hash(p.source), p.source, p.translated)
		}
		br := c.pool.SendBatch(ctx, b)
		for range chunk {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return stored, fmt.Errorf("import batch: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return stored, fmt.Errorf("close import batch: %w", err)
		}
		stored += len(chunk)
	}

	log.Info().Int("pairs", stored).Msg("Imported translation memory")
	return stored, nil
}

// Export dumps the full translation memory as source→translation pairs.
// Memory-only caches cannot export, the map does not keep source text.
func (c *TranslationCache) Export(ctx context.Context) (map[string]string, error) {
	if c.pool == nil {
		return nil, ErrNoDatabase
	}

	rows, err := c.pool.Query(ctx, `SELECT source, translated FROM translation_memory ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("query translation memory: %w", err)
	}
	defer rows.Close()

	pairs := make(map[string]string)
	for rows.Next() {
		var source, translated string
		if err := rows.Scan(&source, &translated); err != nil {
			return nil, fmt.Errorf("scan translation memory row: %w", err)
		}
		pairs[source] = translated
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read translation memory: %w", err)
	}

	log.Info().Int("pairs", len(pairs)).Msg("Exported translation memory")
	return pairs, nil
}

// Preload loads all persisted translations into memory.
func (c *TranslationCache) Preload(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}

	rows, err := c.pool.Query(ctx, `SELECT hash, translated FROM translation_memory`)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}
	defer rows.Close()

	count := 0
	c.mu.Lock()
	defer c.mu.Unlock()
	for rows.Next() {
		var hash, translated string
		if err := rows.Scan(&hash, &translated); err != nil {
			return fmt.Errorf("scan cache row: %w", err)
		}
		c.memory[hash] = translated
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read cache rows: %w", err)
	}

	log.Info().Int("count", count).Msg("Preloaded translation cache")
	return nil
}
