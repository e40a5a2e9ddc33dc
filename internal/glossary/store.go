package glossary

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// Store keeps the glossary in Neo4j so a project can grow its character
// list across many extract runs and share it between tools.
type Store struct {
	driver neo4j.DriverWithContext
}

// NewStore creates a glossary store on an open driver.
func NewStore(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

// EnsureSchema creates the uniqueness constraint on character names.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (c:Character) REQUIRE c.name IS UNIQUE",
	}
	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Glossary schema ensured")
	return nil
}

// Upsert inserts or updates one node per entry, keyed by source name.
func (s *Store) Upsert(ctx context.Context, entries []Entry) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, e := range entries {
		_, err := session.Run(ctx, `
			MERGE (c:Character {name: $name})
			SET c.translation = $translation,
			    c.note = $note
		`, map[string]any{
			"name":        e.Name,
			"translation": e.Translation,
			"note":        e.Note,
		})
		if err != nil {
			return fmt.Errorf("upsert character %s: %w", e.Name, err)
		}
	}

	log.Info().Int("entries", len(entries)).Msg("Upserted glossary entries")
	return nil
}

// All retrieves every character, ordered by source name.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (c:Character)
		RETURN c.name AS name, c.translation AS translation, c.note AS note
		ORDER BY c.name
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}

	var entries []Entry
	for result.Next(ctx) {
		record := result.Record()
		name, _ := record.Get("name")
		translation, _ := record.Get("translation")
		note, _ := record.Get("note")
		entries = append(entries, Entry{
			Name:        stringValue(name),
			Translation: stringValue(translation),
			Note:        stringValue(note),
		})
	}

	log.Info().Int("entries", len(entries)).Msg("Loaded glossary from graph")
	return entries, nil
}

// NameMap retrieves the name substitution mapping straight from the
// graph, skipping undecided names.
func (s *Store) NameMap(ctx context.Context) (map[string]string, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return Map(entries), nil
}

// stringValue unwraps a record value. Properties another tool left null
// come back as "".
func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
