package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// LoadAll reads all entity definitions from the _entities table and populates the registry.
func LoadAll(ctx context.Context, db *sql.DB, reg *Registry) error {
	entities, err := loadEntities(ctx, db)
	if err != nil {
		return fmt.Errorf("load entities: %w", err)
	}

	reg.Load(entities)

	log.Printf("Loaded %d entities into registry", len(entities))
	return nil
}

// Reload is an alias for LoadAll, called after admin mutations.
func Reload(ctx context.Context, db *sql.DB, reg *Registry) error {
	return LoadAll(ctx, db, reg)
}

func loadEntities(ctx context.Context, db *sql.DB) ([]*Entity, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, definition FROM _entities ORDER BY position, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		var name string
		var defJSON []byte
		if err := rows.Scan(&name, &defJSON); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}

		var entity Entity
		if err := json.Unmarshal(defJSON, &entity); err != nil {
			log.Printf("WARN: skipping entity %s (invalid JSON): %v", name, err)
			continue
		}
		entities = append(entities, &entity)
	}
	return entities, rows.Err()
}

// LoadFile reads entity definitions from a YAML (or JSON/TOML) file with a
// top-level "entities" list. Every definition is validated.
func LoadFile(path string) ([]*Entity, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read entities file: %w", err)
	}

	var entities []*Entity
	if err := v.UnmarshalKey("entities", &entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}

	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.Name, err)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("entity %q defined twice", e.Name)
		}
		seen[e.Name] = true
	}
	return entities, nil
}
