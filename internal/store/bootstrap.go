package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"orgs-sync/internal/metadata"
)

// Bootstrap creates the system tables.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.SystemTablesSQL()); err != nil {
		return fmt.Errorf("bootstrap system tables: %w", err)
	}
	return nil
}

// SeedEntities stores and migrates the given definitions when the catalog is
// still empty. An existing catalog is left alone; the admin API owns it after
// the first start.
func (s *Store) SeedEntities(ctx context.Context, entities []*metadata.Entity) error {
	var count int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM _entities").Scan(&count); err != nil {
		return fmt.Errorf("count entities: %w", err)
	}
	if count > 0 {
		return nil
	}

	migrator := NewMigrator(s)
	for i, e := range entities {
		if err := s.SaveEntity(ctx, e, i); err != nil {
			return err
		}
		if err := migrator.Migrate(ctx, e); err != nil {
			return fmt.Errorf("migrate %s: %w", e.Name, err)
		}
	}
	log.Printf("Seeded %d entities", len(entities))
	return nil
}

// SaveEntity inserts or replaces an entity definition at the given catalog
// position.
func (s *Store) SaveEntity(ctx context.Context, e *metadata.Entity, position int) error {
	def, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entity %s: %w", e.Name, err)
	}

	pb := s.Dialect.NewParamBuilder()
	sql := fmt.Sprintf(
		`INSERT INTO _entities (name, table_name, position, definition) VALUES (%s, %s, %s, %s)
		 ON CONFLICT (name) DO UPDATE SET table_name = EXCLUDED.table_name, definition = EXCLUDED.definition, updated_at = %s`,
		pb.Add(e.Name), pb.Add(e.Table), pb.Add(position), pb.Add(string(def)), s.Dialect.NowExpr())

	if _, err := s.DB.ExecContext(ctx, sql, pb.Params()...); err != nil {
		return fmt.Errorf("save entity %s: %w", e.Name, MapError(s.Dialect, err))
	}
	return nil
}

// NextEntityPosition returns the position after the last catalog entry.
func (s *Store) NextEntityPosition(ctx context.Context) (int, error) {
	var next int
	err := s.DB.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM _entities").Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next entity position: %w", err)
	}
	return next, nil
}
