package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"orgs-sync/internal/admin"
	"orgs-sync/internal/auth"
	"orgs-sync/internal/config"
	"orgs-sync/internal/engine"
	"orgs-sync/internal/metadata"
	"orgs-sync/internal/store"
)

func newGatewayCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the reference record gateway over a SQL store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runGateway(cmd.Context(), cfg)
		},
	}
}

func runGateway(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. Validate config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log.Printf("Config loaded (port: %d, db: %s/%s, alias: %s)", cfg.Server.Port, cfg.Database.Driver, cfg.Database.Name, cfg.Gateway.Alias)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap system tables
	if err := db.Bootstrap(ctx); err != nil {
		return err
	}
	log.Println("System tables ready")

	// 4. Seed the catalog from the entities file on first start
	if cfg.Gateway.EntitiesFile != "" {
		entities, err := metadata.LoadFile(cfg.Gateway.EntitiesFile)
		if err != nil {
			log.Printf("WARN: Failed to read entities file: %v", err)
		} else if err := db.SeedEntities(ctx, entities); err != nil {
			return err
		}
	}

	// 5. Create registry and load metadata
	reg := metadata.NewRegistry()
	if err := metadata.LoadAll(ctx, db.DB, reg); err != nil {
		log.Printf("WARN: Failed to load metadata: %v", err)
	}

	// 6. Make sure every table matches its definition
	migrator := store.NewMigrator(db)
	for _, e := range reg.AllEntities() {
		if err := migrator.Migrate(ctx, e); err != nil {
			return fmt.Errorf("migrate %s: %w", e.Name, err)
		}
	}

	// 7. Create Fiber app
	app := newApp(engine.ErrorHandler)

	// 8. Gateway tokens must be minted for this alias
	authMW := auth.Middleware(cfg.Gateway.JWTSecret)
	aliasMW := auth.RequireAlias(cfg.Gateway.Alias)

	// 9. Metadata bootstrap and admin routes
	adminHandler := admin.NewHandler(db, reg, migrator, cfg.Gateway.Alias)
	admin.RegisterAdminRoutes(app, adminHandler, authMW, aliasMW)

	// 10. Record routes
	engineHandler := engine.NewHandler(db, reg, cfg.Gateway.MaxLimit)
	engine.RegisterRecordRoutes(app, engineHandler, authMW, aliasMW)

	// 11. Start server
	return serve(app, fmt.Sprintf(":%d", cfg.Server.Port))
}
