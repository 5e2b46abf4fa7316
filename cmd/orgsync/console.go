package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"orgs-sync/internal/auth"
	"orgs-sync/internal/browser"
	"orgs-sync/internal/config"
	"orgs-sync/internal/console"
	"orgs-sync/internal/gateway"
	"orgs-sync/internal/metadata"
)

func newConsoleCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Run the entity browser console against a configured connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runConsole(cfg)
		},
	}
}

func runConsole(cfg *config.Config) error {
	// 1. Validate config
	if err := cfg.ValidateConsole(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	alias := cfg.Console.ConnectionAlias

	// 2. Build the gateway client from the named connections
	conns := make(map[string]gateway.Connection, len(cfg.Connections))
	for name, c := range cfg.Connections {
		conns[name] = gateway.Connection{
			BaseURL: c.BaseURL,
			Secret:  c.Secret,
			Timeout: time.Duration(c.TimeoutMs) * time.Millisecond,
		}
	}
	gw := gateway.NewHTTPGateway(conns)
	log.Printf("Console connected to %s (%d connections)", alias, len(conns))

	// 3. Pick the metadata provider
	var provider metadata.Provider
	switch cfg.Console.MetadataSource {
	case "file":
		entities, err := metadata.LoadFile(cfg.Console.EntitiesFile)
		if err != nil {
			return err
		}
		provider = metadata.NewStaticProvider(metadata.BootstrapFromEntities(entities, alias))
		log.Printf("Metadata read from %s (%d entities)", cfg.Console.EntitiesFile, len(entities))
	default:
		provider = gateway.NewMetadataProvider(gw, alias)
	}

	// 4. Session manager and idle sweeper
	manager := console.NewSessionManager(provider, gw, browser.Options{
		Limit:              cfg.Console.PageLimit,
		KeepModalOnFailure: cfg.Console.KeepModalOnFailure,
	})
	defer manager.Close()

	sweeper := console.NewSweeper(manager, time.Duration(cfg.Console.SessionTTLMinutes)*time.Minute)
	sweeper.Start()
	defer sweeper.Stop()

	// 5. Create Fiber app and routes; login is only enabled with a password hash
	app := newApp(console.ErrorHandler)
	var login *auth.LoginHandler
	if cfg.Console.PasswordHash != "" {
		login = auth.NewLoginHandler(cfg.Console.PasswordHash, cfg.Console.JWTSecret)
	} else {
		log.Println("WARN: console.password_hash is empty; console routes are unauthenticated")
	}
	console.RegisterRoutes(app, console.NewHandler(manager), login, cfg.Console.JWTSecret)

	// 6. Start server
	return serve(app, fmt.Sprintf(":%d", cfg.Console.Port))
}
