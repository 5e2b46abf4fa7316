package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orgsync.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndConnections(t *testing.T) {
	path := writeConfig(t, `
console:
  connection_alias: Org_Main
connections:
  org_main:
    base_url: http://localhost:8080
    secret: s3cret
    timeout_ms: 2500
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Console.PageLimit != 5 {
		t.Errorf("expected default page limit 5, got %d", cfg.Console.PageLimit)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %s", cfg.Database.Driver)
	}

	conn, ok := cfg.Connection("Org_Main")
	if !ok {
		t.Fatal("expected connection alias to resolve case-insensitively")
	}
	if conn.BaseURL != "http://localhost:8080" || conn.TimeoutMs != 2500 {
		t.Errorf("unexpected connection: %+v", conn)
	}
	if err := cfg.ValidateConsole(); err != nil {
		t.Errorf("expected valid console config, got %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "console:\n  page_limit: 10\n")
	t.Setenv("ORGSYNC_CONSOLE_PAGE_LIMIT", "25")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Console.PageLimit != 25 {
		t.Errorf("expected env override 25, got %d", cfg.Console.PageLimit)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "sqlite"},
			Console:  ConsoleConfig{PageLimit: 5, SessionTTLMinutes: 30, MetadataSource: "gateway", ConnectionAlias: "local"},
			Connections: map[string]ConnectionConfig{
				"local": {BaseURL: "http://localhost:8080"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		console bool
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, console: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "zero page limit", mutate: func(c *Config) { c.Console.PageLimit = 0 }, wantErr: true},
		{name: "zero session ttl", mutate: func(c *Config) { c.Console.SessionTTLMinutes = 0 }, wantErr: true},
		{name: "negative session ttl", mutate: func(c *Config) { c.Console.SessionTTLMinutes = -5 }, wantErr: true},
		{name: "file source without file", mutate: func(c *Config) { c.Console.MetadataSource = "file" }, wantErr: true},
		{name: "missing base url", mutate: func(c *Config) { c.Connections["local"] = ConnectionConfig{} }, wantErr: true},
		{name: "dangling console alias", mutate: func(c *Config) { c.Console.ConnectionAlias = "other" }, console: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			var err error
			if tt.console {
				err = cfg.ValidateConsole()
			} else {
				err = cfg.Validate()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
