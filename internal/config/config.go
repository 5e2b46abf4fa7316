package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig                `mapstructure:"server"`
	Database    DatabaseConfig              `mapstructure:"database"`
	Gateway     GatewayConfig               `mapstructure:"gateway"`
	Console     ConsoleConfig               `mapstructure:"console"`
	Connections map[string]ConnectionConfig `mapstructure:"connections"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

// GatewayConfig configures the reference gateway server.
type GatewayConfig struct {
	Alias        string `mapstructure:"alias"`
	JWTSecret    string `mapstructure:"jwt_secret"`
	EntitiesFile string `mapstructure:"entities_file"`
	MaxLimit     int    `mapstructure:"max_limit"`
}

// ConsoleConfig configures the entity browser console server.
type ConsoleConfig struct {
	Port               int    `mapstructure:"port"`
	ConnectionAlias    string `mapstructure:"connection_alias"`
	MetadataSource     string `mapstructure:"metadata_source"` // gateway or file
	EntitiesFile       string `mapstructure:"entities_file"`
	PageLimit          int    `mapstructure:"page_limit"`
	SessionTTLMinutes  int    `mapstructure:"session_ttl_minutes"`
	KeepModalOnFailure bool   `mapstructure:"keep_modal_on_failure"`
	PasswordHash       string `mapstructure:"password_hash"`
	JWTSecret          string `mapstructure:"jwt_secret"`
}

// ConnectionConfig is what a connection alias resolves to.
type ConnectionConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Secret    string `mapstructure:"secret"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

// Load reads the config file (explicit path, or orgsync.yaml on the search
// path) and applies ORGSYNC_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("orgsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix("orgsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("database.name", "orgsync")
	v.SetDefault("gateway.alias", "local")
	v.SetDefault("gateway.jwt_secret", "changeme-secret")
	v.SetDefault("gateway.entities_file", "entities.yaml")
	v.SetDefault("gateway.max_limit", 200)
	v.SetDefault("console.port", 8090)
	v.SetDefault("console.connection_alias", "local")
	v.SetDefault("console.metadata_source", "gateway")
	v.SetDefault("console.page_limit", 5)
	v.SetDefault("console.session_ttl_minutes", 30)
	v.SetDefault("console.jwt_secret", "changeme-console-secret")
}

// Connection resolves a connection alias. Viper lowercases map keys, so the
// lookup is case-insensitive.
func (c *Config) Connection(alias string) (ConnectionConfig, bool) {
	conn, ok := c.Connections[strings.ToLower(alias)]
	return conn, ok
}

// Validate checks the cross-section references viper cannot express.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}
	if c.Console.PageLimit <= 0 {
		return fmt.Errorf("console.page_limit must be positive, got %d", c.Console.PageLimit)
	}
	if c.Console.SessionTTLMinutes <= 0 {
		return fmt.Errorf("console.session_ttl_minutes must be positive, got %d", c.Console.SessionTTLMinutes)
	}
	switch c.Console.MetadataSource {
	case "gateway", "file":
	default:
		return fmt.Errorf("unknown console.metadata_source: %q", c.Console.MetadataSource)
	}
	if c.Console.MetadataSource == "file" && c.Console.EntitiesFile == "" {
		return fmt.Errorf("console.entities_file is required when metadata_source is file")
	}
	for alias, conn := range c.Connections {
		if conn.BaseURL == "" {
			return fmt.Errorf("connections.%s.base_url is required", alias)
		}
	}
	return nil
}

// ValidateConsole additionally requires the console's connection alias to resolve.
func (c *Config) ValidateConsole() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, ok := c.Connection(c.Console.ConnectionAlias); !ok {
		return fmt.Errorf("console.connection_alias %q has no entry under connections", c.Console.ConnectionAlias)
	}
	return nil
}
