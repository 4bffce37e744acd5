package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the process-wide configuration, built once at startup
type Config struct {
	LogLevel     string                  `mapstructure:"log_level"`
	Store        StoreConfig             `mapstructure:"store"`
	API          APIConfig               `mapstructure:"api"`
	Schedule     ScheduleConfig          `mapstructure:"schedule"`
	Normalize    NormalizeConfig         `mapstructure:"normalize"`
	Broadcasters BroadcasterConfig       `mapstructure:"broadcasters"`
	Leagues      map[string]LeagueConfig `mapstructure:"leagues"`
}

// StoreConfig selects and connects the game store
type StoreConfig struct {
	Backend         string        `mapstructure:"backend"`  // file, redis or postgres
	DataDir         string        `mapstructure:"data_dir"` // file backend
	DSN             string        `mapstructure:"dsn"`      // postgres backend
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
}

// APIConfig configures the curation API server
type APIConfig struct {
	Addr           string        `mapstructure:"addr"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	QueueLimit     int           `mapstructure:"queue_limit"` // per sport
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ScheduleConfig drives the periodic refresh in serve mode
type ScheduleConfig struct {
	Cron     string `mapstructure:"cron"` // empty disables scheduled scrapes
	Timezone string `mapstructure:"timezone"`
}

// NormalizeConfig overrides the team normalizer tables. Empty means built-in defaults.
type NormalizeConfig struct {
	Suffixes []string      `mapstructure:"suffixes"`
	Aliases  []AliasConfig `mapstructure:"aliases"`
}

// AliasConfig maps one shorthand team name to its canonical name
type AliasConfig struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// BroadcasterConfig overrides the broadcaster filter tables. Empty means built-in defaults.
type BroadcasterConfig struct {
	Denylist []string `mapstructure:"denylist"`
	Suffixes []string `mapstructure:"suffixes"`
}

// LeagueConfig describes one schedule source
type LeagueConfig struct {
	Key                       string        `mapstructure:"-"`
	Sport                     string        `mapstructure:"sport"`
	Name                      string        `mapstructure:"name"`
	URL                       string        `mapstructure:"url"`
	Parser                    string        `mapstructure:"parser"` // defaults to the league key
	Timeout                   time.Duration `mapstructure:"timeout"`
	Enabled                   bool          `mapstructure:"enabled"`
	IDTimeToken               bool          `mapstructure:"id_time_token"`
	QueueRequiresRegionalHint bool          `mapstructure:"queue_requires_regional_hint"`
}

// AliasMap returns the alias table, or nil when none is configured
func (n NormalizeConfig) AliasMap() map[string]string {
	if len(n.Aliases) == 0 {
		return nil
	}
	m := make(map[string]string, len(n.Aliases))
	for _, a := range n.Aliases {
		m[a.From] = a.To
	}
	return m
}

// Load reads configuration. path may be empty, in which case
// ./config/watchwherelive.yaml is used when it exists.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("watchwherelive")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return decode(v)
}

// Default returns the built-in configuration without reading files or the environment
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	overrideFromEnv(&cfg)

	for key, league := range cfg.Leagues {
		league.Key = key
		if league.Parser == "" {
			league.Parser = key
		}
		cfg.Leagues[key] = league
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overrideFromEnv applies the conventional unprefixed variables used by hosting platforms
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" && os.Getenv("WWL_STORE_DSN") == "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" && os.Getenv("WWL_STORE_REDIS_ADDR") == "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("PORT"); v != "" && os.Getenv("WWL_API_ADDR") == "" {
		cfg.API.Addr = ":" + v
	}
}

// Validate checks the settings a run cannot start without
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.DataDir == "" {
			return errors.New("store.data_dir is required for the file backend")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	for key, league := range c.Leagues {
		if !league.Enabled {
			continue
		}
		if league.URL == "" {
			return fmt.Errorf("league %s: url is required", key)
		}
		if league.Sport == "" {
			return fmt.Errorf("league %s: sport is required", key)
		}
		if league.Timeout <= 0 {
			return fmt.Errorf("league %s: timeout must be positive", key)
		}
	}
	return nil
}

// EnabledLeagues returns the enabled league keys in sorted order
func (c *Config) EnabledLeagues() []string {
	var keys []string
	for key, league := range c.Leagues {
		if league.Enabled {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// League looks up a league by key, ignoring case
func (c *Config) League(key string) (LeagueConfig, bool) {
	league, ok := c.Leagues[strings.ToLower(strings.TrimSpace(key))]
	return league, ok
}

// LeagueForSport returns the first configured league producing sport
func (c *Config) LeagueForSport(sport string) (LeagueConfig, bool) {
	keys := make([]string, 0, len(c.Leagues))
	for key := range c.Leagues {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.EqualFold(c.Leagues[key].Sport, sport) {
			return c.Leagues[key], true
		}
	}
	return LeagueConfig{}, false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", time.Hour)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.queue_limit", 50)
	v.SetDefault("api.request_timeout", 30*time.Second)

	v.SetDefault("schedule.cron", "")
	v.SetDefault("schedule.timezone", "America/New_York")

	v.SetDefault("leagues.nba.sport", "NBA")
	v.SetDefault("leagues.nba.name", "NBA")
	v.SetDefault("leagues.nba.url", "https://www.nba.com/schedule")
	v.SetDefault("leagues.nba.timeout", 30*time.Second)
	v.SetDefault("leagues.nba.enabled", true)
	v.SetDefault("leagues.nba.id_time_token", false)
	v.SetDefault("leagues.nba.queue_requires_regional_hint", true)

	v.SetDefault("leagues.epl.sport", "EPL")
	v.SetDefault("leagues.epl.name", "Premier League")
	v.SetDefault("leagues.epl.url", "https://worldsoccertalk.com/premier-league-tv-schedule/")
	v.SetDefault("leagues.epl.timeout", 20*time.Second)
	v.SetDefault("leagues.epl.enabled", true)
	v.SetDefault("leagues.epl.id_time_token", true)
	v.SetDefault("leagues.epl.queue_requires_regional_hint", false)
}
