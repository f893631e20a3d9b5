package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

type ServerConfig struct {
	HTTPAddress    string        `mapstructure:"http_address"`
	RPCAddress     string        `mapstructure:"rpc_address"`
	GRPCAddress    string        `mapstructure:"grpc_address"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	SendQueue      int           `mapstructure:"send_queue"`
	InboxSize      int           `mapstructure:"inbox_size"`
}

// GameConfig holds the room rules. The server is the only owner of the sprite
// catalog; clients learn about sprites through allocation results.
type GameConfig struct {
	Sprites           []string `mapstructure:"sprites"`
	SpawnX            float64  `mapstructure:"spawn_x"`
	SpawnY            float64  `mapstructure:"spawn_y"`
	DefaultDirection  string   `mapstructure:"default_direction"`
	LobbyScene        string   `mapstructure:"lobby_scene"`
	CodeLength        int      `mapstructure:"code_length"`
	CodeAlphabet      string   `mapstructure:"code_alphabet"`
	MaxUsernameLength int      `mapstructure:"max_username_length"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	// Driver is one of "none", "gorm" or "sql".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	DB      int    `mapstructure:"db"`
	Queue   string `mapstructure:"queue"`
	MaxLen  int64  `mapstructure:"max_len"`
}

type MonitorConfig struct {
	Namespace      string        `mapstructure:"namespace"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// SetDefaults registers every key so the server runs without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":3000")
	v.SetDefault("server.rpc_address", "")
	v.SetDefault("server.grpc_address", "")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_limit", 64*1024)
	v.SetDefault("server.pong_wait", 60*time.Second)
	v.SetDefault("server.write_wait", 10*time.Second)
	v.SetDefault("server.send_queue", 256)
	v.SetDefault("server.inbox_size", 1024)

	v.SetDefault("game.sprites", []string{"wizard", "explorer", "hero", "ruler"})
	v.SetDefault("game.spawn_x", 5)
	v.SetDefault("game.spawn_y", 5)
	v.SetDefault("game.default_direction", "down")
	v.SetDefault("game.lobby_scene", "lobby")
	v.SetDefault("game.code_length", 6)
	v.SetDefault("game.code_alphabet", "ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	v.SetDefault("game.max_username_length", 32)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("database.driver", "none")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "roomserver")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue", "roomserver_events")
	v.SetDefault("redis.max_len", 10000)

	v.SetDefault("monitor.namespace", "roomserver")
	v.SetDefault("monitor.report_interval", 30*time.Second)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("roomserver")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshal of defaults only fails on a programming error in SetDefaults.
	if err := v.Unmarshal(&cfg); err != nil {
		panic("config: invalid defaults: " + err.Error())
	}
	return &cfg
}

func (c *Config) Validate() error {
	if len(c.Game.Sprites) == 0 {
		return errors.New("config: game.sprites must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Game.Sprites))
	for _, s := range c.Game.Sprites {
		if s == "" {
			return errors.New("config: game.sprites contains an empty name")
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("config: duplicate sprite %q", s)
		}
		seen[s] = struct{}{}
	}

	if c.Game.CodeLength <= 0 {
		return errors.New("config: game.code_length must be positive")
	}
	if len(c.Game.CodeAlphabet) < 2 {
		return errors.New("config: game.code_alphabet needs at least two characters")
	}
	chars := make(map[rune]struct{}, len(c.Game.CodeAlphabet))
	for _, r := range c.Game.CodeAlphabet {
		if r > 127 {
			return fmt.Errorf("config: code character %q is not ASCII", r)
		}
		if _, dup := chars[r]; dup {
			return fmt.Errorf("config: duplicate code character %q", r)
		}
		chars[r] = struct{}{}
	}

	if c.Game.LobbyScene == "" {
		return errors.New("config: game.lobby_scene must not be empty")
	}
	switch c.Game.DefaultDirection {
	case "up", "down", "left", "right":
	default:
		return fmt.Errorf("config: game.default_direction %q is not up, down, left or right", c.Game.DefaultDirection)
	}

	switch c.Database.Driver {
	case "none", "gorm", "sql":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	return nil
}
