// Package config loads settings from an optional file and the environment.
// Environment variables use the LISTSYNC_ prefix with dots replaced by
// underscores, e.g. LISTSYNC_REMOTE_TABLE_NAME. TABLE_NAME and TOPIC_ARN are
// honoured as well.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	LocalMemory = "memory"
	LocalSQLite = "sqlite"
	LocalFile   = "file"

	RemoteNone     = "none"
	RemoteMemory   = "memory"
	RemoteDynamoDB = "dynamodb"
)

type Local struct {
	Backend      string        `mapstructure:"backend"`
	Path         string        `mapstructure:"path"`
	BaseKey      string        `mapstructure:"base_key"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type Remote struct {
	Backend           string `mapstructure:"backend"`
	TableName         string `mapstructure:"table_name"`
	Region            string `mapstructure:"region"`
	Endpoint          string `mapstructure:"endpoint"`
	AccessKeyId       string `mapstructure:"access_key_id"`
	SecretAccessKey   string `mapstructure:"secret_access_key"`
	TokenSecret       string `mapstructure:"token_secret"`
	SingletonListId   string `mapstructure:"singleton_list_id"`
	SingletonListName string `mapstructure:"singleton_list_name"`
}

type Config struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	TopicArn string `mapstructure:"topic_arn"`
	Local    Local  `mapstructure:"local"`
	Remote   Remote `mapstructure:"remote"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("topic_arn", "")
	v.SetDefault("local.backend", LocalSQLite)
	v.SetDefault("local.path", "")
	v.SetDefault("local.base_key", "shopping-lists")
	v.SetDefault("local.poll_interval", time.Second)
	// The memory remote is discarded on exit, so it is opt-in.
	v.SetDefault("remote.backend", RemoteNone)
	v.SetDefault("remote.table_name", "")
	v.SetDefault("remote.region", "")
	v.SetDefault("remote.endpoint", "")
	v.SetDefault("remote.access_key_id", "")
	v.SetDefault("remote.secret_access_key", "")
	v.SetDefault("remote.token_secret", "")
	v.SetDefault("remote.singleton_list_id", "")
	v.SetDefault("remote.singleton_list_name", "Shared")
}

// New returns a viper instance with defaults and environment bindings in
// place, ready for flags to be bound on top.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("LISTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("remote.table_name", "LISTSYNC_REMOTE_TABLE_NAME", "TABLE_NAME")
	v.BindEnv("topic_arn", "LISTSYNC_TOPIC_ARN", "TOPIC_ARN")
	return v
}

// Load reads path, when given, into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Local.Backend {
	case LocalMemory, LocalSQLite, LocalFile:
	default:
		return fmt.Errorf("unknown local backend %q", c.Local.Backend)
	}
	switch c.Remote.Backend {
	case RemoteNone, RemoteMemory:
	case RemoteDynamoDB:
		if c.Remote.TableName == "" {
			return fmt.Errorf("remote.table_name is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown remote backend %q", c.Remote.Backend)
	}
	if c.Local.PollInterval <= 0 {
		return fmt.Errorf("local.poll_interval must be positive")
	}
	return nil
}
