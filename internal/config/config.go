package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	RoleOwner  = "owner"
	RoleDriver = "driver"

	defaultRunAddress   = "localhost:8085"
	defaultLogLevel     = "info"
	defaultLocalDB      = "fleet.db"
	defaultConfigDir    = ".fleetcontrol"
	defaultSyncInterval = 30
)

type Config struct {
	Env      string
	Logger   logger
	Server   server
	DB       db
	Device   device
	Sync     sync
	FilePath string
	Dir      string
}

type logger struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type server struct {
	RunAddress string `mapstructure:"run_address"`
	APIToken   string `mapstructure:"api_token"`
}

type db struct {
	DatabaseURI string `mapstructure:"database_uri"`
	LocalPath   string `mapstructure:"local_db_path"`
}

// device описывает, от чьего имени работает устройство
type device struct {
	TenantID string `mapstructure:"tenant_id"`
	MemberID string `mapstructure:"member_id"`
	Role     string `mapstructure:"member_role"`
}

type sync struct {
	Interval              time.Duration
	OwnerTripsAutoApprove bool `mapstructure:"owner_trips_auto_approve"`
}

// Load читает .env, переменные окружения и (опционально) файл конфигурации.
func Load(cfgFile string) (*Config, error) {
	loadDotEnv()

	v := viper.GetViper()
	v.AutomaticEnv()
	setDefaults(v)

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		if home, err := os.UserHomeDir(); err == nil {
			configDir = filepath.Join(home, configDir)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	localPath := v.GetString("LOCAL_DB_PATH")
	if localPath == defaultLocalDB {
		if err := os.MkdirAll(configDir, 0o700); err == nil {
			localPath = filepath.Join(configDir, localPath)
		}
	}

	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		Logger: logger{
			LogLevel: v.GetString("LOG_LEVEL"),
			LogFile:  v.GetString("LOG_FILE"),
		},
		Server: server{
			RunAddress: v.GetString("RUN_ADDRESS"),
			APIToken:   v.GetString("API_TOKEN"),
		},
		DB: db{
			DatabaseURI: v.GetString("DATABASE_URI"),
			LocalPath:   localPath,
		},
		Device: device{
			TenantID: v.GetString("TENANT_ID"),
			MemberID: v.GetString("MEMBER_ID"),
			Role:     strings.ToLower(v.GetString("MEMBER_ROLE")),
		},
		Sync: sync{
			Interval:              time.Duration(v.GetInt("SYNC_INTERVAL_SECONDS")) * time.Second,
			OwnerTripsAutoApprove: v.GetBool("OWNER_TRIPS_AUTO_APPROVE"),
		},
		FilePath: v.ConfigFileUsed(),
		Dir:      configDir,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad загружает конфигурацию и паникует при ошибке
func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

func loadDotEnv() {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "Ошибка загрузки .env файла: %v\n", err)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvLocal)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("RUN_ADDRESS", defaultRunAddress)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("LOCAL_DB_PATH", defaultLocalDB)
	v.SetDefault("MEMBER_ROLE", RoleDriver)
	v.SetDefault("SYNC_INTERVAL_SECONDS", defaultSyncInterval)
	v.SetDefault("OWNER_TRIPS_AUTO_APPROVE", false)
}

func (c *Config) validate() error {
	if c.DB.LocalPath == "" {
		return fmt.Errorf("local_db_path не может быть пустым")
	}
	if c.Device.Role != RoleOwner && c.Device.Role != RoleDriver {
		return fmt.Errorf("member_role должен быть %q или %q, получено %q", RoleOwner, RoleDriver, c.Device.Role)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync_interval_seconds должен быть положительным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}

// RemoteEnabled ложно, если удаленная база не настроена; тогда устройство работает только офлайн.
func (c *Config) RemoteEnabled() bool {
	return c.DB.DatabaseURI != ""
}
