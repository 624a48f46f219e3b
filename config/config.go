package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type AppConfig struct {
	File     string          `json:"-"`
	Consul   *ConsulConfig   `json:"consul,omitempty"`
	Redis    *RedisConfig    `json:"redis,omitempty"`
	Database *DatabaseConfig `json:"database,omitempty"`
	Drive    *DriveConfig    `json:"drive,omitempty"`
	Export   *ExportConfig   `json:"export,omitempty"`
}

type ConsulConfig struct {
	Id            string `json:"id"`
	Address       string `json:"address"`
	PublicAddress string `json:"publicAddress"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type DatabaseConfig struct {
	Url string `json:"url"`
}

// DriveConfig is the OAuth client used to mint short-lived access tokens
// from the refresh token stored on the account's storage connection.
type DriveConfig struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type ExportConfig struct {
	// FilesRoot is the local directory holding uploaded design files and
	// job photos, laid out as <root>/<account>/<entity>/<id>/<file>.
	FilesRoot string `json:"filesRoot"`
	// RateWindow limits each account to one backup run per window.
	RateWindow time.Duration `json:"rateWindow"`
}

func LoadConfig() (*AppConfig, error) {
	bindFlagsAndEnv()

	configFile := getConfigFilePath()
	if configFile != "" {
		if err := loadFromFile(configFile); err != nil {
			return nil, err
		}
	}

	cfg := buildAppConfig(configFile)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func bindFlagsAndEnv() {
	pflag.String("config_file", "", "Configuration file in JSON format")

	// database
	pflag.String("data_source", "", "Data source")

	// consul
	pflag.String("id", "", "Service id")
	pflag.String("consul", "", "Host to consul")
	pflag.String("http_addr", "", "Public HTTP address with port")

	// redis
	pflag.String("redis_addr", "localhost:6379", "Redis address")
	pflag.String("redis_password", "", "Redis password")
	pflag.Int("redis_db", 0, "Redis DB number")

	// drive oauth client
	pflag.String("drive_client_id", "", "Drive OAuth client id")
	pflag.String("drive_client_secret", "", "Drive OAuth client secret")

	// export
	pflag.String("files_root", "/var/lib/fabdesk/files", "Local root of uploaded account files")
	pflag.Duration("rate_window", time.Hour, "Minimum interval between backup runs per account")

	pflag.Parse()

	_ = viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit mapping
	_ = viper.BindEnv("id", "CONSUL_ID")
	_ = viper.BindEnv("consul", "CONSUL_HOST")
	_ = viper.BindEnv("http_addr", "HTTP_ADDR")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis_db", "REDIS_DB")
	_ = viper.BindEnv("drive_client_id", "DRIVE_CLIENT_ID")
	_ = viper.BindEnv("drive_client_secret", "DRIVE_CLIENT_SECRET")
	_ = viper.BindEnv("files_root", "FILES_ROOT")
}

func getConfigFilePath() string {
	file := viper.GetString("config_file")
	if file == "" {
		file = os.Getenv("BACKUP_EXPORTER_CONFIG_FILE")
	}
	return file
}

func loadFromFile(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return errors.New(fmt.Sprintf("could not load config file: %s", err.Error()))
	}
	return nil
}

func buildAppConfig(file string) *AppConfig {
	return &AppConfig{
		File:     file,
		Database: &DatabaseConfig{Url: viper.GetString("data_source")},
		Export: &ExportConfig{
			FilesRoot:  viper.GetString("files_root"),
			RateWindow: viper.GetDuration("rate_window"),
		},
		Consul: &ConsulConfig{
			Id:            viper.GetString("id"),
			Address:       viper.GetString("consul"),
			PublicAddress: viper.GetString("http_addr"),
		},
		Redis: &RedisConfig{
			Addr:     viper.GetString("redis_addr"),
			Password: viper.GetString("redis_password"),
			DB:       viper.GetInt("redis_db"),
		},
		Drive: &DriveConfig{
			ClientID:     viper.GetString("drive_client_id"),
			ClientSecret: viper.GetString("drive_client_secret"),
		},
	}
}

func validateConfig(cfg *AppConfig) error {
	if cfg.Database.Url == "" {
		return errors.New("Data source is required")
	}
	if cfg.Consul.Id == "" {
		return errors.New("Service id is required")
	}
	if cfg.Consul.Address == "" {
		return errors.New("Consul address is required")
	}
	if cfg.Consul.PublicAddress == "" {
		return errors.New("HTTP address is required")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("Redis address is required")
	}
	if cfg.Drive.ClientID == "" || cfg.Drive.ClientSecret == "" {
		return errors.New("Drive OAuth client is required")
	}
	if cfg.Export.FilesRoot == "" {
		return errors.New("Files root is required")
	}
	return nil
}
