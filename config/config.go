// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers = []string{"sqlite", "postgres"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")

	v.BindEnv("database.driver", "database_driver")
	v.BindEnv("database.dsn", "database_dsn")

	v.BindEnv("storage.type", "storage_type")
	v.BindEnv("storage.root", "storage_root")

	v.BindEnv("room.default_max_size", "room_default_max_size")
	v.BindEnv("room.poll_interval", "room_poll_interval")

	v.BindEnv("cleanup.reconcile_interval", "cleanup_reconcile_interval")

	v.BindEnv("upload.max_size", "upload_max_size")

	v.BindEnv("admin.secret", "admin_secret")

	v.BindEnv("cloudflare.account_id", "cloudflare_account_id")
	v.BindEnv("cloudflare.access_key_id", "cloudflare_access_key_id")
	v.BindEnv("cloudflare.secret_access_key", "cloudflare_secret_access_key")
	v.BindEnv("cloudflare.bucket", "cloudflare_bucket")
	v.BindEnv("cloudflare.region", "cloudflare_region")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.root", "uploads")

	v.SetDefault("room.default_max_size", 100) // MiB
	v.SetDefault("room.poll_interval", 5*time.Second)

	v.SetDefault("cleanup.reconcile_interval", 10*time.Minute)

	v.SetDefault("upload.max_size", 100) // MiB

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		// Everything has a usable default, a missing file is fine
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDBDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	switch v.GetString("storage.type") {
	case "s3":
		if v.GetString("cloudflare.access_key_id") == "" {
			return errors.New("access key id can't be empty")
		}
		if v.GetString("cloudflare.secret_access_key") == "" {
			return errors.New("secret access key can't be empty")
		}
		if v.GetString("cloudflare.bucket") == "" {
			return errors.New("bucket can't be empty")
		}
	case "local":
		if v.GetString("storage.root") == "" {
			return errors.New("storage root can't be empty")
		}
	default:
		return errors.New("invalid storage type provided")
	}

	if v.GetInt("room.default_max_size") <= 0 {
		return errors.New("default room size must be bigger than 0")
	}

	if v.GetDuration("room.poll_interval") <= 0 {
		return errors.New("poll interval must be bigger than 0")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("max upload size must be bigger than 0")
	}

	// Stored in MiB for humans, used in bytes everywhere else
	v.Set("room.default_max_size", v.GetInt64("room.default_max_size")<<20)
	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)

	return nil
}
