// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	dbPath            = pflag.String("db-path", "database.db", "Path to the SQLite database file")
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"uploadthing", "s3"}
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
	v.BindEnv("host.cors_origin", "host_cors_origin")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("mux.token_id", "mux_token_id")
	v.BindEnv("mux.token_secret", "mux_token_secret")
	v.BindEnv("mux.webhook_secret", "mux_webhook_secret")

	v.BindEnv("storage.type", "storage_type")

	v.BindEnv("uploadthing.secret", "uploadthing_secret")

	v.BindEnv("s3.access_key_id", "s3_access_key_id")
	v.BindEnv("s3.secret_access_key", "s3_secret_access_key")
	v.BindEnv("s3.bucket", "s3_bucket")
	v.BindEnv("s3.region", "s3_region")
	v.BindEnv("s3.endpoint", "s3_endpoint")
	v.BindEnv("s3.public_base_url", "s3_public_base_url")

	v.BindEnv("upload.max_thumbnail_size", "upload_max_thumbnail_size")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origin", "http://localhost:3000")

	v.SetDefault("storage.type", "uploadthing")

	// Megabytes, shifted into bytes at the end
	v.SetDefault("upload.max_thumbnail_size", 4)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	v.SetDefault("db.path", *dbPath)

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetString("jwt.secret") == "" {
		return errors.New("jwt secret can't be empty")
	}

	if v.GetString("mux.token_id") == "" || v.GetString("mux.token_secret") == "" {
		return errors.New("mux api credentials are missing")
	}

	if v.GetString("mux.webhook_secret") == "" {
		return errors.New("mux webhook secret is missing")
	}

	if !slices.Contains(validStorageTypes, v.GetString("storage.type")) {
		return errors.New("invalid storage type provided")
	}

	switch v.GetString("storage.type") {
	case "uploadthing":
		if v.GetString("uploadthing.secret") == "" {
			return errors.New("uploadthing secret can't be empty")
		}
	case "s3":
		if v.GetString("s3.access_key_id") == "" {
			return errors.New("access key id can't be empty")
		}
		if v.GetString("s3.secret_access_key") == "" {
			return errors.New("secret access key can't be empty")
		}
		if v.GetString("s3.bucket") == "" {
			return errors.New("bucket can't be empty")
		}
		if v.GetString("s3.public_base_url") == "" {
			return errors.New("public base url can't be empty")
		}
	}

	if v.GetInt("upload.max_thumbnail_size") <= 0 {
		return errors.New("max thumbnail size must be bigger than 0")
	}

	v.Set("upload.max_thumbnail_size", v.GetInt64("upload.max_thumbnail_size")<<20)
	return nil
}
