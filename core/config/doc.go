// Package config provides configuration management for the release
// builder.
//
// It utilizes Viper for loading configuration from environment variables,
// a local .env file, and struct-tag defaults.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, release center)
//   - Database: MySQL connection details for build metadata
//   - Storage: S3/MinIO credentials and bucket settings
//   - Identifier: component identifier service endpoint and retry policy
//   - Release: effective time, namespace and module defaults for builds
//   - Log: Logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
