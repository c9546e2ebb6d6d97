// Package server holds the HTTP server configuration and constants.
//
// While the main application entry point handles the server startup, this package
// defines the configuration structures for server settings, such as the
// listening port, the API key and the release center this instance builds for.
//
// # Configuration
//
// The Config struct defines the HTTP port, API key, and the release center
// code (e.g. "international").
//
// # Usage
//
// This package is primarily used by the core/config package to embed server settings.
package server
