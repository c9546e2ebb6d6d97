package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// ReleaseCenter is the business key of the release center this
	// instance builds for (e.g. "international").
	ReleaseCenter string `mapstructure:"release_center" default:"international"`
}

// HasAuth reports whether API key protection is configured.
func (c Config) HasAuth() bool {
	return c.ApiKey != ""
}
