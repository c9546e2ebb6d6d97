package identifier

// Config holds configuration for the component identifier service client.
type Config struct {
	// BaseURL is the root URL of the identifier service API.
	BaseURL string `mapstructure:"base_url" default:"http://localhost:3000/api"`
	// Token is the authentication token appended to every request.
	Token string `mapstructure:"token" default:""`
	// Software is the software tag sent with every generation request.
	Software string `mapstructure:"software" default:"release-builder"`
	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxRetries is the number of retries for a failed bulk request.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// RetryDelaySeconds is the fixed delay between bulk retries.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" default:"10"`
	// PollIntervalSeconds is the delay between bulk job status polls.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" default:"2"`
	// PollTimeoutSeconds bounds the wait for a bulk job to complete.
	PollTimeoutSeconds int `mapstructure:"poll_timeout_seconds" default:"300"`
}
