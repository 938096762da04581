package config

import "time"

// DefaultLoginEndpoint is the token endpoint used when LOGIN_ENDPOINT is unset.
const DefaultLoginEndpoint = "http://localhost:8000/api/auth/token/"

// ClientConfig holds runtime configuration for the login form client.
type ClientConfig struct {
	Endpoint      string
	Timeout       time.Duration
	FormID        string
	UsernameField string
	PasswordField string
	LogLevel      string
}

// LoadClientConfig constructs a ClientConfig from environment variables.
// A zero Timeout means requests wait on the transport's own defaults.
func LoadClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:      GetString("LOGIN_ENDPOINT", DefaultLoginEndpoint),
		Timeout:       GetDuration("LOGIN_TIMEOUT_SECONDS", 0, time.Second),
		FormID:        GetString("LOGIN_FORM_ID", "loginForm"),
		UsernameField: GetString("LOGIN_USERNAME_FIELD", "username"),
		PasswordField: GetString("LOGIN_PASSWORD_FIELD", "password"),
		LogLevel:      GetString("LOG_LEVEL", "info"),
	}
}
