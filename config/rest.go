package config

import (
	"strconv"
	"time"
)

// RestCfg configures the outbound request client.
// Secrets and endpoints may be overridden from the environment.
type RestCfg struct {
	// BaseURL is the API root without the version segment.
	BaseURL string `yaml:"base_url" env:"ASHMIRROR_API_URL"`

	// APIVersion is appended to BaseURL as "/v<N>".
	APIVersion int `yaml:"api_version" env:"ASHMIRROR_API_VERSION"`

	// Token authorizes every request. Never read from YAML.
	Token string `yaml:"-" env:"ASHMIRROR_TOKEN"`

	// TokenType prefixes the token in the Authorization header ("Bot" or "Bearer").
	TokenType string `yaml:"token_type" env:"ASHMIRROR_TOKEN_TYPE"`

	// RequestsPerSec paces outbound requests.
	RequestsPerSec int `yaml:"requests_per_sec" env:"ASHMIRROR_REQUESTS_PER_SEC"`

	// Timeout bounds a single request.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent"`
}

// URL returns the versioned API root.
func (cfg RestCfg) URL() string {
	return cfg.BaseURL + "/v" + strconv.Itoa(cfg.APIVersion)
}
