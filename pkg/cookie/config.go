package cookie

import (
	"net/http"
	"strings"
)

// Config is the environment-driven cookie configuration. Secure must be true
// in production deployments; state and verifier cookies are worthless
// protection over plain HTTP.
type Config struct {
	Secrets  string `env:"COOKIE_SECRETS,required"` // comma-separated, newest first
	Domain   string `env:"COOKIE_DOMAIN" envDefault:""`
	Secure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	SameSite int    `env:"COOKIE_SAME_SITE" envDefault:"2"` // 2 = http.SameSiteLaxMode
}

// NewFromConfig builds a Manager from environment configuration.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	var secrets []string
	for _, s := range strings.Split(cfg.Secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}

	base := []Option{
		WithSecure(cfg.Secure),
		WithSameSite(http.SameSite(cfg.SameSite)),
	}
	if cfg.Domain != "" {
		base = append(base, WithDomain(cfg.Domain))
	}

	return New(secrets, append(base, opts...)...)
}
