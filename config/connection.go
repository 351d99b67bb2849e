package config

import "strings"

// ConnectionConfig contains the Salesforce org connection descriptor. The API
// version is per-connection configuration, never a package-level constant, so
// client instances can target different protocol versions independently.
type ConnectionConfig struct {
	// InstanceURL is the org base URL, e.g. https://acme.my.salesforce.com.
	InstanceURL string `env:"INSTANCE_URL"`
	// LoginURL hosts the token endpoint for the refresh grant.
	LoginURL     string `env:"LOGIN_URL"     envDefault:"https://login.salesforce.com"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RefreshToken string `env:"REFRESH_TOKEN"`
	APIVersion   string `env:"API_VERSION"   envDefault:"61.0"`
}

// Sanitize normalises connection fields.
func (c *ConnectionConfig) Sanitize() {
	c.InstanceURL = strings.TrimSuffix(strings.TrimSpace(c.InstanceURL), "/")
	c.LoginURL = strings.TrimSuffix(strings.TrimSpace(c.LoginURL), "/")
	c.APIVersion = strings.TrimPrefix(strings.TrimSpace(c.APIVersion), "v")
}

// TokenURL returns the token endpoint for the refresh grant.
func (c *ConnectionConfig) TokenURL() string {
	return c.LoginURL + "/services/oauth2/token"
}

// StreamingURL returns the cometd endpoint for the configured API version.
func (c *ConnectionConfig) StreamingURL() string {
	return c.InstanceURL + "/cometd/" + c.APIVersion
}
