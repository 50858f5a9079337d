package config

import (
	"errors"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

var (
	// ErrInsecureScheme is returned when an outbound endpoint is not HTTPS.
	ErrInsecureScheme = errors.New("only HTTPS allowed")
	// ErrPrivateAddress is returned for loopback, private and link-local literal addresses.
	ErrPrivateAddress = errors.New("private or loopback address not allowed")
	// ErrInvalidEndpoint is returned when the URL cannot be parsed or has no host.
	ErrInvalidEndpoint = errors.New("invalid endpoint URL")
)

// ValidateOutboundURL checks a third-party endpoint configured for production.
// Hostnames are not resolved; only literal addresses are inspected.
func ValidateOutboundURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ErrInvalidEndpoint
	}
	if parsed.Scheme != "https" {
		return ErrInsecureScheme
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return ErrPrivateAddress
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
			return ErrPrivateAddress
		}
	}
	return nil
}

// EndpointHost returns host[:port] of an endpoint for logging.
// Paths and query strings may carry credentials and are never logged.
func EndpointHost(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "(invalid)"
	}
	if port := parsed.Port(); port != "" {
		return net.JoinHostPort(parsed.Hostname(), port)
	}
	return parsed.Hostname()
}

// outboundEndpoints lists the configured third-party URLs by variable name.
func (c *Config) outboundEndpoints() map[string]string {
	all := map[string]string{
		"ANALYTICS_ENDPOINT":   c.AnalyticsEndpoint,
		"BILLING_API_BASE_URL": c.BillingAPIBaseURL,
		"OAUTH_AUTH_URL":       c.OAuthAuthURL,
		"OAUTH_TOKEN_URL":      c.OAuthTokenURL,
		"OAUTH_USERINFO_URL":   c.OAuthUserInfoURL,
	}
	for name, v := range all {
		if v == "" {
			delete(all, name)
		}
	}
	return all
}
