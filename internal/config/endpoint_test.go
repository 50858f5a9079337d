package config

import (
	"errors"
	"testing"
)

func TestValidateOutboundURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "public https", url: "https://eu.i.posthog.com/batch/"},
		{name: "https with port", url: "https://api.stripe.com:8443"},
		{name: "http", url: "http://api.stripe.com", wantErr: ErrInsecureScheme},
		{name: "localhost", url: "https://localhost/batch", wantErr: ErrPrivateAddress},
		{name: "mdns", url: "https://printer.local", wantErr: ErrPrivateAddress},
		{name: "loopback ip", url: "https://127.0.0.1", wantErr: ErrPrivateAddress},
		{name: "private ip", url: "https://10.1.2.3", wantErr: ErrPrivateAddress},
		{name: "link local", url: "https://169.254.169.254/latest", wantErr: ErrPrivateAddress},
		{name: "ipv6 loopback", url: "https://[::1]", wantErr: ErrPrivateAddress},
		{name: "mapped private", url: "https://[::ffff:192.168.0.1]", wantErr: ErrPrivateAddress},
		{name: "no host", url: "https:///path", wantErr: ErrInvalidEndpoint},
		{name: "garbage", url: "://", wantErr: ErrInvalidEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateOutboundURL(tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateOutboundURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestEndpointHost(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://eu.i.posthog.com/batch/?token=secret": "eu.i.posthog.com",
		"https://api.stripe.com:8443/v1":               "api.stripe.com:8443",
		"https://[::1]:9000/x":                         "[::1]:9000",
	}
	for in, want := range tests {
		if got := EndpointHost(in); got != want {
			t.Errorf("EndpointHost(%q) = %q, want %q", in, got, want)
		}
	}
}
