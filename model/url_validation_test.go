package model

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
)

func TestValidatePageURL(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		allowPrivateIP bool
		errorType      error
	}{
		// Valid URLs
		{"valid HTTP URL", "http://example.com/blog", false, nil},
		{"valid HTTPS URL", "https://example.com/", false, nil},
		{"valid URL with port", "https://example.com:8080/", false, nil},
		{"valid URL with query params", "https://example.com/?page=2", false, nil},
		{"surrounding whitespace", "  https://example.com/  ", false, nil},

		// Invalid schemes
		{"file scheme", "file:///etc/passwd", false, ErrUnsupportedScheme},
		{"ftp scheme", "ftp://example.com/file.txt", false, ErrUnsupportedScheme},
		{"javascript scheme", "javascript:alert('xss')", false, ErrUnsupportedScheme},
		{"data scheme", "data:text/plain,hello", false, ErrUnsupportedScheme},

		// Invalid formats
		{"empty URL", "", false, ErrEmptyURL},
		{"malformed URL", "not-a-url", false, ErrUnsupportedScheme},
		{"missing scheme", "example.com/feed", false, ErrUnsupportedScheme},
		{"missing host", "http:///feed", false, ErrMissingHost},
		{"space in URL", "http://exa mple.com/feed", false, ErrInvalidURL},

		// Private IP ranges - blocked by default
		{"localhost", "http://localhost/", false, ErrPrivateIPBlocked},
		{"127.0.0.1", "http://127.0.0.1/", false, ErrPrivateIPBlocked},
		{"127.x.x.x range", "http://127.1.1.1/", false, ErrPrivateIPBlocked},
		{"10.x.x.x range", "http://10.0.0.1/", false, ErrPrivateIPBlocked},
		{"192.168.x.x range", "http://192.168.1.1/", false, ErrPrivateIPBlocked},
		{"172.16-31.x.x range", "http://172.16.0.1/", false, ErrPrivateIPBlocked},
		{"link-local 169.254", "http://169.254.0.1/", false, ErrPrivateIPBlocked},
		{"IPv6 localhost", "http://[::1]/", false, ErrPrivateIPBlocked},
		{"loopback with port", "http://127.0.0.1:8080/", false, ErrPrivateIPBlocked},

		// Private IPs - allowed when flag is set
		{"localhost allowed", "http://localhost/", true, nil},
		{"127.0.0.1 allowed", "http://127.0.0.1:4000/", true, nil},
		{"192.168.x.x allowed", "http://192.168.1.1/", true, nil},

		// Edge cases
		{"uppercase scheme", "HTTP://EXAMPLE.COM/", false, nil},
		{"URL with fragment", "https://example.com/#section", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePageURL(context.Background(), tt.url, tt.allowPrivateIP)

			if tt.errorType == nil {
				if err != nil {
					t.Errorf("unexpected error for URL %q: %v", tt.url, err)
				}
				return
			}
			if !errors.Is(err, tt.errorType) {
				t.Errorf("expected %v for URL %q, got %v", tt.errorType, tt.url, err)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTPS://Example.COM/Feed.xml", "https://example.com/Feed.xml"},
		{"https://example.com/feed#top", "https://example.com/feed"},
		{"https://example.com/feed?Format=RSS", "https://example.com/feed?Format=RSS"},
		{"http://EXAMPLE.com:8080/a/b/", "http://example.com:8080/a/b/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := url.Parse(tt.in)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.in, err)
			}
			if got := NormalizeURL(u); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/post")

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{"relative path", "feed.xml", "https://example.com/blog/feed.xml", nil},
		{"root relative", "/rss", "https://example.com/rss", nil},
		{"protocol relative", "//cdn.example.com/atom.xml", "https://cdn.example.com/atom.xml", nil},
		{"absolute", "http://Other.ORG/feed#x", "http://other.org/feed", nil},
		{"empty", "  ", "", ErrEmptyURL},
		{"mailto", "mailto:someone@example.com", "", ErrUnsupportedScheme},
		{"javascript", "javascript:void(0)", "", ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(base, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v (%q)", tt.wantErr, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestResolveURL_NilBaseRequiresAbsolute(t *testing.T) {
	if _, err := ResolveURL(nil, "/feed"); err == nil {
		t.Error("expected relative reference without base to fail")
	}
	if got, err := ResolveURL(nil, "https://example.com/feed"); err != nil || got != "https://example.com/feed" {
		t.Errorf("unexpected result %q, %v", got, err)
	}
}

func TestValidateScheme(t *testing.T) {
	for _, scheme := range []string{"http", "https", "HTTP", "HTTPS", "Https"} {
		if err := validateScheme(scheme); err != nil {
			t.Errorf("scheme %q should be valid, got error: %v", scheme, err)
		}
	}

	for _, scheme := range []string{"file", "ftp", "javascript", "data", "mailto", ""} {
		if err := validateScheme(scheme); err == nil {
			t.Errorf("scheme %q should be invalid", scheme)
		}
	}
}

func TestIsLocalhost(t *testing.T) {
	for _, host := range []string{"localhost", "LOCALHOST", "127.0.0.1", "127.1.1.1", "::1", "dev.localhost"} {
		if !isLocalhost(host) {
			t.Errorf("host %q should be detected as localhost", host)
		}
	}

	for _, host := range []string{"example.com", "192.168.1.1", "10.0.0.1", "1.1.1.1"} {
		if isLocalhost(host) {
			t.Errorf("host %q should not be detected as localhost", host)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip        string
		isPrivate bool
	}{
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"169.254.1.1", true},
		{"0.0.0.0", true},

		{"8.8.8.8", false},
		{"172.15.255.255", false},
		{"172.32.0.1", false},

		{"::1", true},
		{"fe80::1", true},
		{"fc00::1", true},
		{"2001:db8::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP %q", tt.ip)
			}
			if got := IsPrivateIP(ip); got != tt.isPrivate {
				t.Errorf("IsPrivateIP(%q) = %v, want %v", tt.ip, got, tt.isPrivate)
			}
		})
	}
}

func TestValidateHost_Unresolvable(t *testing.T) {
	if err := validateHost(context.Background(), "this-domain-definitely-does-not-exist-12345.invalid"); err != nil {
		t.Errorf("unresolvable domains should be left to the fetcher: %v", err)
	}
}

func TestValidateHost_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := validateHost(ctx, "example.com")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	if err := validateHost(ctx, "93.184.215.14"); err != nil {
		t.Errorf("literal public IPs need no lookup: %v", err)
	}
}
