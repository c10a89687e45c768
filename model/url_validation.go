package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// URL validation errors
var (
	ErrInvalidURL        = errors.New("invalid URL format")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme - only HTTP and HTTPS are allowed")
	ErrPrivateIPBlocked  = errors.New("private IP addresses and localhost are blocked for security")
	ErrMissingHost       = errors.New("URL must have a valid host")
	ErrEmptyURL          = errors.New("URL cannot be empty")
)

// ValidatePageURL checks a user-supplied page URL before it is fetched.
// Beyond the syntactic checks of ParseHTTPURL it resolves the host and
// rejects loopback and private ranges unless allowPrivateIPs is set.
// Host resolution is bounded by ctx.
func ValidatePageURL(ctx context.Context, rawURL string, allowPrivateIPs bool) error {
	u, err := ParseHTTPURL(rawURL)
	if err != nil {
		return err
	}

	if !allowPrivateIPs {
		if err := validateHost(ctx, u.Host); err != nil {
			return err
		}
	}

	return nil
}

// ParseHTTPURL parses rawURL and requires an http or https scheme with a host.
func ParseHTTPURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrEmptyURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if err := validateScheme(u.Scheme); err != nil {
		return nil, err
	}

	if u.Host == "" {
		return nil, ErrMissingHost
	}

	return u, nil
}

// NormalizeURL lowercases scheme and host and drops the fragment.
// Path and query are left untouched.
func NormalizeURL(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	return n.String()
}

// ResolveURL resolves ref against base and normalizes the result. Only
// absolute http(s) results with a host are accepted.
func ResolveURL(base *url.URL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyURL
	}

	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	abs := r
	if base != nil {
		abs = base.ResolveReference(r)
	}

	if err := validateScheme(abs.Scheme); err != nil {
		return "", err
	}
	if abs.Host == "" {
		return "", ErrMissingHost
	}

	return NormalizeURL(abs), nil
}

func validateScheme(scheme string) error {
	scheme = strings.ToLower(scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsupportedScheme
	}
	return nil
}

// validateHost rejects localhost and hosts resolving to private ranges.
// Unresolvable hosts pass and fail later at fetch time; a done ctx does not.
func validateHost(ctx context.Context, host string) error {
	hostname, _, err := net.SplitHostPort(host)
	if err != nil {
		hostname = strings.Trim(host, "[]")
	}

	if isLocalhost(hostname) {
		return ErrPrivateIPBlocked
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if IsPrivateIP(ip) {
			return ErrPrivateIPBlocked
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("resolving %s: %w", hostname, ctxErr)
		}
		return nil
	}

	for _, addr := range addrs {
		if IsPrivateIP(addr.IP) {
			return ErrPrivateIPBlocked
		}
	}

	return nil
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)

	switch hostname {
	case "localhost", "::1", "[::1]":
		return true
	}

	return strings.HasPrefix(hostname, "127.") || strings.HasSuffix(hostname, ".localhost")
}

// IsPrivateIP reports whether ip is loopback, private, link-local or unspecified.
func IsPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
