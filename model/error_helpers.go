package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// CreateNetworkError creates a FeedError for network-related issues
func CreateNetworkError(err error, targetURL string) *FeedError {
	errorType := ErrorTypeNetwork
	message := "Network error occurred"

	if err != nil {
		switch {
		case isTimeoutError(err):
			errorType = ErrorTypeTimeout
			message = "Request timed out"
		case isDNSError(err):
			errorType = ErrorTypeDNSResolution
			message = "DNS resolution failed"
		case isConnectionError(err):
			errorType = ErrorTypeConnectionFailed
			message = "Connection failed"
		}
	}

	return NewFeedErrorWithCause(errorType, message, err).
		WithURL(targetURL).
		WithOperation("fetch").
		WithComponent("http_client")
}

// CreateHTTPError creates a FeedError for a non-2xx response
func CreateHTTPError(status int, headers http.Header, targetURL string) *FeedError {
	var errorType ErrorType
	var message string

	statusText := fmt.Sprintf("%d %s", status, http.StatusText(status))

	switch {
	case status >= 400 && status < 500:
		errorType = ErrorTypeHTTPClientError
		message = fmt.Sprintf("Client error: %s", statusText)
	case status >= 500:
		errorType = ErrorTypeHTTPServerError
		message = fmt.Sprintf("Server error: %s", statusText)
	case status >= 300 && status < 400:
		errorType = ErrorTypeHTTPRedirect
		message = fmt.Sprintf("Redirect error: %s", statusText)
	default:
		errorType = ErrorTypeHTTP
		message = fmt.Sprintf("HTTP error: %s", statusText)
	}

	return NewFeedError(errorType, message).
		WithURL(targetURL).
		WithOperation("fetch").
		WithComponent("http_client").
		WithHTTP(status, headers)
}

// CreateNotAFeedError creates a FeedError for a body that no parser accepted.
// cause is the last parser error, if any.
func CreateNotAFeedError(cause error, feedURL string) *FeedError {
	return NewFeedErrorWithCause(ErrorTypeNotAFeed, "Content is neither RSS nor Atom", cause).
		WithURL(feedURL).
		WithOperation("validate_feed").
		WithComponent("feed_validator")
}

// CreateHTMLParseError records that a page's link tags could not be read.
func CreateHTMLParseError(cause error, pageURL string) *FeedError {
	return NewFeedErrorWithCause(ErrorTypeHTMLParseDegraded, "Failed to parse page HTML", cause).
		WithURL(pageURL).
		WithOperation("extract_candidates").
		WithComponent("extractor")
}

// CreateValidationError creates a FeedError for URL validation issues
func CreateValidationError(err error, targetURL string) *FeedError {
	errorType := ErrorTypeValidation
	message := "URL validation failed"

	switch {
	case errors.Is(err, ErrInvalidURL):
		errorType = ErrorTypeInvalidURL
		message = "Invalid URL format"
	case errors.Is(err, ErrUnsupportedScheme):
		errorType = ErrorTypeUnsupportedScheme
		message = "Unsupported URL scheme"
	case errors.Is(err, ErrPrivateIPBlocked):
		errorType = ErrorTypePrivateIP
		message = "Private IP address blocked"
	case errors.Is(err, ErrMissingHost):
		errorType = ErrorTypeInvalidURL
		message = "URL missing host"
	case errors.Is(err, ErrEmptyURL):
		errorType = ErrorTypeInvalidURL
		message = "URL cannot be empty"
	}

	return NewFeedErrorWithCause(errorType, message, err).
		WithURL(targetURL).
		WithOperation("validate_url").
		WithComponent("url_validator")
}

// CreateCircuitBreakerError creates a FeedError for circuit breaker events
func CreateCircuitBreakerError(cause error, targetURL, state string) *FeedError {
	message := fmt.Sprintf("Circuit breaker is %s", state)

	return NewFeedErrorWithCause(ErrorTypeCircuitBreaker, message, cause).
		WithURL(targetURL).
		WithOperation("fetch").
		WithComponent("circuit_breaker")
}

// CreateRetryError creates a FeedError when all retry attempts are exhausted
func CreateRetryError(lastErr error, targetURL string, attempt, maxAttempts int) *FeedError {
	message := fmt.Sprintf("All retry attempts exhausted (%d/%d)", attempt, maxAttempts)

	// Preserve the error type from the last error if it's a FeedError
	errorType := ErrorTypeNetwork
	if feedErr, ok := AsFeedError(lastErr); ok {
		errorType = feedErr.ErrorType
	}

	return NewFeedErrorWithCause(errorType, message, lastErr).
		WithURL(targetURL).
		WithOperation("retry_fetch").
		WithComponent("retry_manager").
		WithRetryContext(attempt, maxAttempts)
}

// CreateIOError creates a FeedError for reading inputs or writing outputs.
func CreateIOError(err error, path, operation string) *FeedError {
	return NewFeedErrorWithCause(ErrorTypeIO, fmt.Sprintf("File %s failed", operation), err).
		WithURL(path).
		WithOperation(operation).
		WithComponent("filesystem")
}

// CreateConfigurationError creates a FeedError for invalid settings.
func CreateConfigurationError(err error, message string) *FeedError {
	return NewFeedErrorWithCause(ErrorTypeConfiguration, message, err).
		WithComponent("config")
}

// isTimeoutError checks if the error is related to timeouts
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{"timeout", "deadline exceeded", "timed out"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

// isDNSError checks if the error is related to DNS resolution
func isDNSError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	dnsKeywords := []string{
		"no such host", "name resolution",
		"name or service not known", "nodename nor servname provided",
	}
	for _, keyword := range dnsKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

// isConnectionError checks if the error is related to connection issues
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED), errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return true
	}

	errStr := strings.ToLower(err.Error())
	connKeywords := []string{
		"connection refused", "connection reset", "connection aborted",
		"host unreachable", "network unreachable", "no route to host",
	}
	for _, keyword := range connKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}
