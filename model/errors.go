// Package model defines core data structures and error types for feed discovery.
package model

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrorType represents different categories of errors that can occur
type ErrorType string

const (
	// ErrorTypeNetwork represents general network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout represents request timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConnectionFailed represents connection establishment failures
	ErrorTypeConnectionFailed ErrorType = "connection_failed"
	// ErrorTypeDNSResolution represents DNS resolution failures
	ErrorTypeDNSResolution ErrorType = "dns_resolution"

	// ErrorTypeHTTP represents general HTTP errors
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeHTTPClientError represents HTTP 4xx client errors
	ErrorTypeHTTPClientError ErrorType = "http_client_error" // 4xx
	// ErrorTypeHTTPServerError represents HTTP 5xx server errors
	ErrorTypeHTTPServerError ErrorType = "http_server_error" // 5xx
	// ErrorTypeHTTPRedirect represents HTTP 3xx redirect issues
	ErrorTypeHTTPRedirect ErrorType = "http_redirect" // 3xx with issues

	// ErrorTypeCircuitBreaker represents circuit breaker state errors
	ErrorTypeCircuitBreaker ErrorType = "circuit_breaker"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNotAFeed is a fetched body that parses as neither RSS nor Atom
	ErrorTypeNotAFeed ErrorType = "not_a_feed"
	// ErrorTypeHTMLParseDegraded marks a page whose HTML could not be parsed for link tags
	ErrorTypeHTMLParseDegraded ErrorType = "html_parse_degraded"

	// ErrorTypeValidation represents URL validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInvalidURL represents invalid URL format errors
	ErrorTypeInvalidURL ErrorType = "invalid_url"
	// ErrorTypeUnsupportedScheme represents unsupported URL scheme errors
	ErrorTypeUnsupportedScheme ErrorType = "unsupported_scheme"
	// ErrorTypePrivateIP represents private IP address blocked errors
	ErrorTypePrivateIP ErrorType = "private_ip_blocked"

	// ErrorTypeIO represents reading the URL list or writing the OPML file
	ErrorTypeIO ErrorType = "io"

	// ErrorTypeConfiguration represents configuration-related errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeUnknown represents unknown or unclassified errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// ErrorCategory groups error types into the classes callers act on.
type ErrorCategory string

const (
	CategoryFetchFailed       ErrorCategory = "FetchFailed"
	CategoryNotAFeed          ErrorCategory = "NotAFeed"
	CategoryHTMLParseDegraded ErrorCategory = "HtmlParseDegraded"
	CategoryInvalidURL        ErrorCategory = "InvalidUrl"
	CategoryIO                ErrorCategory = "IoError"
	CategoryOther             ErrorCategory = "Other"
)

// Category maps an ErrorType to its ErrorCategory.
func (t ErrorType) Category() ErrorCategory {
	switch t {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeConnectionFailed, ErrorTypeDNSResolution,
		ErrorTypeHTTP, ErrorTypeHTTPClientError, ErrorTypeHTTPServerError, ErrorTypeHTTPRedirect,
		ErrorTypeCircuitBreaker, ErrorTypeRateLimit:
		return CategoryFetchFailed
	case ErrorTypeNotAFeed:
		return CategoryNotAFeed
	case ErrorTypeHTMLParseDegraded:
		return CategoryHTMLParseDegraded
	case ErrorTypeValidation, ErrorTypeInvalidURL, ErrorTypeUnsupportedScheme, ErrorTypePrivateIP:
		return CategoryInvalidURL
	case ErrorTypeIO:
		return CategoryIO
	default:
		return CategoryOther
	}
}

// FeedError represents a structured error with additional context for debugging
type FeedError struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	ErrorType  ErrorType `json:"error_type"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`

	URL       string `json:"url,omitempty"`       // URL that caused the error
	Operation string `json:"operation,omitempty"` // What operation was being performed
	Component string `json:"component,omitempty"` // Which component generated the error

	HTTPStatus  int               `json:"http_status,omitempty"`
	HTTPHeaders map[string]string `json:"http_headers,omitempty"`

	Attempt     int `json:"attempt,omitempty"`
	MaxAttempts int `json:"max_attempts,omitempty"`

	Cause error `json:"-"`
}

// Error implements the error interface
func (fe *FeedError) Error() string {
	var parts []string

	if fe.Message != "" {
		parts = append(parts, fe.Message)
	}
	if fe.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s", fe.URL))
	}
	if fe.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation: %s", fe.Operation))
	}
	if fe.HTTPStatus != 0 {
		parts = append(parts, fmt.Sprintf("HTTP Status: %d", fe.HTTPStatus))
	}
	if fe.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", fe.Cause))
	}

	parts = append(parts, fmt.Sprintf("Type: %s", fe.ErrorType), fmt.Sprintf("ID: %s", fe.ID))

	return strings.Join(parts, " | ")
}

// Unwrap returns the underlying cause for error wrapping support
func (fe *FeedError) Unwrap() error {
	return fe.Cause
}

// Category returns the category of the error's type.
func (fe *FeedError) Category() ErrorCategory {
	return fe.ErrorType.Category()
}

// NewFeedError creates a new FeedError with basic information
func NewFeedError(errorType ErrorType, message string) *FeedError {
	id, _ := gonanoid.New()

	return &FeedError{
		ID:         id,
		Timestamp:  time.Now().UTC(),
		ErrorType:  errorType,
		Message:    message,
		Suggestion: getSuggestionForErrorType(errorType),
	}
}

// NewFeedErrorWithCause creates a new FeedError wrapping an existing error
func NewFeedErrorWithCause(errorType ErrorType, message string, cause error) *FeedError {
	fe := NewFeedError(errorType, message)
	fe.Cause = cause
	return fe
}

// WithURL adds URL context to the error
func (fe *FeedError) WithURL(url string) *FeedError {
	fe.URL = url
	return fe
}

// WithOperation adds operation context to the error
func (fe *FeedError) WithOperation(operation string) *FeedError {
	fe.Operation = operation
	return fe
}

// WithComponent adds component context to the error
func (fe *FeedError) WithComponent(component string) *FeedError {
	fe.Component = component
	return fe
}

// WithHTTP adds HTTP-specific context to the error
func (fe *FeedError) WithHTTP(status int, headers http.Header) *FeedError {
	fe.HTTPStatus = status

	if headers != nil {
		fe.HTTPHeaders = make(map[string]string)

		relevantHeaders := []string{
			"Content-Type", "Content-Length", "Server", "Location", "Retry-After",
		}

		for _, header := range relevantHeaders {
			if value := headers.Get(header); value != "" {
				fe.HTTPHeaders[header] = value
			}
		}
	}

	return fe
}

// WithRetryContext adds retry attempt information
func (fe *FeedError) WithRetryContext(attempt, maxAttempts int) *FeedError {
	fe.Attempt = attempt
	fe.MaxAttempts = maxAttempts
	return fe
}

// AsFeedError extracts a *FeedError from an error chain.
func AsFeedError(err error) (*FeedError, bool) {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// CategoryOf returns the category of err, or CategoryOther for plain errors.
func CategoryOf(err error) ErrorCategory {
	if fe, ok := AsFeedError(err); ok {
		return fe.Category()
	}
	return CategoryOther
}

// IsFetchFailed reports whether err is a network, timeout or non-2xx failure.
func IsFetchFailed(err error) bool { return CategoryOf(err) == CategoryFetchFailed }

// IsNotAFeed reports whether err means the body parsed as neither RSS nor Atom.
func IsNotAFeed(err error) bool { return CategoryOf(err) == CategoryNotAFeed }

// IsInvalidURL reports whether err is a URL validation failure.
func IsInvalidURL(err error) bool { return CategoryOf(err) == CategoryInvalidURL }

// IsIOError reports whether err is a file read or write failure.
func IsIOError(err error) bool { return CategoryOf(err) == CategoryIO }

func getSuggestionForErrorType(errorType ErrorType) string {
	suggestions := map[ErrorType]string{
		ErrorTypeTimeout:           "Check network connectivity or increase --timeout",
		ErrorTypeConnectionFailed:  "Verify the URL is accessible and the server is running",
		ErrorTypeDNSResolution:     "Check DNS settings and verify the domain name is correct",
		ErrorTypeHTTPClientError:   "Verify the URL is correct and accessible",
		ErrorTypeHTTPServerError:   "The server is experiencing issues, try again later",
		ErrorTypeCircuitBreaker:    "The host failed repeatedly and is temporarily skipped",
		ErrorTypeRateLimit:         "Lower --requests-per-second or raise --burst",
		ErrorTypeNotAFeed:          "The URL did not return RSS or Atom content",
		ErrorTypeHTMLParseDegraded: "The page HTML could not be parsed, only conventional feed paths were tried",
		ErrorTypeInvalidURL:        "Check the URL format and ensure it's a valid HTTP/HTTPS URL",
		ErrorTypeUnsupportedScheme: "Only HTTP and HTTPS URLs are supported",
		ErrorTypePrivateIP:         "Private IP addresses are blocked for security, use --allow-private-ips if needed",
		ErrorTypeIO:                "Check that the file exists and the directory is writable",
		ErrorTypeConfiguration:     "Review configuration parameters for correctness",
		ErrorTypeInternal:          "Internal error occurred, check logs for details",
	}

	if suggestion, exists := suggestions[errorType]; exists {
		return suggestion
	}

	return "Check the error details and try again"
}
