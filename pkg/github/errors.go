package github

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
)

// ErrorType categorizes failures seen while reading from the GitHub API
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// FetchError is a classified failure from a GitHub read operation. The
// Resource names what was being fetched, in words that make sense to a
// user ("organization acme", "members of team platform").
type FetchError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Resource  string
	Retryable bool
}

func (e *FetchError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s error for %s: %s", e.Type, e.Resource, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether retrying the operation could help
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// NewFetchError builds a FetchError, deriving retryability from the type
func NewFetchError(errorType ErrorType, message string, cause error) *FetchError {
	return &FetchError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableErrorType(errorType),
	}
}

// WrapFetchError classifies an error from the GitHub client into a
// FetchError carrying the resource description. Errors that are already
// classified pass through, picking up the resource if they lack one.
func WrapFetchError(err error, resource string) *FetchError {
	switch e := err.(type) {
	case nil:
		return nil

	case *FetchError:
		if e.Resource == "" {
			e.Resource = resource
		}
		return e

	case *github.ErrorResponse:
		return classifyResponse(e, resource)

	case *github.RateLimitError:
		return &FetchError{
			Type:      ErrorTypeRateLimit,
			Message:   fmt.Sprintf("Rate limit exceeded. Reset at %v", e.Rate.Reset.Time),
			Cause:     err,
			Resource:  resource,
			Retryable: true,
		}
	}

	if isNetworkError(err) {
		return &FetchError{
			Type:      ErrorTypeNetwork,
			Message:   "Network error occurred. Please check your connection and try again",
			Cause:     err,
			Resource:  resource,
			Retryable: true,
		}
	}

	return &FetchError{
		Type:     ErrorTypeUnknown,
		Message:  err.Error(),
		Cause:    err,
		Resource: resource,
	}
}

// notFoundMessages maps resource descriptions to 404 messages. A 404
// names the containing entity: "teams for repository x" fails because
// the repository is gone, "members of team x" because the team is. The
// order reflects that containment, checked first match wins.
var notFoundMessages = []struct {
	keyword string
	message string
}{
	{"organization", "Organization not found. Check the organization name and your membership"},
	{"repositor", "Repository not found. Check the repository name and your access permissions"},
	{"team", "Team not found. Please verify the team slug and organization"},
	{"user", "User not found. Please verify the username is correct"},
	{"member", "User not found. Please verify the username is correct"},
}

// classifyResponse turns a GitHub API error response into a FetchError
// with a message aimed at the user rather than the protocol.
func classifyResponse(ghErr *github.ErrorResponse, resource string) *FetchError {
	out := &FetchError{
		Resource: resource,
		Cause:    ghErr,
	}

	switch ghErr.Response.StatusCode {
	case http.StatusUnauthorized:
		out.Type = ErrorTypeAuth
		out.Message = "Authentication failed. Please check your GitHub token"
		if strings.Contains(ghErr.Message, "token") {
			out.Message = "Invalid or expired GitHub token. Please update your GITHUB_TOKEN environment variable or configuration"
		}

	case http.StatusForbidden:
		if strings.Contains(ghErr.Message, "rate limit") {
			out.Type = ErrorTypeRateLimit
			out.Message = "GitHub API rate limit exceeded. Please wait before retrying"
			out.Retryable = true
			break
		}
		out.Type = ErrorTypePermission
		out.Message = "Insufficient permissions. Your token may not have the required scopes" + scopeHint(resource)

	case http.StatusNotFound:
		out.Type = ErrorTypeNotFound
		out.Message = "Resource not found"
		for _, m := range notFoundMessages {
			if strings.Contains(resource, m.keyword) {
				out.Message = m.message
				break
			}
		}

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		out.Type = ErrorTypeNetwork
		out.Message = "GitHub API is temporarily unavailable. Please try again later"
		out.Retryable = true

	default:
		out.Type = ErrorTypeUnknown
		out.Message = ghErr.Message
		out.Retryable = ghErr.Response.StatusCode >= 500
	}

	return out
}

// scopeHint names the token scope a 403 on the given resource usually
// means is missing.
func scopeHint(resource string) string {
	switch {
	case strings.Contains(resource, "organization"),
		strings.Contains(resource, "team"),
		strings.Contains(resource, "member"):
		return ". Required scope: read:org"
	case strings.Contains(resource, "repositor"),
		strings.Contains(resource, "collaborator"):
		return ". Required scope: repo"
	}
	return ""
}

// isNetworkError matches transport failures by their error text, since
// the net package wraps them in several layers of concrete types.
func isNetworkError(err error) bool {
	text := strings.ToLower(err.Error())
	for _, signature := range []string{
		"dial tcp",
		"connection refused",
		"connection reset",
		"connection timeout",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"timeout",
	} {
		if strings.Contains(text, signature) {
			return true
		}
	}
	return false
}

func isRetryableErrorType(errorType ErrorType) bool {
	return errorType == ErrorTypeRateLimit || errorType == ErrorTypeNetwork
}

// RetryConfig tunes WithRetry.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the retry defaults: three attempts beyond
// the first, backing off from one second.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryableOperation is retried by WithRetry until it succeeds or the
// attempts run out.
type RetryableOperation func() error

// WithRetry runs the operation with exponential backoff. Only
// FetchErrors marked retryable are retried; anything else fails on the
// first attempt. A rate limit error with a near reset time waits the
// reset out instead of backing off blindly.
func WithRetry(operation RetryableOperation, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay = minDuration(time.Duration(float64(delay)*config.BackoffFactor), config.MaxDelay)
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		fErr, ok := err.(*FetchError)
		if !ok || !fErr.IsRetryable() {
			return err
		}

		if fErr.Type == ErrorTypeRateLimit && waitedForReset(fErr) {
			continue
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", config.MaxRetries, lastErr)
}

// waitedForReset sleeps until the rate limit reset carried by the error,
// if it is close enough to be worth waiting for.
func waitedForReset(fErr *FetchError) bool {
	rlErr, ok := fErr.Cause.(*github.RateLimitError)
	if !ok {
		return false
	}
	wait := time.Until(rlErr.Rate.Reset.Time)
	if wait <= 0 || wait >= 5*time.Minute {
		return false
	}
	time.Sleep(wait)
	return true
}
