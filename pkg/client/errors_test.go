package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "client error should not retry", errorClass: ErrorClassClient, expected: false},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "network error should retry", errorClass: ErrorClassNetwork, expected: true},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{status: 207, want: ""},
		{status: 400, want: ErrorClassClient},
		{status: 404, want: ErrorClassClient},
		{status: 405, want: ErrorClassClient},
		{status: 429, want: ErrorClassRateLimit},
		{status: 500, want: ErrorClassServer},
		{status: 502, want: ErrorClassServer},
		{status: 503, want: ErrorClassRateLimit},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	reqErr := &RequestError{StatusCode: 500, ErrorClass: ErrorClassServer}

	if got := classifyError(reqErr); got != ErrorClassServer {
		t.Errorf("classifyError(RequestError) = %q, want server", got)
	}
	if got := classifyError(fmt.Errorf("wrapped: %w", reqErr)); got != ErrorClassServer {
		t.Errorf("classifyError(wrapped) = %q, want server", got)
	}
	if got := classifyError(errors.New("connection refused")); got != ErrorClassNetwork {
		t.Errorf("classifyError(plain) = %q, want network", got)
	}
}

func TestRequestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RequestError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &RequestError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "internal server error",
				Err:        errors.New("connection refused"),
			},
			expected: "dav server error (status 500): internal server error: connection refused",
		},
		{
			name: "error without wrapped error",
			err: &RequestError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "not found",
			},
			expected: "dav client error (status 404): not found",
		},
		{
			name: "rate limit error",
			err: &RequestError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Message:    "too many requests",
			},
			expected: "dav rate_limit error (status 429): too many requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.err.Error(); result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestRequestError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	reqErr := &RequestError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	if unwrapped := reqErr.Unwrap(); unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}
	if !errors.Is(reqErr, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}
	if (&RequestError{}).Unwrap() != nil {
		t.Error("Unwrap() of bare error should be nil")
	}
}
