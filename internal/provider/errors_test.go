package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/kursadbilgin/faultline/internal/domain"
)

func TestProviderErrorMatchesMailKind(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
	}{
		{name: "request failed", err: requestFailed("ops@x.com", cause)},
		{name: "rejected", err: rejected("ops@x.com", http.StatusBadGateway, "upstream down")},
		{name: "wrapped", err: fmt.Errorf("send: %w", &ProviderError{Message: "no endpoint"})},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !errors.Is(tt.err, domain.ErrMail) {
				t.Fatalf("errors.Is(%v, ErrMail) = false", tt.err)
			}
			if errors.Is(tt.err, domain.ErrStorage) {
				t.Fatalf("errors.Is(%v, ErrStorage) = true", tt.err)
			}
		})
	}

	if !errors.Is(requestFailed("ops@x.com", cause), cause) {
		t.Fatal("cause must stay reachable through errors.Is")
	}
}

func TestProviderErrorMessage(t *testing.T) {
	t.Parallel()

	err := rejected(" ops@x.com ", http.StatusTooManyRequests, "  slow down\n")
	if got := err.Error(); !strings.HasPrefix(got, "mail to ops@x.com failed: mail gateway returned status 429: slow down") {
		t.Fatalf("Error() = %q", got)
	}
	if !err.Transient {
		t.Fatal("429 must be transient")
	}

	anonymous := &ProviderError{Message: "mail gateway endpoint is not configured"}
	if got := anonymous.Error(); got != "mail failed: mail gateway endpoint is not configured" {
		t.Fatalf("Error() = %q", got)
	}

	var nilErr *ProviderError
	if nilErr.Error() != "<nil>" || nilErr.Unwrap() != nil {
		t.Fatal("nil ProviderError must be safe")
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: true},
		{name: "canceled request", err: requestFailed("a@x.com", context.Canceled), want: false},
		{name: "network failure", err: requestFailed("a@x.com", errors.New("dial tcp: refused")), want: true},
		{name: "server error", err: rejected("a@x.com", http.StatusServiceUnavailable, ""), want: true},
		{name: "client error", err: rejected("a@x.com", http.StatusUnprocessableEntity, ""), want: false},
		{name: "validation", err: fmt.Errorf("%w: recipient is required", domain.ErrValidation), want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
