package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kursadbilgin/faultline/internal/domain"
)

// ProviderError is a failed mail hand-off. It always matches domain.ErrMail,
// so callers can classify it without the coordinator's StageError wrapper.
type ProviderError struct {
	Recipient  string
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

// requestFailed wraps a transport error from the gateway call. Only a
// canceled context is permanent.
func requestFailed(recipient string, err error) *ProviderError {
	return &ProviderError{
		Recipient: recipient,
		Message:   "mail gateway request failed",
		Transient: !errors.Is(err, context.Canceled),
		Cause:     err,
	}
}

// rejected classifies a non-2xx gateway answer: 429 and 5xx may pass later.
func rejected(recipient string, statusCode int, body string) *ProviderError {
	message := fmt.Sprintf("mail gateway returned status %d", statusCode)
	if body = strings.TrimSpace(body); body != "" {
		message += ": " + body
	}

	return &ProviderError{
		Recipient:  recipient,
		StatusCode: statusCode,
		Message:    message,
		Transient:  statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599),
	}
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	if to := strings.TrimSpace(e.Recipient); to != "" {
		parts = append(parts, "mail to "+to+" failed")
	} else {
		parts = append(parts, "mail failed")
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return []error{domain.ErrMail}
	}
	return []error{domain.ErrMail, e.Cause}
}

// IsTransient reports whether a later mail attempt could succeed. Validation
// failures never are.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, domain.ErrValidation) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
