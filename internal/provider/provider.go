package provider

import (
	"context"
)

// Mailer is the outbound mail port.
type Mailer interface {
	Send(ctx context.Context, subject string, body string, recipient string) error
}

// ParamReader reads a named runtime parameter from storage.
type ParamReader interface {
	ReadConfigParam(ctx context.Context, name string) (string, bool, error)
}
