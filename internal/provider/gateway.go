package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/faultline/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultGatewayTimeout = 10 * time.Second
	contentTypeHTML       = "text/html"
)

type mailRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	ContentType string `json:"contentType"`
}

type GatewayConfig struct {
	// EndpointParam names the stored parameter holding the gateway URL.
	EndpointParam string
	// FallbackURL is used when the parameter is absent or unreadable.
	FallbackURL string
	From        string
}

// HTTPMailGateway posts mail to an HTTP mail gateway. The endpoint is looked
// up on every send so operators can repoint it without a restart.
type HTTPMailGateway struct {
	client *resty.Client
	params ParamReader
	cfg    GatewayConfig
	logger *zap.Logger
}

func NewHTTPMailGateway(params ParamReader, cfg GatewayConfig, logger *zap.Logger) (*HTTPMailGateway, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewHTTPMailGatewayWithClient(params, cfg, client, logger)
}

func NewHTTPMailGatewayWithClient(params ParamReader, cfg GatewayConfig, client *resty.Client, logger *zap.Logger) (*HTTPMailGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	cfg.EndpointParam = strings.TrimSpace(cfg.EndpointParam)
	cfg.FallbackURL = strings.TrimSpace(cfg.FallbackURL)
	if params == nil && cfg.FallbackURL == "" {
		return nil, fmt.Errorf("mail gateway endpoint is required")
	}
	if cfg.FallbackURL != "" {
		if _, err := url.ParseRequestURI(cfg.FallbackURL); err != nil {
			return nil, fmt.Errorf("invalid mail gateway url: %w", err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPMailGateway{
		client: client,
		params: params,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (g *HTTPMailGateway) Send(ctx context.Context, subject string, body string, recipient string) error {
	if g == nil || g.client == nil {
		return fmt.Errorf("mail gateway is not initialized")
	}
	if domain.IsSentinel(recipient) {
		return fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}

	recipient = strings.TrimSpace(recipient)
	endpoint, endpointErr := g.endpoint(ctx)
	if endpointErr != nil {
		endpointErr.Recipient = recipient
		return endpointErr
	}

	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(mailRequest{
			From:        g.cfg.From,
			To:          recipient,
			Subject:     subject,
			Body:        body,
			ContentType: contentTypeHTML,
		}).
		Post(endpoint)
	if err != nil {
		return requestFailed(recipient, err)
	}
	if response == nil {
		return &ProviderError{
			Recipient: recipient,
			Message:   "mail gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		g.logger.Debug("mail accepted by gateway",
			zap.Int("statusCode", statusCode),
			zap.String("messageId", gatewayMessageID(response)),
		)
		return nil
	}

	return rejected(recipient, statusCode, response.String())
}

func (g *HTTPMailGateway) endpoint(ctx context.Context) (string, *ProviderError) {
	if g.params != nil && g.cfg.EndpointParam != "" {
		value, ok, err := g.params.ReadConfigParam(ctx, g.cfg.EndpointParam)
		switch {
		case err != nil:
			g.logger.Warn("failed to read mail endpoint parameter, using fallback",
				zap.String("stage", domain.StageReadParam.String()),
				zap.String("param", g.cfg.EndpointParam),
				zap.Error(err),
			)
		case ok:
			return strings.TrimSpace(value), nil
		}
	}

	if g.cfg.FallbackURL == "" {
		return "", &ProviderError{Message: "mail gateway endpoint is not configured"}
	}
	return g.cfg.FallbackURL, nil
}

func gatewayMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Request-ID", "X-Correlation-ID"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
