package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/faultline/internal/domain"
	"github.com/kursadbilgin/faultline/internal/observability"
	"github.com/kursadbilgin/faultline/internal/queue"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

func newPublishCmd(cfg cliConfig, newPublisher publisherFactory, logger *zap.Logger) *cobra.Command {
	var (
		record        domain.ErrorRecord
		cause         string
		amqpURL       string
		queueName     string
		correlationID string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a failure event to the report queue",
		Long: `Publish one failure event to the report queue. The API worker picks it up,
persists it and sends the notification mail when --mail is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(queueName) == "" {
				return fmt.Errorf("queue name is required")
			}

			publisher, err := newPublisher(amqpURL)
			if err != nil {
				return err
			}

			if strings.TrimSpace(record.ErrorStack) == "" && strings.TrimSpace(cause) != "" {
				record.ErrorStack = domain.CaptureStack(pkgerrors.New(cause), observability.HostIdentifier(cfg.Host))
			}
			if strings.TrimSpace(record.ErrorDescription) == "" {
				record.ErrorDescription = cause
			}
			record.CreatedAt = time.Now().UTC()

			ctx, cancel := contextWithTimeout(cmd, publishTimeout)
			defer cancel()

			if err := publisher.Publish(ctx, queueName, queue.NewRecordMessage(record, correlationID)); err != nil {
				return fmt.Errorf("failed to publish to %q: %w", queueName, err)
			}

			logger.Debug("failure event published", zap.String("queue", queueName))
			fmt.Fprintf(cmd.OutOrStdout(), "published to %s\n", queueName)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&amqpURL, "amqp-url", cfg.RabbitMQURL, "RabbitMQ URL")
	flags.StringVar(&queueName, "queue", cfg.ReportQueue, "Target queue")
	flags.StringVar(&correlationID, "correlation-id", "", "Correlation id carried with the message")
	flags.StringVar(&record.RequestType, "request-type", "", "Request type")
	flags.StringVar(&record.Description, "description", "", "Short description")
	flags.StringVar(&record.OriginSystem, "origin-system", "", "Originating system")
	flags.StringVar(&record.SubSystem, "sub-system", "", "Originating sub-system")
	flags.StringVar(&record.QuoteID, "quote-id", "", "Business quote id")
	flags.StringVar(&record.ScenarioID, "scenario-id", "", "Business scenario id")
	flags.StringVar(&record.UserID, "user-id", "", "Acting user id")
	flags.StringVar(&record.Status, "status", "", "Caller status")
	flags.StringVar(&record.InputData, "input", "", "Request payload")
	flags.StringVar(&record.OutputData, "output", "", "Response payload")
	flags.StringVar(&record.ErrorDescription, "error-description", "", "Error description (defaults to --cause)")
	flags.StringVar(&record.ErrorStack, "error-stack", "", "Error stack text")
	flags.StringVar(&cause, "cause", "", "Error message; a stack is captured when --error-stack is empty")
	flags.BoolVar(&record.IsMailRequested, "mail", false, "Request a notification mail")
	flags.StringVar(&record.MailAddress, "mail-address", "", "Notification recipient")

	return cmd
}
