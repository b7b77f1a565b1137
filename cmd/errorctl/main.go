package main

import (
	"fmt"
	"os"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/faultline/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliConfig carries the environment defaults; flags override them.
type cliConfig struct {
	DatabaseDSN string `env:"DATABASE_DSN"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	ReportQueue string `env:"REPORT_QUEUE,default=errors.report"`
	Host        string `env:"HOST_ID"`
	LogLevel    string `env:"LOG_LEVEL,default=warn"`
}

func main() {
	var cfg cliConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := newRootCmd(cfg, defaultBackends(logger), logger).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg cliConfig, backends backends, logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "errorctl",
		Short:         "Operator tooling for the faultline error pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newPublishCmd(cfg, backends.publisher, logger))
	root.AddCommand(newTemplatesCmd(cfg, backends.templates))

	return root
}
