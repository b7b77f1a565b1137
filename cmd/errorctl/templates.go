package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kursadbilgin/faultline/internal/domain"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const (
	templatesTimeout = 10 * time.Second
	bodyPreviewLen   = 60
)

func newTemplatesCmd(cfg cliConfig, openLoader templateLoaderFactory) *cobra.Command {
	var (
		dsn        string
		showBody   bool
		usableOnly bool
	)

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List stored notification templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := contextWithTimeout(cmd, templatesTimeout)
			defer cancel()

			loader, release, err := openLoader(ctx, dsn)
			if err != nil {
				return err
			}
			if release != nil {
				defer release()
			}

			templates, err := loader.LoadAllTemplates(ctx)
			if err != nil {
				return fmt.Errorf("failed to load templates: %w", err)
			}
			if usableOnly {
				templates = lo.Filter(templates, func(t domain.Template, _ int) bool { return t.Usable() })
			}
			sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSABLE\tBODY")
			for _, t := range templates {
				body := t.Body
				if !showBody {
					body = preview(body)
				}
				fmt.Fprintf(w, "%s\t%t\t%s\n", t.ID, t.Usable(), body)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", cfg.DatabaseDSN, "Postgres DSN")
	cmd.Flags().BoolVar(&showBody, "body", false, "Print full template bodies")
	cmd.Flags().BoolVar(&usableOnly, "usable", false, "Only list templates the notifier can use")

	return cmd
}

// preview flattens whitespace so a body stays on one table row.
func preview(body string) string {
	runes := []rune(strings.Join(strings.Fields(body), " "))
	if len(runes) <= bodyPreviewLen {
		return string(runes)
	}
	return string(runes[:bodyPreviewLen]) + "..."
}

func contextWithTimeout(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
