package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newFetchCmd creates the 'fetch' subcommand: a one-shot fetch of a single
// URL, printing the body to stdout.
func newFetchCmd() *cobra.Command {
	var params map[string]string

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetches a single URL with full retry semantics",
		Long: `Performs one resilient fetch of the given URL: politeness delays,
user-agent and proxy rotation, and soft-block backoff, retrying up to the
configured number of attempts. The body is written to stdout on success.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := buildClient(cfg, logger)
			resp, err := client.Fetch(ctx, args[0], params)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", args[0], err)
			}
			if resp == nil {
				logger.Warn("all attempts exhausted", zap.String("url", args[0]))
				return fmt.Errorf("fetch %s: all %d attempts exhausted", args[0], cfg.Fetch.MaxAttempts)
			}

			logger.Info("fetch succeeded",
				zap.String("url", resp.URL),
				zap.Int("status", resp.StatusCode),
				zap.Duration("duration", resp.Duration),
			)
			if _, err := os.Stdout.Write(resp.Body); err != nil {
				return fmt.Errorf("write body: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&params, "param", nil, "query parameter as key=value (repeatable)")

	return cmd
}
