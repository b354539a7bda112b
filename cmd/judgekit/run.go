package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/modelrank/judgekit/infrastructure/middleware"
	"github.com/modelrank/judgekit/internal/application"
)

func newRunCmd() *cobra.Command {
	var (
		flagConfig  string
		flagVerbose bool
		flagMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Judge every input example with each configured model",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := application.LoadConfig(flagConfig)
			if err != nil {
				return err
			}

			level := zerolog.InfoLevel
			if flagVerbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
				Level(level).
				With().Timestamp().Logger()

			opts := []application.RunnerOption{application.WithLogger(logger)}
			if flagMetrics {
				opts = append(opts, application.WithMetrics(middleware.NewPrometheusMetrics()))
			}

			stats, err := application.NewRunner(config, opts...).Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("judged %d records (%d skipped) from %d examples in %s\n",
				stats.Judged, stats.Skipped, stats.Examples, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagConfig, "config", "c", "judgekit.yaml", "run configuration file")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVar(&flagMetrics, "metrics", false, "register Prometheus metrics for the run")
	return cmd
}
