package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	gcpstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/staywatch/staywatch/internal/clock/system"
	"github.com/staywatch/staywatch/internal/config"
	"github.com/staywatch/staywatch/internal/hash/sha256"
	pubsubpublisher "github.com/staywatch/staywatch/internal/publisher/pubsub"
	"github.com/staywatch/staywatch/internal/ratelimit"
	"github.com/staywatch/staywatch/internal/storage/gcs"
	"github.com/staywatch/staywatch/internal/storage/local"
	"github.com/staywatch/staywatch/internal/storage/memory"
	"github.com/staywatch/staywatch/internal/storage/postgres"
	"github.com/staywatch/staywatch/internal/survey"
)

// newSurveyCmd creates the 'survey' subcommand, which walks the configured
// targets sequentially and persists each fetched page.
func newSurveyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "survey",
		Short: "Runs one survey over the configured targets",
		Long: `Fetches every target from the configuration in order, pacing requests
per host, storing each page body in the configured blob store, recording
page metadata in Postgres when a DSN is set, and publishing a completion
event per page when a Pub/Sub topic is configured.`,
		RunE: runSurveyCommand,
	}
}

func runSurveyCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	if len(cfg.Survey.Targets) == 0 {
		return fmt.Errorf("no survey targets configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, cleanup, err := buildRunner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	targets := make([]survey.Target, 0, len(cfg.Survey.Targets))
	for _, t := range cfg.Survey.Targets {
		targets = append(targets, survey.Target{URL: t.URL, Params: t.Params})
	}

	result, err := runner.Run(ctx, targets)
	if err != nil {
		return fmt.Errorf("run survey: %w", err)
	}
	logger.Info("survey complete",
		zap.String("survey_id", result.SurveyID),
		zap.Int("fetched", result.Fetched),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return nil
}

func buildRunner(ctx context.Context, cfg config.Config, logger *zap.Logger) (*survey.Runner, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	blobStore, blobClose, err := buildBlobStore(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	if blobClose != nil {
		closers = append(closers, blobClose)
	}

	var pageStore survey.PageStore
	if cfg.DB.DSN != "" {
		store, err := postgres.NewPageStore(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init page store: %w", err)
		}
		closers = append(closers, store.Close)
		pageStore = store
	}

	var publisher survey.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicID != "" {
		client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init pubsub client: %w", err)
		}
		closers = append(closers, func() {
			if cerr := client.Close(); cerr != nil {
				logger.Warn("close pubsub client failed", zap.Error(cerr))
			}
		})
		publisher = pubsubpublisher.New(client.Publisher(cfg.PubSub.TopicID))
	}

	runner := survey.New(
		buildClient(cfg, logger),
		blobStore,
		pageStore,
		publisher,
		sha256.New(),
		system.New(),
		ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Survey.HostRPS,
			DefaultBurst: cfg.Survey.HostBurst,
		}),
		survey.Config{
			BlobPrefix:  cfg.Survey.BlobPrefix,
			ContentType: cfg.Survey.ContentType,
			Topic:       cfg.Survey.Topic,
		},
		logger,
	)
	return runner, cleanup, nil
}

func buildBlobStore(ctx context.Context, cfg config.StorageConfig) (survey.BlobStore, func(), error) {
	switch cfg.Provider {
	case "memory":
		return memory.New(), nil, nil
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local blob store: %w", err)
		}
		return store, nil, nil
	case "gcs":
		client, err := gcpstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("init gcs blob store: %w", err)
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
