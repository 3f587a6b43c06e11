package survey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staywatch/staywatch/internal/fetch"
)

// Config controls Runner behavior.
type Config struct {
	BlobPrefix  string
	ContentType string
	Topic       string
}

// Runner executes one survey: fetch each target, hash and store the body,
// record the page, announce completion.
type Runner struct {
	fetcher   Fetcher
	blobStore BlobStore
	pageStore PageStore
	publisher Publisher
	hasher    Hasher
	clock     Clock
	limiter   HostLimiter
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner. The page store, publisher, and limiter may be
// nil; the corresponding steps are skipped.
func New(
	fetcher Fetcher,
	blobStore BlobStore,
	pageStore PageStore,
	publisher Publisher,
	hasher Hasher,
	clock Clock,
	limiter HostLimiter,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	return &Runner{
		fetcher:   fetcher,
		blobStore: blobStore,
		pageStore: pageStore,
		publisher: publisher,
		hasher:    hasher,
		clock:     clock,
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes targets sequentially and returns the tally. Cancellation
// aborts between targets and propagates; a target that exhausts its fetch
// attempts is counted as skipped and the survey moves on.
func (r *Runner) Run(ctx context.Context, targets []Target) (Result, error) {
	result := Result{SurveyID: uuid.NewString()}
	r.logger.Info("survey started",
		zap.String("survey_id", result.SurveyID),
		zap.Int("targets", len(targets)),
	)

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx, target.URL); err != nil {
				return result, err
			}
		}

		resp, err := r.fetcher.Fetch(ctx, target.URL, target.Params)
		if err != nil {
			return result, err
		}
		if resp == nil {
			result.Skipped++
			r.logger.Warn("target exhausted all attempts",
				zap.String("survey_id", result.SurveyID),
				zap.String("url", target.URL),
			)
			continue
		}

		if err := r.persistAndPublish(ctx, result.SurveyID, resp); err != nil {
			result.Failed++
			r.logger.Error("persist page failed",
				zap.String("survey_id", result.SurveyID),
				zap.String("url", target.URL),
				zap.Error(err),
			)
			continue
		}
		result.Fetched++
	}

	r.logger.Info("survey finished",
		zap.String("survey_id", result.SurveyID),
		zap.Int("fetched", result.Fetched),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (r *Runner) persistAndPublish(ctx context.Context, surveyID string, resp *fetch.Response) error {
	hash, err := r.hasher.Hash(resp.Body)
	if err != nil {
		return fmt.Errorf("hash body: %w", err)
	}

	uri, err := r.blobStore.PutObject(ctx, r.blobPath(surveyID, hash), r.cfg.ContentType, resp.Body)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	if r.pageStore != nil {
		record := PageRecord{
			ID:          uuid.NewString(),
			SurveyID:    surveyID,
			URL:         resp.URL,
			StatusCode:  resp.StatusCode,
			FetchedAt:   r.clock.Now(),
			DurationMs:  resp.Duration.Milliseconds(),
			ContentHash: hash,
			Headers:     resp.Headers,
			BlobURI:     uri,
		}
		if err := r.pageStore.StorePage(ctx, record); err != nil {
			return fmt.Errorf("store page: %w", err)
		}
	}

	if r.publisher == nil || r.cfg.Topic == "" {
		return nil
	}
	payload := map[string]any{
		"survey_id": surveyID,
		"url":       resp.URL,
		"blob_uri":  uri,
		"hash":      hash,
		"status":    resp.StatusCode,
		"timestamp": r.clock.Now().Format(time.RFC3339),
	}
	if _, err := r.publisher.Publish(ctx, r.cfg.Topic, payload); err != nil {
		return fmt.Errorf("publish payload: %w", err)
	}
	return nil
}

func (r *Runner) blobPath(surveyID, hash string) string {
	prefix := strings.Trim(r.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", surveyID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, surveyID, hash)
}
