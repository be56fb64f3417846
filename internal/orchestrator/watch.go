package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Watch re-evaluates the gate whenever review artifacts under reviewsDir
// change. Re-runs are rate limited so a burst of analyzer writes triggers a
// single evaluation. Watch returns when the gate escalates, when the watcher
// fails, or when ctx is cancelled.
//
// Refine outcomes do not stop the watch: dispatching the plan is the caller's
// job, and the next artifact change re-runs the gate.
func (o *Orchestrator) Watch(ctx context.Context, featureID, reviewsDir string, limit rate.Limit) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(reviewsDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", reviewsDir, err)
	}

	if limit <= 0 {
		limit = rate.Every(2 * time.Second)
	}
	limiter := rate.NewLimiter(limit, 1)

	o.logger.Info("watching review artifacts",
		zap.String("feature", featureID),
		zap.String("dir", reviewsDir),
	)

	// Evaluate once up front so a store already containing findings is not
	// silently ignored until the next write.
	if stop, err := o.evaluateOnce(ctx, featureID, reviewsDir); err != nil || stop {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isReviewEvent(event) {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			drainEvents(watcher)

			if stop, err := o.evaluateOnce(ctx, featureID, reviewsDir); err != nil || stop {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (o *Orchestrator) evaluateOnce(ctx context.Context, featureID, reviewsDir string) (stop bool, err error) {
	paths, err := ListReviewArtifacts(reviewsDir)
	if err != nil {
		return true, err
	}

	res, err := o.Run(ctx, featureID, paths)
	if err != nil {
		return true, err
	}
	if res.Signal == ExitEscalationNeeded {
		o.logger.Warn("escalation reached, stopping watch", zap.String("feature", featureID))
		return true, nil
	}
	return false, nil
}

func isReviewEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	switch strings.ToLower(filepath.Ext(event.Name)) {
	case ".md", ".txt":
		return true
	}
	return false
}

// drainEvents discards events queued during the rate-limited wait so one
// analyzer burst maps to one evaluation.
func drainEvents(watcher *fsnotify.Watcher) {
	for {
		select {
		case <-watcher.Events:
		default:
			return
		}
	}
}
