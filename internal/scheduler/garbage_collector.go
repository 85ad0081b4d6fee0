package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scalapatisserie/muffin-site/internal/logger"
	redisstore "github.com/scalapatisserie/muffin-site/internal/store/redis"
)

const (
	// DefaultGCThreshold is the age after which superseded builds are deleted
	DefaultGCThreshold = 7 * 24 * time.Hour
)

// BuildPruner lists and deletes cached builds.
type BuildPruner interface {
	CurrentID(ctx context.Context) (string, error)
	ListBuilds(ctx context.Context) ([]redisstore.BuildRef, error)
	DeleteBuild(ctx context.Context, id string) error
}

// GarbageCollector removes superseded builds from the cache
type GarbageCollector struct {
	store     BuildPruner
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	stopCh    chan struct{}
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	store BuildPruner,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *GarbageCollector {
	if threshold == 0 {
		threshold = DefaultGCThreshold
	}

	return &GarbageCollector{
		store:     store,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if gc.interval <= 0 {
		return fmt.Errorf("invalid garbage collection interval %s", gc.interval)
	}

	// Run immediately on start
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	// Start periodic collection
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect deletes every build that is not current and finished longer than
// the threshold ago. It returns the number of builds deleted.
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	gc.logger.Debug("running garbage collection for cached builds")

	current, err := gc.store.CurrentID(ctx)
	if err != nil && !errors.Is(err, redisstore.ErrNoBuild) {
		return 0, fmt.Errorf("failed to get current build: %w", err)
	}

	builds, err := gc.store.ListBuilds(ctx)
	if err != nil {
		return 0, err
	}

	now := gc.now()
	deleted := 0
	for _, b := range builds {
		if b.ID == current {
			continue
		}
		age := now.Sub(b.FinishedAt)
		if age < gc.threshold {
			continue
		}

		if err := gc.store.DeleteBuild(ctx, b.ID); err != nil {
			gc.logger.Warn("failed to delete build from redis",
				logger.String("build_id", b.ID),
				logger.Error(err))
			continue
		}

		gc.logger.Info("garbage collected build",
			logger.String("build_id", b.ID),
			logger.String("age", age.String()))
		deleted++
	}

	if deleted > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("builds_deleted", deleted))
	} else {
		gc.logger.Debug("no builds to garbage collect")
	}

	return deleted, nil
}
