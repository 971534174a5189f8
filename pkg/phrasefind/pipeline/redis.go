package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cognicore/phrasefind/pkg/phrasefind/matcher"
)

// ReloadConfig configures the matcher daemon's hot-reload subscription
// (SPEC_FULL §4.4, "Hot reload over Redis").
type ReloadConfig struct {
	Addr    string
	Channel string
}

// PublishReload notifies subscribers on cfg.Channel that a new artifact
// directory is ready. It is called by the builder CLI after a successful
// atomic rename (SPEC_FULL §4.4, "a publisher... can publish the new
// artifact directory"). A publish failure is soft: reload still works via
// the daemon's manual trigger, per SPEC_FULL §7's "Redis unavailable at
// reload-subscribe time is a soft/logged condition, not fatal".
func PublishReload(ctx context.Context, cfg ReloadConfig, artifactDir string) error {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	if err := rdb.Publish(ctx, cfg.Channel, artifactDir).Err(); err != nil {
		return fmt.Errorf("publish reload notification: %w", err)
	}
	return nil
}

// SubscribeReload subscribes to cfg.Channel and calls h.Load with every
// published artifact directory path until ctx is cancelled. A subscribe
// failure at startup is returned to the caller, who is expected to log it
// and continue running with manual-reload-only per SPEC_FULL §7 — hot
// reload is additive, never required for the daemon to serve matches.
func SubscribeReload(ctx context.Context, cfg ReloadConfig, h *matcher.Handle) error {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sub := rdb.Subscribe(ctx, cfg.Channel)
	logger := slog.Default().With("component", "reload-subscriber", "channel", cfg.Channel)

	go func() {
		defer rdb.Close()
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				logger.Info("reload notification received", "artifact_dir", msg.Payload)
				if err := h.Load(msg.Payload); err != nil {
					logger.Error("reload failed", "artifact_dir", msg.Payload, "error", err)
				}
			}
		}
	}()

	return nil
}
