package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/handler"

	"github.com/cardbox-bot/cardbox/cardbox/config"
	"github.com/cardbox-bot/cardbox/cardbox/logger"
	"github.com/cardbox-bot/cardbox/internal/metrics"
)

var ErrTimeout = errors.New("command timed out")

// Run executes fn with the shared timeout, logging and metrics. The timeout
// only stops the wait: fn keeps running and its result is dropped.
func Run(ctx context.Context, platform, name string, userID int64, fn func(ctx context.Context) error) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, config.CommandExecutionTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("%w after %s", ErrTimeout, config.CommandExecutionTimeout)
	}

	logger.LogCommand(platform, name, userID, time.Since(start), err)
	metrics.RecordCommand(platform, name, err)
	return err
}

// WrapWithLogging wraps a Discord command handler.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return Run(context.Background(), "discord", name, int64(e.User().ID), func(context.Context) error {
			return h(e)
		})
	}
}

// WrapComponentWithLogging wraps a Discord component handler.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return Run(context.Background(), "discord", name, int64(e.User().ID), func(context.Context) error {
			return h(e)
		})
	}
}
