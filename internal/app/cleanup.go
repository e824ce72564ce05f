package app

import (
	"context"
	"log/slog"
	"time"
)

const unwindTimeout = 5 * time.Second

type cleanupStep struct {
	name string
	fn   func(context.Context) error
}

// cleanupStack releases what NewApp acquired before it failed, newest first.
type cleanupStack struct {
	steps []cleanupStep
}

func (c *cleanupStack) push(name string, fn func(context.Context) error) {
	c.steps = append(c.steps, cleanupStep{name: name, fn: fn})
}

func (c *cleanupStack) unwind(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), unwindTimeout)
	defer cancel()

	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.fn(ctx); err != nil {
			logger.Warn("cleanup failed",
				slog.String("resource", step.name),
				slog.String("error", err.Error()),
			)
		}
	}
	c.steps = nil
}
