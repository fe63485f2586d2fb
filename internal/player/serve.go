// ABOUTME: Runs the controller together with the hardware context and front ends
// ABOUTME: The first to return cancels the rest
package player

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Runner is a goroutine that runs until its context is done
type Runner func(ctx context.Context) error

// Serve runs the controller's main loop alongside runners such as the hardware context.
// When the main loop returns, the runners are cancelled and awaited.
func Serve(ctx context.Context, c *Controller, runners ...Runner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return c.Run(gctx)
	})

	for _, run := range runners {
		g.Go(func() error {
			return run(gctx)
		})
	}

	return g.Wait()
}
