package shutdown

import (
	"context"
	"errors"
	"runtime/debug"

	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/logger"
)

// Recover turns an uncaught panic into a shutdown trigger. Use it deferred at
// the top of main and of every goroutine you own:
//
//	defer coord.Recover()
//
// After a panic it blocks until the shutdown sequence finishes, so the
// goroutine (or main) does not return before the cleanup had its chance.
func (c *Coordinator) Recover() {
	r := recover()
	if r == nil {
		return
	}
	c.Trigger(Trigger{Source: SourcePanic, Err: apperrors.Panic(r, debug.Stack())})
	<-c.done
}

// Go runs fn in a new goroutine with Context as its context. A panic in fn is
// an uncaught error; a returned error is an unhandled failure and is handled
// according to the rejection policy. Errors caused by Context being
// cancelled during shutdown are ignored.
func (c *Coordinator) Go(fn func(ctx context.Context) error) {
	go func() {
		defer c.Recover()
		if err := fn(c.runCtx); err != nil {
			if c.runCtx.Err() != nil && errors.Is(err, context.Canceled) {
				return
			}
			c.Unhandled(err)
		}
	}()
}

// Unhandled reports a failure from detached work that nobody is waiting on.
func (c *Coordinator) Unhandled(err error) {
	if err == nil {
		return
	}
	if c.opts.policy == PolicyCrash {
		c.log.Error("Unhandled failure, crashing", logger.Fields(logger.FieldError, err.Error()))
		c.raise(err)
		return
	}
	c.Trigger(Trigger{Source: SourceUnhandled, Err: apperrors.UnhandledFailure(err)})
}

// reraise panics on a fresh goroutine where no deferred Recover can catch it.
func reraise(err error) {
	go func() {
		panic(err)
	}()
}
