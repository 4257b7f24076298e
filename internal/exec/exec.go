// Package exec offloads blocking work (DB calls, file I/O, mail sends) off
// request goroutines onto a bounded pool, surfacing saturation and panics as
// a single apperror.KindBlocking failure the way the rest of the core
// surfaces failures from other components.
package exec

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lumicast/core/internal/apperror"
)

// Pool runs blocking thunks with bounded concurrency.
type Pool struct {
	sem chan struct{}
}

// New builds a Pool that admits at most size concurrent blocking calls.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Run executes fn on the pool, blocking the caller until it completes,
// ctx is cancelled, or the pool has no free slot for ctx's remaining
// lifetime. A panic inside fn is recovered and reported as a Blocking error
// rather than crashing the request goroutine.
func (p *Pool) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return apperror.New(apperror.KindBlocking, apperror.CodeBlockingExecutorFailure, ctx.Err().Error())
	}
	defer func() { <-p.sem }()

	var g errgroup.Group
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = apperror.New(apperror.KindBlocking, apperror.CodeBlockingExecutorFailure, fmt.Sprintf("panic: %v", r))
			}
		}()
		return fn(ctx)
	})

	if err := g.Wait(); err != nil {
		var appErr *apperror.Error
		if ok := asAppError(err, &appErr); ok {
			return appErr
		}
		return apperror.New(apperror.KindBlocking, apperror.CodeBlockingExecutorFailure, err.Error())
	}
	return nil
}

func asAppError(err error, target **apperror.Error) bool {
	appErr, ok := err.(*apperror.Error)
	if ok {
		*target = appErr
	}
	return ok
}
