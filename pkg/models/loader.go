package models

import (
	"context"

	"github.com/taigrr/canteen/pkg/scene"
)

// Future is the pending result of an asynchronous load.
type Future struct {
	Path string

	done chan struct{}
	root *scene.Node
	err  error
}

// LoadAsync starts decoding path on its own goroutine and returns at once.
// A context cancelled before decoding finishes fails the load with ctx.Err().
func (l *GLTFLoader) LoadAsync(ctx context.Context, path string) *Future {
	f := &Future{Path: path, done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.root, f.err = l.load(ctx, path)
		if f.err == nil && ctx.Err() != nil {
			f.root, f.err = nil, ctx.Err()
		}
	}()
	return f
}

// Done is closed once the load has finished, successfully or not.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the load finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (*scene.Node, error) {
	select {
	case <-f.done:
		return f.root, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome of a finished load. It must only be called
// after Done is closed.
func (f *Future) Result() (*scene.Node, error) {
	return f.root, f.err
}
