package eredis

import (
	"context"
	"errors"
	"sync"
)

var errPreviouslyClosed = errors.New("previously closed")

// proc implements a lightweight pattern for setting up and tearing down
// go-routines cleanly and consistently. Every driver goroutine (command
// client, subscription client) is owned by one proc.
type proc struct {
	ctx         context.Context
	ctxCancelFn context.CancelFunc
	ctxDoneCh   <-chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newProc() proc {
	ctx, cancel := context.WithCancel(context.Background())
	return proc{
		ctx:         ctx,
		ctxCancelFn: cancel,
		ctxDoneCh:   ctx.Done(),
	}
}

func (p *proc) run(fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		fn(p.ctx)
		p.wg.Done()
	}()
}

func (p *proc) close(fn func() error) error {
	return p.prefixedClose(func() error { return nil }, fn)
}

func (p *proc) prefixedClose(prefixFn, fn func() error) error {
	err := errPreviouslyClosed
	p.closeOnce.Do(func() {
		err = prefixFn()
		p.ctxCancelFn()
		p.wg.Wait()
		if fn != nil {
			if fnErr := fn(); err == nil {
				err = fnErr
			}
		}
	})
	return err
}

func (p *proc) closedCh() <-chan struct{} {
	return p.ctxDoneCh
}

