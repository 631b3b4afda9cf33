// Package executor provides the single serialized context a host runs its state
// mutations and outbound sends on.
package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"vmanager/internal/logging"
)

var ErrStopped = errors.New("executor stopped")

// Executor runs submitted functions one at a time, in submission order.
type Executor struct {
	inbox  chan func()
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func New(parent context.Context, size int) *Executor {
	if size <= 0 {
		size = 64
	}
	ctx, cancel := context.WithCancel(parent)
	e := &Executor{
		inbox:  make(chan func(), size),
		ctx:    ctx,
		cancel: cancel,
		log:    logging.Component("executor"),
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

func (e *Executor) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case fn := <-e.inbox:
			e.run(fn)
		}
	}
}

func (e *Executor) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("task panicked")
		}
	}()
	fn()
}

// Submit queues fn. It blocks while the inbox is full and fails once the executor stops.
func (e *Executor) Submit(fn func()) error {
	select {
	case <-e.ctx.Done():
		return ErrStopped
	default:
	}
	select {
	case e.inbox <- fn:
		return nil
	case <-e.ctx.Done():
		return ErrStopped
	}
}

// Do runs fn on the executor and waits for it to finish.
func (e *Executor) Do(fn func()) error {
	done := make(chan struct{})
	if err := e.Submit(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-e.ctx.Done():
		return ErrStopped
	}
}

// Stop ends the loop. Tasks still queued are discarded.
func (e *Executor) Stop() {
	e.cancel()
	e.wg.Wait()
}
