package eredis

// semaphore is a counting semaphore used by the subscription client to
// track free slots in its bounded push-message queue: acquiring a slot
// when a message is admitted, releasing it when the consumer acks and the
// message is delivered.
type semaphore struct {
	ch chan struct{}
}

func newSemaphore(size int) semaphore {
	sema := semaphore{ch: make(chan struct{}, size)}
	for i := 0; i < cap(sema.ch); i++ {
		sema.ch <- struct{}{}
	}
	return sema
}

// tryAcquire acquires a slot without blocking, returning false if none are
// free. This is how the bounded queue detects overflow: admission is
// refused rather than the producer blocking, since the producer here is
// the single driver goroutine reading off the socket and must never stall.
func (s semaphore) tryAcquire() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

func (s semaphore) release() {
	select {
	case s.ch <- struct{}{}:
	default:
		panic("release called on full semaphore")
	}
}
