package eredis

import (
	"context"
	"time"

	"github.com/Nordix/eredis/resp"
)

// Reply is what a caller receives for a single Request.
type Reply struct {
	Value resp.Value
	Err   error
}

// PipelineReply is what a caller receives for a Pipeline: either exactly
// len(N) Values in wire-arrival order, or an Err if the pipeline could not
// be completed (in which case Values is nil — no partial results leak to
// the caller).
type PipelineReply struct {
	Values []Reply
	Err    error
}

type pendingKind uint8

const (
	pendingSingle pendingKind = iota
	pendingPipeline
)

type pendingEntry struct {
	kind        pendingKind
	singleCh    chan Reply
	pipelineCh  chan PipelineReply
	remaining   int
	accumulated []Reply
}

type submitMsg struct {
	data       []byte
	count      int
	isPipeline bool
	singleCh   chan Reply
	pipelineCh chan PipelineReply
}

type transportErr struct {
	transport *Transport
	err       error
}

// Client is the command client (C6): a single-goroutine driver owning one
// socket, the parser's continuation state, and a strictly FIFO pending
// queue. Every field below this comment is touched only from the driver
// goroutine started by NewClient; callers interact exclusively through
// Request/Pipeline/Stop, which hand off over channels.
type Client struct {
	proc proc
	cfg  Config

	submitCh  chan submitMsg
	selfErrCh chan transportErr

	transport      *Transport
	connectedAt    time.Time
	pending        []pendingEntry
	parserState    resp.State
	reconnectTimer *time.Timer
}

// NewClient dials and hands off to a driver goroutine. The initial connect
// is synchronous: if it fails, NewClient returns the error and starts
// nothing. Subsequent disconnects are handled by the reconnect policy
// described on handleTransportError instead of surfacing here.
func NewClient(cfg Config) (*Client, error) {
	c := &Client{
		proc:      newProc(),
		cfg:       cfg,
		submitCh:  make(chan submitMsg),
		selfErrCh: make(chan transportErr, 4),
	}
	if err := c.bootstrapNow(); err != nil {
		return nil, err
	}
	c.proc.run(c.run)
	return c, nil
}

// bootstrapNow resolves (re-resolving via sentinel every time, never
// cached) and connects, replacing c.transport/c.connectedAt/c.parserState
// on success. Must only be called from the driver goroutine, except for
// the one call NewClient makes before the goroutine starts.
func (c *Client) bootstrapNow() error {
	res, err := Connect(c.cfg)
	if err != nil {
		return err
	}
	c.transport = res.transport
	c.connectedAt = res.connectedAt
	c.parserState = resp.State{}
	return nil
}

// Request submits one command's already-encoded bytes. The reply is
// delivered to from, which must be a channel with capacity for at least
// one value (buffered, or actively read by the caller) since the driver
// delivers by blocking send. A nil from makes this call a fire-and-forget
// no-op once submitted.
func (c *Client) Request(data []byte, from chan Reply) {
	select {
	case c.submitCh <- submitMsg{data: data, count: 1, isPipeline: false, singleCh: from}:
	case <-c.proc.closedCh():
		deliverReply(from, Reply{Err: ErrClosed.New("client stopped")})
	}
}

// Pipeline submits count commands' concatenated bytes as one write; the
// caller receives exactly one PipelineReply with count Values in
// wire-arrival order, or an Err with no Values.
func (c *Client) Pipeline(data []byte, count int, from chan PipelineReply) {
	select {
	case c.submitCh <- submitMsg{data: data, count: count, isPipeline: true, pipelineCh: from}:
	case <-c.proc.closedCh():
		deliverPipeline(from, PipelineReply{Err: ErrClosed.New("client stopped")})
	}
}

// Stop terminates the client: the driver goroutine fails every pending
// entry with ErrClosed and closes the socket.
func (c *Client) Stop() error {
	return c.proc.close(nil)
}

func (c *Client) run(ctx context.Context) {
	defer c.teardown()
	for {
		var chunksCh <-chan Chunk
		if c.transport != nil {
			chunksCh = c.transport.Chunks()
		}
		var timerCh <-chan time.Time
		if c.reconnectTimer != nil {
			timerCh = c.reconnectTimer.C
		}

		select {
		case <-ctx.Done():
			return
		case msg := <-c.submitCh:
			c.handleSubmit(msg)
		case chunk := <-chunksCh:
			c.handleChunk(chunk)
		case te := <-c.selfErrCh:
			c.handleTransportError(te.transport, te.err)
		case <-timerCh:
			c.handleReconnectTimerFired()
		}
	}
}

func (c *Client) teardown() {
	c.failAllPending(ErrClosed.New("client stopped"))
	if c.transport != nil {
		c.transport.Close()
		c.transport = nil
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		putTimer(c.reconnectTimer)
		c.reconnectTimer = nil
	}
}

func (c *Client) handleSubmit(msg submitMsg) {
	if c.transport == nil {
		c.replyNoConnection(msg)
		return
	}
	if err := c.transport.Send(msg.data); err != nil {
		failed := c.transport
		go c.signalError(failed, err)
		c.replySubmitError(msg, ErrIO.Wrap(err, "write failed"))
		return
	}
	entry := pendingEntry{accumulated: make([]Reply, 0, msg.count)}
	if msg.isPipeline {
		entry.kind = pendingPipeline
		entry.pipelineCh = msg.pipelineCh
		entry.remaining = msg.count
	} else {
		entry.kind = pendingSingle
		entry.singleCh = msg.singleCh
	}
	c.pending = append(c.pending, entry)
}

func (c *Client) replyNoConnection(msg submitMsg) {
	c.replySubmitError(msg, ErrNoConnection.New("no connection"))
}

func (c *Client) replySubmitError(msg submitMsg, err error) {
	if msg.isPipeline {
		deliverPipeline(msg.pipelineCh, PipelineReply{Err: err})
	} else {
		deliverReply(msg.singleCh, Reply{Err: err})
	}
}

// signalError posts a write or read failure back to the driver
// asynchronously, tagged with the transport that produced it so a failure
// observed after a reconnect has already replaced c.transport is silently
// ignored rather than tearing down the new connection.
func (c *Client) signalError(t *Transport, err error) {
	select {
	case c.selfErrCh <- transportErr{transport: t, err: err}:
	case <-c.proc.closedCh():
	}
}

func (c *Client) handleChunk(chunk Chunk) {
	if chunk.Err != nil {
		failed := c.transport
		go c.signalError(failed, chunk.Err)
		return
	}

	p := chunk.Data
	for {
		out := resp.Parse(c.parserState, p)
		if out.Err != nil {
			failed := c.transport
			go c.signalError(failed, out.Err)
			return
		}
		if !out.Done {
			c.parserState = out.State
			break
		}
		c.parserState = out.State
		c.dispatchReply(out.Value, out.Code)
		if len(out.Leftover) == 0 {
			break
		}
		p = out.Leftover
	}
	c.transport.SetActiveMode(ModeActiveOnce)
}

// dispatchReply implements ReplyValue: the decoded value belongs to the
// head of the pending queue. A reply arriving with nothing pending is a
// fatal protocol-integrity violation; the driver panics so a supervising
// goroutine observes the crash instead of silently limping on.
func (c *Client) dispatchReply(v resp.Value, code resp.Code) {
	if len(c.pending) == 0 {
		panic(ErrEmptyQueue.New("reply arrived with no pending request"))
	}

	r := Reply{Value: v}
	if code == resp.Err {
		r.Err = ErrServer.New("%s", v.String())
	}

	head := &c.pending[0]
	switch head.kind {
	case pendingSingle:
		deliverReply(head.singleCh, r)
		c.pending = c.pending[1:]
	case pendingPipeline:
		head.accumulated = append(head.accumulated, r)
		head.remaining--
		if head.remaining == 0 {
			deliverPipeline(head.pipelineCh, PipelineReply{Values: head.accumulated})
			c.pending = c.pending[1:]
		}
	}
}

func (c *Client) failAllPending(err error) {
	for _, p := range c.pending {
		switch p.kind {
		case pendingSingle:
			deliverReply(p.singleCh, Reply{Err: err})
		case pendingPipeline:
			deliverPipeline(p.pipelineCh, PipelineReply{Err: err})
		}
	}
	c.pending = nil
}

// handleTransportError implements the three-case disconnect/reconnect
// policy: terminate outright, wait on an already-armed cooldown, or
// attempt an immediate reconnect and fall back to arming the cooldown.
func (c *Client) handleTransportError(failed *Transport, err error) {
	if failed != c.transport {
		return // stale: a prior connection's failure, already superseded
	}

	c.failAllPending(ErrIO.Wrap(err, "transport error"))
	c.transport.Close()
	c.transport = nil

	if c.cfg.ReconnectSleep == NoReconnect {
		c.cfg.Trace.disconnect(DisconnectTrace{Name: c.cfg.Name, Err: err, Reconnect: false})
		c.proc.ctxCancelFn()
		return
	}

	if c.reconnectTimer != nil {
		// cooldown already armed from a previous failure; nothing more
		// to do until it fires.
		return
	}

	c.cfg.Trace.disconnect(DisconnectTrace{Name: c.cfg.Name, Err: err, Reconnect: true, Sleep: c.cfg.ReconnectSleep})

	if time.Since(c.connectedAt) < c.cfg.ReconnectSleep {
		// Open question, resolved: a connection that failed within its
		// own reconnect_sleep window of having connected (e.g. a late
		// TLS 1.3 certificate failure) skips the immediate-retry
		// attempt and goes straight to the cooldown wait, avoiding a
		// reconnect storm.
		c.armReconnectTimer()
		return
	}

	if err := c.bootstrapNow(); err != nil {
		c.armReconnectTimer()
	}
}

func (c *Client) handleReconnectTimerFired() {
	putTimer(c.reconnectTimer)
	c.reconnectTimer = nil
	if err := c.bootstrapNow(); err != nil {
		c.armReconnectTimer()
	}
}

func (c *Client) armReconnectTimer() {
	c.reconnectTimer = getTimer(c.cfg.ReconnectSleep)
}

func deliverReply(ch chan Reply, r Reply) {
	if ch == nil {
		return
	}
	ch <- r
}

func deliverPipeline(ch chan PipelineReply, r PipelineReply) {
	if ch == nil {
		return
	}
	ch <- r
}
