package eredis

import (
	"context"
	"time"

	"github.com/Nordix/eredis/resp"
)

type ctrlKind uint8

const (
	ctrlSubscribe ctrlKind = iota
	ctrlUnsubscribe
	ctrlPSubscribe
	ctrlPUnsubscribe
	ctrlControllingProcess
)

type ctrlMsg struct {
	kind        ctrlKind
	items       []string
	newConsumer chan Event
	done        chan struct{}
}

// SubClient is the subscription client (C7): a single-goroutine driver,
// structurally the same actor as Client, that maintains a set of
// subscribed channels/patterns and delivers push messages to a single
// controlling process over a channel the caller supplies. Subscribe/
// unsubscribe acknowledgments and connection-state events are delivered
// immediately; message/pmessage events pass through a bounded,
// ack-gated queue so a slow consumer applies backpressure instead of
// the driver buffering without limit.
type SubClient struct {
	proc proc
	cfg  Config

	ctrlCh    chan ctrlMsg
	ackCh     chan struct{}
	selfErrCh chan transportErr

	transport      *Transport
	connectedAt    time.Time
	parserState    resp.State
	reconnectTimer *time.Timer

	channels map[string]bool
	patterns map[string]bool

	consumer chan Event

	queue             []Event
	queueSema         semaphore
	bounded           bool
	awaitingAck       bool
	droppedSinceFlush int
}

// NewSubClient dials and hands off to a driver goroutine, as NewClient
// does. consumer receives every Event this client produces, including
// the initial {connected}; it must be read promptly since delivery is a
// blocking send.
func NewSubClient(cfg Config, consumer chan Event) (*SubClient, error) {
	c := &SubClient{
		proc:      newProc(),
		cfg:       cfg,
		ctrlCh:    make(chan ctrlMsg),
		ackCh:     make(chan struct{}, 1),
		selfErrCh: make(chan transportErr, 4),
		channels:  map[string]bool{},
		patterns:  map[string]bool{},
		consumer:  consumer,
	}
	if cfg.MaxQueueSize > 0 {
		c.bounded = true
		c.queueSema = newSemaphore(cfg.MaxQueueSize)
	}
	if err := c.bootstrapNow(); err != nil {
		return nil, err
	}
	c.proc.run(c.run)
	return c, nil
}

func (c *SubClient) bootstrapNow() error {
	res, err := Connect(c.cfg)
	if err != nil {
		return err
	}
	c.transport = res.transport
	c.connectedAt = res.connectedAt
	c.parserState = resp.State{}
	return nil
}

// Subscribe adds channels to the subscribed set and writes SUBSCRIBE to
// the wire; it returns before the server's acknowledgment arrives, which
// shows up later as an {subscribed} Event on consumer.
func (c *SubClient) Subscribe(channels ...string) {
	c.sendCtrl(ctrlMsg{kind: ctrlSubscribe, items: channels})
}

func (c *SubClient) Unsubscribe(channels ...string) {
	c.sendCtrl(ctrlMsg{kind: ctrlUnsubscribe, items: channels})
}

func (c *SubClient) PSubscribe(patterns ...string) {
	c.sendCtrl(ctrlMsg{kind: ctrlPSubscribe, items: patterns})
}

func (c *SubClient) PUnsubscribe(patterns ...string) {
	c.sendCtrl(ctrlMsg{kind: ctrlPUnsubscribe, items: patterns})
}

func (c *SubClient) sendCtrl(m ctrlMsg) {
	select {
	case c.ctrlCh <- m:
	case <-c.proc.closedCh():
	}
}

// ControllingProcess hands delivery off to a new consumer channel. The
// call blocks until the driver has completed the switch (or timeout
// elapses, if positive), guaranteeing no Event reaches the old consumer
// after this call returns: the driver processes control messages and
// chunk deliveries strictly in order, so any delivery already in flight
// to the old consumer finishes before the switch is applied.
func (c *SubClient) ControllingProcess(recipient chan Event, timeout time.Duration) error {
	done := make(chan struct{})
	m := ctrlMsg{kind: ctrlControllingProcess, newConsumer: recipient, done: done}
	select {
	case c.ctrlCh <- m:
	case <-c.proc.closedCh():
		return ErrClosed.New("client stopped")
	}
	if timeout <= 0 {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrIO.New("controlling process handoff timed out")
	}
}

// AckMessage releases the in-flight message/pmessage event, allowing the
// next queued one (if any) to be delivered. Calling it when no message
// is outstanding is a harmless no-op.
func (c *SubClient) AckMessage() {
	select {
	case c.ackCh <- struct{}{}:
	case <-c.proc.closedCh():
	}
}

func (c *SubClient) Stop() error {
	return c.proc.close(nil)
}

func (c *SubClient) run(ctx context.Context) {
	defer c.teardown()
	c.deliverImmediate(Event{Kind: EventConnected})
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
		case m := <-c.ctrlCh:
			c.handleCtrl(m)
		case <-c.ackCh:
			c.handleAck()
		case chunk := <-chunksCh:
			c.handleChunk(chunk)
		case te := <-c.selfErrCh:
			c.handleTransportError(te.transport, te.err)
		case <-timerCh:
			c.handleReconnectTimerFired()
		}
	}
}

func (c *SubClient) teardown() {
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

func (c *SubClient) handleCtrl(m ctrlMsg) {
	switch m.kind {
	case ctrlSubscribe:
		for _, ch := range m.items {
			c.channels[ch] = true
		}
		c.sendCommand("SUBSCRIBE", m.items)
	case ctrlUnsubscribe:
		for _, ch := range m.items {
			delete(c.channels, ch)
		}
		c.sendCommand("UNSUBSCRIBE", m.items)
	case ctrlPSubscribe:
		for _, p := range m.items {
			c.patterns[p] = true
		}
		c.sendCommand("PSUBSCRIBE", m.items)
	case ctrlPUnsubscribe:
		for _, p := range m.items {
			delete(c.patterns, p)
		}
		c.sendCommand("PUNSUBSCRIBE", m.items)
	case ctrlControllingProcess:
		c.consumer = m.newConsumer
		c.cfg.Trace.subscription(SubscriptionTrace{Name: c.cfg.Name, Event: EventControllingProcessChanged})
		close(m.done)
	}
}

func (c *SubClient) sendCommand(verb string, args []string) {
	if c.transport == nil || len(args) == 0 {
		return
	}
	full := append([]string{verb}, args...)
	req := resp.EncodeCommandStrings(full...)
	if err := c.transport.Send(req); err != nil {
		failed := c.transport
		go c.signalError(failed, err)
	}
}

func (c *SubClient) signalError(t *Transport, err error) {
	select {
	case c.selfErrCh <- transportErr{transport: t, err: err}:
	case <-c.proc.closedCh():
	}
}

func (c *SubClient) handleChunk(chunk Chunk) {
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
		if ev, ok := classifyPush(out.Value); ok {
			c.routeEvent(ev)
		}
		if len(out.Leftover) == 0 {
			break
		}
		p = out.Leftover
	}
	c.transport.SetActiveMode(ModeActiveOnce)
}

// classifyPush interprets one decoded RESP array as a pub/sub push
// message. Anything not shaped like subscribe/unsubscribe/psubscribe/
// punsubscribe/message/pmessage is silently ignored.
func classifyPush(v resp.Value) (Event, bool) {
	if v.Type != resp.Array || len(v.Array) < 3 {
		return Event{}, false
	}
	switch v.Array[0].String() {
	case "subscribe":
		return Event{Kind: EventSubscribed, Channel: v.Array[1].String()}, true
	case "unsubscribe":
		return Event{Kind: EventUnsubscribed, Channel: v.Array[1].String()}, true
	case "psubscribe":
		return Event{Kind: EventSubscribed, Pattern: v.Array[1].String()}, true
	case "punsubscribe":
		return Event{Kind: EventUnsubscribed, Pattern: v.Array[1].String()}, true
	case "message":
		return Event{Kind: EventMessage, Channel: v.Array[1].String(), Payload: v.Array[2].String()}, true
	case "pmessage":
		if len(v.Array) < 4 {
			return Event{}, false
		}
		return Event{Kind: EventPMessage, Pattern: v.Array[1].String(), Channel: v.Array[2].String(), Payload: v.Array[3].String()}, true
	default:
		return Event{}, false
	}
}

func (c *SubClient) routeEvent(ev Event) {
	if ev.Kind.RequiresAck() {
		c.enqueueMessage(ev)
		return
	}
	c.deliverImmediate(ev)
}

// enqueueMessage implements the bounded-queue admission policy: under
// OverflowDrop a full queue discards the message and counts it for a
// later {dropped, n} notice; under OverflowExit the client terminates.
func (c *SubClient) enqueueMessage(ev Event) {
	if c.bounded && !c.queueSema.tryAcquire() {
		if c.cfg.QueueBehaviour == OverflowExit {
			c.cfg.Trace.subscription(SubscriptionTrace{Name: c.cfg.Name, Event: EventOverflowExit})
			c.terminateWithErr(ErrQueueOverflow.New("max_queue_size exceeded"))
			return
		}
		c.droppedSinceFlush++
		c.cfg.Trace.subscription(SubscriptionTrace{Name: c.cfg.Name, Event: EventDropped, Dropped: c.droppedSinceFlush})
		return
	}
	c.queue = append(c.queue, ev)
	c.pumpQueue()
}

func (c *SubClient) pumpQueue() {
	if c.awaitingAck || len(c.queue) == 0 {
		return
	}
	ev := c.queue[0]
	c.queue = c.queue[1:]
	c.awaitingAck = true
	c.deliverImmediate(ev)
}

// handleAck releases the slot the delivered message held, delivers the
// next queued one if any, and otherwise — once the queue has fully
// drained — emits a single {dropped, n} notice if any messages were
// discarded for overflow since the last flush.
func (c *SubClient) handleAck() {
	if !c.awaitingAck {
		return // nothing outstanding: ack is a no-op
	}
	c.awaitingAck = false
	if c.bounded {
		c.queueSema.release()
	}
	if len(c.queue) > 0 {
		c.pumpQueue()
		return
	}
	if c.droppedSinceFlush > 0 {
		d := c.droppedSinceFlush
		c.droppedSinceFlush = 0
		c.deliverImmediate(Event{Kind: EventDroppedMessages, Dropped: d})
	}
}

func (c *SubClient) terminateWithErr(err error) {
	c.deliverImmediate(Event{Kind: EventDisconnected, Err: err})
	c.proc.ctxCancelFn()
}

func (c *SubClient) deliverImmediate(ev Event) {
	if c.consumer == nil {
		return
	}
	select {
	case c.consumer <- ev:
	case <-c.proc.closedCh():
	}
}

// handleTransportError mirrors Client's three-case reconnect policy,
// additionally replaying the subscribed channel/pattern sets against
// the new connection before announcing {connected}.
func (c *SubClient) handleTransportError(failed *Transport, err error) {
	if failed != c.transport {
		return
	}

	c.transport.Close()
	c.transport = nil
	c.deliverImmediate(Event{Kind: EventDisconnected, Err: err})

	if c.cfg.ReconnectSleep == NoReconnect {
		c.cfg.Trace.disconnect(DisconnectTrace{Name: c.cfg.Name, Err: err, Reconnect: false})
		c.proc.ctxCancelFn()
		return
	}

	if c.reconnectTimer != nil {
		return
	}

	c.cfg.Trace.disconnect(DisconnectTrace{Name: c.cfg.Name, Err: err, Reconnect: true, Sleep: c.cfg.ReconnectSleep})

	if time.Since(c.connectedAt) < c.cfg.ReconnectSleep {
		c.armReconnectTimer()
		return
	}

	if err := c.reconnectNow(); err != nil {
		c.armReconnectTimer()
	}
}

func (c *SubClient) handleReconnectTimerFired() {
	putTimer(c.reconnectTimer)
	c.reconnectTimer = nil
	if err := c.reconnectNow(); err != nil {
		c.armReconnectTimer()
	}
}

func (c *SubClient) armReconnectTimer() {
	c.reconnectTimer = getTimer(c.cfg.ReconnectSleep)
}

func (c *SubClient) reconnectNow() error {
	if err := c.bootstrapNow(); err != nil {
		return err
	}
	c.resubscribeAll()
	c.deliverImmediate(Event{Kind: EventConnected})
	return nil
}

func (c *SubClient) resubscribeAll() {
	if len(c.channels) > 0 {
		chans := make([]string, 0, len(c.channels))
		for ch := range c.channels {
			chans = append(chans, ch)
		}
		c.sendCommand("SUBSCRIBE", chans)
	}
	if len(c.patterns) > 0 {
		pats := make([]string, 0, len(c.patterns))
		for p := range c.patterns {
			pats = append(pats, p)
		}
		c.sendCommand("PSUBSCRIBE", pats)
	}
}
