package eredis

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pushServer starts a real TCP listener whose single accepted connection
// answers SUBSCRIBE/PSUBSCRIBE/UNSUBSCRIBE/PUNSUBSCRIBE with the
// conventional ack array and additionally lets the test push arbitrary
// RESP arrays (e.g. "message"/"pmessage" events) onto the connection at
// will via the returned push func.
func pushServer(t *testing.T) (host string, port int, push func(fields ...interface{})) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	var mu sync.Mutex
	var conn net.Conn
	connReady := make(chan struct{})

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		mu.Lock()
		conn = c
		mu.Unlock()
		close(connReady)

		serveStub(c, func(args []string) interface{} {
			switch args[0] {
			case "SUBSCRIBE", "UNSUBSCRIBE", "PSUBSCRIBE", "PUNSUBSCRIBE":
				out := make([]interface{}, 0, len(args))
				out = append(out, strings.ToLower(args[0]))
				if len(args) > 1 {
					out = append(out, args[1])
				} else {
					out = append(out, nil)
				}
				out = append(out, int64(1))
				return out
			default:
				return Status("OK")
			}
		})
	}()

	addr := ln.Addr().(*net.TCPAddr)
	push = func(fields ...interface{}) {
		<-connReady
		mu.Lock()
		c := conn
		mu.Unlock()
		if c == nil {
			return
		}
		c.Write(encodeStubArray(fields))
	}
	return addr.IP.String(), addr.Port, push
}

func TestSubClientSubscribeAndMessage(t *testing.T) {
	host, port, push := pushServer(t)
	events := make(chan Event, 8)
	sc, err := NewSubClient(NewConfig(Host(host), Port(port)), events)
	require.NoError(t, err)
	defer sc.Stop()

	require.Equal(t, EventConnected, (<-events).Kind)

	sc.Subscribe("news")
	sub := <-events
	assert.Equal(t, EventSubscribed, sub.Kind)
	assert.Equal(t, "news", sub.Channel)

	push("message", "news", "hello")
	msg := <-events
	assert.Equal(t, EventMessage, msg.Kind)
	assert.Equal(t, "news", msg.Channel)
	assert.Equal(t, "hello", msg.Payload)
	sc.AckMessage()
}

func TestSubClientPatternMessage(t *testing.T) {
	host, port, push := pushServer(t)
	events := make(chan Event, 8)
	sc, err := NewSubClient(NewConfig(Host(host), Port(port)), events)
	require.NoError(t, err)
	defer sc.Stop()

	require.Equal(t, EventConnected, (<-events).Kind)

	sc.PSubscribe("news.*")
	require.Equal(t, EventSubscribed, (<-events).Kind)

	push("pmessage", "news.*", "news.sports", "goal")
	msg := <-events
	assert.Equal(t, EventPMessage, msg.Kind)
	assert.Equal(t, "news.*", msg.Pattern)
	assert.Equal(t, "news.sports", msg.Channel)
	assert.Equal(t, "goal", msg.Payload)
	sc.AckMessage()
}

func TestSubClientAckGating(t *testing.T) {
	host, port, push := pushServer(t)
	events := make(chan Event, 8)
	sc, err := NewSubClient(NewConfig(Host(host), Port(port), MaxQueueSize(4)), events)
	require.NoError(t, err)
	defer sc.Stop()

	require.Equal(t, EventConnected, (<-events).Kind)
	sc.Subscribe("c")
	require.Equal(t, EventSubscribed, (<-events).Kind)

	push("message", "c", "m1")
	push("message", "c", "m2")

	first := <-events
	assert.Equal(t, "m1", first.Payload)

	select {
	case ev := <-events:
		t.Fatalf("received second message before ack: %v", ev)
	case <-time.After(100 * time.Millisecond):
	}

	sc.AckMessage()
	second := <-events
	assert.Equal(t, "m2", second.Payload)
	sc.AckMessage()
}

func TestSubClientOverflowDrop(t *testing.T) {
	host, port, push := pushServer(t)
	events := make(chan Event, 16)
	sc, err := NewSubClient(NewConfig(Host(host), Port(port), MaxQueueSize(1), QueueBehaviour(OverflowDrop)), events)
	require.NoError(t, err)
	defer sc.Stop()

	require.Equal(t, EventConnected, (<-events).Kind)
	sc.Subscribe("c")
	require.Equal(t, EventSubscribed, (<-events).Kind)

	push("message", "c", "m1") // takes the one queue slot, delivered and awaiting ack
	push("message", "c", "m2") // no free slot: dropped
	push("message", "c", "m3") // no free slot: dropped

	first := <-events
	assert.Equal(t, "m1", first.Payload)
	sc.AckMessage()

	dropped := <-events
	assert.Equal(t, EventDroppedMessages, dropped.Kind)
	assert.Equal(t, 2, dropped.Dropped)
}

func TestSubClientControllingProcess(t *testing.T) {
	host, port, push := pushServer(t)
	events := make(chan Event, 8)
	sc, err := NewSubClient(NewConfig(Host(host), Port(port)), events)
	require.NoError(t, err)
	defer sc.Stop()

	require.Equal(t, EventConnected, (<-events).Kind)
	sc.Subscribe("c")
	require.Equal(t, EventSubscribed, (<-events).Kind)

	newEvents := make(chan Event, 8)
	require.NoError(t, sc.ControllingProcess(newEvents, time.Second))

	push("message", "c", "hi")
	msg := <-newEvents
	assert.Equal(t, "hi", msg.Payload)
	sc.AckMessage()

	select {
	case ev := <-events:
		t.Fatalf("old consumer received an event after handoff: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
