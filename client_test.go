package eredis

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nordix/eredis/resp"
)

// fakeServer starts a real TCP listener backed by serveStub, so Client's
// own dial/handshake path (which only ever dials real net.Conns) can be
// exercised the same way a live redis-server connection would be.
func fakeServer(t *testing.T, reply func(args []string) interface{}) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveStub(conn, reply)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func echoServer(t *testing.T) (host string, port int) {
	return fakeServer(t, func(args []string) interface{} {
		switch args[0] {
		case "PING":
			return Status("PONG")
		case "ECHO":
			return args[1]
		default:
			return Status("OK")
		}
	})
}

func TestClientRequest(t *testing.T) {
	host, port := echoServer(t)
	c, err := NewClient(NewConfig(Host(host), Port(port)))
	require.NoError(t, err)
	defer c.Stop()

	ch := make(chan Reply, 1)
	c.Request(resp.EncodeCommandStrings("PING"), ch)
	r := <-ch
	require.NoError(t, r.Err)
	assert.Equal(t, resp.SimpleString, r.Value.Type)
	assert.Equal(t, "PONG", r.Value.String())
}

func TestClientPipeline(t *testing.T) {
	host, port := echoServer(t)
	c, err := NewClient(NewConfig(Host(host), Port(port)))
	require.NoError(t, err)
	defer c.Stop()

	data := append(
		resp.EncodeCommandStrings("ECHO", "one"),
		resp.EncodeCommandStrings("ECHO", "two")...,
	)
	ch := make(chan PipelineReply, 1)
	c.Pipeline(data, 2, ch)
	r := <-ch
	require.NoError(t, r.Err)
	require.Len(t, r.Values, 2)
	assert.Equal(t, "one", r.Values[0].Value.String())
	assert.Equal(t, "two", r.Values[1].Value.String())
}

func TestClientPipelineSingleCommand(t *testing.T) {
	host, port := echoServer(t)
	c, err := NewClient(NewConfig(Host(host), Port(port)))
	require.NoError(t, err)
	defer c.Stop()

	ch := make(chan PipelineReply, 1)
	c.Pipeline(resp.EncodeCommandStrings("ECHO", "solo"), 1, ch)

	select {
	case r := <-ch:
		require.NoError(t, r.Err)
		require.Len(t, r.Values, 1)
		assert.Equal(t, "solo", r.Values[0].Value.String())
	case <-time.After(2 * time.Second):
		t.Fatal("Pipeline with count 1 never replied")
	}
}

func TestClientStopFailsPending(t *testing.T) {
	host, port := fakeServer(t, func(args []string) interface{} {
		time.Sleep(time.Hour) // holds the reply back so the request stays pending
		return "OK"
	})
	c, err := NewClient(NewConfig(Host(host), Port(port)))
	require.NoError(t, err)

	ch := make(chan Reply, 1)
	c.Request(resp.EncodeCommandStrings("PING"), ch)
	require.NoError(t, c.Stop())

	select {
	case r := <-ch:
		require.Error(t, r.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not fail the pending request")
	}
}

func TestClientNoServer(t *testing.T) {
	_, err := NewClient(NewConfig(Host("127.0.0.1"), Port(1), ConnectTimeout(200*time.Millisecond)))
	require.Error(t, err)
}

func TestClientSelectDatabase(t *testing.T) {
	var gotDB string
	host, port := fakeServer(t, func(args []string) interface{} {
		if args[0] == "SELECT" {
			gotDB = args[1]
			return Status("OK")
		}
		return Status("OK")
	})
	c, err := NewClient(NewConfig(Host(host), Port(port), Database(3)))
	require.NoError(t, err)
	defer c.Stop()
	assert.Equal(t, strconv.Itoa(3), gotDB)
}
