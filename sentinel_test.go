package eredis

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSentinel starts a tiny RESP server that answers SENTINEL commands
// with canned replies from reply, serving every accepted connection
// until the test's cleanup closes the listener.
func fakeSentinel(t *testing.T, reply func(args []string) interface{}) string {
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
	return ln.Addr().String()
}

func TestSentinelResolveMaster(t *testing.T) {
	addr := fakeSentinel(t, func(args []string) interface{} {
		require.Equal(t, []string{"SENTINEL", "get-master-addr-by-name", "mymaster"}, args)
		return []interface{}{"127.0.0.1", "6380"}
	})

	host, port, err := sentinelResolveMaster(SentinelConfig{MasterGroup: "mymaster", Endpoints: []string{addr}}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 6380, port)
}

func TestSentinelFailover(t *testing.T) {
	// monitor #1: connection refused, nothing is listening on this address.
	refused := "127.0.0.1:1"

	addr := fakeSentinel(t, func(args []string) interface{} {
		return []interface{}{"127.0.0.1", "6380"}
	})

	host, port, err := sentinelResolveMaster(SentinelConfig{
		MasterGroup: "mymaster",
		Endpoints:   []string{refused, addr},
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 6380, port)
}

func TestSentinelNoSuchGroup(t *testing.T) {
	addr := fakeSentinel(t, func(args []string) interface{} {
		return nil // stub encodes nil as a Nil bulk string, not NilArray,
		// so this takes querySentinel's malformed-reply path.
	})
	_, _, err := sentinelResolveMaster(SentinelConfig{MasterGroup: "nope", Endpoints: []string{addr}}, time.Second)
	require.Error(t, err)
}

func TestSentinelAllFail(t *testing.T) {
	_, _, err := sentinelResolveMaster(SentinelConfig{
		MasterGroup: "mymaster",
		Endpoints:   []string{"127.0.0.1:1", "127.0.0.1:2"},
	}, 200*time.Millisecond)
	require.Error(t, err)
}
