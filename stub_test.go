package eredis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nordix/eredis/resp"
)

func TestStubRequestReply(t *testing.T) {
	m := map[string]string{}
	conn := Stub(func(args []string) interface{} {
		switch args[0] {
		case "GET":
			v, ok := m[args[1]]
			if !ok {
				return nil
			}
			return v
		case "SET":
			m[args[1]] = args[2]
			return "OK"
		case "ECHO":
			return args[1]
		default:
			return errUnsupportedStubCommand(args[0])
		}
	})
	defer conn.Close()

	transport := newTransport(conn)
	defer transport.Close()

	send := func(args ...string) resp.Value {
		require.NoError(t, transport.Send(resp.EncodeCommandStrings(args...)))
		v, err := transport.RecvValue(0)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "OK", send("SET", "foo", "a").String())
	assert.Equal(t, "a", send("GET", "foo").String())
	assert.Equal(t, "bar", send("ECHO", "bar").String())

	v := send("GET", "missing")
	assert.Equal(t, resp.Nil, v.Type)
}

func TestStubUnsupportedCommand(t *testing.T) {
	conn := Stub(func(args []string) interface{} {
		return errUnsupportedStubCommand(args[0])
	})
	defer conn.Close()

	transport := newTransport(conn)
	defer transport.Close()

	require.NoError(t, transport.Send(resp.EncodeCommandStrings("FOOBAR")))
	v, err := transport.RecvValue(0)
	require.NoError(t, err)
	assert.Equal(t, resp.Error, v.Type)
}

func errUnsupportedStubCommand(cmd string) error {
	return withReason(ErrServer.New("stub doesn't support this command"), cmd)
}
