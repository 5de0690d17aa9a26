package eredis

import (
	"net"
	"strconv"

	"github.com/Nordix/eredis/resp"
)

// Status is a RESP simple string reply ("+...\r\n"), the wire type real
// redis uses for handshake acknowledgements like AUTH/SELECT's "+OK" and
// PING's "+PONG". A stub handler returns Status rather than a plain string
// to get this encoding instead of a bulk string.
type Status string

// Stub returns a net.Conn that behaves like a live connection to a RESP
// server, backed entirely in memory over net.Pipe: every full command the
// client writes is parsed and handed to fn, whose return value is encoded
// back as the reply. It exists so this library's own driver tests, and a
// consumer's integration tests, can exercise send/receive and reconnect
// paths without a real socket.
//
// fn's return value is encoded per its Go type: nil becomes a RESP Nil
// bulk string, an error becomes a RESP Error, a Status becomes a RESP
// simple string, a string or []byte becomes a bulk string, an int/int64
// becomes a RESP Integer, and a []interface{} becomes a RESP Array with
// the same encoding rules applied recursively to its elements.
//
//	conn := eredis.Stub(func(args []string) interface{} {
//		switch args[0] {
//		case "PING":
//			return eredis.Status("PONG")
//		default:
//			return fmt.Errorf("ERR unknown command %q", args[0])
//		}
//	})
func Stub(fn func(args []string) interface{}) net.Conn {
	client, server := net.Pipe()
	go serveStub(server, fn)
	return client
}

func serveStub(conn net.Conn, fn func(args []string) interface{}) {
	defer conn.Close()
	state := resp.State{}
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		p := append([]byte(nil), buf[:n]...)
		for {
			out := resp.Parse(state, p)
			if out.Err != nil {
				return
			}
			if !out.Done {
				state = out.State
				break
			}
			state = out.State
			args := valueToArgs(out.Value)
			reply := fn(args)
			if _, err := conn.Write(encodeStubReply(reply)); err != nil {
				return
			}
			if len(out.Leftover) == 0 {
				break
			}
			p = out.Leftover
		}
	}
}

func valueToArgs(v resp.Value) []string {
	if v.Type != resp.Array {
		return nil
	}
	args := make([]string, len(v.Array))
	for i, e := range v.Array {
		args[i] = e.String()
	}
	return args
}

func encodeStubReply(v interface{}) []byte {
	switch t := v.(type) {
	case nil:
		return []byte("$-1\r\n")
	case error:
		return encodeStubLine('-', t.Error())
	case Status:
		return encodeStubLine('+', string(t))
	case string:
		return encodeStubBulk([]byte(t))
	case []byte:
		return encodeStubBulk(t)
	case int:
		return encodeStubInteger(int64(t))
	case int64:
		return encodeStubInteger(t)
	case []interface{}:
		return encodeStubArray(t)
	default:
		return encodeStubLine('-', "ERR unsupported stub reply type")
	}
}

func encodeStubLine(tag byte, body string) []byte {
	buf := make([]byte, 0, len(body)+3)
	buf = append(buf, tag)
	buf = append(buf, body...)
	return append(buf, '\r', '\n')
}

func encodeStubBulk(b []byte) []byte {
	buf := make([]byte, 0, len(b)+16)
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(b)), 10)
	buf = append(buf, '\r', '\n')
	buf = append(buf, b...)
	return append(buf, '\r', '\n')
}

func encodeStubInteger(n int64) []byte {
	buf := make([]byte, 0, 24)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, n, 10)
	return append(buf, '\r', '\n')
}

func encodeStubArray(items []interface{}) []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(items)), 10)
	buf = append(buf, '\r', '\n')
	for _, item := range items {
		buf = append(buf, encodeStubReply(item)...)
	}
	return buf
}
