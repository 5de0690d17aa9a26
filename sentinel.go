package eredis

import (
	"net"
	"strconv"
	"time"

	"github.com/Nordix/eredis/resp"
)

// sentinelResolveMaster implements C4: query each monitor endpoint in
// cfg.Endpoints, in order, with SENTINEL get-master-addr-by-name, until one
// names a master. It is invoked once per bootstrap attempt and is never
// cached across reconnects, so a failover is re-discovered every time a
// connection is (re-)established.
func sentinelResolveMaster(cfg SentinelConfig, timeout time.Duration) (host string, port int, err error) {
	var lastErr error
	for _, endpoint := range cfg.Endpoints {
		host, port, lastErr = querySentinel(endpoint, "get-master-addr-by-name", cfg.MasterGroup, timeout)
		if lastErr == nil {
			return host, port, nil
		}
	}
	return "", 0, withReason(ErrNoMaster.Wrap(lastErr, "no sentinel endpoint named a master"), cfg.MasterGroup)
}

// Sentinels issues SENTINEL sentinels <group> against a single monitor
// endpoint, returning the raw [host, port] pairs it advertises for the
// other monitors watching the group. Unlike sentinelResolveMaster this is
// not on the bootstrap hot path: it exists for a caller or Trace consumer
// to observe topology, and failures are simply returned, not retried
// across endpoints.
func Sentinels(endpoint, group string, timeout time.Duration) ([][2]string, error) {
	conn, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	transport := newTransport(conn)
	defer transport.Close()

	req := resp.EncodeCommandStrings("SENTINEL", "sentinels", group)
	if err := transport.Send(req); err != nil {
		return nil, err
	}
	v, err := transport.RecvValue(timeout)
	if err != nil {
		return nil, err
	}
	if v.Type != resp.Array {
		return nil, errMalformedSentinelReply
	}
	out := make([][2]string, 0, len(v.Array))
	for _, entry := range v.Array {
		if entry.Type != resp.Array || len(entry.Array) < 2 {
			continue
		}
		out = append(out, [2]string{entry.Array[0].String(), entry.Array[1].String()})
	}
	return out, nil
}

func querySentinel(endpoint, subcommand, group string, timeout time.Duration) (host string, port int, err error) {
	conn, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return "", 0, err
	}
	defer conn.Close()

	transport := newTransport(conn)
	defer transport.Close()

	req := resp.EncodeCommandStrings("SENTINEL", subcommand, group)
	if err := transport.Send(req); err != nil {
		return "", 0, err
	}
	v, err := transport.RecvValue(timeout)
	if err != nil {
		return "", 0, err
	}
	switch v.Type {
	case resp.NilArray:
		return "", 0, errNoSuchGroup
	case resp.Error:
		return "", 0, withReason(ErrNoMaster.New("sentinel returned an error"), v.String())
	case resp.Array:
		if len(v.Array) != 2 {
			return "", 0, errMalformedSentinelReply
		}
		host = v.Array[0].String()
		p, err := strconv.Atoi(v.Array[1].String())
		if err != nil {
			return "", 0, errMalformedSentinelReply
		}
		return host, p, nil
	default:
		return "", 0, errMalformedSentinelReply
	}
}

var (
	errNoSuchGroup            = withReason(ErrNoMaster.New("sentinel has no such master group"), "NilArray")
	errMalformedSentinelReply = withReason(ErrNoMaster.New("malformed sentinel reply"), "unexpected shape")
)
