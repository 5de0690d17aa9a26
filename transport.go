package eredis

import (
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/Nordix/eredis/resp"
)

// ActiveMode selects how a Transport delivers inbound bytes.
type ActiveMode uint8

const (
	// ModePassive means the driver pulls bytes itself with RecvValue; used
	// only during the synchronous handshake.
	ModePassive ActiveMode = iota
	// ModeActiveOnce arms exactly one asynchronous read, delivered on
	// Chunks(); the transport reverts to passive once that chunk (or a
	// read error) is delivered, until re-armed.
	ModeActiveOnce
)

// Chunk is one inbound read delivered while a Transport is armed in
// ModeActiveOnce.
type Chunk struct {
	Data []byte
	Err  error
}

// Transport is the uniform send/recv/close/setopts surface the connection
// driver needs over a raw socket, plain or TLS-upgraded. The "active once"
// discipline (re-arm after each processed chunk) gives the driver implicit
// backpressure against the kernel: nothing more is read off the socket
// until the prior chunk has been fully handled.
//
// A dedicated goroutine exists solely to turn the blocking net.Conn.Read
// call into something the driver can select on; it issues at most one
// outstanding read at a time and never runs ahead of the driver.
type Transport struct {
	conn net.Conn

	armCh     chan struct{}
	chunkCh   chan Chunk
	closed    chan struct{}
	closeOnce sync.Once
}

func newTransport(conn net.Conn) *Transport {
	t := &Transport{
		conn:    conn,
		armCh:   make(chan struct{}, 1),
		chunkCh: make(chan Chunk, 1),
		closed:  make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// dial resolves nothing itself: addr is already a concrete, dialable
// endpoint from the address resolver (C3). Socket options are applied to
// the raw connection immediately, before any handshake I/O, per the
// transport's contract.
func dial(addr Addr, timeout time.Duration, opts SocketOptions) (*Transport, error) {
	conn, err := net.DialTimeout(addr.Network, addr.Address, timeout)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := applyPlatformSocketOptions(tcpConn, opts); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return newTransport(conn), nil
}

func (t *Transport) readLoop() {
	buf := make([]byte, 4096)
	for {
		select {
		case <-t.armCh:
		case <-t.closed:
			return
		}
		n, err := t.conn.Read(buf)
		var data []byte
		if n > 0 {
			data = append([]byte(nil), buf[:n]...)
		}
		select {
		case t.chunkCh <- Chunk{Data: data, Err: err}:
		case <-t.closed:
			return
		}
		if err != nil {
			return
		}
	}
}

// SetActiveMode arms one asynchronous read when mode is ModeActiveOnce; it
// is a no-op for ModePassive, since passive callers read synchronously via
// RecvValue instead.
func (t *Transport) SetActiveMode(mode ActiveMode) {
	if mode != ModeActiveOnce {
		return
	}
	select {
	case t.armCh <- struct{}{}:
	default:
	}
}

// Chunks is the channel Chunks are delivered on while armed.
func (t *Transport) Chunks() <-chan Chunk {
	return t.chunkCh
}

// Send writes buf to the socket. It never partially fails: either all of
// buf reaches the kernel's send buffer or an error is returned.
func (t *Transport) Send(buf []byte) error {
	_, err := t.conn.Write(buf)
	return err
}

// RecvValue performs synchronous, blocking reads until one complete RESP
// value is decoded, for handshake exchanges (AUTH, SELECT, SENTINEL
// queries) where the reply's encoded length isn't known ahead of time.
func (t *Transport) RecvValue(timeout time.Duration) (resp.Value, error) {
	if timeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(timeout))
		defer t.conn.SetReadDeadline(time.Time{})
	}
	state := resp.State{}
	buf := make([]byte, 4096)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			out := resp.Parse(state, buf[:n])
			if out.Err != nil {
				return resp.Value{}, out.Err
			}
			if out.Done {
				return out.Value, nil
			}
			state = out.State
		}
		if err != nil {
			return resp.Value{}, err
		}
	}
}

// Close tears down the socket and the reader goroutine. Safe to call more
// than once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return t.conn.Close()
}

// RemoteAddr reports the kernel-confirmed peer address of the underlying
// socket, used to stamp the StepReady trace with the address the
// connection actually landed on rather than the address it was dialed at.
func (t *Transport) RemoteAddr() string {
	if t.conn.RemoteAddr() == nil {
		return ""
	}
	return t.conn.RemoteAddr().String()
}

// UpgradeTLS wraps the underlying connection in a TLS client connection and
// performs the handshake synchronously. The transport must be in passive
// mode (nothing armed) when this is called.
func (t *Transport) UpgradeTLS(cfg *tls.Config, timeout time.Duration) error {
	tlsConn := tls.Client(t.conn, cfg)
	if timeout > 0 {
		if err := tlsConn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		defer tlsConn.SetDeadline(time.Time{})
	}
	if err := tlsConn.Handshake(); err != nil {
		return err
	}
	t.conn = tlsConn
	return nil
}
