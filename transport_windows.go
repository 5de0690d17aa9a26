//go:build windows

package eredis

import "net"

// applyPlatformSocketOptions falls back to the net package's own
// abstractions on Windows, where golang.org/x/sys/unix's setsockopt
// wrappers don't apply.
func applyPlatformSocketOptions(conn *net.TCPConn, opts SocketOptions) error {
	if opts.NoDelay {
		if err := conn.SetNoDelay(true); err != nil {
			return err
		}
	}
	if opts.KeepAlive {
		if err := conn.SetKeepAlive(true); err != nil {
			return err
		}
		if opts.KeepAlivePeriod > 0 {
			if err := conn.SetKeepAlivePeriod(opts.KeepAlivePeriod); err != nil {
				return err
			}
		}
	}
	if opts.ReadBufferBytes > 0 {
		if err := conn.SetReadBuffer(opts.ReadBufferBytes); err != nil {
			return err
		}
	}
	if opts.WriteBufferBytes > 0 {
		if err := conn.SetWriteBuffer(opts.WriteBufferBytes); err != nil {
			return err
		}
	}
	return nil
}
