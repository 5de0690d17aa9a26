//go:build !windows

package eredis

import (
	"net"

	"golang.org/x/sys/unix"
)

// applyPlatformSocketOptions passes SocketOptions straight through to the
// kernel via raw setsockopt calls, the same passthrough style the
// retrieval pack's redis-cli-flavored example uses for SO_KEEPALIVE.
func applyPlatformSocketOptions(conn *net.TCPConn, opts SocketOptions) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	ctrlErr := rawConn.Control(func(fd uintptr) {
		if opts.NoDelay {
			if sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); sockErr != nil {
				return
			}
		}
		if opts.KeepAlive {
			if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); sockErr != nil {
				return
			}
			if opts.KeepAlivePeriod > 0 {
				secs := int(opts.KeepAlivePeriod.Seconds())
				if secs < 1 {
					secs = 1
				}
				if sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, secs); sockErr != nil {
					return
				}
			}
		}
		if opts.ReadBufferBytes > 0 {
			if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, opts.ReadBufferBytes); sockErr != nil {
				return
			}
		}
		if opts.WriteBufferBytes > 0 {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, opts.WriteBufferBytes)
		}
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}
