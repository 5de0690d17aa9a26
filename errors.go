package eredis

import "github.com/joomcode/errorx"

// Namespace groups every error type this client can produce under one
// errorx namespace, so callers can match broadly with errorx.IsOfType
// against Namespace's types or narrowly against a single Type.
var Namespace = errorx.NewNamespace("eredis")

var (
	// ErrNoConnection is returned synchronously to a caller that submits
	// a request while the driver has no live socket.
	ErrNoConnection = Namespace.NewType("no_connection")

	// ErrConnection wraps every dial attempt's failure once the address
	// list is exhausted.
	ErrConnection = Namespace.NewType("connection")

	// ErrTLSUpgrade covers failures during the TLS handshake step of
	// bootstrap.
	ErrTLSUpgrade = Namespace.NewType("tls_upgrade")

	// ErrAuth covers AUTH failures: connection refused/closed mid-AUTH,
	// or a non-+OK reply.
	ErrAuth = Namespace.NewType("auth")

	// ErrSelect covers SELECT failures analogous to ErrAuth.
	ErrSelect = Namespace.NewType("select")

	// ErrUnexpectedResponse is raised when a handshake step expected a
	// literal +OK\r\n and got something else.
	ErrUnexpectedResponse = Namespace.NewType("unexpected_response")

	// ErrClosed marks a client that has been stopped: it is delivered to
	// requests still pending when the driver exits and to calls made
	// afterwards. A peer closing the connection is not reported as
	// ErrClosed; it surfaces as ErrIO wrapping the read error.
	ErrClosed = Namespace.NewType("closed")

	// ErrIO covers transport-level read/write/timeout failures outside
	// the handshake.
	ErrIO = Namespace.NewType("io")

	// ErrEmptyQueue marks the fatal protocol-integrity violation of a
	// reply arriving with nothing pending. The driver panics with this
	// error rather than limping on; see Client.dispatchReply.
	ErrEmptyQueue = Namespace.NewType("empty_queue")

	// ErrQueueOverflow is the terminal error a subscription client exits
	// with under the exit overflow policy.
	ErrQueueOverflow = Namespace.NewType("queue_overflow")

	// ErrNoMaster is returned when every configured sentinel endpoint
	// failed to name a master for the configured group.
	ErrNoMaster = Namespace.NewType("no_master")

	// ErrServer wraps a RESP Error reply delivered to a specific caller;
	// it never disconnects the client.
	ErrServer = Namespace.NewType("server")
)

var (
	// PropAddress carries the address (host:port or UDS path) involved
	// in a connection-level error.
	PropAddress = errorx.RegisterProperty("address")

	// PropReason carries an underlying cause string or error when the
	// wrapped error itself isn't descriptive enough (e.g. an unexpected
	// handshake reply's raw bytes).
	PropReason = errorx.RegisterProperty("reason")

	// PropAttempt carries the 1-based reconnect attempt count, useful
	// for Trace consumers deciding whether to escalate alerting.
	PropAttempt = errorx.RegisterProperty("attempt")
)

// withAddress stamps err with the address that produced it.
func withAddress(err *errorx.Error, addr string) *errorx.Error {
	return err.WithProperty(PropAddress, addr)
}

// withReason stamps err with a free-form cause, used when wrapping a
// non-error signal (like unexpected reply bytes) as an errorx.Error.
func withReason(err *errorx.Error, reason interface{}) *errorx.Error {
	return err.WithProperty(PropReason, reason)
}
