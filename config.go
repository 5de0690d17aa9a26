package eredis

import (
	"crypto/tls"
	"time"
)

// NoReconnect disables automatic reconnection: a post-handshake transport
// error fails every pending caller and terminates the client.
const NoReconnect time.Duration = -1

// OverflowPolicy controls what a subscription client (C7) does when an
// incoming push message would exceed its bounded queue.
type OverflowPolicy uint8

const (
	// OverflowDrop discards the incoming message and counts it; once the
	// queue drains to empty a single {dropped, n} event is emitted.
	OverflowDrop OverflowPolicy = iota
	// OverflowExit terminates the subscription client with
	// ErrQueueOverflow.
	OverflowExit
)

// SentinelConfig names a replicated deployment's master group and the
// monitor endpoints to query for it.
type SentinelConfig struct {
	MasterGroup string
	Endpoints   []string // host:port of each sentinel/monitor node
}

// SocketOptions are OS-level TCP tunables applied to the raw net.Conn
// immediately after dial, before any handshake I/O.
type SocketOptions struct {
	KeepAlive         bool
	KeepAlivePeriod   time.Duration
	ReadBufferBytes   int
	WriteBufferBytes  int
	NoDelay           bool
}

// DefaultSocketOptions matches what a plain net.Dial would otherwise leave
// to OS defaults, except NoDelay which this client always wants for
// request/reply latency.
func DefaultSocketOptions() SocketOptions {
	return SocketOptions{
		KeepAlive:       true,
		KeepAlivePeriod: 30 * time.Second,
		NoDelay:         true,
	}
}

// Config is the full set of parameters governing how a client dials,
// authenticates, and behaves on disconnect. Build one with NewConfig and
// zero or more Opts.
type Config struct {
	Host string
	Port int

	Database int

	Username Secret
	Password Secret

	ReconnectSleep time.Duration
	ConnectTimeout time.Duration

	SocketOptions SocketOptions
	TLS           *tls.Config

	Sentinel *SentinelConfig

	Name string

	MaxQueueSize   int // C7 only; 0 means unbounded
	QueueBehaviour OverflowPolicy

	Trace Trace
}

// Opt mutates a Config under construction.
type Opt func(*Config)

// NewConfig builds a Config from defaults plus opts, following the
// library's functional-options idiom throughout.
func NewConfig(opts ...Opt) Config {
	c := Config{
		Host:           "localhost",
		Port:           6379,
		ReconnectSleep: 100 * time.Millisecond,
		ConnectTimeout: 5 * time.Second,
		SocketOptions:  DefaultSocketOptions(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func Host(host string) Opt {
	return func(c *Config) { c.Host = host }
}

func Port(port int) Opt {
	return func(c *Config) { c.Port = port }
}

// UnixSocket points the client at a Unix-domain socket path instead of a
// host/port pair; Port is ignored when Host is a UDS path (detection is the
// address resolver's job, see resolve.go).
func UnixSocket(path string) Opt {
	return func(c *Config) { c.Host = path }
}

func Database(db int) Opt {
	return func(c *Config) { c.Database = db }
}

func Username(s Secret) Opt {
	return func(c *Config) { c.Username = s }
}

func Password(s Secret) Opt {
	return func(c *Config) { c.Password = s }
}

func ReconnectSleep(d time.Duration) Opt {
	return func(c *Config) { c.ReconnectSleep = d }
}

func ConnectTimeout(d time.Duration) Opt {
	return func(c *Config) { c.ConnectTimeout = d }
}

func WithSocketOptions(o SocketOptions) Opt {
	return func(c *Config) { c.SocketOptions = o }
}

func WithTLS(cfg *tls.Config) Opt {
	return func(c *Config) { c.TLS = cfg }
}

func WithSentinel(group string, endpoints ...string) Opt {
	return func(c *Config) {
		c.Sentinel = &SentinelConfig{MasterGroup: group, Endpoints: endpoints}
	}
}

func Name(name string) Opt {
	return func(c *Config) { c.Name = name }
}

// MaxQueueSize bounds a subscription client's pending-message queue; size 0
// (the default) leaves it unbounded.
func MaxQueueSize(size int) Opt {
	return func(c *Config) { c.MaxQueueSize = size }
}

func QueueBehaviour(p OverflowPolicy) Opt {
	return func(c *Config) { c.QueueBehaviour = p }
}

func WithTrace(t Trace) Opt {
	return func(c *Config) { c.Trace = t }
}
