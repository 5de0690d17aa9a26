package eredis

import (
	"strconv"
	"time"

	"github.com/joomcode/errorx"

	"github.com/Nordix/eredis/resp"
)

// bootstrapResult carries what a successful Connect produces that the
// driver needs across a connection's lifetime, beyond the open Transport
// itself.
type bootstrapResult struct {
	transport   *Transport
	addr        string
	connectedAt time.Time
}

// Connect implements C5 end to end: sentinel resolution if configured,
// address resolution, dial with per-address fallback, optional TLS
// upgrade, AUTH, SELECT, and re-arming push mode. It reports every attempt,
// successful or not, through cfg.Trace.
func Connect(cfg Config) (*bootstrapResult, error) {
	host, port, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}
	username := newMemoizedSecret(cfg.Username)
	password := newMemoizedSecret(cfg.Password)
	return connect(host, port, cfg, username, password)
}

// resolveTarget implements C5 step 1: sentinel resolution if configured,
// otherwise the statically configured host/port.
func resolveTarget(cfg Config) (string, int, error) {
	if cfg.Sentinel == nil {
		return cfg.Host, cfg.Port, nil
	}
	return sentinelResolveMaster(*cfg.Sentinel, cfg.ConnectTimeout)
}

func connect(host string, port int, cfg Config, username, password *memoizedSecret) (*bootstrapResult, error) {
	addrs, err := resolveAddrs(host, port)
	if err != nil {
		cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: host, Step: StepResolve, Err: err})
		return nil, withAddress(ErrConnection.Wrap(err, "resolve failed"), host)
	}

	var lastErr error
	var lastAddr string
	var t *Transport
	for _, a := range addrs {
		lastAddr = a.Address
		t, lastErr = dial(a, cfg.ConnectTimeout, cfg.SocketOptions)
		if lastErr == nil {
			break
		}
		cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: a.Address, Step: StepDial, Err: lastErr})
	}
	if t == nil {
		return nil, withAddress(ErrConnection.Wrap(lastErr, "all dial attempts failed"), lastAddr)
	}
	cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: lastAddr, Step: StepDial})

	if cfg.TLS != nil {
		if err := t.UpgradeTLS(cfg.TLS, cfg.ConnectTimeout); err != nil {
			t.Close()
			cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: lastAddr, Step: StepTLSUpgrade, Err: err})
			return nil, withAddress(ErrTLSUpgrade.Wrap(err, "tls handshake failed"), lastAddr)
		}
		cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: lastAddr, Step: StepTLSUpgrade})
	}

	if !username.isZero() || !password.isZero() {
		if errx := authenticate(t, username, password, cfg.ConnectTimeout); errx != nil {
			t.Close()
			cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: lastAddr, Step: StepAuth, Err: errx})
			return nil, withAddress(errx, lastAddr)
		}
		cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: lastAddr, Step: StepAuth})
	}

	if cfg.Database != 0 {
		if errx := selectDatabase(t, cfg.Database, cfg.ConnectTimeout); errx != nil {
			t.Close()
			cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: lastAddr, Step: StepSelect, Err: errx})
			return nil, withAddress(errx, lastAddr)
		}
		cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: lastAddr, Step: StepSelect})
	}

	t.SetActiveMode(ModeActiveOnce)
	readyAddr := lastAddr
	if remote := t.RemoteAddr(); remote != "" {
		readyAddr = remote
	}
	cfg.Trace.connect(ConnectTrace{Name: cfg.Name, Address: readyAddr, Step: StepReady})
	return &bootstrapResult{transport: t, addr: lastAddr, connectedAt: time.Now()}, nil
}

func authenticate(t *Transport, username, password *memoizedSecret, timeout time.Duration) *errorx.Error {
	var req []byte
	passBytes := password.get()
	if !username.isZero() {
		req = resp.EncodeCommand([]byte("AUTH"), username.get(), passBytes)
	} else {
		req = resp.EncodeCommand([]byte("AUTH"), passBytes)
	}
	if err := t.Send(req); err != nil {
		return ErrAuth.Wrap(err, "auth write failed")
	}
	v, err := t.RecvValue(timeout)
	if err != nil {
		return ErrAuth.Wrap(err, "auth read failed")
	}
	if !isOK(v) {
		return ErrAuth.Wrap(withReason(ErrUnexpectedResponse.New("unexpected AUTH reply"), describeValue(v)), "auth rejected")
	}
	return nil
}

func selectDatabase(t *Transport, db int, timeout time.Duration) *errorx.Error {
	req := resp.EncodeCommandStrings("SELECT", strconv.Itoa(db))
	if err := t.Send(req); err != nil {
		return ErrSelect.Wrap(err, "select write failed")
	}
	v, err := t.RecvValue(timeout)
	if err != nil {
		return ErrSelect.Wrap(err, "select read failed")
	}
	if !isOK(v) {
		return ErrSelect.Wrap(withReason(ErrUnexpectedResponse.New("unexpected SELECT reply"), describeValue(v)), "select rejected")
	}
	return nil
}

func isOK(v resp.Value) bool {
	return v.Type == resp.SimpleString && string(v.Str) == "OK"
}

func describeValue(v resp.Value) string {
	if v.Type == resp.Error {
		return v.String()
	}
	return v.Type.String()
}
