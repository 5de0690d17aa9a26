package eredis

import (
	"fmt"
	"net"
	"strconv"
)

// Family names the address family a resolved endpoint belongs to.
type Family uint8

const (
	FamilyTCP4 Family = iota
	FamilyTCP6
	FamilyLocal
)

// Addr is one resolved, dialable endpoint.
type Addr struct {
	Family  Family
	Network string // "tcp" or "unix"
	Address string // host:port, or a UDS path for FamilyLocal
}

// resolveAddrs turns a configured host (DNS name, IPv4/IPv6 literal, or a
// Unix-domain path) plus port into an ordered, de-duplicated list of
// dialable addresses. A name's IPv6 addresses are used when it has any; its
// IPv4 addresses are returned only when it has no IPv6 address.
//
// A host containing a path separator is treated as a Unix-domain socket
// path; port is meaningless there and is ignored.
func resolveAddrs(host string, port int) ([]Addr, error) {
	if isUnixPath(host) {
		return []Addr{{Family: FamilyLocal, Network: "unix", Address: host}}, nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil && !isIPv6Literal(host) {
			return []Addr{{Family: FamilyTCP4, Network: "tcp", Address: joinHostPort(host, port)}}, nil
		}
		return []Addr{{Family: FamilyTCP6, Network: "tcp", Address: joinHostPort(host, port)}}, nil
	}

	var out []Addr
	seen := map[string]bool{}

	if ips, err := net.LookupIP(host); err == nil {
		for _, ip := range ips {
			if ip.To4() != nil {
				continue
			}
			a := joinHostPort(ip.String(), port)
			if !seen[a] {
				seen[a] = true
				out = append(out, Addr{Family: FamilyTCP6, Network: "tcp", Address: a})
			}
		}
		if len(out) == 0 {
			for _, ip := range ips {
				if ip.To4() == nil {
					continue
				}
				a := joinHostPort(ip.String(), port)
				if !seen[a] {
					seen[a] = true
					out = append(out, Addr{Family: FamilyTCP4, Network: "tcp", Address: a})
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("eredis: could not resolve host %q", host)
	}
	return out, nil
}

func isUnixPath(host string) bool {
	for _, c := range host {
		if c == '/' {
			return true
		}
	}
	return false
}

func isIPv6Literal(host string) bool {
	for _, c := range host {
		if c == ':' {
			return true
		}
	}
	return false
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
