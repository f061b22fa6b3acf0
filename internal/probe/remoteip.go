package probe

import (
	"net"
	"net/http/httptrace"
	"sync"
)

// remoteIP records the peer IP of the first connection a request is sent on.
// Later connections opened for redirects are ignored.
type remoteIP struct {
	mu sync.Mutex
	ip string
}

// trace returns a ClientTrace that records the connection's remote address
func (r *remoteIP) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Conn == nil || info.Conn.RemoteAddr() == nil {
				return
			}
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.ip == "" {
				r.ip = addrIP(info.Conn.RemoteAddr())
			}
		},
	}
}

// IP returns the recorded IP, or empty string if no connection was made
func (r *remoteIP) IP() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ip
}

// addrIP strips the port from a network address
func addrIP(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String()
	case *net.UDPAddr:
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
