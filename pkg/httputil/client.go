// Package httputil provides shared HTTP plumbing for the triage service:
// a pooled transport, tiered timeout clients, and safe body reading for
// the external services we call (oracle, geocoder, LINE platform).
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize caps response bodies read from external services.
// The oracle and the geocoder are not trusted to behave; an unbounded
// read is an easy way to take the whole process down.
const MaxResponseSize = 2 * 1024 * 1024 // 2MB

// Shared transport with connection pooling, reused by every client tier.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          64,
	MaxIdleConnsPerHost:   8,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// TimeoutTier selects a client by how long the remote end is allowed to take.
type TimeoutTier int

const (
	// TierFast is for the geocoder and health probes (5s).
	TierFast TimeoutTier = iota
	// TierMedium is for oracle chat calls (15s). Per-request deadlines are
	// usually tighter and carried in the context; this is the hard ceiling.
	TierMedium
	// TierSlow is for embedding batches at startup (60s).
	TierSlow
)

var tierTimeouts = map[TimeoutTier]time.Duration{
	TierFast:   5 * time.Second,
	TierMedium: 15 * time.Second,
	TierSlow:   60 * time.Second,
}

var (
	tierClients map[TimeoutTier]*http.Client
	clientOnce  sync.Once
)

// Client returns the shared HTTP client for a timeout tier. Callers must not
// mutate the returned client; all tiers share one connection pool.
func Client(tier TimeoutTier) *http.Client {
	clientOnce.Do(func() {
		tierClients = make(map[TimeoutTier]*http.Client, len(tierTimeouts))
		for t, d := range tierTimeouts {
			tierClients[t] = &http.Client{Timeout: d, Transport: sharedTransport}
		}
	})
	if c, ok := tierClients[tier]; ok {
		return c
	}
	return tierClients[TierMedium]
}

// ReadResponseBody reads a response body with a size cap.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose drains and closes a response body so the underlying
// connection can go back to the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
