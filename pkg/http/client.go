package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

type TransportFunc func(http.RoundTripper) http.RoundTripper

type httpConfig struct {
	connClientTimeout     time.Duration
	requestTimeout        time.Duration
	clientKeepAlive       time.Duration
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
	idleConnTimeout       time.Duration
	maxIdleConns          int
	maxIdleConnsPerHost   int
	transports            []TransportFunc
	insecureSkipVerify    bool
}

func defaultHTTPConfig() *httpConfig {
	return &httpConfig{
		connClientTimeout:     10 * time.Second,
		requestTimeout:        60 * time.Second,
		clientKeepAlive:       90 * time.Second,
		tlsHandshakeTimeout:   10 * time.Second,
		responseHeaderTimeout: 60 * time.Second,
		idleConnTimeout:       90 * time.Second,
		maxIdleConns:          100,
		maxIdleConnsPerHost:   16,
	}
}

// NewClient builds a standalone *http.Client with the connector's transport stack.
// Used by SDK clients that accept their own http.Client or RoundTripper.
func NewClient(opts ...HttpOpts) *http.Client {
	return newClient(opts...)
}

func newClient(opts ...HttpOpts) *http.Client {
	cfg := defaultHTTPConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var transport http.RoundTripper = newTransport(cfg)
	// The first registered wrapper ends up outermost
	for i := len(cfg.transports) - 1; i >= 0; i-- {
		transport = cfg.transports[i](transport)
	}

	return &http.Client{
		Timeout:   cfg.requestTimeout,
		Transport: transport,
	}
}

func newTransport(cfg *httpConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.connClientTimeout,
		KeepAlive: cfg.clientKeepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.maxIdleConns,
		MaxIdleConnsPerHost:   cfg.maxIdleConnsPerHost,
		TLSHandshakeTimeout:   cfg.tlsHandshakeTimeout,
		ResponseHeaderTimeout: cfg.responseHeaderTimeout,
		IdleConnTimeout:       cfg.idleConnTimeout,
	}

	if cfg.insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // opt-in for self-signed dev clusters
		}
	}

	return transport
}
