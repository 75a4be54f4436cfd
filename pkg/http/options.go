package http

import "time"

// HttpOpts tunes the client built by NewClient and NewConnector
type HttpOpts func(*httpConfig)

// WithConnClientTimeout bounds dialing a new connection
func WithConnClientTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.connClientTimeout = timeout
	}
}

// WithRequestTimeout bounds a whole request including reading the body.
// Zero leaves the bound to the request context.
func WithRequestTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.requestTimeout = timeout
	}
}

func WithClientKeepAlive(keepAlive time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.clientKeepAlive = keepAlive
	}
}

func WithResponseHeaderTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.responseHeaderTimeout = timeout
	}
}

func WithIdleConnTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.idleConnTimeout = timeout
	}
}

// WithMaxIdleConnsPerHost sizes the keep-alive pool. Bulk indexing against a
// single cluster endpoint needs more than the default.
func WithMaxIdleConnsPerHost(maxConns int) HttpOpts {
	return func(c *httpConfig) {
		c.maxIdleConnsPerHost = maxConns
		if c.maxIdleConns < maxConns {
			c.maxIdleConns = maxConns
		}
	}
}

// WithTransport registers a RoundTripper wrapper. Wrappers run in registration order.
func WithTransport(transport TransportFunc) HttpOpts {
	return func(c *httpConfig) {
		c.transports = append(c.transports, transport)
	}
}

// WithInsecureSkipVerify disables TLS verification, for self-signed development clusters only
func WithInsecureSkipVerify(skip bool) HttpOpts {
	return func(c *httpConfig) {
		c.insecureSkipVerify = skip
	}
}
