package http

import "net/http"

type authTransport struct {
	header    string
	value     string
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set(t.header, t.value)

	return t.transport.RoundTrip(reqCopy)
}

// WithAuthToken sends "Authorization: Bearer <token>". An empty token adds nothing.
func WithAuthToken(token string) HttpOpts {
	if token == "" {
		return func(*httpConfig) {}
	}
	return WithAuthHeader("Authorization", "Bearer "+token)
}

// WithAuthHeader sets a fixed credential header on every request
func WithAuthHeader(header, value string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &authTransport{
			header:    header,
			value:     value,
			transport: rt,
		}
	})
}
