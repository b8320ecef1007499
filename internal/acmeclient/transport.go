package acmeclient

import (
	"context"
	"net/http"
)

// contextTransport binds every request to ctx. lego's api package builds its
// own requests without a context, so cancellation has to be injected here.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func withContext(ctx context.Context, client *http.Client) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport:     &contextTransport{ctx: ctx, base: base},
		CheckRedirect: client.CheckRedirect,
		Jar:           client.Jar,
		Timeout:       client.Timeout,
	}
}
