package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/mediabot/core/telegram/netutil"
)

const (
	dialTimeout       = 5 * time.Second
	tlsHandshake      = 5 * time.Second
	idleConnTimeout   = 30 * time.Second
	keepAliveInterval = 30 * time.Second
	// headerSlack is added on top of the long poll timeout so getUpdates is not cut short.
	headerSlack = 10 * time.Second
	// DefaultRequestTimeout bounds a whole API call, media uploads included.
	DefaultRequestTimeout = 5 * time.Minute
	retryAttempts         = 3
	retryBackoff          = 2 * time.Second
)

// HTTPClientOptions tunes BuildHTTPClient.
type HTTPClientOptions struct {
	// RequestTimeout bounds a single API call; zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
	// PollTimeout is the long poll timeout the server may hold a response for.
	PollTimeout time.Duration
}

// BuildHTTPClient returns an HTTP client for Telegram API calls that retries
// transient transport failures of replayable requests.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	headerTimeout := opts.PollTimeout + headerSlack
	if headerTimeout > timeout {
		headerTimeout = timeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &retryTransport{base: transport, maxRetries: retryAttempts, backoff: retryBackoff},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

// RoundTrip replays req only when its body can be rebuilt; streamed uploads get one attempt.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		next := req
		if attempt > 0 {
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			next = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				next.Body = body
			}
		}

		resp, err := base.RoundTrip(next)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == t.maxRetries {
			break
		}
		if delay := t.backoff * time.Duration(attempt+1); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}
	}
	return nil, lastErr
}
