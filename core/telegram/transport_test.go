package telegram

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

type scriptedTransport struct {
	calls int
	fail  int
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if s.calls <= s.fail {
		return nil, timeoutErr{}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestRetryTransportRetriesReplayableRequests(t *testing.T) {
	base := &scriptedTransport{fail: 2}
	rt := &retryTransport{base: base, maxRetries: 3}

	req, err := http.NewRequest(http.MethodPost, "http://api.local/getMe", strings.NewReader("a=b"))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, base.calls)
}

func TestRetryTransportDoesNotReplayStreamedBody(t *testing.T) {
	base := &scriptedTransport{fail: 1}
	rt := &retryTransport{base: base, maxRetries: 3}

	req, err := http.NewRequest(http.MethodPost, "http://api.local/sendVideo", strings.NewReader("payload"))
	require.NoError(t, err)
	req.GetBody = nil

	_, err = rt.RoundTrip(req)
	var ne net.Error
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, 1, base.calls)
}

func TestBuildHTTPClientTimeouts(t *testing.T) {
	c := BuildHTTPClient(HTTPClientOptions{PollTimeout: 20 * time.Second})
	assert.Equal(t, DefaultRequestTimeout, c.Timeout)

	rt, ok := c.Transport.(*retryTransport)
	require.True(t, ok)
	tr, ok := rt.base.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, tr.ResponseHeaderTimeout)

	c = BuildHTTPClient(HTTPClientOptions{RequestTimeout: 15 * time.Second, PollTimeout: 20 * time.Second})
	tr = c.Transport.(*retryTransport).base.(*http.Transport)
	assert.Equal(t, 15*time.Second, tr.ResponseHeaderTimeout)
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "Webhook", Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://x"}})
	wh, ok := p.(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)

	p = BuildPoller(PollerOptions{RunMode: "longpoll"})
	lp, ok := p.(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, defaultLongPollTimeout, lp.Timeout)
}
