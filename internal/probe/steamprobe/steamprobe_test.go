package steamprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

// redirectTransport forces every request onto a local httptest.Server
// regardless of the request's original host, since the driver's endpoint
// is a fixed Steam Web API URL.
type redirectTransport struct {
	base *url.URL
}

func (rt redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = rt.base.Scheme
	req.URL.Host = rt.base.Host
	return http.DefaultTransport.RoundTrip(req)
}

func redirectToTestServer(rawURL string) http.RoundTripper {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return redirectTransport{base: u}
}

func TestCheckMissingAPIKeyIsConfigError(t *testing.T) {
	_, err := Driver{}.Check(context.Background(), &monitor.Monitor{Hostname: "1.2.3.4", Port: 27015}, probe.Env{})
	var cfgErr *monitorerr.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckListedServerIsUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"servers":[{"addr":"1.2.3.4:27015","name":"test server"}]}}`))
	}))
	defer srv.Close()

	client := &http.Client{Transport: redirectToTestServer(srv.URL)}
	m := &monitor.Monitor{Hostname: "1.2.3.4", Port: 27015, Timeout: 2, SteamAPIKey: "key"}

	res, err := Driver{Client: client}.Check(context.Background(), m, probe.Env{UserAgent: "vigilant-test"})
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusUp, res.Status)
}

func TestCheckUnlistedServerIsPredicateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"servers":[]}}`))
	}))
	defer srv.Close()

	client := &http.Client{Transport: redirectToTestServer(srv.URL)}
	m := &monitor.Monitor{Hostname: "1.2.3.4", Port: 27015, Timeout: 2, SteamAPIKey: "key"}

	_, err := Driver{Client: client}.Check(context.Background(), m, probe.Env{})
	var predErr *monitorerr.ProbePredicateError
	assert.ErrorAs(t, err, &predErr)
}
