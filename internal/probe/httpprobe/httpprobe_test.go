package httpprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

func TestCheckKeyword(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		keyword string
		invert  bool
		wantErr bool
	}{
		{name: "present", body: "hello world", keyword: "world", wantErr: false},
		{name: "absent", body: "hello world", keyword: "missing", wantErr: true},
		{name: "inverted present is error", body: "hello world", keyword: "world", invert: true, wantErr: true},
		{name: "inverted absent is ok", body: "hello world", keyword: "missing", invert: true, wantErr: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &monitor.Monitor{Keyword: tc.keyword, InvertKeyword: tc.invert}
			res, err := checkKeyword(m, []byte(tc.body), 200, 5, nil)
			if tc.wantErr {
				require.Error(t, err)
				var predErr *monitorerr.ProbePredicateError
				require.ErrorAs(t, err, &predErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, monitor.StatusUp, res.Status)
		})
	}
}

func TestCheckJSONQuery(t *testing.T) {
	body := `{"data":{"items":[{"status":"ok"},{"status":"degraded"}]}}`

	cases := []struct {
		name     string
		path     string
		expected string
		wantErr  bool
	}{
		{name: "dotted path into array index", path: "$.data.items[0].status", expected: "ok"},
		{name: "second array element", path: "$.data.items[1].status", expected: "degraded"},
		{name: "mismatched value", path: "$.data.items[0].status", expected: "degraded", wantErr: true},
		{name: "missing key", path: "$.data.missing", expected: "ok", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &monitor.Monitor{JSONPath: tc.path, ExpectedValue: tc.expected}
			res, err := checkJSONQuery(m, []byte(body), 200, 5, nil)
			if tc.wantErr {
				require.Error(t, err)
				var predErr *monitorerr.ProbePredicateError
				require.ErrorAs(t, err, &predErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, monitor.StatusUp, res.Status)
		})
	}
}

func TestCheckJSONQueryInvalidBody(t *testing.T) {
	m := &monitor.Monitor{JSONPath: "$.status", ExpectedValue: "ok"}
	_, err := checkJSONQuery(m, []byte("not json"), 200, 5, nil)
	require.Error(t, err)
	var predErr *monitorerr.ProbePredicateError
	require.ErrorAs(t, err, &predErr)
}

func TestCollectContentFieldsJSONObject(t *testing.T) {
	body := []byte(`{"message":{"content":"hi there"},"choices":[{"delta":{"content":"more"}}]}`)
	values, paths, err := collectContentFields(body)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.ElementsMatch(t, []any{"hi there", "more"}, values)
	assert.ElementsMatch(t, []string{"message.content", "choices[0].delta.content"}, paths)
}

func TestCollectContentFieldsAllNull(t *testing.T) {
	body := []byte(`{"content":null}`)
	values, _, err := collectContentFields(body)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Nil(t, values[0])
}

func TestCollectContentFieldsSSEStream(t *testing.T) {
	body := []byte("data: {\"content\":\"chunk one\"}\n" +
		"data: {\"content\":\"chunk two\"}\n" +
		"data: [DONE]\n")
	values, paths, err := collectContentFields(body)
	require.NoError(t, err)
	assert.Equal(t, []any{"chunk one", "chunk two"}, values)
	assert.Equal(t, []string{"content", "content"}, paths)
}

func TestCollectContentFieldsSSEIgnoresMalformedFrames(t *testing.T) {
	body := []byte("data: not json\n" +
		"data: {\"content\":\"good\"}\n")
	values, _, err := collectContentFields(body)
	require.NoError(t, err)
	assert.Equal(t, []any{"good"}, values)
}

// TestCheckHTTPContentParameterAllNullFails covers checkHTTP's
// CheckContentParameter predicate: every collected "*content" field being
// null fails the probe even though the HTTP status itself was accepted.
func TestCheckHTTPContentParameterAllNullFails(t *testing.T) {
	m := &monitor.Monitor{CheckContentParameter: true}
	_, err := checkHTTP(m, []byte(`{"content":null}`), 200, 5, nil)
	require.Error(t, err)
	var predErr *monitorerr.ProbePredicateError
	require.ErrorAs(t, err, &predErr)
}

func TestCheckHTTPContentParameterPasses(t *testing.T) {
	m := &monitor.Monitor{CheckContentParameter: true}
	res, err := checkHTTP(m, []byte(`{"content":"hi"}`), 200, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusUp, res.Status)
}

// TestDriverCheckStatusAcceptedIntegration exercises the full Check path
// against a real httptest.Server, asserting that a custom
// AcceptedStatusCodes entry (the exact code "404") admits a response the
// default 2xx-only rule would reject.
func TestDriverCheckStatusAcceptedIntegration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found but expected"))
	}))
	defer srv.Close()

	m := &monitor.Monitor{
		URL:                 srv.URL,
		Method:              http.MethodGet,
		Timeout:             2,
		MaxRedirects:        1,
		AcceptedStatusCodes: []string{"404"},
	}
	driver := New(ModeHTTP)
	res, err := driver.Check(context.Background(), m, probe.Env{})
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusUp, res.Status)
}

func TestDriverCheckStatusRejectedWhenNotAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := &monitor.Monitor{URL: srv.URL, Method: http.MethodGet, Timeout: 2, MaxRedirects: 1}
	driver := New(ModeHTTP)
	_, err := driver.Check(context.Background(), m, probe.Env{})
	require.Error(t, err)
	var predErr *monitorerr.ProbePredicateError
	require.ErrorAs(t, err, &predErr)
}

func TestDriverCheckKeywordIntegration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("the system is operational"))
	}))
	defer srv.Close()

	m := &monitor.Monitor{URL: srv.URL, Method: http.MethodGet, Timeout: 2, MaxRedirects: 1, Keyword: "operational"}
	driver := New(ModeKeyword)
	res, err := driver.Check(context.Background(), m, probe.Env{})
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusUp, res.Status)
}
