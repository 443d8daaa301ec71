package dockerprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

func TestCheckMissingConfigIsConfigError(t *testing.T) {
	_, err := Driver{}.Check(context.Background(), &monitor.Monitor{}, probe.Env{})
	var cfgErr *monitorerr.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCheckRunningContainerIsUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "mycontainer") {
			w.Write([]byte(`{"State":{"Running":true,"Status":"running"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m := &monitor.Monitor{
		DockerHost:      "tcp://" + strings.TrimPrefix(srv.URL, "http://"),
		DockerContainer: "mycontainer",
		Timeout:         2,
	}
	res, err := Driver{}.Check(context.Background(), m, probe.Env{})
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusUp, res.Status)
}

func TestCheckStoppedContainerIsPredicateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"State":{"Running":false,"Status":"exited"}}`))
	}))
	defer srv.Close()

	m := &monitor.Monitor{
		DockerHost:      "tcp://" + strings.TrimPrefix(srv.URL, "http://"),
		DockerContainer: "mycontainer",
		Timeout:         2,
	}
	_, err := Driver{}.Check(context.Background(), m, probe.Env{})
	var predErr *monitorerr.ProbePredicateError
	assert.ErrorAs(t, err, &predErr)
}

func TestBuildClientRejectsUnknownScheme(t *testing.T) {
	_, _, err := buildClient(&monitor.Monitor{DockerHost: "ssh://somewhere"})
	assert.Error(t, err)
}
