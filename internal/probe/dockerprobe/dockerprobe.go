// Package dockerprobe implements the docker probe driver (spec.md §3's
// docker fields): query the Docker Engine API's container inspect endpoint
// and treat State.Running as UP. Grounded on the teacher's custom
// http.Transport construction (internal/services/ping-worker/http_client.go)
// generalized to a Unix-socket DialContext for "unix:///var/run/docker.sock"
// hosts; no Docker SDK (docker/docker/client) appears in the retrieval pack,
// so this talks to the documented REST API directly, matching the pack's
// habit of using net/http for any one-off JSON API rather than pulling in a
// dedicated SDK.
package dockerprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

type Driver struct{}

type containerInspect struct {
	State struct {
		Running bool   `json:"Running"`
		Status  string `json:"Status"`
	} `json:"State"`
}

func (Driver) Check(ctx context.Context, m *monitor.Monitor, _ probe.Env) (probe.Result, error) {
	if m.DockerHost == "" || m.DockerContainer == "" {
		return probe.Result{}, monitorerr.NewConfigError("docker probe requires dockerHost and dockerContainer")
	}

	client, baseURL, err := buildClient(m)
	if err != nil {
		return probe.Result{}, monitorerr.NewConfigError("docker host %q: %v", m.DockerHost, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(m.Timeout)*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("%s/containers/%s/json", baseURL, m.DockerContainer)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return probe.Result{}, monitorerr.NewConfigError("build docker request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if monitorerr.Cancelled(reqCtx.Err()) {
			return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("timeout by AbortSignal (%ds)", m.Timeout), err)
		}
		return probe.Result{}, monitorerr.NewNetworkError("docker api request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return probe.Result{}, monitorerr.NewProbePredicateError("container %s not found", m.DockerContainer)
	}
	if resp.StatusCode != http.StatusOK {
		return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("docker api returned status %d", resp.StatusCode), nil)
	}

	var info containerInspect
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return probe.Result{}, monitorerr.NewConfigError("decode docker api response: %v", err)
	}

	ping := time.Since(start).Milliseconds()
	if !info.State.Running {
		return probe.Result{}, monitorerr.NewProbePredicateError("container %s is %s", m.DockerContainer, info.State.Status)
	}
	return probe.Result{Status: monitor.StatusUp, Msg: fmt.Sprintf("container %s is running", m.DockerContainer), Ping: probe.PingMillis(ping)}, nil
}

// buildClient returns an http.Client dialed to dockerHost and the base URL
// to prefix API paths with. A "unix://" host dials the socket directly and
// uses a fixed "http://docker" authority, the standard workaround for
// Go's http.Transport requiring a hostname even over a Unix socket.
func buildClient(m *monitor.Monitor) (*http.Client, string, error) {
	host := m.DockerHost
	switch {
	case strings.HasPrefix(host, "unix://"):
		socketPath := strings.TrimPrefix(host, "unix://")
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
			},
		}
		return &http.Client{Transport: transport}, "http://docker", nil
	case strings.HasPrefix(host, "tcp://"):
		return &http.Client{}, "http://" + strings.TrimPrefix(host, "tcp://"), nil
	default:
		return nil, "", fmt.Errorf("unsupported scheme, expected unix:// or tcp://")
	}
}
