package mqttprobe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

func TestCheckUnreachableBrokerIsNetworkError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	m := &monitor.Monitor{Hostname: "127.0.0.1", Port: addr.Port, Timeout: 1, MQTTTopic: "probe"}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = Driver{}.Check(ctx, m, probe.Env{})
	var netErr *monitorerr.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestCheckConnectFailsOnNonMQTTPeer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = c.Write([]byte("not an mqtt connack"))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	m := &monitor.Monitor{Hostname: "127.0.0.1", Port: addr.Port, Timeout: 1, MQTTTopic: "probe"}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = Driver{}.Check(ctx, m, probe.Env{})
	assert.Error(t, err)
}
