package radiusprobe

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

func TestCheckMissingSecretIsConfigError(t *testing.T) {
	m := &monitor.Monitor{Hostname: "127.0.0.1", Port: 1812, Timeout: 1}
	_, err := Driver{}.Check(context.Background(), m, probe.Env{})
	var cfgErr *monitorerr.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckAcceptsAccessAcceptReply(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		buf := make([]byte, 1500)
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		reply := make([]byte, 20)
		reply[0] = codeAccessAccept
		reply[1] = buf[1] // echo identifier
		reply[2], reply[3] = 0, 20
		copy(reply[4:20], buf[4:20]) // echo request authenticator
		_, _ = conn.WriteTo(reply, addr)
		_ = n
	}()

	addr := conn.LocalAddr().(*net.UDPAddr)
	m := &monitor.Monitor{
		Hostname:       "127.0.0.1",
		Port:           addr.Port,
		Timeout:        2,
		RadiusSecret:   "testing123",
		RadiusUsername: "probe",
		RadiusPassword: "secret",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := Driver{}.Check(ctx, m, probe.Env{})
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusUp, res.Status)
}
