package gamedigprobe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/probe"
)

func TestCheckRecognizesA2SReply(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		buf := make([]byte, 1500)
		_, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		reply := append([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x49}, []byte("fake server info")...)
		_, _ = conn.WriteTo(reply, addr)
	}()

	addr := conn.LocalAddr().(*net.UDPAddr)
	m := &monitor.Monitor{Hostname: "127.0.0.1", Port: addr.Port, Timeout: 2}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := Driver{}.Check(ctx, m, probe.Env{})
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusUp, res.Status)
}

func TestCheckRejectsMalformedReply(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		buf := make([]byte, 1500)
		_, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		_, _ = conn.WriteTo([]byte("not a2s"), addr)
	}()

	addr := conn.LocalAddr().(*net.UDPAddr)
	m := &monitor.Monitor{Hostname: "127.0.0.1", Port: addr.Port, Timeout: 2}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = Driver{}.Check(ctx, m, probe.Env{})
	assert.Error(t, err)
}
