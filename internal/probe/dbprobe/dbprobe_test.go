package dbprobe

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

func TestTCPReachableUpWhenListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	m := &monitor.Monitor{
		DBConnString: "redis://" + ln.Addr().String(),
		Timeout:      2,
	}
	res, err := TCPReachable{Label: "redis"}.Check(context.Background(), m, probe.Env{})
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusUp, res.Status)
}

func TestTCPReachableDownWhenUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	m := &monitor.Monitor{DBConnString: "redis://" + addr, Timeout: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = TCPReachable{Label: "redis"}.Check(ctx, m, probe.Env{})
	assert.Error(t, err)
}

func TestHostPortMySQLDSN(t *testing.T) {
	addr, err := hostPort("user:pass@tcp(127.0.0.1:3306)/db")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3306", addr)
}

func TestHostPortMongoURLDefaultsPort(t *testing.T) {
	addr, err := hostPort("mongodb://127.0.0.1/mydb")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:27017", addr)
}

func TestHostPortUnparseable(t *testing.T) {
	_, err := hostPort("not a connection string")
	assert.Error(t, err)
}
