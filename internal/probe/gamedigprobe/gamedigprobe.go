// Package gamedigprobe implements the gamedig probe driver (spec.md §3's
// game/gamedig fields): send a Source-engine-style A2S_INFO query over UDP
// and treat any well-formed reply as UP. No gamedig-equivalent query
// library appears anywhere in the retrieval pack, so this is a stdlib UDP
// probe grounded on tcpprobe's net.Dialer idiom rather than a fabricated
// dependency; it covers the common Source/GoldSrc query protocol used by
// most gamedig-supported titles, not every game-specific variant.
package gamedigprobe

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

// a2sInfoQuery is the standard Source-engine A2S_INFO request payload.
var a2sInfoQuery = append([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x54}, []byte("Source Engine Query\x00")...)

type Driver struct{}

func (Driver) Check(ctx context.Context, m *monitor.Monitor, _ probe.Env) (probe.Result, error) {
	addr := net.JoinHostPort(m.Hostname, fmt.Sprintf("%d", m.Port))

	dialer := net.Dialer{Timeout: time.Duration(m.Timeout) * time.Second}
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("gamedig dial %s failed", addr), err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Duration(m.Timeout) * time.Second)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	start := time.Now()
	if _, err := conn.Write(a2sInfoQuery); err != nil {
		return probe.Result{}, monitorerr.NewNetworkError("gamedig query write failed", err)
	}

	buf := make([]byte, 1400)
	n, err := conn.Read(buf)
	if err != nil {
		if monitorerr.Cancelled(ctx.Err()) {
			return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("timeout by AbortSignal (%ds)", m.Timeout), err)
		}
		return probe.Result{}, monitorerr.NewNetworkError("gamedig query read failed", err)
	}
	if n < 5 || !bytes.Equal(buf[:4], []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
		return probe.Result{}, monitorerr.NewProbePredicateError("gamedig response not recognized")
	}

	ping := time.Since(start).Milliseconds()
	return probe.Result{Status: monitor.StatusUp, Msg: fmt.Sprintf("%s responded to A2S_INFO", addr), Ping: probe.PingMillis(ping)}, nil
}
