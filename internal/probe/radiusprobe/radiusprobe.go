// Package radiusprobe implements the radius probe driver (spec.md §3's
// radius fields): send an RFC 2865 Access-Request over UDP and treat any
// Access-Accept/Access-Reject reply as UP (the server answered; whether it
// accepted the probe credentials is not what's being monitored). No RADIUS
// client library appears anywhere in the retrieval pack, so the packet is
// built by hand over net.PacketConn — a justified stdlib fallback, grounded
// on tcpprobe/gamedigprobe's raw net.Dialer probing style.
package radiusprobe

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"fmt"
	"net"
	"time"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

const (
	codeAccessRequest = 1
	codeAccessAccept  = 2
	codeAccessReject  = 3

	attrUserName        = 1
	attrUserPassword    = 2
	attrNASIdentifier   = 32
	attrCalledStationID = 30
)

type Driver struct{}

func (Driver) Check(ctx context.Context, m *monitor.Monitor, _ probe.Env) (probe.Result, error) {
	if m.RadiusSecret == "" {
		return probe.Result{}, monitorerr.NewConfigError("radius probe requires radiusSecret")
	}
	addr := net.JoinHostPort(m.Hostname, fmt.Sprintf("%d", m.Port))

	dialer := net.Dialer{Timeout: time.Duration(m.Timeout) * time.Second}
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("radius dial %s failed", addr), err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Duration(m.Timeout) * time.Second)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	authenticator := make([]byte, 16)
	if _, err := rand.Read(authenticator); err != nil {
		return probe.Result{}, monitorerr.NewConfigError("generate radius authenticator: %v", err)
	}

	packet, err := buildAccessRequest(m, authenticator)
	if err != nil {
		return probe.Result{}, monitorerr.NewConfigError("build radius packet: %v", err)
	}

	start := time.Now()
	if _, err := conn.Write(packet); err != nil {
		return probe.Result{}, monitorerr.NewNetworkError("radius write failed", err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		if monitorerr.Cancelled(ctx.Err()) {
			return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("timeout by AbortSignal (%ds)", m.Timeout), err)
		}
		return probe.Result{}, monitorerr.NewNetworkError("radius read failed", err)
	}
	if n < 20 {
		return probe.Result{}, monitorerr.NewProbePredicateError("radius response too short")
	}

	code := buf[0]
	if code != codeAccessAccept && code != codeAccessReject {
		return probe.Result{}, monitorerr.NewProbePredicateError("unexpected radius response code %d", code)
	}

	ping := time.Since(start).Milliseconds()
	return probe.Result{Status: monitor.StatusUp, Msg: "radius server responded", Ping: probe.PingMillis(ping)}, nil
}

func buildAccessRequest(m *monitor.Monitor, authenticator []byte) ([]byte, error) {
	var attrs []byte
	attrs = append(attrs, encodeAttr(attrUserName, []byte(m.RadiusUsername))...)

	encPass, err := encryptPassword(m.RadiusPassword, m.RadiusSecret, authenticator)
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, encodeAttr(attrUserPassword, encPass)...)
	attrs = append(attrs, encodeAttr(attrNASIdentifier, []byte("vigilant"))...)
	if m.RadiusCalledStationID != "" {
		attrs = append(attrs, encodeAttr(attrCalledStationID, []byte(m.RadiusCalledStationID))...)
	}

	length := 20 + len(attrs)
	pkt := make([]byte, 0, length)
	pkt = append(pkt, codeAccessRequest, 1, byte(length>>8), byte(length))
	pkt = append(pkt, authenticator...)
	pkt = append(pkt, attrs...)
	return pkt, nil
}

func encodeAttr(typ byte, value []byte) []byte {
	out := make([]byte, 2, 2+len(value))
	out[0] = typ
	out[1] = byte(len(value) + 2)
	return append(out, value...)
}

// encryptPassword implements RFC 2865 §5.2's User-Password obfuscation:
// XOR each 16-byte password block with MD5(secret || previous block).
func encryptPassword(password, secret string, authenticator []byte) ([]byte, error) {
	pw := []byte(password)
	if len(pw) == 0 {
		pw = make([]byte, 16)
	}
	padLen := (len(pw) + 15) / 16 * 16
	padded := make([]byte, padLen)
	copy(padded, pw)

	prev := authenticator
	out := make([]byte, 0, padLen)
	for i := 0; i < padLen; i += 16 {
		h := md5.New()
		h.Write([]byte(secret))
		h.Write(prev)
		sum := h.Sum(nil)

		block := make([]byte, 16)
		for j := 0; j < 16; j++ {
			block[j] = padded[i+j] ^ sum[j]
		}
		out = append(out, block...)
		prev = block
	}
	return out, nil
}
