// Package mqttprobe implements the mqtt probe driver (spec.md §3's mqtt
// fields): connect to the broker and either publish a probe message or
// subscribe and wait for a matching payload on the configured topic.
// Sourced from github.com/eclipse/paho.golang, which reaches the retrieval
// pack only as an indirect dependency of _examples/pineappledr-vigil (no
// pack repo exercises its API directly) — named per the ecosystem, not
// grounded on an in-pack call site, per DESIGN.md.
package mqttprobe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

type Driver struct{}

func (Driver) Check(ctx context.Context, m *monitor.Monitor, _ probe.Env) (probe.Result, error) {
	addr := net.JoinHostPort(m.Hostname, fmt.Sprintf("%d", m.Port))
	dialer := net.Dialer{Timeout: time.Duration(m.Timeout) * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("mqtt dial %s failed", addr), err)
	}

	received := make(chan string, 1)
	client := paho.NewClient(paho.ClientConfig{
		Conn: conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				select {
				case received <- string(pr.Packet.Payload):
				default:
				}
				return true, nil
			},
		},
	})
	defer conn.Close()

	start := time.Now()
	connect := &paho.Connect{
		KeepAlive:  30,
		ClientID:   fmt.Sprintf("vigilant-probe-%d", m.ID),
		CleanStart: true,
	}
	if m.MQTTUsername != "" {
		connect.Username = m.MQTTUsername
		connect.UsernameFlag = true
		connect.Password = []byte(m.MQTTPassword)
		connect.PasswordFlag = true
	}
	if _, err := client.Connect(ctx, connect); err != nil {
		return probe.Result{}, monitorerr.NewNetworkError("mqtt connect failed", err)
	}

	switch m.MQTTCheckType {
	case "publish":
		if _, err := client.Publish(ctx, &paho.Publish{Topic: m.MQTTTopic, Payload: []byte(m.MQTTSuccessMsg)}); err != nil {
			return probe.Result{}, monitorerr.NewNetworkError("mqtt publish failed", err)
		}
		ping := time.Since(start).Milliseconds()
		return probe.Result{Status: monitor.StatusUp, Msg: fmt.Sprintf("Published to %s", m.MQTTTopic), Ping: probe.PingMillis(ping)}, nil

	default: // "subscribe"
		if _, err := client.Subscribe(ctx, &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{{Topic: m.MQTTTopic, QoS: 0}},
		}); err != nil {
			return probe.Result{}, monitorerr.NewNetworkError("mqtt subscribe failed", err)
		}
		select {
		case payload := <-received:
			if m.MQTTSuccessMsg != "" && payload != m.MQTTSuccessMsg {
				return probe.Result{}, monitorerr.NewProbePredicateError("mqtt message mismatch, got %q", payload)
			}
			ping := time.Since(start).Milliseconds()
			return probe.Result{Status: monitor.StatusUp, Msg: fmt.Sprintf("Received expected message on %s", m.MQTTTopic), Ping: probe.PingMillis(ping)}, nil
		case <-ctx.Done():
			return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("timeout by AbortSignal (%ds)", m.Timeout), ctx.Err())
		}
	}
}
