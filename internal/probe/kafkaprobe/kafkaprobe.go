// Package kafkaprobe implements the kafka-producer probe driver (spec.md
// §4.5/§3's kafka fields): write one probe message to the configured topic
// and treat a successful write acknowledgement as UP. Grounded on the
// teacher's internal/repository/kafka/producer.go Writer construction
// (kafka.TCP address resolution, kafka.Hash balancer, AllowAutoTopicCreation)
// without its OpenTelemetry span wrapping, which belongs to the teacher's
// own service boundary rather than a one-shot probe.
package kafkaprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

type Driver struct{}

func (Driver) Check(ctx context.Context, m *monitor.Monitor, _ probe.Env) (probe.Result, error) {
	if len(m.KafkaBrokers) == 0 || m.KafkaTopic == "" {
		return probe.Result{}, monitorerr.NewConfigError("kafka probe requires brokers and a topic")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(m.KafkaBrokers...),
		Topic:                  m.KafkaTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           time.Duration(m.Timeout) * time.Second,
	}
	defer w.Close()

	start := time.Now()
	err := w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("monitor-%d", m.ID)),
		Value: []byte("probe"),
		Time:  start,
	})
	if err != nil {
		if monitorerr.Cancelled(ctx.Err()) {
			return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("timeout by AbortSignal (%ds)", m.Timeout), err)
		}
		return probe.Result{}, monitorerr.NewNetworkError("kafka produce failed", err)
	}
	ping := time.Since(start).Milliseconds()
	return probe.Result{Status: monitor.StatusUp, Msg: fmt.Sprintf("Produced to %s", m.KafkaTopic), Ping: probe.PingMillis(ping)}, nil
}
