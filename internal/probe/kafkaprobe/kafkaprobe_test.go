package kafkaprobe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

func TestCheckMissingTopicIsConfigError(t *testing.T) {
	m := &monitor.Monitor{KafkaBrokers: []string{"127.0.0.1:9092"}}
	_, err := Driver{}.Check(context.Background(), m, probe.Env{})
	var cfgErr *monitorerr.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckMissingBrokersIsConfigError(t *testing.T) {
	m := &monitor.Monitor{KafkaTopic: "probe-topic"}
	_, err := Driver{}.Check(context.Background(), m, probe.Env{})
	var cfgErr *monitorerr.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckUnreachableBrokerIsNetworkError(t *testing.T) {
	m := &monitor.Monitor{
		KafkaBrokers: []string{"127.0.0.1:1"},
		KafkaTopic:   "probe-topic",
		Timeout:      1,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Driver{}.Check(ctx, m, probe.Env{})
	var netErr *monitorerr.NetworkError
	assert.ErrorAs(t, err, &netErr)
}
