// Package precmd implements the PreCommandRunner external collaborator
// (spec.md §1, §4.2 step 8, §4.9 step 1): an effect-only shell command run
// on UP/DOWN transitions. Its failure must never abort the notification
// path that follows it. Grounded on the exec.CommandContext usage pattern
// in _examples/pineappledr-vigil/cmd/agent/smart/smart.go.
package precmd

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/vigilant/internal/monitor"
)

// Runner executes a monitor's preUpCommand/preDownCommand.
type Runner struct {
	log     *zap.Logger
	timeout time.Duration
}

func New(log *zap.Logger) *Runner {
	return &Runner{log: log, timeout: 30 * time.Second}
}

// Run executes the command configured for status on m, passing status and
// the public monitor projection as the MONITOR_STATUS and MONITOR_JSON
// environment variables (no arguments are passed), per spec.md §4.9
// step 1's "(status, publicMonitorJSON)" contract. A missing command is a
// no-op; a failing command is logged only.
func (r *Runner) Run(ctx context.Context, m *monitor.Monitor, status monitor.Status) {
	var command string
	switch status {
	case monitor.StatusUp:
		command = m.PreUpCommand
	case monitor.StatusDown:
		command = m.PreDownCommand
	default:
		return
	}
	if command == "" {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, _ := json.Marshal(json.RawMessage(m.Public()))

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	cmd.Env = append(cmd.Environ(),
		"MONITOR_STATUS="+status.String(),
		"MONITOR_JSON="+string(payload),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		r.log.Warn("pre-command failed",
			zap.Int64("monitor_id", m.ID),
			zap.String("status", status.String()),
			zap.Error(err),
			zap.ByteString("output", out),
		)
		return
	}
	r.log.Debug("pre-command ran", zap.Int64("monitor_id", m.ID), zap.String("status", status.String()))
}
