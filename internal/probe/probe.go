// Package probe defines the per-protocol Driver contract (spec.md §4.5) and
// the dispatch registry the Monitor Runtime calls into. Grounded on
// spec.md §9's design note: "replace open-ended type string branching with
// a registry mapping type -> ProbeDriver ... adding a driver is additive."
package probe

import (
	"context"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/tlsinfo"
)

// Result is a probe driver's outcome: the beat mutation described in
// spec.md §4.5's "{status, msg, ping, tlsInfo?}" contract. Status is only
// ever UP or PENDING on success — DOWN is always represented as an error
// so the Monitor Runtime's retry accounting has one code path.
type Result struct {
	Status  monitor.Status
	Msg     string
	Ping    *int64
	TLSInfo *tlsinfo.Info
}

// Env carries the process-wide dependencies a driver needs beyond the
// Monitor itself: the user-agent string (§6.1), and the Repository for the
// group driver's own reads and the dns driver's change-detection write.
type Env struct {
	UserAgent string
	Repo      repo.Repository
}

// Driver is the per-protocol probe contract. Implementations must respect
// ctx's deadline/cancellation and never block past it.
type Driver interface {
	Check(ctx context.Context, m *monitor.Monitor, env Env) (Result, error)
}

// Registry maps a Monitor's Type to its Driver, additive per spec.md §9.
type Registry struct {
	drivers map[monitor.Type]Driver
}

func NewRegistry() *Registry {
	return &Registry{drivers: make(map[monitor.Type]Driver)}
}

func (r *Registry) Register(t monitor.Type, d Driver) {
	r.drivers[t] = d
}

// Dispatch selects the Driver for m.Type and runs it. An unregistered type
// is a fatal ConfigError per spec.md §4.5's closing line.
func (r *Registry) Dispatch(ctx context.Context, m *monitor.Monitor, env Env) (Result, error) {
	d, ok := r.drivers[m.Type]
	if !ok {
		return Result{}, monitorerr.NewConfigError("Unknown Monitor Type")
	}
	res, err := d.Check(ctx, m, env)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// PingMillis is a small helper drivers use to build the Result.Ping field
// from a measured duration.
func PingMillis(ms int64) *int64 {
	return &ms
}
