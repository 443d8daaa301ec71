// Command vigilant is the monitor runtime process: it loads the configured
// Repository backend, wires every probe driver into a registry, and runs
// the Supervisor until told to stop. Grounded on the teacher's
// cmd/ping-worker/main.go wiring shape (load config, build logger, open
// the store, build collaborators inline in main, start, wait on a signal
// context, shut down gracefully).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/vigilant/internal/config"
	"github.com/NordCoder/vigilant/internal/livebus"
	"github.com/NordCoder/vigilant/internal/metrics"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/notify"
	"github.com/NordCoder/vigilant/internal/obs"
	"github.com/NordCoder/vigilant/internal/precmd"
	"github.com/NordCoder/vigilant/internal/probe"
	"github.com/NordCoder/vigilant/internal/probe/dbprobe"
	"github.com/NordCoder/vigilant/internal/probe/dnsprobe"
	"github.com/NordCoder/vigilant/internal/probe/dockerprobe"
	"github.com/NordCoder/vigilant/internal/probe/gamedigprobe"
	"github.com/NordCoder/vigilant/internal/probe/grpcprobe"
	"github.com/NordCoder/vigilant/internal/probe/groupprobe"
	"github.com/NordCoder/vigilant/internal/probe/httpprobe"
	"github.com/NordCoder/vigilant/internal/probe/kafkaprobe"
	"github.com/NordCoder/vigilant/internal/probe/mqttprobe"
	"github.com/NordCoder/vigilant/internal/probe/radiusprobe"
	"github.com/NordCoder/vigilant/internal/probe/steamprobe"
	"github.com/NordCoder/vigilant/internal/probe/tcpprobe"
	pg "github.com/NordCoder/vigilant/internal/repo/postgres"
	lite "github.com/NordCoder/vigilant/internal/repo/sqlite"
	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/runtime"
	"github.com/NordCoder/vigilant/internal/supervisor"
	"github.com/NordCoder/vigilant/internal/tlstrack"
	"github.com/NordCoder/vigilant/internal/uptime"
)

// monitorLister is satisfied by both repo backends' boot-time listing
// helper, which repo.Repository itself has no need to expose.
type monitorLister interface {
	ListAllMonitorIDs(ctx context.Context) ([]int64, error)
}

func newRegistry() *probe.Registry {
	r := probe.NewRegistry()
	r.Register(monitor.TypeHTTP, httpprobe.New(httpprobe.ModeHTTP))
	r.Register(monitor.TypeKeyword, httpprobe.New(httpprobe.ModeKeyword))
	r.Register(monitor.TypeJSONQuery, httpprobe.New(httpprobe.ModeJSONQuery))
	r.Register(monitor.TypePort, tcpprobe.Port{})
	r.Register(monitor.TypePing, tcpprobe.Ping{})
	r.Register(monitor.TypeDNS, dnsprobe.Driver{})
	r.Register(monitor.TypeGroup, groupprobe.Driver{})
	r.Register(monitor.TypeSteam, steamprobe.New())
	r.Register(monitor.TypeGamedig, gamedigprobe.Driver{})
	r.Register(monitor.TypeDocker, dockerprobe.Driver{})
	r.Register(monitor.TypeMQTT, mqttprobe.Driver{})
	r.Register(monitor.TypeKafkaProducer, kafkaprobe.Driver{})
	r.Register(monitor.TypeGRPCKeyword, grpcprobe.Driver{})
	r.Register(monitor.TypeRadius, radiusprobe.Driver{})
	r.Register(monitor.TypePostgres, dbprobe.Postgres{})
	r.Register(monitor.TypeSQLServer, dbprobe.TCPReachable{Label: "sqlserver"})
	r.Register(monitor.TypeMySQL, dbprobe.TCPReachable{Label: "mysql"})
	r.Register(monitor.TypeMongoDB, dbprobe.TCPReachable{Label: "mongodb"})
	r.Register(monitor.TypeRedis, dbprobe.TCPReachable{Label: "redis"})
	// TypePush is not registry-dispatched; runtime.MonitorRuntime special-cases it.
	return r
}

func openRepository(ctx context.Context, cfg *config.Config) (repo.Repository, monitorLister, func(), error) {
	switch cfg.Backend {
	case "postgres":
		db, err := pg.Open(ctx, pg.Config{
			URL:               cfg.Postgres.DSN,
			MaxConns:          cfg.Postgres.MaxConns,
			MinConns:          cfg.Postgres.MinConns,
			MaxConnLifetime:   cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime:   cfg.Postgres.MaxConnIdleTime,
			HealthCheckPeriod: cfg.Postgres.HealthCheckPeriod,
			QueryTimeout:      cfg.Postgres.QueryTimeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		r := pg.New(db)
		return r, r, func() { db.Close() }, nil
	default:
		db, err := lite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		r := lite.New(db)
		return r, r, func() { _ = db.Close() }, nil
	}
}

func loadTimezone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func main() {
	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("VIGILANT_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, App: "vigilant", Env: "prod", Ver: "1.0.0"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	otelHandle, err := obs.SetupOTel(root, &obs.OTELConfig{
		Enable:      cfg.OTel.Enable,
		Endpoint:    cfg.OTel.Endpoint,
		ServiceName: cfg.OTel.ServiceName,
		SampleRatio: cfg.OTel.SampleRatio,
	})
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelHandle.Shutdown(context.Background()) }()

	r, lister, closeRepo, err := openRepository(root, cfg)
	if err != nil {
		l.Fatal("open repository", zap.Error(err))
	}
	defer closeRepo()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error { return nil }, l)

	tz := loadTimezone(cfg.Scheduling.Timezone)
	sink := metrics.New()
	notifier := notify.New(r, l, tz)
	bus := livebus.New(l)
	tracker := tlstrack.New(r, sink, notifier, l, nil)

	deps := &runtime.Deps{
		Repo:      r,
		Registry:  newRegistry(),
		Notifier:  notifier,
		PreCmd:    precmd.New(l),
		TLSTrack:  tracker,
		Metrics:   sink,
		LiveBus:   bus,
		UptimeAgg: uptime.New(r),
		Env: runtime.EnvSnapshot{
			MinIntervalSeconds: cfg.Scheduling.MinIntervalSeconds,
			MaxIntervalSeconds: cfg.Scheduling.MaxIntervalSeconds,
			DemoMode:           cfg.Scheduling.DemoMode,
			TLSExpiryNotifyDays: func() []int {
				if len(cfg.Scheduling.TLSExpiryNotifyDays) == 0 {
					return runtime.DefaultEnv().TLSExpiryNotifyDays
				}
				return cfg.Scheduling.TLSExpiryNotifyDays
			}(),
			Timezone:  tz,
			UserAgent: "vigilant/1.0",
			Version:   "1.0.0",
		},
		Log: l,
	}

	sup := supervisor.New(deps)

	ids, err := lister.ListAllMonitorIDs(root)
	if err != nil {
		l.Fatal("list monitors at startup", zap.Error(err))
	}
	if err := sup.StartAll(root, r, ids); err != nil {
		l.Fatal("start monitors", zap.Error(err))
	}
	l.Info("vigilant started", zap.Int("monitors", sup.RunningCount()))

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws", bus.HandleConnection)
	wsSrv := &http.Server{Addr: cfg.Server.WSAddr, Handler: wsMux}
	go func() {
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Error("livebus server error", zap.Error(err))
		}
	}()

	<-root.Done()
	l.Info("shutting down")

	sup.StopAll()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	_ = wsSrv.Shutdown(shCtx)
	l.Info("bye")
}
