// Package config loads the process-level Config that seeds the runtime's
// immutable Env snapshot (runtime.EnvSnapshot), following the teacher's
// internal/config/<service>/config.go + loader.go split.
package config

import "time"

type Postgres struct {
	DSN               string        `mapstructure:"dsn"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

type SQLite struct {
	Path string `mapstructure:"path"`
}

type OTel struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"otlp_endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
	WSAddr      string `mapstructure:"ws_addr"`
}

// Scheduling holds the global monitor-runtime bounds from spec.md §6.4.
type Scheduling struct {
	MinIntervalSeconds int      `mapstructure:"min_interval_seconds"`
	MaxIntervalSeconds int      `mapstructure:"max_interval_seconds"`
	DemoMode           bool     `mapstructure:"demo_mode"`
	TLSExpiryNotifyDays []int   `mapstructure:"tls_expiry_notify_days"`
	Timezone           string   `mapstructure:"timezone"`
}

type Config struct {
	Postgres   Postgres   `mapstructure:"postgres"`
	SQLite     SQLite     `mapstructure:"sqlite"`
	Backend    string     `mapstructure:"backend"` // "postgres" | "sqlite"
	OTel       OTel       `mapstructure:"otel"`
	Server     Server     `mapstructure:"server"`
	Scheduling Scheduling `mapstructure:"scheduling"`
	LogLevel   string     `mapstructure:"log_level"`
}
