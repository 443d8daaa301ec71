// Package monitor holds the configuration and identity model for a probe
// target: the Monitor itself, its status domain, and the small value types
// (maintenance windows, tags, push tokens) that travel with it.
package monitor

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the classification a beat settles into. Values mirror the
// wire-level ints spec.md assigns them so repository rows and live events
// sort and compare the way the original system does.
type Status int

const (
	StatusDown Status = 0
	StatusUp   Status = 1
	// StatusPending is the intermediate retry state between a failing probe
	// and a DOWN declaration.
	StatusPending Status = 2
	StatusMaintenance Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusDown:
		return "down"
	case StatusUp:
		return "up"
	case StatusPending:
		return "pending"
	case StatusMaintenance:
		return "maintenance"
	default:
		return "unknown"
	}
}

// Type selects the probe driver a Monitor dispatches to (§4.5).
type Type string

const (
	TypeHTTP       Type = "http"
	TypeKeyword    Type = "keyword"
	TypeJSONQuery  Type = "json-query"
	TypePort       Type = "port"
	TypePing       Type = "ping"
	TypeDNS        Type = "dns"
	TypePush       Type = "push"
	TypeSteam      Type = "steam"
	TypeGamedig    Type = "gamedig"
	TypeDocker     Type = "docker"
	TypeMQTT       Type = "mqtt"
	TypeSQLServer  Type = "sqlserver"
	TypePostgres   Type = "postgres"
	TypeMySQL      Type = "mysql"
	TypeMongoDB    Type = "mongodb"
	TypeRedis      Type = "redis"
	TypeRadius     Type = "radius"
	TypeGRPCKeyword Type = "grpc-keyword"
	TypeKafkaProducer Type = "kafka-producer"
	TypeGroup      Type = "group"
)

// AuthMode selects how an HTTP-family probe authenticates.
type AuthMode string

const (
	AuthNone    AuthMode = "none"
	AuthBasic   AuthMode = "basic"
	AuthOAuth2CC AuthMode = "oauth2-cc"
	AuthNTLM    AuthMode = "ntlm"
	AuthMTLS    AuthMode = "mtls"
)

// BodyEncoding selects how an HTTP-family probe's request body is framed.
type BodyEncoding string

const (
	BodyNone BodyEncoding = ""
	BodyJSON BodyEncoding = "json"
	BodyXML  BodyEncoding = "xml"
)

// DNSRecordType enumerates the resource record types the dns probe resolves.
type DNSRecordType string

const (
	DNSTypeA     DNSRecordType = "A"
	DNSTypeAAAA  DNSRecordType = "AAAA"
	DNSTypeCNAME DNSRecordType = "CNAME"
	DNSTypeCAA   DNSRecordType = "CAA"
	DNSTypeMX    DNSRecordType = "MX"
	DNSTypeNS    DNSRecordType = "NS"
	DNSTypePTR   DNSRecordType = "PTR"
	DNSTypeSOA   DNSRecordType = "SOA"
	DNSTypeSRV   DNSRecordType = "SRV"
	DNSTypeTXT   DNSRecordType = "TXT"
)

// OAuth2ClientCredentials is the cached token state for auth=oauth2-cc.
type OAuth2ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	cachedToken string
	expiresAt   time.Time
}

// CachedToken returns the cached access token if it hasn't expired yet.
func (o *OAuth2ClientCredentials) CachedToken(now time.Time) (string, bool) {
	if o.cachedToken == "" || !now.Before(o.expiresAt) {
		return "", false
	}
	return o.cachedToken, true
}

// SetCachedToken stores a freshly fetched access token and its expiry.
func (o *OAuth2ClientCredentials) SetCachedToken(token string, expiresAt time.Time) {
	o.cachedToken = token
	o.expiresAt = expiresAt
}

// MTLSMaterial is client certificate material for auth=mtls or general mTLS
// probing independent of the auth mode (e.g. a TLS port probe that also
// presents a client cert).
type MTLSMaterial struct {
	ClientCertPEM string
	ClientKeyPEM  string
	CACertPEM     string
}

// MaintenanceStrategy selects how a MaintenanceWindow recurs.
type MaintenanceStrategy string

const (
	MaintenanceSingle            MaintenanceStrategy = "single"
	MaintenanceRecurringInterval MaintenanceStrategy = "recurring-interval"
	MaintenanceRecurringWeekday  MaintenanceStrategy = "recurring-weekday"
	MaintenanceCron              MaintenanceStrategy = "cron"
)

// MaintenanceWindow suppresses probing for one or more monitors while active.
// spec.md §4.2 step 4 and §6.2 reference maintenance but leave the type
// implicit; this shape follows the comparable maintenance schedulers surveyed
// in the retrieval pack (aldy505-eyrie, MrYazdan-dideban).
type MaintenanceWindow struct {
	ID         int64
	Strategy   MaintenanceStrategy
	Start      time.Time
	End        time.Time
	Weekdays   []time.Weekday // used by MaintenanceRecurringWeekday
	DailyStart string         // "HH:MM", used by recurring strategies
	DailyEnd   string
	CronExpr   string // used by MaintenanceCron
	Active     bool
}

// Covers reports whether the window covers now.
func (w MaintenanceWindow) Covers(now time.Time) bool {
	if !w.Active {
		return false
	}
	switch w.Strategy {
	case MaintenanceSingle:
		return !now.Before(w.Start) && now.Before(w.End)
	case MaintenanceRecurringInterval:
		return !now.Before(w.Start) && (w.End.IsZero() || now.Before(w.End))
	case MaintenanceRecurringWeekday:
		for _, d := range w.Weekdays {
			if now.Weekday() == d {
				return withinDaily(now, w.DailyStart, w.DailyEnd)
			}
		}
		return false
	case MaintenanceCron:
		// Cron-expression evaluation is left to the caller (settings store);
		// Covers degrades to the daily window here.
		return withinDaily(now, w.DailyStart, w.DailyEnd)
	default:
		return false
	}
}

func withinDaily(now time.Time, start, end string) bool {
	if start == "" || end == "" {
		return true
	}
	s, err1 := time.Parse("15:04", start)
	e, err2 := time.Parse("15:04", end)
	if err1 != nil || err2 != nil {
		return true
	}
	nowMin := now.Hour()*60 + now.Minute()
	startMin := s.Hour()*60 + s.Minute()
	endMin := e.Hour()*60 + e.Minute()
	if startMin <= endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// window wraps midnight
	return nowMin >= startMin || nowMin < endMin
}

// Monitor is the configured probe target: identity plus every
// protocol-specific field named in spec.md §3.
type Monitor struct {
	ID      int64
	OwnerID int64
	Name    string
	Type    Type
	Tags    []string

	// http / keyword / json-query
	URL                  string
	Method               string
	Headers              map[string]string
	Body                 string
	BodyEncoding         BodyEncoding
	Keyword              string
	InvertKeyword        bool
	JSONPath             string
	ExpectedValue        string
	AcceptedStatusCodes  []string
	MaxRedirects         int
	ProxyURL             string
	Auth                 AuthMode
	BasicUser            string
	BasicPass            string
	OAuth2               *OAuth2ClientCredentials
	MTLS                 *MTLSMaterial
	CheckContentParameter bool

	// tcp / ping / generic network
	Hostname   string
	Port       int
	PacketSize int

	// dns
	DNSResolveServer string
	DNSResolveType   DNSRecordType
	dnsLastResult    string

	// docker
	DockerHost      string // unix:///var/run/docker.sock or tcp://host:port
	DockerContainer string
	DockerTLS       *MTLSMaterial

	// game / gamedig / steam
	GameID    string
	SteamAPIKey string

	// mqtt
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopic       string
	MQTTSuccessMsg  string
	MQTTCheckType   string // subscribe | publish

	// kafka
	KafkaBrokers []string
	KafkaTopic   string

	// radius
	RadiusSecret   string
	RadiusUsername string
	RadiusPassword string
	RadiusCalledStationID string

	// grpc
	GRPCServiceName string
	GRPCMethod      string
	GRPCDescriptorSetPath string
	GRPCBody        string

	// database probes
	DBConnString string
	DBQuery      string

	// push
	PushToken string

	// group
	ParentID *int64

	// scheduling / thresholds
	Interval            int // seconds
	RetryInterval        int // seconds
	ResendInterval        int // beats
	MaxRetries            int
	Timeout               int // seconds
	UpsideDown            bool
	IgnoreTLS             bool
	ExpiryNotification    bool
	Active                bool
	PreUpCommand          string
	PreDownCommand        string
	NotificationProviders []string
}

// NewPushToken mints an unguessable token for a push-type monitor, the way
// spec.md §6.1's /api/push/<token> endpoint expects.
func NewPushToken() string {
	return uuid.New().String()
}

// DNSLastResult returns the last persisted dns probe formatting string, used
// to decide whether the dns driver should write a fresh dns_last_result row.
func (m *Monitor) DNSLastResult() string { return m.dnsLastResult }

// SetDNSLastResult records the formatted dns result for change detection.
func (m *Monitor) SetDNSLastResult(s string) { m.dnsLastResult = s }

// publicMonitor is the subset of Monitor handed to PreCommandRunner and
// notification payloads (spec §4.9); secrets never leave the process.
type publicMonitor struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Type     Type     `json:"type"`
	URL      string   `json:"url,omitempty"`
	Hostname string   `json:"hostname,omitempty"`
	Port     int      `json:"port,omitempty"`
	Interval int      `json:"interval"`
	Tags     []string `json:"tags,omitempty"`
	Active   bool     `json:"active"`
}

// Public renders the notification/pre-command-safe projection described in
// SPEC_FULL.md's supplemented-features section.
func (m *Monitor) Public() json.RawMessage {
	pm := publicMonitor{
		ID:       m.ID,
		Name:     m.Name,
		Type:     m.Type,
		URL:      m.URL,
		Hostname: m.Hostname,
		Port:     m.Port,
		Interval: m.Interval,
		Tags:     m.Tags,
		Active:   m.Active,
	}
	b, err := json.Marshal(pm)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
