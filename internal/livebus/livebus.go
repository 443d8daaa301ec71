// Package livebus implements the LiveBus external collaborator (spec.md
// §1, §6.3): pushes heartbeats, aggregated stats, and certificate info to
// connected clients, keyed by owner identity. Grounded on the connection
// hub shape in _examples/pineappledr-vigil/internal/addons/websocket.go
// (gorilla/websocket upgrader, per-key connection map, ping loop), adapted
// from a single add-on key to a many-subscriber owner key and from an
// inbound telemetry hub to an outbound fan-out bus.
package livebus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Frame is the wire format pushed to a connected client, mirroring the
// event names in spec.md §6.3.
type Frame struct {
	Type    string          `json:"type"` // heartbeat | uptime
	Payload json.RawMessage `json:"payload"`
}

// StatsPayload is the payload of the "uptime" frame computed in Monitor
// Runtime step 9; it carries avgPing, uptime and certInfo together.
type StatsPayload struct {
	MonitorID int64   `json:"monitorId"`
	AvgPing   float64 `json:"avgPing"`
	Uptime24  float64 `json:"uptime24h"`
	Uptime720 float64 `json:"uptime720h"`
	CertInfo  any     `json:"certInfo,omitempty"`
}

// HeartbeatCallback and StatsCallback are the in-process subscription
// shapes Supervisor.OnHeartbeat/OnStats (spec.md §4.1) register.
type HeartbeatCallback func(ownerID int64, payload json.RawMessage)
type StatsCallback func(ownerID int64, stats StatsPayload)

type ownerConns struct {
	conns map[*websocket.Conn]struct{}
}

// Bus is the production LiveBus: in-process callbacks for the Supervisor's
// own OnHeartbeat/OnStats subscribers, plus a websocket fan-out transport
// for external clients connected via HandleConnection.
type Bus struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	byOwn map[int64]*ownerConns

	hbMu    sync.Mutex
	hbSubs  []HeartbeatCallback
	statMu  sync.Mutex
	statSub []StatsCallback
}

func New(log *zap.Logger) *Bus {
	return &Bus{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		byOwn: make(map[int64]*ownerConns),
	}
}

// OnHeartbeat registers an in-process callback invoked on every heartbeat
// emit, independent of whether any websocket client is connected.
func (b *Bus) OnHeartbeat(cb HeartbeatCallback) {
	b.hbMu.Lock()
	defer b.hbMu.Unlock()
	b.hbSubs = append(b.hbSubs, cb)
}

// OnStats registers an in-process callback invoked on every stats emit.
func (b *Bus) OnStats(cb StatsCallback) {
	b.statMu.Lock()
	defer b.statMu.Unlock()
	b.statSub = append(b.statSub, cb)
}

// HasSubscribers reports whether ownerID has at least one live websocket
// connection. Monitor Runtime step 9 skips stats computation entirely when
// this is false, so EmitStats is not called and the in-process OnStats
// callbacks do not fire for that owner either.
func (b *Bus) HasSubscribers(ownerID int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	oc, ok := b.byOwn[ownerID]
	return ok && len(oc.conns) > 0
}

// EmitHeartbeat pushes a heartbeat frame to ownerID's websocket
// subscribers and to every in-process OnHeartbeat callback. Delivery is
// best-effort but synchronous: each websocket write runs on the caller's
// goroutine with a 5-second deadline, and a subscriber whose write fails is
// dropped.
func (b *Bus) EmitHeartbeat(ownerID int64, payload json.RawMessage) {
	b.hbMu.Lock()
	subs := append([]HeartbeatCallback(nil), b.hbSubs...)
	b.hbMu.Unlock()
	for _, cb := range subs {
		cb(ownerID, payload)
	}
	b.broadcast(ownerID, Frame{Type: "heartbeat", Payload: payload})
}

// EmitStats pushes one "uptime" frame carrying avgPing, uptime and certInfo,
// only called by Monitor Runtime when HasSubscribers(ownerID) is true.
func (b *Bus) EmitStats(ownerID int64, stats StatsPayload) {
	b.statMu.Lock()
	subs := append([]StatsCallback(nil), b.statSub...)
	b.statMu.Unlock()
	for _, cb := range subs {
		cb(ownerID, stats)
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		b.log.Warn("marshal stats frame", zap.Error(err))
		return
	}
	b.broadcast(ownerID, Frame{Type: "uptime", Payload: raw})
}

func (b *Bus) broadcast(ownerID int64, frame Frame) {
	b.mu.RLock()
	oc, ok := b.byOwn[ownerID]
	b.mu.RUnlock()
	if !ok {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		b.log.Warn("marshal live frame", zap.Error(err))
		return
	}
	b.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(oc.conns))
	for c := range oc.conns {
		conns = append(conns, c)
	}
	b.mu.RUnlock()
	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			b.log.Debug("drop live subscriber", zap.Int64("owner_id", ownerID), zap.Error(err))
			b.remove(ownerID, c)
			c.Close()
		}
	}
}

// HandleConnection upgrades an HTTP request to a websocket fan-out
// subscription for the ownerID in the "owner_id" query parameter.
func (b *Bus) HandleConnection(w http.ResponseWriter, r *http.Request) {
	var ownerID int64
	if _, err := fmt.Sscanf(r.URL.Query().Get("owner_id"), "%d", &ownerID); err != nil || ownerID <= 0 {
		http.Error(w, "owner_id required", http.StatusBadRequest)
		return
	}
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("livebus upgrade failed", zap.Error(err))
		return
	}
	b.add(ownerID, conn)
	defer func() {
		b.remove(ownerID, conn)
		conn.Close()
	}()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go b.pingLoop(ctx, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Bus) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

func (b *Bus) add(ownerID int64, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	oc, ok := b.byOwn[ownerID]
	if !ok {
		oc = &ownerConns{conns: make(map[*websocket.Conn]struct{})}
		b.byOwn[ownerID] = oc
	}
	oc.conns[conn] = struct{}{}
}

func (b *Bus) remove(ownerID int64, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	oc, ok := b.byOwn[ownerID]
	if !ok {
		return
	}
	delete(oc.conns, conn)
	if len(oc.conns) == 0 {
		delete(b.byOwn, ownerID)
	}
}
