//go:build integration
// +build integration

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/picklecourt/courtdesk"
	"github.com/picklecourt/courtdesk/notify"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

const storageKey = "integration-storage-key-32-bytes"

// backend is a fake booking API with a payment socket that confirms an order once
// paid is closed.
type backend struct {
	srv   *httptest.Server
	token string
	paid  chan struct{}
}

func newBackend(t *testing.T, roles ...string) *backend {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("integration"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	b := &backend{token: token, paid: make(chan struct{})}

	roleObjs := make([]map[string]any, 0, len(roles))
	for _, r := range roles {
		roleObjs = append(roleObjs, map[string]any{"name": r})
	}
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/identity/auth/token", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 1000, "result": map[string]any{
			"token": b.token, "authenticated": true,
			"user": map[string]any{"id": "u-42", "username": "minh", "roles": roleObjs},
		}})
	})
	mux.HandleFunc("/court/public/booking_slot", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("courtId") != "court-9" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[
			{"courtSlotId":"s1","courtSlotName":"Court A","bookingSlots":[
				{"startTime":"17:00","endTime":"18:00","dailyPrice":120000,"studentPrice":90000,"status":"AVAILABLE"},
				{"startTime":"18:00","endTime":"19:00","dailyPrice":150000,"studentPrice":110000,"status":"AVAILABLE"},
				{"startTime":"19:00","endTime":"20:00","dailyPrice":150000,"studentPrice":110000,"status":"BOOKED"}]},
			{"courtSlotId":"s2","courtSlotName":"Court B","bookingSlots":[
				{"startTime":"17:00","endTime":"18:00","dailyPrice":100000,"studentPrice":80000,"status":"pending"},
				{"startTime":"18:00","endTime":"19:00","dailyPrice":100000,"studentPrice":80000}]}]`))
	})
	mux.HandleFunc("/identity/public/getOrderById", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": r.URL.Query().Get("orderId"), "paymentStatus": "Chưa thanh toán"})
	})
	mux.HandleFunc("/identity/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		select {
		case <-b.paid:
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"resCode":"200","message":"paid"}`))
		case <-r.Context().Done():
			return
		}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) wsURL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/identity/ws/notifications"
}

type env struct {
	backend *backend
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	sink    *notify.ChannelSink
}

func newEnv(t *testing.T, roles ...string) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &env{backend: newBackend(t, roles...), mr: mr, rdb: rdb, sink: notify.NewChannelSink(64)}
}

// desk builds a Desk sharing the env's Redis, as a restarted process would.
func (e *env) desk(t *testing.T) *courtdesk.Desk {
	t.Helper()
	cfg := courtdesk.DefaultConfig()
	cfg.API.BaseURL = e.backend.srv.URL
	cfg.Storage.Backend = courtdesk.BackendRedis
	cfg.Storage.RedisAddr = e.mr.Addr()
	cfg.Storage.Key = storageKey
	cfg.Payment.WebsocketURL = e.backend.wsURL()
	cfg.Payment.Timeout = 10 * time.Second
	cfg.Payment.PollInterval = time.Second

	d, err := courtdesk.New().
		WithConfig(cfg).
		WithLogger(zaptest.NewLogger(t)).
		WithRedis(e.rdb).
		WithNotifier(e.sink).
		Build(context.Background())
	if err != nil {
		t.Fatalf("build desk: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}
