package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/cryptochan/internal/protocol"
	"github.com/danmuck/cryptochan/internal/server"
	"github.com/danmuck/cryptochan/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func do(t *testing.T, a *Admin, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	a.Router().ServeHTTP(rr, req)

	var body map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
	}
	return rr, body
}

func beginSession(t *testing.T, srv *server.Server) {
	t.Helper()
	buf := make([]byte, protocol.MaxMessageSize)
	req, err := protocol.EncodeRequest(buf, protocol.OpSHA384Begin, nil, nil, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	resp := make([]byte, protocol.MaxMessageSize)
	n := srv.Serve(1, req, resp)
	if h, err := protocol.DecodeResponseHeader(resp[:n]); err != nil || !h.Status.OK() {
		t.Fatalf("begin: %+v %v", h, err)
	}
}

func TestHealthAndReady(t *testing.T) {
	testlog.Start(t)

	a := New(server.New(nil), zerolog.Nop(), nil)
	rr, body := do(t, a, http.MethodGet, "/health")
	if rr.Code != http.StatusOK || body["status"] != "ok" || body["service"] != "cryptod" {
		t.Fatalf("health: %d %#v", rr.Code, body)
	}

	rr, body = do(t, a, http.MethodGet, "/ready")
	if rr.Code != http.StatusServiceUnavailable || body["ready"] != false {
		t.Fatalf("ready before SetReady: %d %#v", rr.Code, body)
	}
	a.SetReady(true)
	rr, body = do(t, a, http.MethodGet, "/ready")
	if rr.Code != http.StatusOK || body["ready"] != true {
		t.Fatalf("ready: %d %#v", rr.Code, body)
	}
}

func TestSessionInspectAndReset(t *testing.T) {
	testlog.Start(t)

	srv := server.New(nil)
	a := New(srv, zerolog.Nop(), nil)

	if rr, _ := do(t, a, http.MethodGet, "/session"); rr.Code != http.StatusNotFound {
		t.Fatalf("idle session: %d", rr.Code)
	}

	beginSession(t, srv)
	rr, body := do(t, a, http.MethodGet, "/session")
	if rr.Code != http.StatusOK || body["algorithm"] != "sha384" || body["id"] == "" {
		t.Fatalf("open session: %d %#v", rr.Code, body)
	}

	rr, body = do(t, a, http.MethodDelete, "/session")
	if rr.Code != http.StatusOK || body["reset"] != true {
		t.Fatalf("reset: %d %#v", rr.Code, body)
	}
	if _, ok := srv.Session(); ok {
		t.Fatalf("session survived reset")
	}
	if _, body := do(t, a, http.MethodDelete, "/session"); body["reset"] != false {
		t.Fatalf("second reset: %#v", body)
	}
}

func TestStatsAndMetrics(t *testing.T) {
	testlog.Start(t)

	srv := server.New(nil)
	a := New(srv, zerolog.Nop(), nil)
	beginSession(t, srv)

	rr, body := do(t, a, http.MethodGet, "/stats")
	if rr.Code != http.StatusOK || body["served"] != float64(1) || body["session"] != true {
		t.Fatalf("stats: %d %#v", rr.Code, body)
	}

	rr, _ = do(t, a, http.MethodGet, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "cryptochan_server_requests_total") {
		t.Fatalf("metrics missing server counter")
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	testlog.Start(t)

	a := New(server.New(nil), zerolog.Nop(), []string{"https://ops.example"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://ops.example")
	rr := httptest.NewRecorder()
	a.Router().ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	a.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign origin status = %d", rr.Code)
	}
}
