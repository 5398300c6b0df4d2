package observability

import (
	"testing"
	"time"

	"github.com/danmuck/cryptochan/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordClientTransact("sha256", "ok", 3*time.Millisecond)
	RecordServerRequest("sha256", "success")
	SetActiveSessions(1)
	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)

	if got := testutil.ToFloat64(serverSessions); got != 1 {
		t.Fatalf("active sessions gauge got=%v", got)
	}
	before := testutil.ToFloat64(clientTransacts.WithLabelValues("hmac-sha256", "server"))
	RecordClientTransact("hmac-sha256", "server", time.Millisecond)
	if got := testutil.ToFloat64(clientTransacts.WithLabelValues("hmac-sha256", "server")); got != before+1 {
		t.Fatalf("client counter got=%v want=%v", got, before+1)
	}
}
