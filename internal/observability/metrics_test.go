package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.TokenIssued("access")
	m.TokenIssued("access")
	m.TokenIssued("refresh")
	m.TokenRevoked()
	m.GateRejected("revoked")
	m.LoginOutcome("reuse")
	m.SetBlacklistSize(4)
	m.RecordRequest("/api/posts", "GET", 200, 15*time.Millisecond)
	m.RecordError("/api/posts", "POST", "UNAUTHENTICATED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("access")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("refresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokensRevoked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateRejections.WithLabelValues("revoked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("reuse")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.blacklistSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/api/posts", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("POST", "/api/posts", "UNAUTHENTICATED")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TokenIssued("access")
		m.TokenRevoked()
		m.GateRejected("expired")
		m.LoginOutcome("failure")
		m.SetBlacklistSize(1)
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
	})
	assert.Nil(t, m.Registry())
}
