package client

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/radcli/pkg/packet"
	"github.com/vitalvas/radcli/pkg/transport"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice fails")

	mem := transport.NewMemory(replyWith(t, packet.CodeAccessReject, nil))
	c := newTestClient(t, mem, WithMetrics(m))

	_, err = c.SendServer(context.Background(), sendData(packet.CodeAccessRequest, 0), nil)
	require.NoError(t, err)

	mem.Responder = nil
	_, err = c.SendServer(context.Background(), sendData(packet.CodeAccessRequest, 1), nil)
	require.ErrorIs(t, err, ErrTimeout)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("Access-Request", "reject")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("Access-Request", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retransmissions.WithLabelValues("Access-Request")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))

	r, err := c.NewRequest(testServer, packet.CodeAccessRequest, 0, nil, nil)
	require.NoError(t, err)
	mem.Responder = replyWith(t, packet.CodeAccessAccept, nil)
	require.True(t, r.Process(ready))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("Access-Request", "ok")))
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	m.observe("Access-Request", ResultOK, 0)
	m.retransmit("Access-Request")

	m, err := NewMetrics(nil)
	require.NoError(t, err)
	m.observe("Access-Request", ResultOK, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("Access-Request", "ok")))
}
