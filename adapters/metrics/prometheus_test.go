package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheus(reg)
	require.NoError(t, err)

	m.SessionIssued()
	m.SessionIssued()
	m.Authenticated(true)
	m.Authenticated(false)
	m.Authenticated(false)
	m.StarRegistered()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authentications.WithLabelValues("valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authentications.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stars))
}

func TestPrometheusDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg)
	require.NoError(t, err)

	_, err = NewPrometheus(reg)
	assert.Error(t, err)
}
