package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordClassified("timeline", 3)
	r.RecordClassified("timeline", 2)
	r.RecordDropped(4)
	r.RecordRender("bar", "ok")
	r.RecordRender("bar", "failed")
	r.RecordRender("bar", "ok")
	r.RecordError("publish")
	r.RecordLatency("render_seconds", 0.2)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.classified.WithLabelValues("timeline")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.dropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.renders.WithLabelValues("bar", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("publish")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}
