package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestSink_RecordsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewSink(reg)

	sink.InvocationStarted()
	sink.InvocationSettled(5*time.Millisecond, nil)
	sink.LeakDetected()

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var leaked float64
	for _, mf := range metricFamilies {
		if mf.GetName() == "proction_leaked_intermediates_total" {
			leaked = mf.Metric[0].GetCounter().GetValue()
		}
	}
	require.Equal(t, float64(1), leaked)
}
