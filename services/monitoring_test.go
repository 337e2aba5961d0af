package services

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMonitoringService_RecordsOnNilReceiver(t *testing.T) {
	var svc *MonitoringService

	ticks := testutil.ToFloat64(progressTicksTotal.WithLabelValues("SERVER_OBSERVED", "credited"))
	credited := testutil.ToFloat64(creditedWatchSecondsTotal)
	blocked := testutil.ToFloat64(playStateBlockedTotal)

	assert.NotPanics(t, func() {
		svc.RecordTick("SERVER_OBSERVED", "credited", 2.5, true)
		svc.RecordCheckIn("student", "valid", 2)
		svc.RecordReset()
		svc.RecordRateLimited(EndpointProgressTick)
	})

	assert.Equal(t, ticks+1, testutil.ToFloat64(progressTicksTotal.WithLabelValues("SERVER_OBSERVED", "credited")))
	assert.Equal(t, credited+2.5, testutil.ToFloat64(creditedWatchSecondsTotal))
	assert.Equal(t, blocked+1, testutil.ToFloat64(playStateBlockedTotal))
}
