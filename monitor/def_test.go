package monitor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPipelineCounters(t *testing.T) {
	// 指标在包级构造，StartMon 没跑也能安全递增
	before := testutil.ToFloat64(FramesTotal)
	FramesTotal.Inc()
	FramesTotal.Inc()
	assert.Equal(t, before+2, testutil.ToFloat64(FramesTotal))

	FireActive.Set(1)
	assert.Equal(t, float64(1), testutil.ToFloat64(FireActive))
	FireActive.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(FireActive))

	ActiveSessions.Inc()
	ActiveSessions.Dec()
	assert.Equal(t, float64(0), testutil.ToFloat64(ActiveSessions))
}

func TestCheckProcessInfo(t *testing.T) {
	GotPID()
	CheckProcessInfo()
	// 自身进程的内存占用肯定非负
	assert.GreaterOrEqual(t, testutil.ToFloat64(memUsage), float64(0))
	assert.GreaterOrEqual(t, testutil.ToFloat64(cpuUsage), float64(0))
}

func TestCheckProcessInfo_BadPidSkipsSample(t *testing.T) {
	GotPID()
	old := PID.Pid
	defer func() { PID.Pid = old }()

	memUsage.Set(42)
	cpuUsage.Set(7)
	PID.Pid = -1

	// 查不到进程信息时不 panic，本轮采样跳过
	assert.NotPanics(t, func() { CheckProcessInfo() })
	assert.Equal(t, float64(42), testutil.ToFloat64(memUsage))
	assert.Equal(t, float64(7), testutil.ToFloat64(cpuUsage))
}
