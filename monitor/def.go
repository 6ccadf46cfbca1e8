package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
)

var (
	PID      process.Process
	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_Megabytes",
		Help: "Memory usage in Megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "CPU usage in percent",
	})
	// 流水线指标在包级构造，StartMon 之前递增也安全
	FramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "frames_processed_total",
		Help: "Total number of frames pulled through the detection pipeline",
	})
	EncodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "encode_failures_total",
		Help: "Total number of frames dropped because JPEG encoding failed",
	})
	FireDetections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fire_detections_total",
		Help: "Total number of no-fire to fire transitions",
	})
	AlertsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "alerts_sent_total",
		Help: "Total number of fire alerts delivered to external sinks",
	})
	StreamRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_requests_total",
		Help: "Total number of /stream requests accepted",
	})
	FireActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fire_active",
		Help: "1 while the most recent frame reported fire, 0 otherwise",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stream_sessions_active",
		Help: "Number of stream sessions currently running",
	})
)

var srv *http.Server

func prom(port int) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		memUsage, cpuUsage,
		FramesTotal, EncodeFailures, FireDetections,
		AlertsSent, StreamRequests, FireActive, ActiveSessions,
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Prometheus server ListenAndServe error: %v\n", err)
		}
	}()
}

func CheckProcessInfo() {
	// 采样失败时 MemInfo 是 nil，跳过本轮，保留上次的值
	MemInfo, err := PID.MemoryInfo()
	if err != nil {
		return
	}
	var MemMB = MemInfo.RSS / 1024 / 1024
	CPUPercent, err := PID.CPUPercent()
	if err != nil {
		return
	}
	CPUPercentFloat := math.Round(CPUPercent*100) / 100
	memUsage.Set(float64(MemMB))
	cpuUsage.Set(CPUPercentFloat)
}

func GotPID() {
	pid := os.Getpid()
	i32Pid := int32(pid)
	PID.Pid = i32Pid
}

func StartMon(port int, ctx context.Context) {
	PID = process.Process{}
	GotPID()
	go prom(port)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
checkPcs:
	for {
		select {
		case <-ctx.Done():
			break checkPcs
		case <-ticker.C:
			CheckProcessInfo()
		}
	}
	if srv != nil {
		if err := srv.Shutdown(context.Background()); err != nil {
			fmt.Printf("Prometheus server Shutdown error: %v\n", err)
		}
	}
}
