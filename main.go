package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"FireStreamServer/camera"
	"FireStreamServer/engine"
	"FireStreamServer/events"
	iface "FireStreamServer/interface"
	"FireStreamServer/logger"
	"FireStreamServer/monitor"
	"FireStreamServer/notify"

	"github.com/google/uuid"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Println("Invalid configuration:", err)
		os.Exit(1)
	}
	if err := logger.InitProduction(); err != nil {
		fmt.Println("Failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fmt.Println(strings.Repeat("#", 64))
	fmt.Printf("CPU Cores: %d\n", runtime.NumCPU())
	fmt.Println("   API Port:", cfg.Port)
	fmt.Println("Metrics Port:", cfg.MonitorPort)
	fmt.Println("Smooth Frames:", cfg.SmoothFrames)
	fmt.Println("Conf Threshold:", cfg.ConfThreshold)
	fmt.Println(strings.Repeat("#", 64))
	fmt.Println("")

	// 推理引擎
	if err := engine.Initialize(cfg.OrtLibPath); err != nil {
		fmt.Println("Failed to initialize inference runtime:", err)
		os.Exit(1)
	}
	defer engine.Shutdown()

	det := engine.NewDetector(float32(cfg.ConfThreshold), float32(cfg.NMSThreshold), cfg.ImageSize)
	if !det.New() {
		fmt.Println("Failed to create detector")
		os.Exit(1)
	}
	fmt.Printf("Loading model from %s...\n", cfg.ModelPath)
	if err := det.LoadModel(cfg.ModelPath, strings.ToLower(cfg.Device)); err != nil {
		fmt.Println("Failed to load model:", err)
		os.Exit(1)
	}
	defer det.Destroy()
	fmt.Println("Model loaded successfully!")
	fmt.Println("Using device:", det.Device())

	// 帧源
	var cam iface.FrameSource
	if cfg.SourceDir != "" {
		fmt.Printf("Replaying frames from %s...\n", cfg.SourceDir)
		cam, err = camera.OpenFileSource(cfg.SourceDir, cfg.CaptureWidth, cfg.CaptureHeight, 0)
	} else {
		fmt.Printf("Initializing webcam (index %s)...\n", cfg.Camera)
		cam, err = camera.OpenWebcam(cfg.Camera, cfg.CaptureWidth, cfg.CaptureHeight)
	}
	if err != nil {
		fmt.Println("Error: Could not open camera:", err)
		os.Exit(1)
	}
	defer cam.Close()

	hub := events.NewHub()
	defer hub.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 告警通道
	var sinks []notify.Sink
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.WebhookURL))
	}
	if cfg.MQTT.Host != "" {
		clientID := "firestream-" + uuid.NewString()[:8]
		m, err := notify.NewMQTT(cfg.MQTT.Host, cfg.MQTT.Port, cfg.MQTT.User, cfg.MQTT.Pass, cfg.MQTT.Topic, clientID)
		if err != nil {
			// 告警不是核心链路，连不上 broker 降级运行
			logger.S().Warnw("mqtt sink disabled", "err", err)
		} else {
			defer m.Close()
			sinks = append(sinks, m)
		}
	}
	if len(sinks) > 0 {
		ch, cancelSub := hub.Subscribe()
		defer cancelSub()
		mgr := notify.NewManager(cfg.Camera, cfg.alertCooldown(), sinks...)
		go mgr.Run(ctx, ch)
	}

	go monitor.StartMon(cfg.MonitorPort, ctx)

	srv := NewServer(cfg, cam, det, hub)
	httpSrv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler: srv.Router(),
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.S().Errorw("http server failed", "err", err)
		}
	}()

	fmt.Printf("\nServer starting on http://%s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("Stream available at: http://%s:%d/stream\n", cfg.Host, cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.S().Warnw("http shutdown", "err", err)
	}
	fmt.Println("Server stopped.")
}
